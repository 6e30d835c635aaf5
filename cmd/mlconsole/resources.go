package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sajagmathur/mlconsole/internal/notify"
	"github.com/sajagmathur/mlconsole/internal/resource"
	"github.com/sajagmathur/mlconsole/internal/session"
)

// withApp wires the console, enforces login, runs fn, and tears down.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.requireLogin(); err != nil {
		return err
	}
	return fn(cmd.Context(), a)
}

// listCommand builds a `list` subcommand over one collection.
func listCommand[T any](kind string, coll func(a *app) *resource.Collection[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: fmt.Sprintf("List %ss", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				items, outcome, err := coll(a).List(ctx)
				if err != nil {
					return err
				}
				if outcome == resource.AppliedLocally {
					fmt.Println("warning: backend unreachable, showing local data")
				}
				return printJSON(items)
			})
		},
	}
}

// deleteCommand builds a `delete <id>` subcommand over one collection.
func deleteCommand[T any](kind string, perm session.Permission, coll func(a *app) *resource.Collection[T]) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: fmt.Sprintf("Delete a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(perm) {
					return fmt.Errorf("deleting a %s requires the %s permission", kind, perm)
				}
				outcome, err := coll(a).Delete(ctx, args[0])
				if err != nil {
					return err
				}
				a.notify.LogAction(fmt.Sprintf("Deleted %s", kind), args[0], notify.CategoryDelete)
				printOutcome(outcome)
				fmt.Printf("%s %s deleted\n", kind, args[0])
				return nil
			})
		},
	}
}

// created reports a successful create: audit entry, outcome warning, record.
func created[T any](a *app, kind string, res resource.Result[T], name string) error {
	a.notify.LogAction(fmt.Sprintf("Created %s", kind), name, notify.CategoryCreate)
	printOutcome(res.Outcome)
	return printJSON(res.Record)
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}

	var name, description, owner string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermProjectsWrite) {
					return fmt.Errorf("creating a project requires the %s permission", session.PermProjectsWrite)
				}
				res, err := a.catalog.Projects.Create(ctx, resource.Project{
					Name:        name,
					Description: description,
					Owner:       owner,
					Status:      resource.ProjectActive,
				})
				if err != nil {
					return err
				}
				return created(a, "project", res, name)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "project name")
	create.Flags().StringVar(&description, "description", "", "project description")
	create.Flags().StringVar(&owner, "owner", "", "owning team")
	_ = create.MarkFlagRequired("name")

	archive := &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermProjectsWrite) {
					return fmt.Errorf("archiving a project requires the %s permission", session.PermProjectsWrite)
				}
				p, ok := a.catalog.Projects.Get(args[0])
				if !ok {
					return fmt.Errorf("project %s not found", args[0])
				}
				p.Status = resource.ProjectArchived
				res, err := a.catalog.Projects.Update(ctx, args[0], p)
				if err != nil {
					return err
				}
				a.notify.LogAction("Archived project", p.Name, notify.CategoryUpdate)
				printOutcome(res.Outcome)
				return printJSON(res.Record)
			})
		},
	}

	cmd.AddCommand(
		listCommand("project", func(a *app) *resource.Collection[resource.Project] { return a.catalog.Projects }),
		create,
		archive,
		deleteCommand("project", session.PermProjectsWrite, func(a *app) *resource.Collection[resource.Project] { return a.catalog.Projects }),
	)
	return cmd
}

func pipelineCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "pipeline", Short: "Manage pipelines"}

	var projectID, name, description string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a pipeline",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermPipelinesWrite) {
					return fmt.Errorf("creating a pipeline requires the %s permission", session.PermPipelinesWrite)
				}
				res, err := a.catalog.Pipelines.Create(ctx, resource.Pipeline{
					ProjectID:   projectID,
					Name:        name,
					Description: description,
					Status:      resource.PipelineDraft,
				})
				if err != nil {
					return err
				}
				return created(a, "pipeline", res, name)
			})
		},
	}
	create.Flags().StringVar(&projectID, "project", "", "owning project id")
	create.Flags().StringVar(&name, "name", "", "pipeline name")
	create.Flags().StringVar(&description, "description", "", "pipeline description")
	_ = create.MarkFlagRequired("name")

	run := &cobra.Command{
		Use:   "run <id>",
		Short: "Trigger a pipeline run",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermPipelinesRun) {
					return fmt.Errorf("running a pipeline requires the %s permission", session.PermPipelinesRun)
				}
				res, err := a.catalog.RunPipeline(ctx, args[0])
				if err != nil {
					return err
				}
				a.notify.LogAction("Ran pipeline", res.Record.Name, notify.CategoryRun)
				printOutcome(res.Outcome)
				return printJSON(res.Record)
			})
		},
	}

	cmd.AddCommand(
		listCommand("pipeline", func(a *app) *resource.Collection[resource.Pipeline] { return a.catalog.Pipelines }),
		create,
		run,
		deleteCommand("pipeline", session.PermPipelinesWrite, func(a *app) *resource.Collection[resource.Pipeline] { return a.catalog.Pipelines }),
	)
	return cmd
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "model", Short: "Manage model versions"}

	var name, modelVersion, uri string
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a model version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermModelsWrite) {
					return fmt.Errorf("registering a model requires the %s permission", session.PermModelsWrite)
				}
				res, err := a.catalog.Models.Create(ctx, resource.ModelVersion{
					Name:    name,
					Version: modelVersion,
					URI:     uri,
					Stage:   resource.ModelPending,
				})
				if err != nil {
					return err
				}
				return created(a, "model", res, name)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "model name")
	create.Flags().StringVar(&modelVersion, "version", "", "model version")
	create.Flags().StringVar(&uri, "uri", "", "artifact URI")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("version")

	approve := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a model version for production",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermModelsApprove) {
					return fmt.Errorf("approving a model requires the %s permission", session.PermModelsApprove)
				}
				res, err := a.catalog.ApproveModel(ctx, args[0])
				if err != nil {
					return err
				}
				a.notify.LogAction("Approved model", res.Record.Name, notify.CategoryApprove)
				printOutcome(res.Outcome)
				return printJSON(res.Record)
			})
		},
	}

	reject := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a model version",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermModelsApprove) {
					return fmt.Errorf("rejecting a model requires the %s permission", session.PermModelsApprove)
				}
				res, err := a.catalog.RejectModel(ctx, args[0])
				if err != nil {
					return err
				}
				a.notify.LogAction("Rejected model", res.Record.Name, notify.CategoryReject)
				printOutcome(res.Outcome)
				return printJSON(res.Record)
			})
		},
	}

	cmd.AddCommand(
		listCommand("model", func(a *app) *resource.Collection[resource.ModelVersion] { return a.catalog.Models }),
		create,
		approve,
		reject,
		deleteCommand("model", session.PermModelsWrite, func(a *app) *resource.Collection[resource.ModelVersion] { return a.catalog.Models }),
	)
	return cmd
}

func deploymentCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "deployment", Short: "Manage deployments"}

	var modelID, name, endpoint, instanceType string
	var replicas int
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a deployment",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermDeploymentsWrite) {
					return fmt.Errorf("creating a deployment requires the %s permission", session.PermDeploymentsWrite)
				}
				res, err := a.catalog.Deployments.Create(ctx, resource.Deployment{
					ModelID:      modelID,
					Name:         name,
					Endpoint:     endpoint,
					InstanceType: instanceType,
					Replicas:     replicas,
					Status:       resource.DeploymentPending,
				})
				if err != nil {
					return err
				}
				return created(a, "deployment", res, name)
			})
		},
	}
	create.Flags().StringVar(&modelID, "model", "", "deployed model version id")
	create.Flags().StringVar(&name, "name", "", "deployment name")
	create.Flags().StringVar(&endpoint, "endpoint", "", "inference endpoint path")
	create.Flags().StringVar(&instanceType, "instance-type", "", "instance type")
	create.Flags().IntVar(&replicas, "replicas", 1, "replica count")
	_ = create.MarkFlagRequired("name")

	cmd.AddCommand(
		listCommand("deployment", func(a *app) *resource.Collection[resource.Deployment] { return a.catalog.Deployments }),
		create,
		deleteCommand("deployment", session.PermDeploymentsWrite, func(a *app) *resource.Collection[resource.Deployment] { return a.catalog.Deployments }),
	)
	return cmd
}

func monitorCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "monitor", Short: "Manage drift monitors"}

	var modelID, name, baselineWindow string
	var threshold float64
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a drift monitor",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermMonitorsWrite) {
					return fmt.Errorf("creating a monitor requires the %s permission", session.PermMonitorsWrite)
				}
				res, err := a.catalog.Monitors.Create(ctx, resource.Monitor{
					ModelID:        modelID,
					Name:           name,
					DriftThreshold: threshold,
					BaselineWindow: baselineWindow,
					Status:         resource.MonitorHealthy,
				})
				if err != nil {
					return err
				}
				return created(a, "monitor", res, name)
			})
		},
	}
	create.Flags().StringVar(&modelID, "model", "", "monitored model version id")
	create.Flags().StringVar(&name, "name", "", "monitor name")
	create.Flags().Float64Var(&threshold, "threshold", 0.1, "drift score threshold")
	create.Flags().StringVar(&baselineWindow, "baseline-window", "7d", "baseline comparison window")
	_ = create.MarkFlagRequired("name")

	check := &cobra.Command{
		Use:   "check <id>",
		Short: "Run a drift check now",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				res, err := a.catalog.CheckMonitor(ctx, args[0])
				if err != nil {
					return err
				}
				a.notify.LogAction("Checked monitor", res.Record.Name, notify.CategoryRun)
				printOutcome(res.Outcome)
				return printJSON(res.Record)
			})
		},
	}

	cmd.AddCommand(
		listCommand("monitor", func(a *app) *resource.Collection[resource.Monitor] { return a.catalog.Monitors }),
		create,
		check,
		deleteCommand("monitor", session.PermMonitorsWrite, func(a *app) *resource.Collection[resource.Monitor] { return a.catalog.Monitors }),
	)
	return cmd
}

func scheduleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "schedule", Short: "Manage report schedules"}

	var name, reportType, cronExpr string
	var recipients []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a report schedule",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermSchedulesWrite) {
					return fmt.Errorf("creating a schedule requires the %s permission", session.PermSchedulesWrite)
				}
				res, err := a.catalog.Schedules.Create(ctx, resource.Schedule{
					Name:       name,
					ReportType: reportType,
					Cron:       cronExpr,
					Recipients: recipients,
					Status:     resource.ScheduleScheduled,
				})
				if err != nil {
					return err
				}
				return created(a, "schedule", res, name)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "schedule name")
	create.Flags().StringVar(&reportType, "report-type", "", "report type")
	create.Flags().StringVar(&cronExpr, "cron", "", "cron expression")
	create.Flags().StringSliceVar(&recipients, "recipients", nil, "report recipients")
	_ = create.MarkFlagRequired("name")

	run := &cobra.Command{
		Use:   "run <id>",
		Short: "Generate the report now",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c, func(ctx context.Context, a *app) error {
				if !a.sessions.HasPermission(session.PermReportsGenerate) {
					return fmt.Errorf("generating a report requires the %s permission", session.PermReportsGenerate)
				}
				res, err := a.catalog.RunSchedule(ctx, args[0])
				if err != nil {
					return err
				}
				a.notify.LogAction("Ran schedule", res.Record.Name, notify.CategoryRun)
				printOutcome(res.Outcome)
				return printJSON(res.Record)
			})
		},
	}

	cmd.AddCommand(
		listCommand("schedule", func(a *app) *resource.Collection[resource.Schedule] { return a.catalog.Schedules }),
		create,
		run,
		deleteCommand("schedule", session.PermSchedulesWrite, func(a *app) *resource.Collection[resource.Schedule] { return a.catalog.Schedules }),
	)
	return cmd
}

func init() {
	rootCmd.AddCommand(
		projectCmd(),
		pipelineCmd(),
		modelCmd(),
		deploymentCmd(),
		monitorCmd(),
		scheduleCmd(),
	)
}
