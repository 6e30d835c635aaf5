package resource

import (
	"context"
	"time"

	"github.com/sajagmathur/mlconsole/internal/metrics"
)

// defaultRunDelay is how long a locally-simulated run stays in its running
// state before flipping to its terminal status.
const defaultRunDelay = 3 * time.Second

// Catalog bundles one collection per record kind.
type Catalog struct {
	Projects    *Collection[Project]
	Pipelines   *Collection[Pipeline]
	Models      *Collection[ModelVersion]
	Deployments *Collection[Deployment]
	Monitors    *Collection[Monitor]
	Schedules   *Collection[Schedule]

	runDelay time.Duration
}

// CatalogOptions tunes catalog behavior.
type CatalogOptions struct {
	// RunDelay overrides the simulated run duration (default 3s).
	RunDelay time.Duration
}

// NewCatalog wires a collection for each of the six record kinds.
func NewCatalog(api API, m *metrics.Metrics, opts CatalogOptions) *Catalog {
	runDelay := opts.RunDelay
	if runDelay <= 0 {
		runDelay = defaultRunDelay
	}
	return &Catalog{
		Projects: NewCollection(api, Descriptor[Project]{
			Kind:  "project",
			Path:  "/api/projects",
			ID:    func(p Project) string { return p.ID },
			SetID: func(p *Project, id string) { p.ID = id },
		}, m),
		Pipelines: NewCollection(api, Descriptor[Pipeline]{
			Kind:  "pipeline",
			Path:  "/api/pipelines",
			ID:    func(p Pipeline) string { return p.ID },
			SetID: func(p *Pipeline, id string) { p.ID = id },
		}, m),
		Models: NewCollection(api, Descriptor[ModelVersion]{
			Kind:  "model",
			Path:  "/api/models",
			ID:    func(mv ModelVersion) string { return mv.ID },
			SetID: func(mv *ModelVersion, id string) { mv.ID = id },
		}, m),
		Deployments: NewCollection(api, Descriptor[Deployment]{
			Kind:  "deployment",
			Path:  "/api/deployments",
			ID:    func(d Deployment) string { return d.ID },
			SetID: func(d *Deployment, id string) { d.ID = id },
		}, m),
		Monitors: NewCollection(api, Descriptor[Monitor]{
			Kind:  "monitor",
			Path:  "/api/monitors",
			ID:    func(mo Monitor) string { return mo.ID },
			SetID: func(mo *Monitor, id string) { mo.ID = id },
		}, m),
		Schedules: NewCollection(api, Descriptor[Schedule]{
			Kind:  "schedule",
			Path:  "/api/schedules",
			ID:    func(s Schedule) string { return s.ID },
			SetID: func(s *Schedule, id string) { s.ID = id },
		}, m),
		runDelay: runDelay,
	}
}

// RunPipeline triggers a pipeline run. Locally-simulated runs finish as
// succeeded after the run delay.
func (c *Catalog) RunPipeline(ctx context.Context, id string) (Result[Pipeline], error) {
	return c.Pipelines.Run(ctx, id, "run",
		func(p Pipeline) Pipeline {
			now := time.Now()
			p.Status = PipelineRunning
			p.LastRunAt = &now
			return p
		},
		func(p Pipeline) Pipeline {
			p.Status = PipelineSucceeded
			return p
		},
		c.runDelay,
	)
}

// RunSchedule triggers a report-generation run.
func (c *Catalog) RunSchedule(ctx context.Context, id string) (Result[Schedule], error) {
	return c.Schedules.Run(ctx, id, "run",
		func(s Schedule) Schedule {
			now := time.Now()
			s.Status = ScheduleRunning
			s.LastRunAt = &now
			return s
		},
		func(s Schedule) Schedule {
			s.Status = ScheduleCompleted
			return s
		},
		c.runDelay,
	)
}

// CheckMonitor triggers a drift check.
func (c *Catalog) CheckMonitor(ctx context.Context, id string) (Result[Monitor], error) {
	return c.Monitors.Run(ctx, id, "check",
		func(m Monitor) Monitor {
			now := time.Now()
			m.Status = MonitorChecking
			m.LastCheckedAt = &now
			return m
		},
		func(m Monitor) Monitor {
			if m.DriftScore > m.DriftThreshold {
				m.Status = MonitorDrifting
			} else {
				m.Status = MonitorHealthy
			}
			return m
		},
		c.runDelay,
	)
}

// ApproveModel promotes a model version to production.
func (c *Catalog) ApproveModel(ctx context.Context, id string) (Result[ModelVersion], error) {
	return c.Models.Transition(ctx, id, "approve", func(mv ModelVersion) ModelVersion {
		mv.Stage = ModelProduction
		return mv
	})
}

// RejectModel marks a model version rejected.
func (c *Catalog) RejectModel(ctx context.Context, id string) (Result[ModelVersion], error) {
	return c.Models.Transition(ctx, id, "reject", func(mv ModelVersion) ModelVersion {
		mv.Stage = ModelRejected
		return mv
	})
}

// Close drops pending simulated-run completions on every collection.
func (c *Catalog) Close() {
	c.Projects.Close()
	c.Pipelines.Close()
	c.Models.Close()
	c.Deployments.Close()
	c.Monitors.Close()
	c.Schedules.Close()
}
