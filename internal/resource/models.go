package resource

import "time"

// Project groups pipelines, models and deployments for a team.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Owner       string        `json:"owner"`
	Status      ProjectStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

type ProjectStatus string

const (
	ProjectActive   ProjectStatus = "active"
	ProjectArchived ProjectStatus = "archived"
)

// Pipeline is a training/processing pipeline belonging to a project.
type Pipeline struct {
	ID          string         `json:"id"`
	ProjectID   string         `json:"projectId"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Status      PipelineStatus `json:"status"`
	LastRunAt   *time.Time     `json:"lastRunAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type PipelineStatus string

const (
	PipelineDraft     PipelineStatus = "draft"
	PipelineRunning   PipelineStatus = "running"
	PipelineSucceeded PipelineStatus = "succeeded"
	PipelineFailed    PipelineStatus = "failed"
)

// ModelVersion is a registered model version with its metrics and lifecycle
// stage.
type ModelVersion struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Version   string             `json:"version"`
	URI       string             `json:"uri"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Stage     ModelStage         `json:"stage"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

type ModelStage string

const (
	ModelPending    ModelStage = "pending"
	ModelStaging    ModelStage = "staging"
	ModelProduction ModelStage = "production"
	ModelRejected   ModelStage = "rejected"
	ModelArchived   ModelStage = "archived"
)

// Deployment serves a model version behind an inference endpoint.
type Deployment struct {
	ID           string           `json:"id"`
	ModelID      string           `json:"modelId"`
	Name         string           `json:"name"`
	Endpoint     string           `json:"endpoint"`
	InstanceType string           `json:"instanceType"`
	Replicas     int              `json:"replicas"`
	Status       DeploymentStatus `json:"status"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type DeploymentStatus string

const (
	DeploymentPending   DeploymentStatus = "pending"
	DeploymentDeploying DeploymentStatus = "deploying"
	DeploymentActive    DeploymentStatus = "active"
	DeploymentFailed    DeploymentStatus = "failed"
	DeploymentStopped   DeploymentStatus = "stopped"
)

// Monitor is a drift-detection job watching a deployed model.
type Monitor struct {
	ID             string        `json:"id"`
	ModelID        string        `json:"modelId"`
	Name           string        `json:"name"`
	DriftThreshold float64       `json:"driftThreshold"`
	DriftScore     float64       `json:"driftScore"`
	BaselineWindow string        `json:"baselineWindow"`
	Status         MonitorStatus `json:"status"`
	LastCheckedAt  *time.Time    `json:"lastCheckedAt,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

type MonitorStatus string

const (
	MonitorHealthy  MonitorStatus = "healthy"
	MonitorDrifting MonitorStatus = "drifting"
	MonitorChecking MonitorStatus = "checking"
	MonitorPaused   MonitorStatus = "paused"
)

// Schedule is a recurring report-generation job. The cron expression is a
// serialized description; execution is simulated, not scheduled for real.
type Schedule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	ReportType string         `json:"reportType"`
	Cron       string         `json:"cron"`
	Recipients []string       `json:"recipients,omitempty"`
	Status     ScheduleStatus `json:"status"`
	LastRunAt  *time.Time     `json:"lastRunAt,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

type ScheduleStatus string

const (
	ScheduleScheduled ScheduleStatus = "scheduled"
	ScheduleRunning   ScheduleStatus = "running"
	ScheduleCompleted ScheduleStatus = "completed"
	SchedulePaused    ScheduleStatus = "paused"
)
