package agents

import (
	"context"
	"time"
)

type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
	PriorityEmergency
)

type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskExecuting TaskStatus = "executing"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// Task is one unit of work submitted to the dispatch layer. Its status
// moves strictly forward: pending, executing, then completed or failed.
type Task struct {
	ID                   string
	Description          string
	RequiredCapabilities []Capability
	Priority             Priority
	Payload              map[string]interface{}
	Status               TaskStatus
	AssignedAgents       []string
	Results              []WorkerResult
	CreatedAt            time.Time
	StartedAt            time.Time
	CompletedAt          time.Time
}

type WorkerResult struct {
	WorkerID string
	Output   map[string]interface{}
	Err      error
	Duration time.Duration
}

// Worker executes a task with a shared context map. The shared map
// carries prior results under sequential and collaborative strategies.
type Worker interface {
	ID() string
	Capabilities() []Capability
	Execute(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error)
}
