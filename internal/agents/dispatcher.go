package agents

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/pkg/logger"
)

type Strategy string

const (
	StrategySingle        Strategy = "single"
	StrategySequential    Strategy = "sequential"
	StrategyParallel      Strategy = "parallel"
	StrategyCollaborative Strategy = "collaborative"
)

const (
	phaseKey     = "phase"
	phaseInit    = "initialize"
	phaseExecute = "execute"
	priorWorkKey = "priorResults"
)

// Dispatcher selects workers from the registry and executes a task
// under one coordination strategy, recording per-worker results on the
// task itself.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Execute runs the task to a terminal status. Only resource exhaustion
// (no matching workers, every mailbox full) is returned as an error;
// individual worker failures live in task.Results.
func (d *Dispatcher) Execute(ctx context.Context, task *Task, strategy Strategy) error {
	workers := d.registry.SelectByCapability(task.RequiredCapabilities)
	if len(workers) == 0 {
		task.Status = TaskFailed
		task.CompletedAt = time.Now()
		return ErrNoWorkersAvailable
	}

	task.Status = TaskExecuting
	task.StartedAt = time.Now()
	for _, w := range workers {
		task.AssignedAgents = append(task.AssignedAgents, w.ID())
	}

	var results []WorkerResult
	switch strategy {
	case StrategySequential:
		results = d.runSequential(ctx, task, workers)
	case StrategyParallel:
		results = d.runParallel(ctx, task, workers)
	case StrategyCollaborative:
		results = d.runCollaborative(ctx, task, workers)
	default:
		results = []WorkerResult{d.dispatch(ctx, workers[0], task, nil)}
	}

	task.Results = results
	task.CompletedAt = time.Now()

	succeeded := 0
	rejected := 0
	for _, res := range results {
		if res.Err == nil {
			succeeded++
		} else if errors.Is(res.Err, ErrMailboxFull) {
			rejected++
		}
	}
	if succeeded > 0 {
		task.Status = TaskCompleted
	} else {
		task.Status = TaskFailed
		if rejected == len(results) {
			return ErrMailboxFull
		}
	}
	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, worker Worker, task *Task, shared map[string]interface{}) WorkerResult {
	reply, err := d.registry.send(ctx, worker.ID(), task, shared)
	if err != nil {
		return WorkerResult{WorkerID: worker.ID(), Err: err}
	}
	select {
	case result := <-reply:
		return result
	case <-ctx.Done():
		return WorkerResult{WorkerID: worker.ID(), Err: ctx.Err()}
	}
}

// runSequential feeds each worker the outputs of the workers before it.
func (d *Dispatcher) runSequential(ctx context.Context, task *Task, workers []Worker) []WorkerResult {
	shared := make(map[string]interface{})
	results := make([]WorkerResult, 0, len(workers))

	for _, worker := range workers {
		result := d.dispatch(ctx, worker, task, shared)
		results = append(results, result)
		if result.Err == nil {
			shared[worker.ID()] = result.Output
		}
	}
	return results
}

// runParallel fans the task out to every worker at once and gathers all
// results. One worker's failure never cancels or starves its siblings.
func (d *Dispatcher) runParallel(ctx context.Context, task *Task, workers []Worker) []WorkerResult {
	results := make([]WorkerResult, len(workers))
	var wg sync.WaitGroup

	for i, worker := range workers {
		wg.Add(1)
		go func(i int, worker Worker) {
			defer wg.Done()
			results[i] = d.dispatch(ctx, worker, task, nil)
		}(i, worker)
	}
	wg.Wait()
	return results
}

// runCollaborative runs two phases: every worker first acknowledges the
// shared context, then contributes with the accumulated results so far
// visible.
func (d *Dispatcher) runCollaborative(ctx context.Context, task *Task, workers []Worker) []WorkerResult {
	initShared := map[string]interface{}{phaseKey: phaseInit}
	var active []Worker
	var results []WorkerResult

	for _, worker := range workers {
		result := d.dispatch(ctx, worker, task, initShared)
		if result.Err != nil {
			logger.Warn("Worker failed collaborative initialization",
				zap.String("worker", worker.ID()), zap.Error(result.Err))
			results = append(results, result)
			continue
		}
		active = append(active, worker)
	}

	accumulated := make(map[string]interface{})
	for _, worker := range active {
		shared := map[string]interface{}{
			phaseKey:     phaseExecute,
			priorWorkKey: accumulated,
		}
		result := d.dispatch(ctx, worker, task, shared)
		results = append(results, result)
		if result.Err == nil {
			accumulated[worker.ID()] = result.Output
		}
	}
	return results
}
