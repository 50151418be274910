package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/metrics"
	"github.com/brand-agent/backend/pkg/logger"
)

var (
	ErrMailboxFull        = errors.New("worker mailbox full")
	ErrNoWorkersAvailable = errors.New("no workers available for required capabilities")
	ErrWorkerStopped      = errors.New("worker stopped")
)

const (
	mailboxCapacity      = 1000
	seedSuccessRate      = 0.8
	seedAvgResponseTime  = 2.0
	minViableSuccessRate = 0.3
	maxWorkersPerTask    = 5
)

type envelope struct {
	ctx    context.Context
	task   *Task
	shared map[string]interface{}
	reply  chan WorkerResult
}

type WorkerStats struct {
	SuccessRate     float64 `json:"successRate"`
	AvgResponseTime float64 `json:"avgResponseTime"`
	TasksCompleted  int     `json:"tasksCompleted"`
	Available       bool    `json:"available"`
}

type workerState struct {
	worker       Worker
	capabilities map[Capability]struct{}
	stats        WorkerStats
	mailbox      chan envelope
	stop         chan struct{}
}

// Registry tracks registered workers, their capabilities, availability
// and rolling performance stats. All mutation happens under one lock;
// stats updates are incremental so memory stays constant per worker.
type Registry struct {
	mu      sync.Mutex
	workers map[string]*workerState
}

func NewRegistry() *Registry {
	return &Registry{workers: make(map[string]*workerState)}
}

func (r *Registry) Register(worker Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := worker.ID()
	if _, exists := r.workers[id]; exists {
		return fmt.Errorf("worker already registered: %s", id)
	}

	capabilities := make(map[Capability]struct{}, len(worker.Capabilities()))
	for _, c := range worker.Capabilities() {
		capabilities[c] = struct{}{}
	}

	state := &workerState{
		worker:       worker,
		capabilities: capabilities,
		stats: WorkerStats{
			SuccessRate:     seedSuccessRate,
			AvgResponseTime: seedAvgResponseTime,
			Available:       true,
		},
		mailbox: make(chan envelope, mailboxCapacity),
		stop:    make(chan struct{}),
	}
	r.workers[id] = state

	go r.serve(state)
	logger.Info("Worker registered", zap.String("worker", id), zap.Int("capabilities", len(capabilities)))
	return nil
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	state, ok := r.workers[id]
	if ok {
		delete(r.workers, id)
	}
	r.mu.Unlock()

	if ok {
		close(state.stop)
	}
}

func (r *Registry) serve(state *workerState) {
	id := state.worker.ID()
	for {
		select {
		case <-state.stop:
			r.drain(state)
			return
		case env := <-state.mailbox:
			r.setAvailable(id, false)
			result := runWorker(state.worker, env)
			r.record(id, result.Err == nil, result.Duration)
			r.setAvailable(id, true)
			select {
			case env.reply <- result:
			case <-env.ctx.Done():
			}
		}
	}
}

func (r *Registry) drain(state *workerState) {
	for {
		select {
		case env := <-state.mailbox:
			result := WorkerResult{WorkerID: state.worker.ID(), Err: ErrWorkerStopped}
			select {
			case env.reply <- result:
			case <-env.ctx.Done():
			}
		default:
			return
		}
	}
}

func runWorker(worker Worker, env envelope) (result WorkerResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Worker panicked", zap.String("worker", worker.ID()), zap.Any("panic", rec))
			result = WorkerResult{
				WorkerID: worker.ID(),
				Err:      fmt.Errorf("worker %s panicked: %v", worker.ID(), rec),
				Duration: time.Since(start),
			}
		}
	}()

	output, err := worker.Execute(env.ctx, env.task, env.shared)
	return WorkerResult{WorkerID: worker.ID(), Output: output, Err: err, Duration: time.Since(start)}
}

// send delivers a task envelope to the worker's bounded mailbox. A full
// mailbox rejects the send immediately; backpressure is observable,
// never a silent block.
func (r *Registry) send(ctx context.Context, id string, task *Task, shared map[string]interface{}) (chan WorkerResult, error) {
	r.mu.Lock()
	state, ok := r.workers[id]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown worker: %s", id)
	}

	env := envelope{ctx: ctx, task: task, shared: shared, reply: make(chan WorkerResult, 1)}
	select {
	case state.mailbox <- env:
		return env.reply, nil
	default:
		logger.Warn("Mailbox full, rejecting task",
			zap.String("worker", id), zap.String("task", task.ID))
		metrics.MailboxRejections.WithLabelValues(id).Inc()
		return nil, fmt.Errorf("%w: %s", ErrMailboxFull, id)
	}
}

// SelectByCapability returns up to five available workers whose
// capability set intersects the requirement and whose success rate is
// above the viability floor, best performers first.
func (r *Registry) SelectByCapability(required []Capability) []Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	type candidate struct {
		worker Worker
		rate   float64
	}
	var candidates []candidate

	for _, state := range r.workers {
		if !state.stats.Available || state.stats.SuccessRate <= minViableSuccessRate {
			continue
		}
		for _, c := range required {
			if _, ok := state.capabilities[c]; ok {
				candidates = append(candidates, candidate{worker: state.worker, rate: state.stats.SuccessRate})
				break
			}
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rate != candidates[j].rate {
			return candidates[i].rate > candidates[j].rate
		}
		return candidates[i].worker.ID() < candidates[j].worker.ID()
	})

	if len(candidates) > maxWorkersPerTask {
		candidates = candidates[:maxWorkersPerTask]
	}
	workers := make([]Worker, len(candidates))
	for i, c := range candidates {
		workers[i] = c.worker
	}
	return workers
}

func (r *Registry) setAvailable(id string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.workers[id]; ok {
		state.stats.Available = available
	}
}

// record folds one sample into the worker's running averages without
// retaining history.
func (r *Registry) record(id string, success bool, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.workers[id]
	if !ok {
		return
	}

	n := float64(state.stats.TasksCompleted + 1)
	sample := 0.0
	if success {
		sample = 1.0
	}
	state.stats.SuccessRate = (state.stats.SuccessRate*(n-1) + sample) / n
	state.stats.AvgResponseTime = (state.stats.AvgResponseTime*(n-1) + duration.Seconds()) / n
	state.stats.TasksCompleted++

	status := "success"
	if !success {
		status = "failure"
	}
	metrics.WorkerTasksExecuted.WithLabelValues(id, status).Inc()
}

func (r *Registry) Stats(id string) (WorkerStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.workers[id]
	if !ok {
		return WorkerStats{}, false
	}
	return state.stats, true
}

func (r *Registry) Snapshot() map[string]WorkerStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]WorkerStats, len(r.workers))
	for id, state := range r.workers {
		snapshot[id] = state.stats
	}
	return snapshot
}
