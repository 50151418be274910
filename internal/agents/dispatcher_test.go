package agents

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorker struct {
	id           string
	capabilities []Capability
	execute      func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error)
}

func (w *stubWorker) ID() string                 { return w.id }
func (w *stubWorker) Capabilities() []Capability { return w.capabilities }
func (w *stubWorker) Execute(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
	return w.execute(ctx, task, shared)
}

func okWorker(id string, caps ...Capability) *stubWorker {
	return &stubWorker{
		id:           id,
		capabilities: caps,
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"worker": id}, nil
		},
	}
}

func newTask(caps ...Capability) *Task {
	return &Task{
		ID:                   "task-1",
		Description:          "test task",
		RequiredCapabilities: caps,
		Priority:             PriorityNormal,
		Status:               TaskPending,
		CreatedAt:            time.Now(),
	}
}

func TestSelectByCapabilityFiltersAndCaps(t *testing.T) {
	registry := NewRegistry()
	for i := 0; i < 7; i++ {
		require.NoError(t, registry.Register(okWorker(fmt.Sprintf("collector-%d", i), CapabilityDataCollection)))
	}
	require.NoError(t, registry.Register(okWorker("analyzer", CapabilitySentimentAnalysis)))

	selected := registry.SelectByCapability([]Capability{CapabilityDataCollection})
	assert.Len(t, selected, 5)
	for _, w := range selected {
		assert.Contains(t, w.ID(), "collector")
	}

	assert.Empty(t, registry.SelectByCapability([]Capability{CapabilityPublishing}))
}

func TestRegisterSeedsStats(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(okWorker("w1", CapabilityDataCollection)))

	stats, ok := registry.Stats("w1")
	require.True(t, ok)
	assert.Equal(t, 0.8, stats.SuccessRate)
	assert.Equal(t, 2.0, stats.AvgResponseTime)
	assert.Equal(t, 0, stats.TasksCompleted)
	assert.True(t, stats.Available)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(okWorker("w1", CapabilityDataCollection)))
	assert.Error(t, registry.Register(okWorker("w1", CapabilityDataCollection)))
}

func TestIncrementalAverages(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(okWorker("w1", CapabilityDataCollection)))

	registry.record("w1", true, 1*time.Second)
	registry.record("w1", false, 3*time.Second)

	stats, ok := registry.Stats("w1")
	require.True(t, ok)
	assert.Equal(t, 2, stats.TasksCompleted)
	assert.InDelta(t, 0.5, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 2.0, stats.AvgResponseTime, 1e-9)
}

func TestNoWorkersAvailableEscalates(t *testing.T) {
	dispatcher := NewDispatcher(NewRegistry())
	task := newTask(CapabilityDataCollection)

	err := dispatcher.Execute(context.Background(), task, StrategySingle)
	assert.ErrorIs(t, err, ErrNoWorkersAvailable)
	assert.Equal(t, TaskFailed, task.Status)
}

func TestSingleStrategy(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(okWorker("w1", CapabilityDataCollection)))
	dispatcher := NewDispatcher(registry)

	task := newTask(CapabilityDataCollection)
	require.NoError(t, dispatcher.Execute(context.Background(), task, StrategySingle))

	assert.Equal(t, TaskCompleted, task.Status)
	require.Len(t, task.Results, 1)
	assert.Equal(t, "w1", task.Results[0].WorkerID)
	assert.NoError(t, task.Results[0].Err)
}

func TestSequentialStrategySeesPriorResults(t *testing.T) {
	registry := NewRegistry()
	seen := make(chan bool, 1)

	require.NoError(t, registry.Register(&stubWorker{
		id:           "a-first",
		capabilities: []Capability{CapabilitySentimentAnalysis},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"step": 1}, nil
		},
	}))
	require.NoError(t, registry.Register(&stubWorker{
		id:           "b-second",
		capabilities: []Capability{CapabilitySentimentAnalysis},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			_, ok := shared["a-first"]
			seen <- ok
			return map[string]interface{}{"step": 2}, nil
		},
	}))

	dispatcher := NewDispatcher(registry)
	task := newTask(CapabilitySentimentAnalysis)
	require.NoError(t, dispatcher.Execute(context.Background(), task, StrategySequential))

	assert.True(t, <-seen, "second worker must see the first worker's output")
	assert.Equal(t, TaskCompleted, task.Status)
	assert.Len(t, task.Results, 2)
}

func TestParallelFailureDoesNotStarveSiblings(t *testing.T) {
	registry := NewRegistry()
	var completed int32

	require.NoError(t, registry.Register(&stubWorker{
		id:           "exploder",
		capabilities: []Capability{CapabilityResponseGeneration},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			panic("deliberate failure")
		},
	}))
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("steady-%d", i)
		require.NoError(t, registry.Register(&stubWorker{
			id:           id,
			capabilities: []Capability{CapabilityResponseGeneration},
			execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
				atomic.AddInt32(&completed, 1)
				return map[string]interface{}{"ok": true}, nil
			},
		}))
	}

	dispatcher := NewDispatcher(registry)
	task := newTask(CapabilityResponseGeneration)
	require.NoError(t, dispatcher.Execute(context.Background(), task, StrategyParallel))

	assert.Equal(t, TaskCompleted, task.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&completed))

	var failures, successes int
	for _, res := range task.Results {
		if res.Err != nil {
			failures++
			assert.Equal(t, "exploder", res.WorkerID)
		} else {
			successes++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 3, successes)
}

func TestCollaborativeStrategyAccumulates(t *testing.T) {
	registry := NewRegistry()
	sawPrior := make(chan bool, 1)

	require.NoError(t, registry.Register(&stubWorker{
		id:           "a-lead",
		capabilities: []Capability{CapabilityCrisisAssessment},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"assessment": "elevated"}, nil
		},
	}))
	require.NoError(t, registry.Register(&stubWorker{
		id:           "b-follow",
		capabilities: []Capability{CapabilityCrisisAssessment},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			if shared[phaseKey] == phaseExecute {
				prior, _ := shared[priorWorkKey].(map[string]interface{})
				_, ok := prior["a-lead"]
				sawPrior <- ok
			}
			return map[string]interface{}{"assessment": "agree"}, nil
		},
	}))

	dispatcher := NewDispatcher(registry)
	task := newTask(CapabilityCrisisAssessment)
	require.NoError(t, dispatcher.Execute(context.Background(), task, StrategyCollaborative))

	assert.True(t, <-sawPrior, "follower must see the lead's contribution")
	assert.Equal(t, TaskCompleted, task.Status)
}

func TestMailboxOverflowRejectsSend(t *testing.T) {
	registry := NewRegistry()
	block := make(chan struct{})
	require.NoError(t, registry.Register(&stubWorker{
		id:           "slow",
		capabilities: []Capability{CapabilityPublishing},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			<-block
			return nil, nil
		},
	}))
	defer close(block)

	// Occupy the worker, then fill the mailbox to capacity.
	task := newTask(CapabilityPublishing)
	busy, err := registry.send(context.Background(), "slow", task, nil)
	require.NoError(t, err)
	_ = busy

	// The serve loop takes one envelope off the channel; wait for that.
	require.Eventually(t, func() bool {
		stats, _ := registry.Stats("slow")
		return !stats.Available
	}, time.Second, 5*time.Millisecond)

	for i := 0; i < mailboxCapacity; i++ {
		_, err := registry.send(context.Background(), "slow", task, nil)
		require.NoError(t, err)
	}

	_, err = registry.send(context.Background(), "slow", task, nil)
	assert.ErrorIs(t, err, ErrMailboxFull)
}

func TestWorkerErrorUpdatesSuccessRate(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubWorker{
		id:           "flaky",
		capabilities: []Capability{CapabilityAlerting},
		execute: func(ctx context.Context, task *Task, shared map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("downstream unavailable")
		},
	}))

	dispatcher := NewDispatcher(registry)
	task := newTask(CapabilityAlerting)
	require.NoError(t, dispatcher.Execute(context.Background(), task, StrategySingle))

	assert.Equal(t, TaskFailed, task.Status)
	stats, ok := registry.Stats("flaky")
	require.True(t, ok)
	assert.Equal(t, 1, stats.TasksCompleted)
	assert.InDelta(t, 0.0, stats.SuccessRate, 1e-9)
}
