package monitor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brand-agent/backend/internal/storage/models"
)

type stubRunner struct {
	mu    sync.Mutex
	runs  map[string]int
	fail  map[string]bool
	panic map[string]bool
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		runs:  make(map[string]int),
		fail:  make(map[string]bool),
		panic: make(map[string]bool),
	}
}

func (r *stubRunner) Run(_ context.Context, _ string, brand models.Brand, _, _ []string) (*models.WorkflowReport, error) {
	r.mu.Lock()
	r.runs[brand.ID]++
	shouldFail := r.fail[brand.ID]
	shouldPanic := r.panic[brand.ID]
	r.mu.Unlock()

	if shouldPanic {
		panic("runner exploded")
	}
	if shouldFail {
		return nil, fmt.Errorf("cycle failed")
	}
	return &models.WorkflowReport{
		WorkflowID: "wf-" + brand.ID,
		BrandID:    brand.ID,
		Status:     models.WorkflowStatusCompleted,
		Success:    true,
	}, nil
}

func (r *stubRunner) count(brandID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[brandID]
}

func brandFixture(id string) models.Brand {
	return models.Brand{ID: id, Name: "Brand " + id}
}

func TestStartRunsImmediateCycle(t *testing.T) {
	runner := newStubRunner()
	var mu sync.Mutex
	var sunk []*models.WorkflowReport
	svc := NewService(runner, time.Hour, func(r *models.WorkflowReport) {
		mu.Lock()
		sunk = append(sunk, r)
		mu.Unlock()
	})
	defer svc.StopAll()

	require.NoError(t, svc.Start(brandFixture("b1"), []string{models.PlatformTwitter}, []string{"brand"}))

	assert.Eventually(t, func() bool { return runner.count("b1") == 1 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(sunk) == 1
	}, time.Second, 10*time.Millisecond)

	status, ok := svc.StatusFor("b1")
	require.True(t, ok)
	assert.True(t, status.Running)
	assert.Equal(t, models.WorkflowStatusCompleted, status.LastStatus)
}

func TestStartRejectsDuplicate(t *testing.T) {
	svc := NewService(newStubRunner(), time.Hour, nil)
	defer svc.StopAll()

	require.NoError(t, svc.Start(brandFixture("b1"), []string{models.PlatformTwitter}, nil))
	assert.ErrorIs(t, svc.Start(brandFixture("b1"), []string{models.PlatformTwitter}, nil), ErrAlreadyMonitoring)
}

func TestStopRemovesLoop(t *testing.T) {
	runner := newStubRunner()
	svc := NewService(runner, time.Hour, nil)

	require.NoError(t, svc.Start(brandFixture("b1"), []string{models.PlatformTwitter}, nil))
	require.NoError(t, svc.Stop("b1"))

	_, ok := svc.StatusFor("b1")
	assert.False(t, ok)
	assert.ErrorIs(t, svc.Stop("b1"), ErrNotMonitored)
}

func TestTickerDrivesRepeatCycles(t *testing.T) {
	runner := newStubRunner()
	svc := NewService(runner, 20*time.Millisecond, nil)
	defer svc.StopAll()

	require.NoError(t, svc.Start(brandFixture("b1"), []string{models.PlatformTwitter}, nil))

	assert.Eventually(t, func() bool { return runner.count("b1") >= 3 }, time.Second, 10*time.Millisecond)
}

func TestFailingBrandDoesNotDisturbOthers(t *testing.T) {
	runner := newStubRunner()
	runner.panic["bad"] = true
	svc := NewService(runner, 20*time.Millisecond, nil)
	defer svc.StopAll()

	require.NoError(t, svc.Start(brandFixture("bad"), []string{models.PlatformTwitter}, nil))
	require.NoError(t, svc.Start(brandFixture("good"), []string{models.PlatformTwitter}, nil))

	assert.Eventually(t, func() bool {
		return runner.count("good") >= 3 && runner.count("bad") >= 3
	}, time.Second, 10*time.Millisecond)

	status, ok := svc.StatusFor("bad")
	require.True(t, ok)
	assert.NotEmpty(t, status.LastError)

	status, ok = svc.StatusFor("good")
	require.True(t, ok)
	assert.Empty(t, status.LastError)
	assert.Equal(t, models.WorkflowStatusCompleted, status.LastStatus)
}

func TestTriggerRunsOutOfSchedule(t *testing.T) {
	runner := newStubRunner()
	svc := NewService(runner, time.Hour, nil)
	defer svc.StopAll()

	require.NoError(t, svc.Start(brandFixture("b1"), []string{models.PlatformTwitter}, nil))
	require.Eventually(t, func() bool { return runner.count("b1") == 1 }, time.Second, 10*time.Millisecond)

	report, err := svc.Trigger(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", report.BrandID)
	assert.Equal(t, 2, runner.count("b1"))

	_, err = svc.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotMonitored)
}
