package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brand-agent/backend/internal/storage/models"
	"github.com/brand-agent/backend/pkg/logger"
)

var (
	ErrAlreadyMonitoring = errors.New("brand is already being monitored")
	ErrNotMonitored      = errors.New("brand is not being monitored")
)

// Runner executes one monitoring workflow for a brand.
type Runner interface {
	Run(ctx context.Context, goal string, brand models.Brand, platforms, keywords []string) (*models.WorkflowReport, error)
}

// Sink receives every completed workflow report. Persistence and
// broadcasting hang off this hook so the service stays unaware of
// storage.
type Sink func(report *models.WorkflowReport)

// BrandStatus is a point-in-time view of one monitoring loop.
type BrandStatus struct {
	BrandID     string    `json:"brandId"`
	BrandName   string    `json:"brandName"`
	Platforms   []string  `json:"platforms"`
	Running     bool      `json:"running"`
	StartedAt   time.Time `json:"startedAt"`
	LastCycleAt time.Time `json:"lastCycleAt,omitempty"`
	LastStatus  string    `json:"lastStatus,omitempty"`
	LastError   string    `json:"lastError,omitempty"`
	CyclesTotal int       `json:"cyclesTotal"`
}

type brandLoop struct {
	brand     models.Brand
	platforms []string
	keywords  []string
	cancel    context.CancelFunc
	done      chan struct{}
	status    BrandStatus
}

// Service owns one autonomous loop per monitored brand. Each loop runs
// an immediate cycle on start and then one per interval until stopped.
// Loops are isolated: a failing or panicking cycle for one brand never
// disturbs the others.
type Service struct {
	runner   Runner
	interval time.Duration
	sink     Sink

	mu    sync.Mutex
	loops map[string]*brandLoop
}

func NewService(runner Runner, interval time.Duration, sink Sink) *Service {
	if sink == nil {
		sink = func(*models.WorkflowReport) {}
	}
	return &Service{
		runner:   runner,
		interval: interval,
		sink:     sink,
		loops:    make(map[string]*brandLoop),
	}
}

// Start begins autonomous monitoring for a brand.
func (s *Service) Start(brand models.Brand, platforms, keywords []string) error {
	s.mu.Lock()
	if _, exists := s.loops[brand.ID]; exists {
		s.mu.Unlock()
		return ErrAlreadyMonitoring
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop := &brandLoop{
		brand:     brand,
		platforms: platforms,
		keywords:  keywords,
		cancel:    cancel,
		done:      make(chan struct{}),
		status: BrandStatus{
			BrandID:   brand.ID,
			BrandName: brand.Name,
			Platforms: platforms,
			Running:   true,
			StartedAt: time.Now(),
		},
	}
	s.loops[brand.ID] = loop
	s.mu.Unlock()

	go s.run(ctx, loop)
	logger.Info("Brand monitoring started",
		zap.String("brandId", brand.ID),
		zap.Strings("platforms", platforms),
		zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels a brand's loop and waits for it to wind down.
func (s *Service) Stop(brandID string) error {
	s.mu.Lock()
	loop, exists := s.loops[brandID]
	if !exists {
		s.mu.Unlock()
		return ErrNotMonitored
	}
	delete(s.loops, brandID)
	s.mu.Unlock()

	loop.cancel()
	<-loop.done
	logger.Info("Brand monitoring stopped", zap.String("brandId", brandID))
	return nil
}

// StopAll shuts down every loop. Used on service shutdown.
func (s *Service) StopAll() {
	s.mu.Lock()
	loops := make([]*brandLoop, 0, len(s.loops))
	for id, loop := range s.loops {
		loops = append(loops, loop)
		delete(s.loops, id)
	}
	s.mu.Unlock()

	for _, loop := range loops {
		loop.cancel()
		<-loop.done
	}
}

// Trigger runs one cycle for a monitored brand immediately, outside
// its schedule.
func (s *Service) Trigger(ctx context.Context, brandID string) (*models.WorkflowReport, error) {
	s.mu.Lock()
	loop, exists := s.loops[brandID]
	s.mu.Unlock()
	if !exists {
		return nil, ErrNotMonitored
	}
	return s.cycle(ctx, loop)
}

// Status reports every loop, running or not yet removed.
func (s *Service) Status() []BrandStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]BrandStatus, 0, len(s.loops))
	for _, loop := range s.loops {
		statuses = append(statuses, loop.status)
	}
	return statuses
}

// StatusFor returns the loop status for one brand.
func (s *Service) StatusFor(brandID string) (BrandStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loop, exists := s.loops[brandID]
	if !exists {
		return BrandStatus{}, false
	}
	return loop.status, true
}

func (s *Service) run(ctx context.Context, loop *brandLoop) {
	defer close(loop.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.cycle(ctx, loop); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Monitoring cycle failed",
			zap.String("brandId", loop.brand.ID),
			zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.cycle(ctx, loop); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Monitoring cycle failed",
					zap.String("brandId", loop.brand.ID),
					zap.Error(err))
			}
		}
	}
}

// cycle runs one workflow and records the outcome on the loop status.
// A panic inside the runner is contained so the loop keeps its
// schedule.
func (s *Service) cycle(ctx context.Context, loop *brandLoop) (report *models.WorkflowReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Monitoring cycle panicked",
				zap.String("brandId", loop.brand.ID),
				zap.Any("panic", r))
			err = errors.New("monitoring cycle panicked")
			s.recordCycle(loop, nil, err)
		}
	}()

	report, err = s.runner.Run(ctx, "autonomous brand monitoring", loop.brand, loop.platforms, loop.keywords)
	s.recordCycle(loop, report, err)
	if err != nil {
		return nil, err
	}
	s.sink(report)
	return report, nil
}

func (s *Service) recordCycle(loop *brandLoop, report *models.WorkflowReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loop.status.LastCycleAt = time.Now()
	loop.status.CyclesTotal++
	loop.status.LastError = ""
	if err != nil {
		loop.status.LastError = err.Error()
		loop.status.LastStatus = ""
		return
	}
	if report != nil {
		loop.status.LastStatus = report.Status
	}
}
