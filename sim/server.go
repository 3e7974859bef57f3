package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/foodfactory/cookstage/sim/metrics"
	"github.com/foodfactory/cookstage/sim/trace"
)

type serverState int

const (
	serverNew serverState = iota
	serverRunning
	serverStopping
	serverStopped
)

// Option configures a Server.
type Option func(*Server)

// WithSeed sets the master seed for every line's RNG stream.
func WithSeed(seed int64) Option {
	return func(s *Server) { s.rng = NewPartitionedRNG(NewSimulationKey(seed)) }
}

// WithPolicy sets the production policy factory used by AddLine. It receives the new line's id.
func WithPolicy(policyFor func(id int) ProductionPolicy) Option {
	return func(s *Server) { s.policyFor = policyFor }
}

// WithTrace records decisions into tr.
func WithTrace(tr *trace.SimulationTrace) Option {
	return func(s *Server) { s.trace = tr }
}

// WithMetrics reports occupancy and outcomes to m.
func WithMetrics(m *metrics.Collectors) Option {
	return func(s *Server) { s.metrics = m }
}

// Server owns the line registry and drives the kitchen's lifecycle. It is the boundary that
// external requests (CLI, HTTP) talk to.
type Server struct {
	runID     uuid.UUID
	cfg       KitchenConfig
	registry  *Registry
	kitchen   *Kitchen
	rng       *PartitionedRNG
	policyFor func(id int) ProductionPolicy
	trace     *trace.SimulationTrace
	metrics   *metrics.Collectors
	startedAt time.Time

	mu     sync.Mutex // guards state, ctx, cancel and line creation
	state  serverState
	ctx    context.Context
	cancel context.CancelFunc

	schedulerDone chan struct{}
	done          chan struct{}
	err           error
	killOnce      sync.Once
}

// NewServer validates cfg and builds the kitchen. Nothing runs until Start.
// Returns an error wrapping ErrConfigurationInvalid for a bad config.
func NewServer(cfg KitchenConfig, opts ...Option) (*Server, error) {
	units, buffers, err := BuildHolders(cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{
		runID:         uuid.New(),
		cfg:           cfg,
		rng:           NewPartitionedRNG(NewSimulationKey(0)),
		policyFor:     func(int) ProductionPolicy { return DefaultUniformPolicy(time.Second) },
		schedulerDone: make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registry = NewRegistry(cfg.Ordering, func() { s.kitchen.Wake() })
	s.kitchen = NewKitchen(units, buffers, s.registry, cfg.IdlePoll, s.trace, s.metrics)
	return s, nil
}

// RunID identifies this server instance in logs and results.
func (s *Server) RunID() string { return s.runID.String() }

// Config returns the configuration the server was built from.
func (s *Server) Config() KitchenConfig { return s.cfg }

// Kitchen returns the scheduler.
func (s *Server) Kitchen() *Kitchen { return s.kitchen }

// Trace returns the decision trace, or nil when tracing is off.
func (s *Server) Trace() *trace.SimulationTrace { return s.trace }

// Start launches the scheduler and the completion timer.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != serverNew {
		return fmt.Errorf("server %s: already started", s.runID)
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(s.ctx)
	g.Go(func() error {
		return s.kitchen.Cooker().Completions().Run(gctx)
	})
	g.Go(func() error {
		defer close(s.schedulerDone)
		return s.kitchen.Run(gctx)
	})
	go func() {
		err := g.Wait()
		s.mu.Lock()
		s.err = err
		s.state = serverStopped
		s.mu.Unlock()
		close(s.done)
	}()
	s.state = serverRunning
	s.startedAt = time.Now()
	logrus.Infof("server %s: started with units=%v buffers=%v", s.runID, s.cfg.UnitCapacities, s.cfg.BufferCapacities)
	return nil
}

// AddLine registers and starts a new line using the server's policy factory.
func (s *Server) AddLine() (*Line, error) {
	return s.AddLineWithPolicy(nil)
}

// AddLineWithPolicy registers and starts a new line producing from policy (nil = the
// server's policy factory). Fails with ErrServerNotRunning unless the server is running, and
// with the policy's own error when it has a Validate method that rejects it.
func (s *Server) AddLineWithPolicy(policy ProductionPolicy) (*Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != serverRunning {
		return nil, fmt.Errorf("add line: %w", ErrServerNotRunning)
	}
	id := s.registry.Len()
	if policy == nil {
		policy = s.policyFor(id)
	}
	if v, ok := policy.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("add line: %w", err)
		}
	}
	l := s.registry.Add(policy, s.rng.ForSubsystem(SubsystemLine(id)))
	l.Start(s.ctx)
	s.metrics.SetLines(s.registry.Len())
	s.kitchen.Wake()
	logrus.Infof("server %s: added line %d", s.runID, l.ID())
	return l, nil
}

// Line returns the line with the given id.
func (s *Server) Line(id int) (*Line, error) {
	return s.registry.Get(id)
}

// Status returns a snapshot of one line.
func (s *Server) Status(id int) (LineStatus, error) {
	l, err := s.registry.Get(id)
	if err != nil {
		return LineStatus{}, err
	}
	return l.Status(), nil
}

// StatusAll returns a snapshot of every line in id order.
func (s *Server) StatusAll() []LineStatus {
	lines := s.registry.Snapshot()
	out := make([]LineStatus, len(lines))
	for i, l := range lines {
		out[i] = l.Status()
	}
	return out
}

// Units returns a snapshot of every unit in index order.
func (s *Server) Units() []HolderStatus { return s.kitchen.Cooker().Units() }

// Buffers returns a snapshot of every buffer in index order.
func (s *Server) Buffers() []HolderStatus { return s.kitchen.Cooker().Buffers() }

// Holders returns a snapshot of every unit followed by every buffer.
func (s *Server) Holders() []HolderStatus {
	return append(s.Units(), s.Buffers()...)
}

// Uptime returns how long the server has been running, or zero before Start.
func (s *Server) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// Stop halts production on every line and lets the kitchen drain: buffered and inbound items
// are still admitted and every cooking item finishes. If ctx ends first, Stop falls back to
// Kill and returns ctx's error.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != serverRunning {
		s.mu.Unlock()
		return fmt.Errorf("stop: %w", ErrServerNotRunning)
	}
	s.state = serverStopping
	s.mu.Unlock()

	s.stopLines()
	for _, l := range s.registry.Snapshot() {
		select {
		case <-l.Done():
		case <-ctx.Done():
		}
	}
	s.kitchen.Drain()
	logrus.Infof("server %s: stopping, draining kitchen", s.runID)

	select {
	case <-s.schedulerDone:
		s.cancel()
		<-s.done
		logrus.Infof("server %s: stopped", s.runID)
		return s.err
	case <-ctx.Done():
		logrus.Warnf("server %s: drain interrupted (%v), killing", s.runID, ctx.Err())
		s.Kill()
		return ctx.Err()
	}
}

// Kill terminates production, scheduling and completion timers immediately. Items still
// cooking are lost and recorded as ErrInterruptedDuringCompletion.
func (s *Server) Kill() {
	s.mu.Lock()
	started := s.state != serverNew
	if started && s.state == serverRunning {
		s.state = serverStopping
	}
	s.mu.Unlock()
	if !started {
		return
	}
	s.killOnce.Do(func() {
		s.stopLines()
		s.cancel()
		<-s.done
		lost := s.kitchen.abandon()
		logrus.Warnf("server %s: killed, %d in-flight items lost", s.runID, len(lost))
	})
}

// Wait blocks until the server has stopped or been killed.
func (s *Server) Wait() error {
	<-s.done
	return s.err
}

// Done is closed once the server has stopped or been killed.
func (s *Server) Done() <-chan struct{} { return s.done }

func (s *Server) stopLines() {
	for _, l := range s.registry.Snapshot() {
		if l.State() == LineStopped {
			continue
		}
		l.Stop()
		s.kitchen.recordLineEvent(l, trace.LineStopped, "")
	}
}
