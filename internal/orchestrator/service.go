package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/recurse/internal/state"
	"github.com/ShayCichocki/recurse/pkg/models"
)

// NotApplicable fills failure log fields the caller left empty.
const NotApplicable = "N/A"

// Service exposes the orchestrator operations over a Store. Each call is a
// full load, mutate and save cycle; nothing is cached between calls.
type Service struct {
	store  state.Store
	now    func() time.Time
	logger *DebugLogger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for new registries and failures.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the debug logger. It also becomes the package logger used
// by the tree algorithms.
func WithLogger(l *DebugLogger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service backed by store.
func NewService(store state.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	SetPackageLogger(s.logger)
	return s
}

// load reads the registry, translating store errors.
func (s *Service) load(ctx context.Context) (*models.Registry, error) {
	reg, err := s.store.LoadRegistry(ctx)
	if errors.Is(err, state.ErrNotInitialized) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// mutate loads the registry, applies fn and saves only if fn succeeds.
func (s *Service) mutate(ctx context.Context, op string, fn func(reg *models.Registry) error) (*models.Registry, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(reg); err != nil {
		s.logger.Log("[%s] rejected: %v", op, err)
		return nil, err
	}
	if err := s.store.SaveRegistry(ctx, reg); err != nil {
		if errors.Is(err, state.ErrNotInitialized) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("%s: save registry: %w", op, err)
	}
	s.logger.Log("[%s] saved, current=%s", op, reg.CurrentNode)
	return reg, nil
}

// Init creates a fresh registry with a pending root and an empty failure
// log. With force it replaces any existing state.
func (s *Service) Init(ctx context.Context, goal string, maxDepth, maxRetries int, force bool) (*models.Registry, error) {
	if maxDepth < 0 || maxRetries < 0 {
		return nil, fmt.Errorf("max depth and max retries must be non-negative (got %d, %d)", maxDepth, maxRetries)
	}

	reg := models.NewRegistry(goal, maxDepth, maxRetries, s.now())
	if err := s.store.CreateRegistry(ctx, reg, force); err != nil {
		if errors.Is(err, state.ErrRegistryExists) {
			return nil, ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("init: create registry: %w", err)
	}
	if err := s.store.SaveFailures(ctx, models.NewFailureLog()); err != nil {
		return nil, fmt.Errorf("init: reset failure log: %w", err)
	}
	s.logger.Log("[init] goal=%q max_depth=%d max_retries=%d force=%v", goal, maxDepth, maxRetries, force)
	return reg, nil
}

// Decompose splits a node into children. See decompose for the check order.
func (s *Service) Decompose(ctx context.Context, nodeID string, goals []string) (DecomposeResult, error) {
	var result DecomposeResult
	_, err := s.mutate(ctx, "decompose", func(reg *models.Registry) error {
		r, err := decompose(reg, nodeID, goals)
		result = r
		return err
	})
	if err != nil {
		return DecomposeResult{}, err
	}
	return result, nil
}

// EnterFastTrack marks a pending or failed node for one-step implementation
// and verification.
func (s *Service) EnterFastTrack(ctx context.Context, nodeID string) (*models.Node, error) {
	var node *models.Node
	_, err := s.mutate(ctx, "fast-track", func(reg *models.Registry) error {
		n, err := enterFastTrack(reg, nodeID)
		node = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// UpdateRequest is a generic status transition with optional side effects.
type UpdateRequest struct {
	Status models.Status
	// Error is recorded and bumps retry_count when non-empty.
	Error string
	// Hint is recorded for the next attempt when non-empty.
	Hint string
	// Reason is recorded as the escalation reason when non-empty.
	Reason string
	// Leaf marks the node as a leaf.
	Leaf bool
	// Advance moves current_node to the next actionable node. It only
	// applies when Status is passed or failed.
	Advance bool
	// Force bypasses the transition table. Nodes that own children still
	// cannot be moved.
	Force bool
}

// UpdateResult reports the outcome of UpdateStatus.
type UpdateResult struct {
	Node     *models.Node
	From     models.Status
	Promoted []string
	// Advanced is set when the current pointer moved.
	Advanced bool
	Current  string
}

// UpdateStatus applies a generic status transition.
func (s *Service) UpdateStatus(ctx context.Context, nodeID string, req UpdateRequest) (UpdateResult, error) {
	if !IsUpdateTarget(req.Status) {
		return UpdateResult{}, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidStatus, req.Status, UpdateTargets)
	}

	var result UpdateResult
	reg, err := s.mutate(ctx, "update", func(reg *models.Registry) error {
		node, ok := reg.Node(nodeID)
		if !ok {
			return nodeNotFound(nodeID)
		}
		from := node.Status
		allowed := CanTransition(from, req.Status)
		if !allowed && req.Force && canForce(node) {
			debugLog("[update] %s: forced %s -> %s", nodeID, from, req.Status)
			allowed = true
		}
		if !allowed {
			return &TransitionError{NodeID: nodeID, Op: "update", From: from, To: req.Status}
		}

		node.Status = req.Status
		if req.Leaf {
			node.IsLeaf = true
		}
		if req.Error != "" {
			node.Error = req.Error
			node.RetryCount++
		}
		if req.Hint != "" {
			node.Hint = req.Hint
		}
		if req.Reason != "" {
			node.EscalationReason = req.Reason
		}

		result.From = from
		if req.Status == models.StatusPassed {
			result.Promoted = cascade(reg, nodeID)
		}
		if req.Advance && (req.Status == models.StatusPassed || req.Status == models.StatusFailed) {
			if next := FindNext(reg); next != nil {
				reg.CurrentNode = next.ID
				result.Advanced = true
			}
		}
		return nil
	})
	if err != nil {
		return UpdateResult{}, err
	}

	node, _ := reg.Node(nodeID)
	result.Node = node
	result.Current = reg.CurrentNode
	return result, nil
}

// FindNext returns the next actionable node without moving the pointer.
// It returns nil when nothing is actionable.
func (s *Service) FindNext(ctx context.Context) (*models.Node, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return FindNext(reg), nil
}

// NextResult reports the outcome of Next.
type NextResult struct {
	Outcome Outcome
	Node    *models.Node
}

// Next finds the next actionable node and persists it as current. When
// nothing is actionable the registry is left unchanged.
func (s *Service) Next(ctx context.Context) (NextResult, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return NextResult{}, err
	}
	next := FindNext(reg)
	outcome := classify(reg, next)
	if next == nil {
		s.logger.Log("[next] nothing actionable: %s", outcome)
		return NextResult{Outcome: outcome}, nil
	}

	reg.CurrentNode = next.ID
	if err := s.store.SaveRegistry(ctx, reg); err != nil {
		return NextResult{}, fmt.Errorf("next: save registry: %w", err)
	}
	return NextResult{Outcome: outcome, Node: next}, nil
}

// StatusReport describes the current node.
type StatusReport struct {
	Meta        models.Meta
	Node        *models.Node
	Role        Role
	Action      EscalationAction
	RetriesLeft int
	Guidance    string
}

// Status reports on the registry's current node.
func (s *Service) Status(ctx context.Context) (StatusReport, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	node, ok := reg.Current()
	if !ok {
		return StatusReport{}, nodeNotFound(reg.CurrentNode)
	}
	return StatusReport{
		Meta:        reg.Meta,
		Node:        node,
		Role:        RoleFor(node.Status),
		Action:      Recommend(node, reg.Meta),
		RetriesLeft: RetriesLeft(node, reg.Meta),
		Guidance:    Guidance(node, reg.Meta),
	}, nil
}

// Progress summarizes how much of the tree has passed.
type Progress struct {
	Goal     string
	Passed   int
	Total    int
	ByStatus map[models.Status]int
	Current  string
}

// Progress counts nodes by status.
func (s *Service) Progress(ctx context.Context) (Progress, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return Progress{}, err
	}
	p := Progress{
		Goal:     reg.Meta.Goal,
		Total:    reg.Nodes.Len(),
		ByStatus: make(map[models.Status]int),
		Current:  reg.CurrentNode,
	}
	for _, n := range reg.Nodes.All() {
		p.ByStatus[n.Status]++
	}
	p.Passed = p.ByStatus[models.StatusPassed]
	return p, nil
}

// Registry returns the persisted registry.
func (s *Service) Registry(ctx context.Context) (*models.Registry, error) {
	return s.load(ctx)
}

// SetTests replaces a node's test criteria with unset entries.
func (s *Service) SetTests(ctx context.Context, nodeID string, names []string) (*models.Node, error) {
	var node *models.Node
	_, err := s.mutate(ctx, "set-tests", func(reg *models.Registry) error {
		n, ok := reg.Node(nodeID)
		if !ok {
			return nodeNotFound(nodeID)
		}
		setTests(n, names)
		node = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// GetTests returns a node's test criteria.
func (s *Service) GetTests(ctx context.Context, nodeID string) ([]models.TestCriterion, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	node, ok := reg.Node(nodeID)
	if !ok {
		return nil, nodeNotFound(nodeID)
	}
	return node.TestCriteria, nil
}

// RecordTestResult records the outcome of one criterion by 1-based index.
func (s *Service) RecordTestResult(ctx context.Context, nodeID string, index int, passed bool, reason string) (models.TestCriterion, error) {
	var tc models.TestCriterion
	_, err := s.mutate(ctx, "test-result", func(reg *models.Registry) error {
		n, ok := reg.Node(nodeID)
		if !ok {
			return nodeNotFound(nodeID)
		}
		var err error
		tc, err = recordResult(n, index, passed, reason)
		return err
	})
	if err != nil {
		return models.TestCriterion{}, err
	}
	return tc, nil
}

// FailureInput is what the caller knows about a failed attempt.
type FailureInput struct {
	Approach string
	Error    string
	Reason   string
}

// LogFailure appends an entry to the failure log. Empty fields fall back to
// NotApplicable, except Error which first falls back to the node's last
// recorded error. The attempt number is the node's current retry count.
func (s *Service) LogFailure(ctx context.Context, nodeID string, in FailureInput) (models.Failure, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return models.Failure{}, err
	}
	node, ok := reg.Node(nodeID)
	if !ok {
		return models.Failure{}, nodeNotFound(nodeID)
	}

	log, err := s.store.LoadFailures(ctx)
	if err != nil {
		return models.Failure{}, fmt.Errorf("log-failure: load failures: %w", err)
	}

	f := models.Failure{
		NodeID:    nodeID,
		Attempt:   node.RetryCount,
		Approach:  orNA(in.Approach),
		Error:     orNA(firstNonEmpty(in.Error, node.Error)),
		Reason:    orNA(in.Reason),
		Timestamp: s.now(),
	}
	log.Failures = append(log.Failures, f)
	if err := s.store.SaveFailures(ctx, log); err != nil {
		return models.Failure{}, fmt.Errorf("log-failure: save failures: %w", err)
	}
	s.logger.Log("[log-failure] %s attempt=%d", nodeID, f.Attempt)
	return f, nil
}

// QueryFailures returns failures for nodeID, or all failures when nodeID is empty.
func (s *Service) QueryFailures(ctx context.Context, nodeID string) ([]models.Failure, error) {
	if _, err := s.load(ctx); err != nil {
		return nil, err
	}
	return s.failuresFor(ctx, nodeID)
}

func (s *Service) failuresFor(ctx context.Context, nodeID string) ([]models.Failure, error) {
	log, err := s.store.LoadFailures(ctx)
	if err != nil {
		return nil, fmt.Errorf("load failures: %w", err)
	}
	return log.ForNode(nodeID), nil
}

// NodeContext combines a node with its failure history and test ledger.
type NodeContext struct {
	Node         *models.Node           `json:"node" yaml:"node"`
	MaxRetries   int                    `json:"max_retries" yaml:"max_retries"`
	RetriesLeft  int                    `json:"retries_left" yaml:"retries_left"`
	Failures     []models.Failure       `json:"failures" yaml:"failures"`
	TestCriteria []models.TestCriterion `json:"test_criteria" yaml:"test_criteria"`
	Action       EscalationAction       `json:"recommendation" yaml:"recommendation"`
}

// QueryContext returns everything known about one node.
func (s *Service) QueryContext(ctx context.Context, nodeID string) (NodeContext, error) {
	reg, err := s.load(ctx)
	if err != nil {
		return NodeContext{}, err
	}
	node, ok := reg.Node(nodeID)
	if !ok {
		return NodeContext{}, nodeNotFound(nodeID)
	}
	failures, err := s.failuresFor(ctx, nodeID)
	if err != nil {
		return NodeContext{}, err
	}
	return NodeContext{
		Node:         node,
		MaxRetries:   reg.Meta.MaxRetries,
		RetriesLeft:  RetriesLeft(node, reg.Meta),
		Failures:     failures,
		TestCriteria: node.TestCriteria,
		Action:       Recommend(node, reg.Meta),
	}, nil
}

func orNA(s string) string {
	if s == "" {
		return NotApplicable
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
