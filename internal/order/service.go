package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/tojsavdo/orderpush/internal/metrics"
	"github.com/tojsavdo/orderpush/internal/notify"
	"github.com/tojsavdo/orderpush/internal/token"
)

// Enqueuer accepts delivery jobs for background processing. Satisfied by
// *notify.Dispatcher.
type Enqueuer interface {
	Enqueue(notify.Job) bool
}

// Service implements the order pipeline: normalize, persist, then hand the
// notification to the dispatcher. Normalization and persistence are
// synchronous; only delivery leaves the request path.
type Service struct {
	repo       Repository
	tokens     token.Directory
	dispatcher Enqueuer
	notifier   notify.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics

	defaults   Defaults
	adminTopic string
	now        func() time.Time
}

type ServiceOption func(*Service)

// WithClock overrides the server clock, for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithDefaults overrides the fallback values for unresolved fields.
func WithDefaults(d Defaults) ServiceOption {
	return func(s *Service) { s.defaults = d }
}

// WithAdminTopic overrides the broadcast topic for new-order notifications.
func WithAdminTopic(topic string) ServiceOption {
	return func(s *Service) { s.adminTopic = topic }
}

// WithServiceMetrics attaches order counters.
func WithServiceMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo Repository, dir token.Directory, dispatcher Enqueuer,
	notifier notify.Notifier, logger *slog.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		tokens:     dir,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
		defaults:   Defaults{Currency: "TJS", CustomerName: "Customer", OwnerID: "system"},
		adminTopic: "admin",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit normalizes a raw payload into a canonical order, persists it and
// queues the admin notification. The write happens-before the enqueue; the
// enqueue never delays or fails the submission.
func (s *Service) Submit(ctx context.Context, in RawInput) (*Order, error) {
	o, err := Build(in, s.now(), s.defaults)
	if err != nil {
		return nil, err
	}
	if o.ID == "" {
		id, err := s.repo.AllocateID(ctx)
		if err != nil {
			return nil, err
		}
		o.ID = id
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	s.logger.Info("order created",
		slog.String("order_id", o.ID), slog.String("total", o.TotalText))

	s.dispatcher.Enqueue(notify.Job{
		Msg:   notify.Compose(notify.EventCreated, snapshot(o)),
		Topic: s.adminTopic,
	})
	return o, nil
}

// UpdateStatus moves an order along the state machine, merge-writes the new
// status plus its transition timestamp, and (unless suppressed) queues a
// customer notification built from the re-read order.
func (s *Service) UpdateStatus(ctx context.Context, id string, target Status, notifyCustomer bool) (*Order, error) {
	if !CanTarget(target) {
		return nil, ErrInvalidStatus
	}
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, target) {
		return nil, ErrInvalidStatus
	}

	at := s.now()
	if err := s.repo.UpdateStatus(ctx, id, current.Status, target, at); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.StatusUpdates.WithLabelValues(string(target)).Inc()
	}

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		// The write succeeded; fall back to the pre-read snapshot.
		s.logger.Warn("re-read after status update failed",
			slog.String("order_id", id), slog.String("error", err.Error()))
		patched := *current
		patched.Status = target
		updated = &patched
	}

	if notifyCustomer {
		s.notifyCustomer(ctx, updated)
	}
	return updated, nil
}

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]Order, error) {
	return s.repo.List(ctx)
}

// RegisterToken records a delivery token for an owner identity. Idempotent;
// it never triggers a delivery by itself.
func (s *Service) RegisterToken(ctx context.Context, tok, owner string) error {
	if tok == "" {
		return &ValidationError{Reason: "token is required"}
	}
	if owner == "" {
		owner = s.defaults.OwnerID
	}
	return s.tokens.Register(ctx, tok, owner)
}

// SubscribeAdmin subscribes a delivery token to the admin broadcast topic.
func (s *Service) SubscribeAdmin(ctx context.Context, tok string) (success, failure int, err error) {
	if tok == "" {
		return 0, 0, &ValidationError{Reason: "token is required"}
	}
	return s.notifier.SubscribeToTopic(ctx, []string{tok}, s.adminTopic)
}

// notifyCustomer resolves the recipient set for a status-change notification:
// the order-pinned token wins; otherwise every token registered for the
// order's contact identity. An empty set is a no-op.
func (s *Service) notifyCustomer(ctx context.Context, o *Order) {
	var tokens []string
	if o.FCMToken != "" {
		tokens = []string{o.FCMToken}
	} else {
		identity := o.Phone
		if identity == "" {
			identity = o.OwnerID
		}
		found, err := s.tokens.TokensFor(ctx, identity)
		if err != nil {
			s.logger.Warn("token lookup failed",
				slog.String("order_id", o.ID), slog.String("error", err.Error()))
			return
		}
		tokens = dedupe(found)
	}
	if len(tokens) == 0 {
		return
	}
	s.dispatcher.Enqueue(notify.Job{
		Msg:    notify.Compose(eventFor(o.Status), snapshot(o)),
		Tokens: tokens,
	})
}

// CanTarget reports whether a status is a valid update target.
func CanTarget(st Status) bool {
	_, ok := statusColumn[st]
	return ok
}

func eventFor(st Status) notify.EventKind {
	switch st {
	case StatusProgress:
		return notify.EventProgress
	case StatusDone:
		return notify.EventDone
	default:
		return notify.EventCanceled
	}
}

func snapshot(o *Order) notify.OrderSnapshot {
	return notify.OrderSnapshot{
		ID:           o.ID,
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		Comment:      o.Comment,
		Currency:     o.Currency,
		TotalText:    o.TotalText,
		Status:       string(o.Status),
	}
}

func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
