package order

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/tojsavdo/orderpush/internal/notify"
)

//
// ---------- STUBS & FAKES ----------
//

// stubRepo implements Repository in memory.
type stubRepo struct {
	orders    map[string]*Order
	creates   int
	allocated int
}

func newStubRepo() *stubRepo { return &stubRepo{orders: map[string]*Order{}} }

func (s *stubRepo) Create(ctx context.Context, o *Order) error {
	cp := *o
	s.orders[o.ID] = &cp
	s.creates++
	return nil
}

func (s *stubRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *stubRepo) UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) error {
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrInvalidStatus
	}
	o.Status = to
	switch to {
	case StatusProgress:
		o.ProgressAt = &at
	case StatusDone:
		o.DoneAt = &at
	case StatusCanceled:
		o.CanceledAt = &at
	}
	return nil
}

func (s *stubRepo) List(ctx context.Context) ([]Order, error) {
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *stubRepo) AllocateID(ctx context.Context) (string, error) {
	s.allocated++
	return fmt.Sprintf("gen-%d", s.allocated), nil
}

// stubDirectory implements token.Directory in memory.
type stubDirectory struct {
	tokens map[string][]string
}

func newStubDirectory() *stubDirectory { return &stubDirectory{tokens: map[string][]string{}} }

func (d *stubDirectory) Register(ctx context.Context, tok, owner string) error {
	d.tokens[owner] = append(d.tokens[owner], tok)
	return nil
}

func (d *stubDirectory) TokensFor(ctx context.Context, owner string) ([]string, error) {
	return d.tokens[owner], nil
}

// captureDispatcher records enqueued jobs synchronously.
type captureDispatcher struct {
	jobs []notify.Job
}

func (c *captureDispatcher) Enqueue(j notify.Job) bool {
	c.jobs = append(c.jobs, j)
	return true
}

// stubNotifier only serves SubscribeAdmin in these tests.
type stubNotifier struct {
	subscribed []string
}

func (n *stubNotifier) SendToTopic(ctx context.Context, topic string, msg notify.Message) (string, error) {
	return "id", nil
}

func (n *stubNotifier) SendToToken(ctx context.Context, token string, msg notify.Message) (string, error) {
	return "id", nil
}

func (n *stubNotifier) SubscribeToTopic(ctx context.Context, tokens []string, topic string) (int, int, error) {
	n.subscribed = append(n.subscribed, tokens...)
	return len(tokens), 0, nil
}

func newTestService(repo *stubRepo, dir *stubDirectory, disp *captureDispatcher) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, dir, disp, &stubNotifier{}, logger)
}

//
// ---------- TESTS ----------
//

func TestSubmit_RejectsWithoutTotalOrItems(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	disp := &captureDispatcher{}
	svc := newTestService(repo, newStubDirectory(), disp)

	_, err := svc.Submit(context.Background(), RawInput{"customerName": "Ana"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if repo.creates != 0 {
		t.Errorf("creates = %d, want 0 (no write on validation failure)", repo.creates)
	}
	if len(disp.jobs) != 0 {
		t.Errorf("jobs = %d, want 0", len(disp.jobs))
	}
}

func TestSubmit_AllocatesIDAndNotifiesAdmin(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	disp := &captureDispatcher{}
	svc := newTestService(repo, newStubDirectory(), disp)

	o, err := svc.Submit(context.Background(), RawInput{"total": "100", "customerName": "Ana"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if o.ID != "gen-1" {
		t.Errorf("id = %q, want store-allocated", o.ID)
	}
	if len(disp.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(disp.jobs))
	}
	if disp.jobs[0].Topic != "admin" {
		t.Errorf("topic = %q, want admin", disp.jobs[0].Topic)
	}
	if disp.jobs[0].Msg.Data["orderId"] != "gen-1" {
		t.Errorf("data orderId = %q", disp.jobs[0].Msg.Data["orderId"])
	}
}

func TestSubmit_SameIDOverwrites(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	svc := newTestService(repo, newStubDirectory(), &captureDispatcher{})

	for _, total := range []string{"10", "20"} {
		if _, err := svc.Submit(context.Background(), RawInput{"orderId": "ORD-1", "total": total}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	if len(repo.orders) != 1 {
		t.Fatalf("documents = %d, want 1 (same id overwrites)", len(repo.orders))
	}
	if repo.orders["ORD-1"].TotalText != "20" {
		t.Errorf("total_text = %q, want the second write", repo.orders["ORD-1"].TotalText)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	t.Parallel()

	disp := &captureDispatcher{}
	svc := newTestService(newStubRepo(), newStubDirectory(), disp)

	_, err := svc.UpdateStatus(context.Background(), "missing", StatusProgress, true)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if len(disp.jobs) != 0 {
		t.Errorf("jobs = %d, want 0 for unknown order", len(disp.jobs))
	}
}

func TestUpdateStatus_TerminalStateRejected(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusDone, Total: 10}
	disp := &captureDispatcher{}
	svc := newTestService(repo, newStubDirectory(), disp)

	for _, target := range []Status{StatusProgress, StatusCanceled} {
		if _, err := svc.UpdateStatus(context.Background(), "o1", target, true); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("done -> %s: err = %v, want ErrInvalidStatus", target, err)
		}
	}
	if repo.orders["o1"].Status != StatusDone {
		t.Errorf("status mutated to %q", repo.orders["o1"].Status)
	}
	if len(disp.jobs) != 0 {
		t.Errorf("jobs = %d, want 0", len(disp.jobs))
	}
}

// staleReadRepo serves reads from a snapshot taken before a concurrent
// transition landed, while writes hit the live store.
type staleReadRepo struct {
	*stubRepo
	staleStatus Status
}

func (r *staleReadRepo) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := r.stubRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Status = r.staleStatus
	return o, nil
}

func TestUpdateStatus_ConcurrentTransitionCannotLeaveTerminalState(t *testing.T) {
	t.Parallel()

	// The store already holds "done", but this updater read the order
	// while it was still "progress". The compare-and-set write must
	// refuse the cancel instead of reviving a terminal order.
	repo := newStubRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusDone, FCMToken: "tok", Total: 10}
	stale := &staleReadRepo{stubRepo: repo, staleStatus: StatusProgress}
	disp := &captureDispatcher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(stale, newStubDirectory(), disp, &stubNotifier{}, logger)

	_, err := svc.UpdateStatus(context.Background(), "o1", StatusCanceled, true)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus for the lost transition", err)
	}
	if repo.orders["o1"].Status != StatusDone {
		t.Errorf("status = %q, terminal state was overwritten", repo.orders["o1"].Status)
	}
	if len(disp.jobs) != 0 {
		t.Errorf("jobs = %d, want 0 for a rejected transition", len(disp.jobs))
	}
}

func TestUpdateStatus_PinnedTokenWins(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusNew, Phone: "555", FCMToken: "pinned", Total: 10}
	dir := newStubDirectory()
	dir.tokens["555"] = []string{"other-a", "other-b"}
	disp := &captureDispatcher{}
	svc := newTestService(repo, dir, disp)

	o, err := svc.UpdateStatus(context.Background(), "o1", StatusProgress, true)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if o.Status != StatusProgress {
		t.Errorf("status = %q, want progress", o.Status)
	}
	if repo.orders["o1"].ProgressAt == nil {
		t.Error("progress_at not set")
	}
	if len(disp.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(disp.jobs))
	}
	if got := disp.jobs[0].Tokens; len(got) != 1 || got[0] != "pinned" {
		t.Errorf("tokens = %v, want the pinned token only", got)
	}
}

func TestUpdateStatus_DirectoryFallbackDeduped(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusNew, Phone: "555", Total: 10}
	dir := newStubDirectory()
	dir.tokens["555"] = []string{"tok-a", "tok-b", "tok-a", ""}
	disp := &captureDispatcher{}
	svc := newTestService(repo, dir, disp)

	if _, err := svc.UpdateStatus(context.Background(), "o1", StatusCanceled, true); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if len(disp.jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(disp.jobs))
	}
	got := disp.jobs[0].Tokens
	if len(got) != 2 || got[0] != "tok-a" || got[1] != "tok-b" {
		t.Errorf("tokens = %v, want deduped [tok-a tok-b]", got)
	}
}

func TestUpdateStatus_EmptyRecipientSetIsNoop(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusNew, Phone: "555", Total: 10}
	disp := &captureDispatcher{}
	svc := newTestService(repo, newStubDirectory(), disp)

	o, err := svc.UpdateStatus(context.Background(), "o1", StatusProgress, true)
	if err != nil {
		t.Fatalf("UpdateStatus: %v (empty recipient set must not be an error)", err)
	}
	if o.Status != StatusProgress {
		t.Errorf("status = %q, want progress", o.Status)
	}
	if len(disp.jobs) != 0 {
		t.Errorf("jobs = %d, want 0", len(disp.jobs))
	}
}

func TestUpdateStatus_NotifySuppressed(t *testing.T) {
	t.Parallel()

	repo := newStubRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusNew, FCMToken: "pinned", Total: 10}
	disp := &captureDispatcher{}
	svc := newTestService(repo, newStubDirectory(), disp)

	if _, err := svc.UpdateStatus(context.Background(), "o1", StatusProgress, false); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if len(disp.jobs) != 0 {
		t.Errorf("jobs = %d, want 0 when notification is suppressed", len(disp.jobs))
	}
}

func TestRegisterToken(t *testing.T) {
	t.Parallel()

	dir := newStubDirectory()
	svc := newTestService(newStubRepo(), dir, &captureDispatcher{})

	if err := svc.RegisterToken(context.Background(), "tok-1", "555"); err != nil {
		t.Fatalf("RegisterToken: %v", err)
	}
	if got := dir.tokens["555"]; len(got) != 1 || got[0] != "tok-1" {
		t.Errorf("registered = %v", got)
	}

	var verr *ValidationError
	if err := svc.RegisterToken(context.Background(), "", "555"); !errors.As(err, &verr) {
		t.Errorf("empty token err = %v, want ValidationError", err)
	}
}
