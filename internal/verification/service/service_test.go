package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vouch/internal/notify"
	"vouch/internal/verification/models"
	"vouch/internal/verification/store"
	dErrors "vouch/pkg/domain-errors"
)

type fakeGranter struct {
	mu     sync.Mutex
	grants []string
	err    error
}

func (g *fakeGranter) Grant(_ context.Context, userID, role string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.grants = append(g.grants, userID+":"+role)
	return nil
}

func (g *fakeGranter) granted() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.grants...)
}

type fakeLogChannel struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *fakeLogChannel) Post(_ context.Context, event notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *fakeLogChannel) kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var kinds []string
	for _, e := range c.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

type fakeMessenger struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *fakeMessenger) Send(_ context.Context, userID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, userID+": "+message)
	return nil
}

type fakeBoard struct {
	mu      sync.Mutex
	posted  []string
	removed []string
}

func (b *fakeBoard) PostReview(_ context.Context, record *models.Record) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	postID := "post-" + record.RequesterID
	b.posted = append(b.posted, postID)
	return postID, nil
}

func (b *fakeBoard) RemoveReview(_ context.Context, postID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, postID)
	return nil
}

func (b *fakeBoard) EnsureIntakeControl(_ context.Context) error {
	return nil
}

type fixture struct {
	svc       *Service
	store     *store.InMemoryStore
	granter   *fakeGranter
	logChan   *fakeLogChannel
	messenger *fakeMessenger
	board     *fakeBoard
	registry  *notify.MemoryRegistry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     store.NewInMemory(),
		granter:   &fakeGranter{},
		logChan:   &fakeLogChannel{},
		messenger: &fakeMessenger{},
		board:     &fakeBoard{},
		registry:  notify.NewMemoryRegistry(),
	}
	f.svc = New(Deps{
		Store:        f.store,
		Granter:      f.granter,
		LogChannel:   f.logChan,
		Messenger:    f.messenger,
		Board:        f.board,
		Registry:     f.registry,
		ReviewerRole: "reviewer",
		MemberRole:   "member",
	}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	return f
}

func validForm(t *testing.T) models.Form {
	t.Helper()
	form, err := models.NewForm("25", "hello there", "I write Go", "join the community", "a friend")
	require.NoError(t, err)
	return form
}

func reviewer() Reviewer {
	return Reviewer{ID: "reviewer-1", Roles: []string{"reviewer"}}
}

func TestSubmitAndAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.OpenIntake(ctx, "user-1"))

	record, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, record.Status)

	decided, err := f.svc.Accept(ctx, reviewer(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, decided.Status)
	assert.Equal(t, "reviewer-1", decided.DecidedBy)

	assert.Equal(t, []string{"user-1:member"}, f.granter.granted())
	assert.Equal(t, []string{notify.EventSubmitted, notify.EventAccepted}, f.logChan.kinds())
	assert.Equal(t, []string{"post-user-1"}, f.board.removed)

	_, err = f.registry.Get(ctx, "user-1")
	assert.Error(t, err)
}

func TestOpenIntakeRefusedWhilePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	err = f.svc.OpenIntake(ctx, "user-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyPending))
}

type ctxSensitiveStore struct {
	store.Store
}

func (s ctxSensitiveStore) Get(ctx context.Context, requesterID string) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.Get(ctx, requesterID)
}

func TestOpenIntakeSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.svc.store = ctxSensitiveStore{Store: f.store}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, f.svc.OpenIntake(ctx, "user-1"))
}

func TestOpenIntakeAllowedAfterDecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, reviewer(), "user-1", "too brief")
	require.NoError(t, err)

	assert.NoError(t, f.svc.OpenIntake(ctx, "user-1"))

	record, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, record.Status)
}

func TestSubmitRefusedWhilePending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, "user-1", validForm(t))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyPending))
}

func TestAcceptRequiresReviewerRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, Reviewer{ID: "user-2", Roles: []string{"member"}}, "user-1")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.Empty(t, f.granter.granted())
}

func TestSecondDecisionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, reviewer(), "user-1")
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, reviewer(), "user-1", "changed my mind")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))

	// The losing decision must not undo the winner's effects.
	record, err := f.svc.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, record.Status)
	assert.Equal(t, []string{"user-1:member"}, f.granter.granted())
}

func TestConcurrentDecisionsSingleGrant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	const reviewers = 10
	var wg sync.WaitGroup
	errs := make(chan error, reviewers)
	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, reviewer(), "user-1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, []string{"user-1:member"}, f.granter.granted())
}

func TestRejectDeliversReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	decided, err := f.svc.Reject(ctx, reviewer(), "user-1", "answers too short")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, decided.Status)
	assert.Equal(t, "answers too short", decided.DecisionReason)

	require.Len(t, f.messenger.messages, 1)
	assert.Contains(t, f.messenger.messages[0], "answers too short")
	assert.Empty(t, f.granter.granted())
}

func TestRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, reviewer(), "user-1", "   ")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	record, err := f.svc.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, record.Status)
}

func TestRejectBoundsReasonLength(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, reviewer(), "user-1", strings.Repeat("x", 100000))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	// Nothing reached the row, the log channel, or the requester.
	record, err := f.svc.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Empty(t, record.DecisionReason)
	assert.Empty(t, f.messenger.messages)

	decided, err := f.svc.Reject(ctx, reviewer(), "user-1", strings.Repeat("x", 1024))
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, decided.Status)
}

func TestDirectMessageFallsBackToLogChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.messenger.err = errors.New("user refuses direct messages")

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, reviewer(), "user-1")
	require.NoError(t, err)

	kinds := f.logChan.kinds()
	assert.Contains(t, kinds, notify.EventDMFallback)
}

func TestDecisionStandsWhenGrantFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.granter.err = errors.New("role backend down")

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)

	decided, err := f.svc.Accept(ctx, reviewer(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, decided.Status)

	record, err := f.svc.Status(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, record.Status)
}

func TestStatusNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Status(context.Background(), "ghost")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestListPendingOldestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	base := time.Now().UTC()
	clock := base
	f.svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	_, err := f.svc.Submit(ctx, "user-1", validForm(t))
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, "user-2", validForm(t))
	require.NoError(t, err)

	pending, err := f.svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "user-1", pending[0].RequesterID)
	assert.Equal(t, "user-2", pending[1].RequesterID)
}
