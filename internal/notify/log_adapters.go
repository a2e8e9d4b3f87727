package notify

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"vouch/internal/verification/models"
)

// SlogLogChannel writes log channel events to the structured logger.
// It is the default sink when no broker is configured.
type SlogLogChannel struct {
	log     *slog.Logger
	channel string
}

// NewSlogLogChannel constructs a logger-backed log channel.
func NewSlogLogChannel(log *slog.Logger, channel string) *SlogLogChannel {
	return &SlogLogChannel{log: log, channel: channel}
}

func (c *SlogLogChannel) Post(ctx context.Context, event Event) error {
	c.log.InfoContext(ctx, "log channel event",
		"channel", c.channel,
		"kind", event.Kind,
		"requester_id", event.RequesterID,
		"actor_id", event.ActorID,
		"reason", event.Reason,
	)
	return nil
}

// SlogMessenger logs direct messages instead of delivering them.
type SlogMessenger struct {
	log *slog.Logger
}

// NewSlogMessenger constructs a logger-backed direct messenger.
func NewSlogMessenger(log *slog.Logger) *SlogMessenger {
	return &SlogMessenger{log: log}
}

func (m *SlogMessenger) Send(ctx context.Context, userID, message string) error {
	m.log.InfoContext(ctx, "direct message",
		"user_id", userID,
		"message", message,
	)
	return nil
}

// SlogReviewBoard logs review board operations. Post handles are generated
// locally so the decision flow can still exercise the registry.
type SlogReviewBoard struct {
	log *slog.Logger
}

// NewSlogReviewBoard constructs a logger-backed review board.
func NewSlogReviewBoard(log *slog.Logger) *SlogReviewBoard {
	return &SlogReviewBoard{log: log}
}

func (b *SlogReviewBoard) PostReview(ctx context.Context, record *models.Record) (string, error) {
	postID := uuid.NewString()
	b.log.InfoContext(ctx, "review posted",
		"post_id", postID,
		"requester_id", record.RequesterID,
		"submission_id", record.SubmissionID,
	)
	return postID, nil
}

func (b *SlogReviewBoard) RemoveReview(ctx context.Context, postID string) error {
	b.log.InfoContext(ctx, "review removed", "post_id", postID)
	return nil
}

func (b *SlogReviewBoard) EnsureIntakeControl(ctx context.Context) error {
	b.log.InfoContext(ctx, "intake control ensured")
	return nil
}

// SlogRoleGranter logs role grants. Used when no community backend is wired.
type SlogRoleGranter struct {
	log *slog.Logger
}

// NewSlogRoleGranter constructs a logger-backed role granter.
func NewSlogRoleGranter(log *slog.Logger) *SlogRoleGranter {
	return &SlogRoleGranter{log: log}
}

func (g *SlogRoleGranter) Grant(ctx context.Context, userID, role string) error {
	g.log.InfoContext(ctx, "role granted", "user_id", userID, "role", role)
	return nil
}
