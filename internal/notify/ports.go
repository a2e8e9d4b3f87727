// Package notify defines the outbound side effects of the verification
// workflow: role grants, log channel events, direct messages, and the
// review board where pending submissions are posted.
package notify

import (
	"context"
	"time"

	"vouch/internal/verification/models"
)

// RoleGranter grants community roles to users.
type RoleGranter interface {
	Grant(ctx context.Context, userID, role string) error
}

// Event is a workflow event posted to the log channel.
type Event struct {
	Kind        string    `json:"kind"`
	RequesterID string    `json:"requester_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Message     string    `json:"message,omitempty"`
	At          time.Time `json:"at"`
}

// Event kinds posted to the log channel.
const (
	EventSubmitted  = "submitted"
	EventAccepted   = "accepted"
	EventRejected   = "rejected"
	EventDMFallback = "dm_fallback"
)

// LogChannel receives workflow events visible to reviewers.
type LogChannel interface {
	Post(ctx context.Context, event Event) error
}

// DirectMessenger delivers a private message to a user. Delivery can fail
// when the user refuses direct messages; callers fall back to the log channel.
type DirectMessenger interface {
	Send(ctx context.Context, userID, message string) error
}

// ReviewBoard manages the review posts that reviewers act on.
type ReviewBoard interface {
	// PostReview publishes a pending submission for review and returns
	// the handle of the created post.
	PostReview(ctx context.Context, record *models.Record) (string, error)

	// RemoveReview takes down a review post once a decision is recorded.
	RemoveReview(ctx context.Context, postID string) error

	// EnsureIntakeControl makes sure the fixed intake control exists so
	// requesters always have a way to start a submission.
	EnsureIntakeControl(ctx context.Context) error
}

// Registry maps a requester to the handle of their open review post.
type Registry interface {
	Put(ctx context.Context, requesterID, postID string) error

	// Get returns sentinel.ErrNotFound when no post is registered.
	Get(ctx context.Context, requesterID string) (string, error)

	Delete(ctx context.Context, requesterID string) error
}
