// Package service implements the onboarding verification workflow:
// single-flight submission intake and the reviewer approval state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"vouch/internal/notify"
	"vouch/internal/platform/metrics"
	"vouch/internal/sentinel"
	"vouch/internal/verification/models"
	"vouch/internal/verification/store"
	dErrors "vouch/pkg/domain-errors"
)

// Reviewer identifies the actor making an approval decision.
type Reviewer struct {
	ID    string
	Roles []string
}

func (r Reviewer) hasRole(role string) bool {
	for _, held := range r.Roles {
		if held == role {
			return true
		}
	}
	return false
}

// Service coordinates submissions, reviews, and their side effects.
type Service struct {
	store     store.Store
	granter   notify.RoleGranter
	logChan   notify.LogChannel
	messenger notify.DirectMessenger
	board     notify.ReviewBoard
	registry  notify.Registry

	reviewerRole string
	memberRole   string

	gate    singleflight.Group
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNow overrides the clock. Used in tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Deps bundles the collaborators the service needs.
type Deps struct {
	Store        store.Store
	Granter      notify.RoleGranter
	LogChannel   notify.LogChannel
	Messenger    notify.DirectMessenger
	Board        notify.ReviewBoard
	Registry     notify.Registry
	ReviewerRole string
	MemberRole   string
}

// New constructs a verification service.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		store:        deps.Store,
		granter:      deps.Granter,
		logChan:      deps.LogChannel,
		messenger:    deps.Messenger,
		board:        deps.Board,
		registry:     deps.Registry,
		reviewerRole: deps.ReviewerRole,
		memberRole:   deps.MemberRole,
		log:          slog.Default(),
		tracer:       otel.Tracer("vouch/verification"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenIntake checks whether the requester may start a new submission.
// Concurrent opens for the same requester collapse into one check so a
// burst of clicks cannot slip past the pending guard.
func (s *Service) OpenIntake(ctx context.Context, requesterID string) error {
	if requesterID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "requester id is required")
	}

	_, err, _ := s.gate.Do(requesterID, func() (any, error) {
		// Collapsed callers share this one execution, so it must not
		// inherit any single caller's cancellation.
		ctx := context.WithoutCancel(ctx)

		record, err := s.store.Get(ctx, requesterID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, nil
			}
			return nil, dErrors.Wrap(err, dErrors.CodeStorageFailure, "check pending submission")
		}
		if record.Status == models.StatusPending {
			return nil, dErrors.New(dErrors.CodeAlreadyPending, "a submission is already awaiting review")
		}
		return nil, nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAlreadyPending) && s.metrics != nil {
			s.metrics.RecordGateRefusal()
		}
		return err
	}
	return nil
}

// Submit records a new pending submission and posts it for review.
// The store's conditional insert is the authority on single-flight; the
// intake gate only narrows the window.
func (s *Service) Submit(ctx context.Context, requesterID string, form models.Form) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Submit",
		trace.WithAttributes(attribute.String("requester.id", requesterID)))
	defer span.End()

	if requesterID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "requester id is required")
	}

	record := &models.Record{
		RequesterID:  requesterID,
		SubmissionID: uuid.NewString(),
		Form:         form,
		Status:       models.StatusPending,
		SubmittedAt:  s.now().UTC(),
	}

	if err := s.store.CreatePending(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyPending) {
			if s.metrics != nil {
				s.metrics.RecordSubmission("refused")
			}
			return nil, dErrors.New(dErrors.CodeAlreadyPending, "a submission is already awaiting review")
		}
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeStorageFailure, "store submission")
	}

	postID, err := s.board.PostReview(ctx, record)
	if err != nil {
		// The submission is committed; reviewers can still find it via
		// the pending list.
		s.log.ErrorContext(ctx, "post review failed",
			"requester_id", requesterID, "error", err)
	} else if err := s.registry.Put(ctx, requesterID, postID); err != nil {
		s.log.ErrorContext(ctx, "register review post failed",
			"requester_id", requesterID, "post_id", postID, "error", err)
	}

	s.postEvent(ctx, notify.Event{
		Kind:        notify.EventSubmitted,
		RequesterID: requesterID,
		At:          s.now().UTC(),
	})

	if s.metrics != nil {
		s.metrics.RecordSubmission("accepted")
	}
	s.log.InfoContext(ctx, "submission received",
		"requester_id", requesterID, "submission_id", record.SubmissionID)

	return record, nil
}

// Status returns the requester's current verification record.
func (s *Service) Status(ctx context.Context, requesterID string) (*models.Record, error) {
	record, err := s.store.Get(ctx, requesterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no submission found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorageFailure, "load submission")
	}
	return record, nil
}

// ListPending returns submissions awaiting review, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.Record, error) {
	records, err := s.store.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorageFailure, "list pending submissions")
	}
	return records, nil
}

// Accept approves a pending submission. The decision is committed first so
// racing reviewers serialize on the store; side effects follow and never
// roll the decision back.
func (s *Service) Accept(ctx context.Context, reviewer Reviewer, requesterID string) (*models.Record, error) {
	return s.decide(ctx, reviewer, requesterID, models.StatusAccepted, "")
}

// Reject declines a pending submission with a reason shown to the requester.
func (s *Service) Reject(ctx context.Context, reviewer Reviewer, requesterID, reason string) (*models.Record, error) {
	reason, err := models.NewReason(reason)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, reviewer, requesterID, models.StatusRejected, reason)
}

func (s *Service) decide(ctx context.Context, reviewer Reviewer, requesterID string, status models.Status, reason string) (*models.Record, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Decide",
		trace.WithAttributes(
			attribute.String("requester.id", requesterID),
			attribute.String("decision.outcome", string(status)),
		))
	defer span.End()

	if !reviewer.hasRole(s.reviewerRole) {
		return nil, dErrors.New(dErrors.CodeForbidden, "reviewer role required")
	}
	if requesterID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "requester id is required")
	}

	record, err := s.store.Decide(ctx, requesterID, status, reviewer.ID, reason, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "no submission found")
		case errors.Is(err, sentinel.ErrAlreadyDecided):
			if s.metrics != nil {
				s.metrics.RecordDecisionConflict()
			}
			return nil, dErrors.New(dErrors.CodeAlreadyDecided, "submission was already decided")
		default:
			span.RecordError(err)
			return nil, dErrors.Wrap(err, dErrors.CodeStorageFailure, "record decision")
		}
	}

	if s.metrics != nil {
		s.metrics.RecordDecision(string(status))
	}
	s.log.InfoContext(ctx, "decision recorded",
		"requester_id", requesterID,
		"outcome", string(status),
		"reviewer_id", reviewer.ID,
	)

	if status == models.StatusAccepted {
		if err := s.granter.Grant(ctx, requesterID, s.memberRole); err != nil {
			// The decision stands; the grant is retried by an operator.
			s.log.ErrorContext(ctx, "role grant failed",
				"requester_id", requesterID, "role", s.memberRole, "error", err)
		}
	}

	kind := notify.EventAccepted
	if status == models.StatusRejected {
		kind = notify.EventRejected
	}
	s.postEvent(ctx, notify.Event{
		Kind:        kind,
		RequesterID: requesterID,
		ActorID:     reviewer.ID,
		Reason:      reason,
		At:          s.now().UTC(),
	})

	s.notifyRequester(ctx, requesterID, status, reason)
	s.removeReviewPost(ctx, requesterID)

	return record, nil
}

// notifyRequester sends the decision to the requester directly, falling
// back to the log channel when direct delivery fails.
func (s *Service) notifyRequester(ctx context.Context, requesterID string, status models.Status, reason string) {
	message := "Your submission was accepted. Welcome aboard."
	if status == models.StatusRejected {
		message = "Your submission was declined."
		if reason != "" {
			message += " Reason: " + reason
		}
	}

	if err := s.messenger.Send(ctx, requesterID, message); err != nil {
		if s.metrics != nil {
			s.metrics.RecordDeliveryFallback()
		}
		s.log.WarnContext(ctx, "direct message failed, falling back to log channel",
			"requester_id", requesterID, "error", err)
		s.postEvent(ctx, notify.Event{
			Kind:        notify.EventDMFallback,
			RequesterID: requesterID,
			Message:     message,
			At:          s.now().UTC(),
		})
	}
}

func (s *Service) removeReviewPost(ctx context.Context, requesterID string) {
	postID, err := s.registry.Get(ctx, requesterID)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.log.WarnContext(ctx, "look up review post failed",
				"requester_id", requesterID, "error", err)
		}
		return
	}
	if err := s.board.RemoveReview(ctx, postID); err != nil {
		s.log.WarnContext(ctx, "remove review post failed",
			"requester_id", requesterID, "post_id", postID, "error", err)
		return
	}
	if err := s.registry.Delete(ctx, requesterID); err != nil {
		s.log.WarnContext(ctx, "unregister review post failed",
			"requester_id", requesterID, "error", err)
	}
}

func (s *Service) postEvent(ctx context.Context, event notify.Event) {
	if err := s.logChan.Post(ctx, event); err != nil {
		s.log.ErrorContext(ctx, "log channel post failed",
			"kind", event.Kind, "requester_id", event.RequesterID, "error", err)
	}
}
