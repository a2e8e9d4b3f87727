// Package handler exposes the verification workflow over HTTP.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vouch/internal/platform/middleware"
	httpjson "vouch/internal/transport/http/json"
	"vouch/internal/transport/http/shared"
	"vouch/internal/verification/models"
	"vouch/internal/verification/service"
	dErrors "vouch/pkg/domain-errors"
)

// Handler serves the verification endpoints.
type Handler struct {
	svc *service.Service
}

// New constructs a verification handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the verification routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/verifications/intake", h.HandleOpenIntake)
	r.Post("/v1/verifications", h.HandleSubmit)
	r.Get("/v1/verifications/me", h.HandleStatus)
	r.Get("/v1/verifications/pending", h.HandleListPending)
	r.Post("/v1/verifications/{requesterID}/accept", h.HandleAccept)
	r.Post("/v1/verifications/{requesterID}/reject", h.HandleReject)
}

// SubmitRequest carries the answers of a verification form.
type SubmitRequest struct {
	Age          string `json:"age"`
	Introduction string `json:"introduction"`
	About        string `json:"about"`
	Goal         string `json:"goal"`
	Referral     string `json:"referral"`
}

// RejectRequest carries the reason shown to the requester.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// RecordResponse is the API shape of a verification record.
type RecordResponse struct {
	RequesterID    string     `json:"requester_id"`
	SubmissionID   string     `json:"submission_id"`
	Status         string     `json:"status"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	DecidedBy      string     `json:"decided_by,omitempty"`
	DecisionReason string     `json:"decision_reason,omitempty"`
	DecidedAt      *time.Time `json:"decided_at,omitempty"`
}

func toResponse(record *models.Record) RecordResponse {
	return RecordResponse{
		RequesterID:    record.RequesterID,
		SubmissionID:   record.SubmissionID,
		Status:         string(record.Status),
		SubmittedAt:    record.SubmittedAt,
		DecidedBy:      record.DecidedBy,
		DecisionReason: record.DecisionReason,
		DecidedAt:      record.DecidedAt,
	}
}

// HandleOpenIntake checks whether the caller may start a new submission.
func (h *Handler) HandleOpenIntake(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.svc.OpenIntake(r.Context(), actor.ID); err != nil {
		shared.WriteError(w, err)
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, map[string]string{"status": "open"})
}

// HandleSubmit records a new submission for the caller.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	form, err := models.NewForm(req.Age, req.Introduction, req.About, req.Goal, req.Referral)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.svc.Submit(r.Context(), actor.ID, form)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	httpjson.WriteJSON(w, http.StatusCreated, toResponse(record))
}

// HandleStatus returns the caller's verification record.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	record, err := h.svc.Status(r.Context(), actor.ID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, toResponse(record))
}

// HandleListPending returns submissions awaiting review, oldest first.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	if _, err := h.reviewerFromContext(r); err != nil {
		shared.WriteError(w, err)
		return
	}

	records, err := h.svc.ListPending(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	responses := make([]RecordResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, toResponse(record))
	}
	httpjson.WriteJSON(w, http.StatusOK, responses)
}

// HandleAccept approves a pending submission.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	reviewer, err := h.reviewerFromContext(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	record, err := h.svc.Accept(r.Context(), reviewer, chi.URLParam(r, "requesterID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, toResponse(record))
}

// HandleReject declines a pending submission.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	reviewer, err := h.reviewerFromContext(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req RejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	record, err := h.svc.Reject(r.Context(), reviewer, chi.URLParam(r, "requesterID"), req.Reason)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	httpjson.WriteJSON(w, http.StatusOK, toResponse(record))
}

func (h *Handler) reviewerFromContext(r *http.Request) (service.Reviewer, error) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		return service.Reviewer{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return service.Reviewer{ID: actor.ID, Roles: actor.Roles}, nil
}
