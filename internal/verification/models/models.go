// Package models defines the core domain types for the onboarding
// verification workflow.
package models

import (
	"strings"
	"time"

	dErrors "vouch/pkg/domain-errors"
)

// Status is the lifecycle state of a verification submission.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Terminal reports whether the status represents a final decision.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

// Valid reports whether the status is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// maxAnswerLength bounds every free-text answer.
const maxAnswerLength = 512

// forbiddenRunes are glyphs that render at extreme size or width in
// downstream clients and are refused outright.
var forbiddenRunes = []rune{'﷽', '\U0001242B', '⸻', '꧅'}

// Form holds the answers a requester submits for review.
type Form struct {
	Age          string `json:"age"`
	Introduction string `json:"introduction"`
	About        string `json:"about"`
	Goal         string `json:"goal"`
	Referral     string `json:"referral"`
}

// NewForm validates raw answers and returns a Form.
// All five answers are required; age must be exactly two digits.
func NewForm(age, introduction, about, goal, referral string) (Form, error) {
	if err := validateAge(age); err != nil {
		return Form{}, err
	}

	answers := map[string]string{
		"introduction": introduction,
		"about":        about,
		"goal":         goal,
		"referral":     referral,
	}
	for field, value := range answers {
		if err := validateAnswer(field, value); err != nil {
			return Form{}, err
		}
	}

	return Form{
		Age:          age,
		Introduction: introduction,
		About:        about,
		Goal:         goal,
		Referral:     referral,
	}, nil
}

func validateAge(age string) error {
	if len(age) != 2 {
		return dErrors.New(dErrors.CodeValidation, "age must be exactly two digits")
	}
	for _, r := range age {
		if r < '0' || r > '9' {
			return dErrors.New(dErrors.CodeValidation, "age must be exactly two digits")
		}
	}
	return nil
}

func validateAnswer(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return dErrors.New(dErrors.CodeValidation, field+" is required")
	}
	if len([]rune(value)) > maxAnswerLength {
		return dErrors.New(dErrors.CodeValidation, field+" exceeds the maximum length")
	}
	for _, forbidden := range forbiddenRunes {
		if strings.ContainsRune(value, forbidden) {
			return dErrors.New(dErrors.CodeValidation, field+" contains a forbidden character")
		}
	}
	return nil
}

// maxReasonLength bounds the free-text rejection reason.
const maxReasonLength = 1024

// NewReason validates a rejection reason. A reason is required and bounded
// because it is delivered to the requester and recorded on the row.
func NewReason(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	if len([]rune(raw)) > maxReasonLength {
		return "", dErrors.New(dErrors.CodeValidation, "reason exceeds the maximum length")
	}
	return raw, nil
}

// Record is a verification submission with its review state.
type Record struct {
	RequesterID    string
	SubmissionID   string
	Form           Form
	Status         Status
	SubmittedAt    time.Time
	DecidedBy      string
	DecisionReason string
	DecidedAt      *time.Time
}
