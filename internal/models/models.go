package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HoldStatus represents the state of a hold in the pickup queue
type HoldStatus string

const (
	HoldStatusWaiting        HoldStatus = "waiting"
	HoldStatusReadyForPickup HoldStatus = "ready-for-pickup"
	HoldStatusCancelled      HoldStatus = "cancelled"
)

// ValidHoldStatus reports whether s is one of the known hold states.
func ValidHoldStatus(s HoldStatus) bool {
	switch s {
	case HoldStatusWaiting, HoldStatusReadyForPickup, HoldStatusCancelled:
		return true
	}
	return false
}

// ReservationStatus represents the state of a reservation
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusCancelled ReservationStatus = "cancelled"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// Catalog item states as reported by the remote catalog source
const (
	ItemStatusAvailable  = "available"
	ItemStatusCheckedOut = "checked-out"
)

// LoanStatusBorrowed marks a loan that is currently out with the patron
const LoanStatusBorrowed = "BORROWED"

// Event types published to the lifecycle topic
const (
	EventTypeHoldPlaced           = "hold.placed"
	EventTypeHoldCancelled        = "hold.cancelled"
	EventTypeHoldStatusChanged    = "hold.status_changed"
	EventTypeReservationPlaced    = "reservation.placed"
	EventTypeReservationCancelled = "reservation.cancelled"
	EventTypeReservationExpired   = "reservation.expired"
)

// Domain Models

// Hold represents a patron's place in line for a checked-out item
type Hold struct {
	HoldID    uuid.UUID  `db:"hold_id" json:"hold_id"`
	UserID    string     `db:"user_id" json:"user_id"`
	ItemID    string     `db:"item_id" json:"item_id"`
	Status    HoldStatus `db:"status" json:"status"`
	Position  int        `db:"queue_position" json:"position"`
	Notified  bool       `db:"notified" json:"notified"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Reservation represents a patron's time-boxed claim on an available item
type Reservation struct {
	ReservationID uuid.UUID         `db:"reservation_id" json:"reservation_id"`
	UserID        string            `db:"user_id" json:"user_id"`
	ItemID        string            `db:"item_id" json:"item_id"`
	Status        ReservationStatus `db:"status" json:"status"`
	ExpiresAt     time.Time         `db:"expires_at" json:"expires_at"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// Remote source records

// CatalogItem is the catalog source's view of an item
type CatalogItem struct {
	ItemID string `json:"item_id"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// UserProfile is the user source's view of a patron
type UserProfile struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Membership string `json:"membership"`
}

// Loan is a single loan record from the loan source
type Loan struct {
	ItemID string `json:"item_id"`
	Status string `json:"status"`
}

// Cached snapshots (owned by the sync layer, stored in Redis)

// CatalogSnapshot is a cached catalog record plus sync metadata
type CatalogSnapshot struct {
	Item       CatalogItem `json:"item"`
	LastSynced time.Time   `json:"last_synced"`
	Source     string      `json:"source"`
}

// ProfileSnapshot is a cached user profile plus sync metadata
type ProfileSnapshot struct {
	Profile    UserProfile `json:"profile"`
	LastSynced time.Time   `json:"last_synced"`
	Source     string      `json:"source"`
}

// LoanSnapshot is a cached loan list plus sync metadata
type LoanSnapshot struct {
	Loans      []Loan    `json:"loans"`
	LastSynced time.Time `json:"last_synced"`
	Source     string    `json:"source"`
}

// Sync layer results

// AvailabilityResult is the outcome of an availability lookup
type AvailabilityResult struct {
	ItemID    string `json:"item_id"`
	Available bool   `json:"available"`
	Status    string `json:"status"`
	FromCache bool   `json:"from_cache"`
}

// ProfileResult is the outcome of a profile lookup
type ProfileResult struct {
	Profile   UserProfile `json:"profile"`
	FromCache bool        `json:"from_cache"`
}

// Decision is an eligibility verdict. Reason is safe to show to the patron.
type Decision struct {
	Allowed bool      `json:"allowed"`
	Code    ErrorCode `json:"code,omitempty"`
	Reason  string    `json:"reason,omitempty"`
}

// Allow returns a positive decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a negative decision with a patron-facing reason.
func Deny(code ErrorCode, reason string) Decision {
	return Decision{Allowed: false, Code: code, Reason: reason}
}

// LifecycleEvent is published for every hold/reservation state change
type LifecycleEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	RecordID  string    `json:"record_id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// OutboxEvent represents the outbox pattern table for reliable event publishing
type OutboxEvent struct {
	ID              int       `db:"id" json:"id"`
	EventType       string    `db:"event_type" json:"event_type"`
	Key             string    `db:"key" json:"key"`
	Payload         string    `db:"payload" json:"payload"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	Published       bool      `db:"published" json:"published"`
	PublishAttempts int       `db:"publish_attempts" json:"publish_attempts"`
	LastError       *string   `db:"last_error" json:"last_error,omitempty"`
}

// API Request Models

// PlaceHoldRequest requests a queued hold on a checked-out item
type PlaceHoldRequest struct {
	UserID string `json:"user_id" binding:"required" validate:"required"`
	ItemID string `json:"item_id" binding:"required" validate:"required"`
}

// PlaceReservationRequest requests a pickup claim on an available item
type PlaceReservationRequest struct {
	UserID string `json:"user_id" binding:"required" validate:"required"`
	ItemID string `json:"item_id" binding:"required" validate:"required"`
}

// UpdateHoldStatusRequest is the administrative status transition payload
type UpdateHoldStatusRequest struct {
	Status   string `json:"status" binding:"required" validate:"required"`
	Notified bool   `json:"notified"`
}

// StartExpirationJobRequest configures the recurring sweep
type StartExpirationJobRequest struct {
	IntervalMinutes int `json:"interval_minutes" validate:"min=0"`
}

// API Response Models

// HoldResponse is returned after hold mutations
type HoldResponse struct {
	HoldID    uuid.UUID  `json:"hold_id"`
	UserID    string     `json:"user_id"`
	ItemID    string     `json:"item_id"`
	Status    HoldStatus `json:"status"`
	Position  int        `json:"position"`
	Notified  bool       `json:"notified"`
	CreatedAt time.Time  `json:"created_at"`
	Message   string     `json:"message"`
}

// ReservationResponse is returned after reservation mutations
type ReservationResponse struct {
	ReservationID uuid.UUID         `json:"reservation_id"`
	UserID        string            `json:"user_id"`
	ItemID        string            `json:"item_id"`
	Status        ReservationStatus `json:"status"`
	ExpiresAt     time.Time         `json:"expires_at"`
	CreatedAt     time.Time         `json:"created_at"`
	Message       string            `json:"message"`
}

// UserHoldsResponse lists a patron's holds with their cached profile attached
type UserHoldsResponse struct {
	Holds    []Hold       `json:"holds"`
	UserInfo *UserProfile `json:"user_info,omitempty"`
}

// ExpirationResult reports one sweep of the expiration job
type ExpirationResult struct {
	ExpiredCount int      `json:"expired_count"`
	ExpiredIDs   []string `json:"expired_ids"`
}

// JobStatus reports the state of the recurring expiration job
type JobStatus struct {
	Running         bool `json:"running"`
	IntervalMinutes int  `json:"interval_minutes,omitempty"`
}

// SyncSummary reports a bulk catalog refresh
type SyncSummary struct {
	ItemCount int `json:"item_count"`
}

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	ErrorCodeValidationError     ErrorCode = "VALIDATION_ERROR"
	ErrorCodeDuplicateHold       ErrorCode = "DUPLICATE_HOLD"
	ErrorCodeDuplicateRes        ErrorCode = "DUPLICATE_RESERVATION"
	ErrorCodeItemAvailable       ErrorCode = "ITEM_AVAILABLE"
	ErrorCodeItemCheckedOut      ErrorCode = "ITEM_CHECKED_OUT"
	ErrorCodeActiveLoan          ErrorCode = "ACTIVE_LOAN"
	ErrorCodeHoldNotFound        ErrorCode = "HOLD_NOT_FOUND"
	ErrorCodeReservationNotFound ErrorCode = "RESERVATION_NOT_FOUND"
	ErrorCodeAlreadyFinished     ErrorCode = "ALREADY_FINISHED"
	ErrorCodeInvalidStatus       ErrorCode = "INVALID_STATUS"
	ErrorCodeJobAlreadyRunning   ErrorCode = "JOB_ALREADY_RUNNING"
	ErrorCodeDatabaseError       ErrorCode = "DATABASE_ERROR"
	ErrorCodeInternalError       ErrorCode = "INTERNAL_ERROR"
)

const (
	ProblemTypeValidationError = "validation-error"
	ProblemTypeBusinessError   = "business-logic-error"
	ProblemTypeNotFound        = "not-found"
	ProblemTypeInternalError   = "internal-error"
)

// ValidationError represents a malformed-input rejection
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// BusinessError represents an eligibility or state-machine rejection
type BusinessError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NotFoundError represents operating on a record that doesn't exist
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID '%s' not found", e.Resource, e.ID)
}

// SystemError represents a dependency-level fault (database, cache, remote source)
type SystemError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Cause     error     `json:"-"`
	Component string    `json:"component"`
}

func (e *SystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s in %s: %s (caused by: %v)", e.Code, e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s in %s: %s", e.Code, e.Component, e.Message)
}

func (e *SystemError) Unwrap() error {
	return e.Cause
}

// Error factory functions

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func NewBusinessError(code ErrorCode, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message}
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewSystemError(code ErrorCode, component, message string, cause error) *SystemError {
	return &SystemError{Code: code, Component: component, Message: message, Cause: cause}
}

// ProblemDetails is the RFC 7807 style error body returned by the HTTP layer
type ProblemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Field  string `json:"field,omitempty"`
	Code   string `json:"code,omitempty"`
}

func NewProblemDetails(status int, title, detail string) *ProblemDetails {
	return &ProblemDetails{Type: problemType(status), Title: title, Status: status, Detail: detail}
}

func NewValidationProblem(field, message string) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeValidationError,
		Title:  "Validation Failed",
		Status: 400,
		Detail: message,
		Field:  field,
		Code:   string(ErrorCodeValidationError),
	}
}

func NewBusinessLogicProblem(status int, title, detail string, code ErrorCode) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeBusinessError,
		Title:  title,
		Status: status,
		Detail: detail,
		Code:   string(code),
	}
}

func NewNotFoundProblem(resource string) *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeNotFound,
		Title:  "Resource Not Found",
		Status: 404,
		Detail: resource + " not found",
	}
}

func NewInternalErrorProblem() *ProblemDetails {
	return &ProblemDetails{
		Type:   ProblemTypeInternalError,
		Title:  "Internal Server Error",
		Status: 500,
		Detail: "An unexpected error occurred",
	}
}

func problemType(status int) string {
	switch status {
	case 400:
		return ProblemTypeValidationError
	case 404:
		return ProblemTypeNotFound
	case 409, 422:
		return ProblemTypeBusinessError
	default:
		return ProblemTypeInternalError
	}
}
