package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"holds-service/internal/clock"
	"holds-service/internal/interfaces"
	"holds-service/internal/models"
	"holds-service/internal/validation"
)

// HoldsService is the queue and record manager: the sole writer of hold and
// reservation records (the sweeper owns only the active -> expired transition)
type HoldsService struct {
	holds        interfaces.HoldRepository
	reservations interfaces.ReservationRepository
	outbox       interfaces.EventOutbox
	eligibility  interfaces.EligibilityChecker
	syncer       interfaces.Syncer
	clock        clock.Clock
	config       ServiceConfig
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	ReservationRetention time.Duration
}

// Validate validates the service configuration
func (c ServiceConfig) Validate() error {
	if c.ReservationRetention < time.Hour {
		return fmt.Errorf("reservation retention must be at least 1 hour, got %v", c.ReservationRetention)
	}
	return nil
}

// NewHoldsService creates a new holds service with dependency injection and validation
func NewHoldsService(
	holds interfaces.HoldRepository,
	reservations interfaces.ReservationRepository,
	outbox interfaces.EventOutbox,
	eligibility interfaces.EligibilityChecker,
	syncer interfaces.Syncer,
	clk clock.Clock,
	config ServiceConfig,
) (*HoldsService, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return &HoldsService{
		holds:        holds,
		reservations: reservations,
		outbox:       outbox,
		eligibility:  eligibility,
		syncer:       syncer,
		clock:        clk,
		config:       config,
	}, nil
}

// PlaceHold queues a hold on a checked-out item. The position read, the
// duplicate re-check and the insert run under a per-item advisory lock so two
// concurrent placements can never assign the same position.
func (s *HoldsService) PlaceHold(ctx context.Context, userID, itemID string) (*models.HoldResponse, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateItemID(itemID); err != nil {
		return nil, err
	}

	if decision := s.eligibility.CheckHold(ctx, userID, itemID); !decision.Allowed {
		return nil, models.NewBusinessError(decision.Code, decision.Reason)
	}

	tx, err := s.holds.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.holds.LockItemQueue(ctx, tx, itemID); err != nil {
		return nil, err
	}

	// Re-check for a duplicate right before the insert. Eligibility already
	// checked, but another request may have landed in the gap.
	existing, err := s.holds.FindOpenHold(ctx, userID, itemID)
	if err != nil {
		return nil, fmt.Errorf("duplicate re-check failed: %w", err)
	}
	if existing != nil {
		return nil, models.NewBusinessError(models.ErrorCodeDuplicateHold, "You already have a hold on this item")
	}

	queue, err := s.holds.GetItemQueue(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to read item queue: %w", err)
	}

	hold := &models.Hold{
		HoldID:    uuid.New(),
		UserID:    userID,
		ItemID:    itemID,
		Status:    models.HoldStatusWaiting,
		Position:  len(queue) + 1,
		Notified:  false,
		CreatedAt: s.clock.Now(),
	}

	if err := s.holds.CreateHold(ctx, tx, hold); err != nil {
		return nil, err
	}

	if err := s.outbox.InsertLifecycleEvent(ctx, tx, s.newLifecycleEvent(
		models.EventTypeHoldPlaced, hold.HoldID.String(), userID, itemID, string(hold.Status),
	)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Str("hold_id", hold.HoldID.String()).
		Str("user_id", userID).
		Str("item_id", itemID).
		Int("position", hold.Position).
		Msg("Hold placed")

	return buildHoldResponse(hold, "Hold placed successfully"), nil
}

// PlaceReservation claims an available item for pickup. The expiry is anchored
// to the creation instant: expiresAt = createdAt + retention window.
func (s *HoldsService) PlaceReservation(ctx context.Context, userID, itemID string) (*models.ReservationResponse, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := validation.ValidateItemID(itemID); err != nil {
		return nil, err
	}

	if decision := s.eligibility.CheckReservation(ctx, userID, itemID); !decision.Allowed {
		return nil, models.NewBusinessError(decision.Code, decision.Reason)
	}

	now := s.clock.Now()
	reservation := &models.Reservation{
		ReservationID: uuid.New(),
		UserID:        userID,
		ItemID:        itemID,
		Status:        models.ReservationStatusActive,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.config.ReservationRetention),
	}

	if err := s.reservations.CreateReservation(ctx, reservation); err != nil {
		return nil, err
	}

	s.stageEvent(ctx, s.newLifecycleEvent(
		models.EventTypeReservationPlaced, reservation.ReservationID.String(), userID, itemID, string(reservation.Status),
	))

	log.Info().
		Str("reservation_id", reservation.ReservationID.String()).
		Str("user_id", userID).
		Str("item_id", itemID).
		Time("expires_at", reservation.ExpiresAt).
		Msg("Reservation placed")

	return buildReservationResponse(reservation, "Reservation placed successfully"), nil
}

// CancelHold deletes a hold inside a transaction that re-verifies existence,
// then repairs the remaining queue for the item. Queue repair is not
// transactional across holds: individual rewrite failures are logged and the
// repair continues.
func (s *HoldsService) CancelHold(ctx context.Context, holdID string) error {
	id, err := parseRecordID("hold_id", holdID)
	if err != nil {
		return err
	}

	hold, err := s.holds.GetHold(ctx, id)
	if err != nil {
		return err
	}
	if hold == nil {
		return models.NewNotFoundError("Hold", holdID)
	}
	itemID := hold.ItemID

	tx, err := s.holds.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.holds.LockItemQueue(ctx, tx, itemID); err != nil {
		return err
	}

	deleted, err := s.holds.DeleteHold(ctx, tx, id)
	if err != nil {
		return err
	}
	if !deleted {
		// The hold vanished between read and delete; fail cleanly.
		return models.NewNotFoundError("Hold", holdID)
	}

	if err := s.outbox.InsertLifecycleEvent(ctx, tx, s.newLifecycleEvent(
		models.EventTypeHoldCancelled, holdID, hold.UserID, itemID, string(models.HoldStatusCancelled),
	)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Str("hold_id", holdID).Str("item_id", itemID).Msg("Hold cancelled")

	s.repairQueue(ctx, itemID)
	return nil
}

// repairQueue rewrites positions to index+1 over the item's remaining holds in
// creation order, closing any gap left by a removal
func (s *HoldsService) repairQueue(ctx context.Context, itemID string) {
	queue, err := s.holds.GetItemQueueByCreation(ctx, itemID)
	if err != nil {
		log.Error().Err(err).Str("item_id", itemID).Msg("Queue repair could not reload holds")
		return
	}

	repaired := 0
	for i := range queue {
		want := i + 1
		if queue[i].Position == want {
			continue
		}
		if err := s.holds.UpdateHoldPosition(ctx, queue[i].HoldID, want); err != nil {
			log.Error().Err(err).
				Str("hold_id", queue[i].HoldID.String()).
				Int("position", want).
				Msg("Queue repair failed for hold, continuing")
			continue
		}
		repaired++
	}

	if repaired > 0 {
		log.Info().Str("item_id", itemID).Int("repaired", repaired).Msg("Repaired hold queue")
	}
}

// CancelReservation transitions a reservation to cancelled. The transition is
// one-way: already-cancelled or expired reservations are reported as a no-op
// error and never resurrected.
func (s *HoldsService) CancelReservation(ctx context.Context, reservationID string) error {
	id, err := parseRecordID("reservation_id", reservationID)
	if err != nil {
		return err
	}

	reservation, err := s.reservations.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if reservation == nil {
		return models.NewNotFoundError("Reservation", reservationID)
	}

	cancelled, err := s.reservations.CancelReservation(ctx, id)
	if err != nil {
		return err
	}
	if !cancelled {
		return models.NewBusinessError(models.ErrorCodeAlreadyFinished,
			fmt.Sprintf("Reservation is already %s", reservation.Status))
	}

	s.stageEvent(ctx, s.newLifecycleEvent(
		models.EventTypeReservationCancelled, reservationID, reservation.UserID, reservation.ItemID,
		string(models.ReservationStatusCancelled),
	))

	log.Info().Str("reservation_id", reservationID).Msg("Reservation cancelled")
	return nil
}

// UpdateHoldStatus performs the administrative status transition (for example
// to ready-for-pickup when the item comes back). No queue side effects.
func (s *HoldsService) UpdateHoldStatus(ctx context.Context, holdID, status string, notified bool) error {
	id, err := parseRecordID("hold_id", holdID)
	if err != nil {
		return err
	}

	holdStatus := models.HoldStatus(status)
	if !models.ValidHoldStatus(holdStatus) {
		return models.NewValidationError("status", fmt.Sprintf("Unknown hold status %q", status))
	}

	updated, err := s.holds.UpdateHoldStatus(ctx, id, holdStatus, notified)
	if err != nil {
		return err
	}
	if !updated {
		return models.NewNotFoundError("Hold", holdID)
	}

	hold, err := s.holds.GetHold(ctx, id)
	if err == nil && hold != nil {
		s.stageEvent(ctx, s.newLifecycleEvent(
			models.EventTypeHoldStatusChanged, holdID, hold.UserID, hold.ItemID, status,
		))
	}

	log.Info().Str("hold_id", holdID).Str("status", status).Bool("notified", notified).Msg("Hold status updated")
	return nil
}

// GetUserHolds lists a patron's holds with their cached profile attached
func (s *HoldsService) GetUserHolds(ctx context.Context, userID string) (*models.UserHoldsResponse, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}

	holds, err := s.holds.GetUserHolds(ctx, userID)
	if err != nil {
		return nil, err
	}

	response := &models.UserHoldsResponse{Holds: holds}
	if profile, err := s.syncer.GetUserProfile(ctx, userID); err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("Could not attach user profile")
	} else {
		response.UserInfo = &profile.Profile
	}

	return response, nil
}

// GetUserReservations lists a patron's reservations
func (s *HoldsService) GetUserReservations(ctx context.Context, userID string) ([]models.Reservation, error) {
	if err := validation.ValidateUserID(userID); err != nil {
		return nil, err
	}
	return s.reservations.GetUserReservations(ctx, userID)
}

// GetItemHolds lists an item's queue ordered by position
func (s *HoldsService) GetItemHolds(ctx context.Context, itemID string) ([]models.Hold, error) {
	if err := validation.ValidateItemID(itemID); err != nil {
		return nil, err
	}
	return s.holds.GetItemQueue(ctx, itemID)
}

// GetAllHolds lists every hold record
func (s *HoldsService) GetAllHolds(ctx context.Context) ([]models.Hold, error) {
	return s.holds.GetAllHolds(ctx)
}

// GetAllReservations lists every reservation record
func (s *HoldsService) GetAllReservations(ctx context.Context) ([]models.Reservation, error) {
	return s.reservations.GetAllReservations(ctx)
}

// stageEvent stages a lifecycle event outside a transaction. Event staging is
// best-effort for single-statement mutations; failures are logged, not fatal.
func (s *HoldsService) stageEvent(ctx context.Context, event *models.LifecycleEvent) {
	if err := s.outbox.InsertLifecycleEvent(ctx, nil, event); err != nil {
		log.Warn().Err(err).Str("event_type", event.EventType).Msg("Failed to stage lifecycle event")
	}
}

func (s *HoldsService) newLifecycleEvent(eventType, recordID, userID, itemID, status string) *models.LifecycleEvent {
	return &models.LifecycleEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		RecordID:  recordID,
		UserID:    userID,
		ItemID:    itemID,
		Status:    status,
		Timestamp: s.clock.Now(),
	}
}

func parseRecordID(field, id string) (uuid.UUID, error) {
	if err := validation.ValidateRecordID(field, id); err != nil {
		return uuid.Nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, models.NewValidationError(field, "ID is not a valid UUID")
	}
	return parsed, nil
}

func buildHoldResponse(hold *models.Hold, message string) *models.HoldResponse {
	return &models.HoldResponse{
		HoldID:    hold.HoldID,
		UserID:    hold.UserID,
		ItemID:    hold.ItemID,
		Status:    hold.Status,
		Position:  hold.Position,
		Notified:  hold.Notified,
		CreatedAt: hold.CreatedAt,
		Message:   message,
	}
}

func buildReservationResponse(reservation *models.Reservation, message string) *models.ReservationResponse {
	return &models.ReservationResponse{
		ReservationID: reservation.ReservationID,
		UserID:        reservation.UserID,
		ItemID:        reservation.ItemID,
		Status:        reservation.Status,
		ExpiresAt:     reservation.ExpiresAt,
		CreatedAt:     reservation.CreatedAt,
		Message:       message,
	}
}
