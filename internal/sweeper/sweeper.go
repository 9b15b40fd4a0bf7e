// Package sweeper owns reservation expiration: a bounded-batch sweep over
// active reservations whose expiry has passed, and a recurring job wrapper
// that runs the sweep on an interval.
package sweeper

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"holds-service/internal/clock"
	"holds-service/internal/interfaces"
	"holds-service/internal/models"
)

// Sweeper expires overdue reservations in bounded batches
type Sweeper struct {
	reservations interfaces.ReservationRepository
	outbox       interfaces.EventOutbox
	clock        clock.Clock
	batchSize    int
}

// NewSweeper creates a sweeper. batchSize caps how many reservations one
// sweep will touch.
func NewSweeper(reservations interfaces.ReservationRepository, outbox interfaces.EventOutbox, clk clock.Clock, batchSize int) (*Sweeper, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}
	return &Sweeper{
		reservations: reservations,
		outbox:       outbox,
		clock:        clk,
		batchSize:    batchSize,
	}, nil
}

// ExpireOldReservations finds active reservations with expiresAt strictly
// before now and transitions each to expired. A reservation expiring exactly
// at the sweep instant survives until the next run. One sweep drains every
// overdue reservation; the batch size only caps each fetch-and-write round.
// Per-row failures are logged and skipped so one bad row never aborts the
// sweep.
func (s *Sweeper) ExpireOldReservations(ctx context.Context) (*models.ExpirationResult, error) {
	now := s.clock.Now()

	result := &models.ExpirationResult{ExpiredIDs: []string{}}
	candidates := 0
	for {
		batch, err := s.reservations.GetExpiredActive(ctx, now, s.batchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load expired reservations: %w", err)
		}
		candidates += len(batch)

		expired := 0
		for i := range batch {
			if s.expireOne(ctx, &batch[i], result) {
				expired++
			}
		}

		if len(batch) < s.batchSize {
			break
		}
		// A full batch where nothing transitioned means every remaining row
		// keeps failing; stop rather than refetch the same rows forever.
		if expired == 0 {
			log.Warn().Int("batch", len(batch)).Msg("Full batch expired nothing, stopping sweep")
			break
		}
	}

	if result.ExpiredCount > 0 {
		log.Info().
			Int("expired", result.ExpiredCount).
			Int("candidates", candidates).
			Msg("Expiration sweep finished")
	} else {
		log.Debug().Int("candidates", candidates).Msg("Expiration sweep found nothing to expire")
	}

	return result, nil
}

// expireOne performs the guarded transition for a single reservation and
// reports whether the row actually expired.
func (s *Sweeper) expireOne(ctx context.Context, reservation *models.Reservation, result *models.ExpirationResult) bool {
	expired, err := s.reservations.ExpireReservation(ctx, reservation.ReservationID)
	if err != nil {
		log.Error().Err(err).
			Str("reservation_id", reservation.ReservationID.String()).
			Msg("Failed to expire reservation, skipping")
		return false
	}
	if !expired {
		// Cancelled (or already expired) between the read and the write.
		log.Debug().
			Str("reservation_id", reservation.ReservationID.String()).
			Msg("Reservation no longer active, skipping")
		return false
	}

	s.stageExpiredEvent(ctx, reservation)

	result.ExpiredCount++
	result.ExpiredIDs = append(result.ExpiredIDs, reservation.ReservationID.String())
	return true
}

func (s *Sweeper) stageExpiredEvent(ctx context.Context, reservation *models.Reservation) {
	event := &models.LifecycleEvent{
		EventID:   uuid.New().String(),
		EventType: models.EventTypeReservationExpired,
		RecordID:  reservation.ReservationID.String(),
		UserID:    reservation.UserID,
		ItemID:    reservation.ItemID,
		Status:    string(models.ReservationStatusExpired),
		Timestamp: s.clock.Now(),
	}
	if err := s.outbox.InsertLifecycleEvent(ctx, nil, event); err != nil {
		log.Warn().Err(err).
			Str("reservation_id", reservation.ReservationID.String()).
			Msg("Failed to stage expiration event")
	}
}
