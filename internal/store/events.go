package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/punchamoorthee/paycore/internal/domain"
)

// IngestEvent persists one webhook event exactly once. A redelivery of an
// id that previously failed processing resets the row for another attempt;
// any other redelivery returns domain.ErrDuplicateEvent.
func (s *Store) IngestEvent(ctx context.Context, ev *domain.WebhookEvent) error {
	err := s.Db.QueryRow(ctx,
		`INSERT INTO webhook_events (id, type, payload, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING received_at`,
		ev.ID, ev.Type, ev.Payload, domain.EventStatusReceived,
	).Scan(&ev.ReceivedAt)
	if err == nil {
		ev.Status = domain.EventStatusReceived
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return fmt.Errorf("event insert failed: %w", err)
	}

	// Row exists. Errored events may be retried via redelivery.
	tag, err := s.Db.Exec(ctx,
		`UPDATE webhook_events
		 SET status = $2, payload = $3, error_message = NULL
		 WHERE id = $1 AND status = $4`,
		ev.ID, domain.EventStatusReceived, ev.Payload, domain.EventStatusError,
	)
	if err != nil {
		return fmt.Errorf("event retry reset failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateEvent
	}
	ev.Status = domain.EventStatusReceived
	return nil
}

func (s *Store) MarkEventProcessed(ctx context.Context, id string) error {
	_, err := s.Db.Exec(ctx,
		"UPDATE webhook_events SET status = $2 WHERE id = $1",
		id, domain.EventStatusProcessed)
	return err
}

// MarkEventError records the failure message for operator inspection and
// leaves the event eligible for redelivery.
func (s *Store) MarkEventError(ctx context.Context, id, msg string) error {
	_, err := s.Db.Exec(ctx,
		"UPDATE webhook_events SET status = $2, error_message = $3 WHERE id = $1",
		id, domain.EventStatusError, msg)
	return err
}

func (s *Store) GetEvent(ctx context.Context, id string) (*domain.WebhookEvent, error) {
	var ev domain.WebhookEvent
	err := s.Db.QueryRow(ctx,
		`SELECT id, type, payload, status, error_message, received_at
		 FROM webhook_events WHERE id = $1`, id,
	).Scan(&ev.ID, &ev.Type, &ev.Payload, &ev.Status, &ev.ErrorMessage, &ev.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, err
	}
	return &ev, nil
}
