package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Record appends one audit entry. Callers treat failures as non-fatal; the
// surrounding ledger work is already committed by the time this runs.
func (s *Store) Record(ctx context.Context, action, resourceType, resourceID, actor string, details map[string]any) error {
	_, err := s.Db.Exec(ctx,
		`INSERT INTO audit_log (id, action, resource_type, resource_id, actor, details)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), action, resourceType, resourceID, actor, details)
	if err != nil {
		return fmt.Errorf("audit insert failed: %w", err)
	}
	return nil
}
