package store

import (
	"context"

	"github.com/punchamoorthee/paycore/internal/domain"
)

// ListActive returns every active block-list entry. The list is maintained
// externally; this core only reads it.
func (s *Store) ListActive(ctx context.Context) ([]domain.BlockListEntry, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT id, name, entity_type, reason, severity, active
		 FROM blocklist_entries WHERE active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.BlockListEntry
	for rows.Next() {
		var e domain.BlockListEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.EntityType, &e.Reason, &e.Severity, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
