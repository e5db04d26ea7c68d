package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo persists audit events.
//
// Assumed table:
//   audit_events(id, actor_scope, actor_id, action, entity, entity_id,
//                payload, ip_address, user_agent, created_at)
// with an INSERT-only policy (no UPDATE/DELETE grants).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, actor_scope, actor_id, action, entity, entity_id, payload, ip_address, user_agent, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.ActorScope,
		e.ActorID,
		e.Action,
		e.Entity,
		e.EntityID,
		e.Payload,
		e.IPAddress,
		e.UserAgent,
		e.CreatedAt,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context, entity, entityID string, limit int) ([]Event, error) {
	const q = `
SELECT id, actor_scope, actor_id, action, entity, entity_id, payload, ip_address, user_agent, created_at
FROM audit_events
WHERE entity = $1 AND ($2 = '' OR entity_id = $2)
ORDER BY created_at DESC
LIMIT $3
`
	rows, err := r.db.QueryContext(ctx, q, entity, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(
			&e.ID,
			&e.ActorScope,
			&e.ActorID,
			&e.Action,
			&e.Entity,
			&e.EntityID,
			&e.Payload,
			&e.IPAddress,
			&e.UserAgent,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
