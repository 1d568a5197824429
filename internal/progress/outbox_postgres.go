package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresOutbox is a PostgreSQL-backed Outbox. Pending pushes survive
// process restarts and are drained after the next successful remote contact.
type PostgresOutbox struct {
	pool *pgxpool.Pool
}

// NewPostgresOutbox creates a PostgreSQL-backed outbox and ensures its table
// exists.
func NewPostgresOutbox(ctx context.Context, pool *pgxpool.Pool) (*PostgresOutbox, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS push_outbox (
			id             TEXT PRIMARY KEY,
			path_id        TEXT NOT NULL,
			learner_id     TEXT NOT NULL,
			kind           TEXT NOT NULL,
			topic_ordinal  INT NOT NULL,
			lesson_ordinal INT NOT NULL,
			score          DOUBLE PRECISION NOT NULL,
			queued_at      TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return nil, fmt.Errorf("create push_outbox table: %w", err)
	}
	return &PostgresOutbox{pool: pool}, nil
}

func (o *PostgresOutbox) Enqueue(push PendingPush) error {
	if push.PathID == "" {
		return fmt.Errorf("path id is required")
	}
	if push.ID == "" {
		push.ID = generateID()
	}
	if push.QueuedAt.IsZero() {
		push.QueuedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	_, err := o.pool.Exec(ctx,
		`INSERT INTO push_outbox (id, path_id, learner_id, kind, topic_ordinal, lesson_ordinal, score, queued_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		push.ID, push.PathID, push.LearnerID, string(push.Kind),
		push.TopicOrdinal, push.LessonOrdinal, push.Score, push.QueuedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue push: %w", err)
	}
	return nil
}

func (o *PostgresOutbox) Pending(pathID, learnerID string) ([]PendingPush, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	rows, err := o.pool.Query(ctx,
		`SELECT id, path_id, learner_id, kind, topic_ordinal, lesson_ordinal, score, queued_at
		 FROM push_outbox
		 WHERE path_id = $1 AND learner_id = $2
		 ORDER BY queued_at`,
		pathID, learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending pushes: %w", err)
	}
	defer rows.Close()

	var out []PendingPush
	for rows.Next() {
		var p PendingPush
		var kind string
		if err := rows.Scan(&p.ID, &p.PathID, &p.LearnerID, &kind,
			&p.TopicOrdinal, &p.LessonOrdinal, &p.Score, &p.QueuedAt); err != nil {
			return nil, fmt.Errorf("scan pending push: %w", err)
		}
		p.Kind = PushKind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (o *PostgresOutbox) MarkDone(id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
	defer cancel()

	cmd, err := o.pool.Exec(ctx, `DELETE FROM push_outbox WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete push: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("push not found: %s", id)
	}
	return nil
}
