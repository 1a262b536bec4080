package candidate

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore persists the candidate list to a wot_candidates table. It is
// a write-through sink used as a Store Config.Persist callback and a Load
// source on startup — the in-memory Store remains the source of truth for a
// running process; PostgresStore only durably mirrors it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an already-open *sql.DB.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// PersistAll replaces the table's contents with candidates in a single
// transaction, mirroring the full-export persistence contract: the
// configured callback receives the complete list after every state change,
// so the sink's job is to make that snapshot durable, not to diff it.
func (s *PostgresStore) PersistAll(ctx context.Context, candidates []Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM wot_candidates`); err != nil {
		return err
	}

	for _, c := range candidates {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO wot_candidates
				(id, status, type, target_key, comment, source, event_ref, event_id, reason, metadata, created_at, updated_at)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`, c.ID, string(c.Status), c.Type, c.Target, c.Comment, c.Source, c.EventRef, c.EventID, c.Reason, metaJSON, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadAll reads every candidate row back, ordered by created_at ascending,
// suitable for feeding directly to Store.Load on process start.
func (s *PostgresStore) LoadAll(ctx context.Context) ([]Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, type, target_key, comment, source, event_ref, event_id, reason, metadata, created_at, updated_at
		FROM wot_candidates
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(scanner rowScanner) (Candidate, error) {
	var (
		c       Candidate
		status  string
		metaRaw []byte
		created time.Time
		updated time.Time
	)
	if err := scanner.Scan(&c.ID, &status, &c.Type, &c.Target, &c.Comment, &c.Source, &c.EventRef, &c.EventID, &c.Reason, &metaRaw, &created, &updated); err != nil {
		return Candidate{}, err
	}
	c.Status = Status(status)
	c.CreatedAt = created
	c.UpdatedAt = updated
	if len(metaRaw) > 0 {
		var meta map[string]string
		if err := json.Unmarshal(metaRaw, &meta); err == nil {
			c.Metadata = meta
		}
	}
	return c, nil
}

// PersistFunc adapts PersistAll to the Store's synchronous Config.Persist
// callback shape. Errors are logged by the caller, never surfaced to Store:
// persistence failures must not corrupt in-memory state.
func (s *PostgresStore) PersistFunc(ctx context.Context, onError func(error)) PersistFunc {
	return func(candidates []Candidate) {
		if err := s.PersistAll(ctx, candidates); err != nil && onError != nil {
			onError(err)
		}
	}
}
