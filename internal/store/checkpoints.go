package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agenthands/ontograph/internal/core/accuracy"
)

// Checkpoints persists accuracy results per run.
type Checkpoints struct {
	db *sql.DB
}

var _ accuracy.Checkpointer = (*Checkpoints)(nil)

// Save writes one completed batch in a single transaction. Re-saving a node
// replaces its earlier result.
func (c *Checkpoints) Save(ctx context.Context, runID string, batch int, results []accuracy.NodeResult) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO checkpoints (run_id, node_id, batch, result)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, node_id) DO UPDATE SET
			batch = excluded.batch,
			result = excluded.result,
			created_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare checkpoint: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode result %s: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, runID, r.ID, batch, string(data)); err != nil {
			return fmt.Errorf("insert result %s: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func (c *Checkpoints) Load(ctx context.Context, runID string) ([]accuracy.NodeResult, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT result FROM checkpoints WHERE run_id = ? ORDER BY batch, rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []accuracy.NodeResult
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r accuracy.NodeResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode checkpoint: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Runs lists run ids with their saved node counts.
func (c *Checkpoints) Runs(ctx context.Context) (map[string]int, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT run_id, COUNT(*) FROM checkpoints GROUP BY run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

// Clear deletes every checkpoint of a run.
func (c *Checkpoints) Clear(ctx context.Context, runID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE run_id = ?`, runID)
	return err
}
