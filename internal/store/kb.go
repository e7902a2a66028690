package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/agenthands/ontograph/internal/core/accuracy"
	"github.com/agenthands/ontograph/internal/core/dedupe"
	"github.com/agenthands/ontograph/internal/core/model"
)

// KB is a SQLite-backed reference knowledge base.
type KB struct {
	db *sql.DB
}

var _ accuracy.ReferenceKB = (*KB)(nil)

// AddEntities inserts names and indexes their words. Known names are skipped.
func (k *KB) AddEntities(ctx context.Context, names ...string) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kb import: %w", err)
	}
	defer tx.Rollback()
	if err := addEntities(ctx, tx, names); err != nil {
		return err
	}
	return tx.Commit()
}

// ImportTriples stores gold triples and adds their heads and tails as entities.
func (k *KB) ImportTriples(ctx context.Context, triples []model.Triple) error {
	tx, err := k.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin kb import: %w", err)
	}
	defer tx.Rollback()

	names := make([]string, 0, 2*len(triples))
	for _, t := range triples {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO kb_triples (head, relation, tail) VALUES (?, ?, ?)
		`, t.Head, t.Relation, t.Tail); err != nil {
			return fmt.Errorf("insert triple: %w", err)
		}
		names = append(names, t.Head, t.Tail)
	}
	if err := addEntities(ctx, tx, names); err != nil {
		return err
	}
	return tx.Commit()
}

func addEntities(ctx context.Context, tx *sql.Tx, names []string) error {
	for _, name := range names {
		norm := model.NormalizeText(name)
		if norm == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO kb_entities (name, norm) VALUES (?, ?)`, name, norm)
		if err != nil {
			return fmt.Errorf("insert entity %q: %w", name, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		for _, w := range dedupe.Words(norm) {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO kb_words (word, entity_id) VALUES (?, ?)`, w, id); err != nil {
				return fmt.Errorf("index word %q: %w", w, err)
			}
		}
	}
	return nil
}

func (k *KB) Lookup(ctx context.Context, name string) (bool, error) {
	var one int
	err := k.db.QueryRowContext(ctx, `SELECT 1 FROM kb_entities WHERE norm = ?`, model.NormalizeText(name)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %q: %w", name, err)
	}
	return true, nil
}

func (k *KB) Candidates(ctx context.Context, name string, limit int) ([]string, error) {
	words := dedupe.Words(name)
	if len(words) == 0 {
		return nil, nil
	}
	args := make([]any, len(words))
	for i, w := range words {
		args[i] = w
	}
	rows, err := k.db.QueryContext(ctx, `
		SELECT DISTINCT e.name
		FROM kb_words w JOIN kb_entities e ON e.id = w.entity_id
		WHERE w.word IN (?`+strings.Repeat(", ?", len(words)-1)+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("candidates for %q: %w", name, err)
	}
	defer rows.Close()

	var pool []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		pool = append(pool, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accuracy.RankCandidates(name, pool, limit), nil
}

// Triples returns the imported gold triples in insertion order.
func (k *KB) Triples(ctx context.Context) ([]model.Triple, error) {
	rows, err := k.db.QueryContext(ctx, `SELECT head, relation, tail FROM kb_triples ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query triples: %w", err)
	}
	defer rows.Close()

	var out []model.Triple
	for rows.Next() {
		var t model.Triple
		if err := rows.Scan(&t.Head, &t.Relation, &t.Tail); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (k *KB) Len(ctx context.Context) (int, error) {
	var n int
	err := k.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_entities`).Scan(&n)
	return n, err
}
