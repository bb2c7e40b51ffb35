package state

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/ShayCichocki/kai/internal/memory"
)

// AddFacts stores knowledge-graph facts, ignoring exact duplicates.
func (db *DB) AddFacts(ctx context.Context, facts []memory.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	ts := formatTime(now())
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		for _, f := range facts {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO memory_facts (subject, relation, object, created_at) VALUES (?, ?, ?, ?)
			`, f.Subject, f.Relation, f.Object, ts); err != nil {
				return fmt.Errorf("add fact: %w", err)
			}
		}
		return nil
	})
}

// FactsAbout returns facts whose subject or object equals one of
// entities, ignoring case. A limit of zero or less returns every match.
func (db *DB) FactsAbout(ctx context.Context, entities []string, limit int) ([]memory.Fact, error) {
	if len(entities) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(entities))
	args := make([]any, 0, 2*len(entities)+1)
	for i, e := range entities {
		placeholders[i] = "?"
		args = append(args, strings.ToLower(e))
	}
	args = append(args, args...)
	in := strings.Join(placeholders, ",")

	query := `SELECT subject, relation, object FROM memory_facts
		WHERE lower(subject) IN (` + in + `) OR lower(object) IN (` + in + `) ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []memory.Fact
	for rows.Next() {
		var f memory.Fact
		if err := rows.Scan(&f.Subject, &f.Relation, &f.Object); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}
