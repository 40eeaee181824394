// Package journal appends finished dataset rows to SQLite as they are produced,
// so an interrupted run keeps every row completed before the interruption.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrNoRuns = errors.New("journal has no runs")

type Journal struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Append stores the set cells of one row. Unset cells are simply not present.
func (j *Journal) Append(ctx context.Context, runID, articleURL string, cells map[string]string) error {
	data, err := json.Marshal(cells)
	if err != nil {
		return fmt.Errorf("encode row: %w", err)
	}
	_, err = j.db.ExecContext(ctx,
		"INSERT INTO rows (run_id, article_url, cells, created_at) VALUES (?, ?, ?, ?)",
		runID, articleURL, string(data), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("append row for %s: %w", articleURL, err)
	}
	return nil
}

// Rows returns the rows of runID in insertion order.
func (j *Journal) Rows(ctx context.Context, runID string) ([]map[string]string, error) {
	rows, err := j.db.QueryContext(ctx, "SELECT cells FROM rows WHERE run_id = ? ORDER BY id", runID)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	var out []map[string]string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		cells := map[string]string{}
		if err := json.Unmarshal([]byte(raw), &cells); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

// LatestRun is the run that wrote the most recent row.
func (j *Journal) LatestRun(ctx context.Context) (string, error) {
	var runID string
	err := j.db.QueryRowContext(ctx, "SELECT run_id FROM rows ORDER BY id DESC LIMIT 1").Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("query latest run: %w", err)
	}
	return runID, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}
