// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/util"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	favorite   INTEGER NOT NULL DEFAULT 0,
	config     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	question        TEXT NOT NULL,
	answer          TEXT NOT NULL,
	PRIMARY KEY (conversation_id, position)
);
`

// SQLiteStore keeps conversations in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), util.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Engine.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*model.Conversation, error) {
	var (
		conv         model.Conversation
		favorite     int
		config       string
		created, upd int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, favorite, config, created_at, updated_at FROM conversations WHERE id = ?", id).
		Scan(&conv.ID, &conv.Name, &favorite, &config, &created, &upd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	conv.Favorite = favorite != 0
	conv.CreatedAt = time.Unix(0, created).UTC()
	conv.UpdatedAt = time.Unix(0, upd).UTC()
	if err := json.Unmarshal([]byte(config), &conv.Config); err != nil {
		return nil, fmt.Errorf("decode config of %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT question, answer FROM turns WHERE conversation_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			turn   model.ChatTurn
			answer string
		)
		if err := rows.Scan(&turn.User, &answer); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(answer), &turn.Answer); err != nil {
			return nil, fmt.Errorf("decode turn of %s: %w", id, err)
		}
		conv.Turns = append(conv.Turns, turn)
	}
	return &conv, rows.Err()
}

// Save implements Engine. The conversation's turns are rewritten in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, conv *model.Conversation) error {
	config, err := json.Marshal(conv.Config)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (id, name, favorite, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			favorite = excluded.favorite,
			config = excluded.config,
			updated_at = excluded.updated_at`,
		conv.ID, conv.Name, boolToInt(conv.Favorite), string(config),
		conv.CreatedAt.UnixNano(), conv.UpdatedAt.UnixNano())
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE conversation_id = ?", conv.ID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO turns (conversation_id, position, question, answer) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, turn := range conv.Turns {
		answer, err := json.Marshal(turn.Answer)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, conv.ID, i, turn.User, string(answer)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Remove implements Engine.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM turns WHERE conversation_id = ?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// List implements Engine.
func (s *SQLiteStore) List(ctx context.Context) ([]model.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.favorite, c.created_at, c.updated_at, COUNT(t.position)
		FROM conversations c
		LEFT JOIN turns t ON t.conversation_id = c.id
		GROUP BY c.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := []model.ConversationSummary{}
	for rows.Next() {
		var (
			sum          model.ConversationSummary
			favorite     int
			created, upd int64
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &favorite, &created, &upd, &sum.TurnCount); err != nil {
			return nil, err
		}
		sum.Favorite = favorite != 0
		sum.CreatedAt = time.Unix(0, created).UTC()
		sum.UpdatedAt = time.Unix(0, upd).UTC()
		sums = append(sums, sum)
	}
	return sums, rows.Err()
}

// Close implements Engine.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
