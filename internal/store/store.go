// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists framing sessions and the keyword library in a
// SQLite database, with a full-text index over conversation messages.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/framingbot/internal/chat"
	"github.com/pdiddy/framingbot/internal/keywords"
	"github.com/pdiddy/framingbot/pkg/types"
)

const dbFile = "framingbot.db"

// Store manages the session SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the session database at dataDir/framingbot.db.
// It creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			owner TEXT,
			phase TEXT NOT NULL,
			framing TEXT,
			tension TEXT,
			profile TEXT,
			keyword_map TEXT,
			rule_output TEXT,
			rq_candidates TEXT,
			raw_input_parts TEXT,
			created_at TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
		`CREATE TABLE IF NOT EXISTS observations (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			term TEXT NOT NULL,
			orientation TEXT NOT NULL,
			weight REAL NOT NULL,
			UNIQUE(term, orientation)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='messages_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE messages_fts USING fts5(content, content=messages, content_rowid=rowid)`,
			`CREATE TRIGGER messages_ai AFTER INSERT ON messages BEGIN
				INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
			`CREATE TRIGGER messages_ad AFTER DELETE ON messages BEGIN
				INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
			END`,
			`CREATE TRIGGER messages_au AFTER UPDATE ON messages BEGIN
				INSERT INTO messages_fts(messages_fts, rowid, content) VALUES('delete', old.rowid, old.content);
				INSERT INTO messages_fts(rowid, content) VALUES (new.rowid, new.content);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveSession upserts a session and rewrites its message history in one
// transaction.
func (s *Store) SaveSession(ctx context.Context, session *types.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	framingJSON, _ := json.Marshal(session.Framing)
	tensionJSON, _ := json.Marshal(session.Tension)
	profileJSON, _ := json.Marshal(session.Profile)
	keywordMapJSON, _ := json.Marshal(session.KeywordMap)
	ruleOutputJSON, _ := json.Marshal(session.RuleOutput)
	candidatesJSON, _ := json.Marshal(session.RQCandidates)
	rawPartsJSON, _ := json.Marshal(session.RawInputParts)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, owner, phase, framing, tension, profile,
			keyword_map, rule_output, rq_candidates, raw_input_parts,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			owner=excluded.owner, phase=excluded.phase, framing=excluded.framing,
			tension=excluded.tension, profile=excluded.profile,
			keyword_map=excluded.keyword_map, rule_output=excluded.rule_output,
			rq_candidates=excluded.rq_candidates,
			raw_input_parts=excluded.raw_input_parts,
			updated_at=excluded.updated_at`,
		session.ID, session.Owner, string(session.Phase),
		string(framingJSON), string(tensionJSON), string(profileJSON),
		string(keywordMapJSON), string(ruleOutputJSON), string(candidatesJSON),
		string(rawPartsJSON),
		session.CreatedAt.UTC().Format(time.RFC3339Nano),
		session.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, session.ID); err != nil {
		return fmt.Errorf("deleting old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO messages (session_id, seq, role, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range session.Messages {
		if _, err := stmt.ExecContext(ctx, session.ID, i, msg.Role, msg.Content); err != nil {
			return fmt.Errorf("inserting message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadSession reads a session and its message history. Unknown IDs return
// chat.ErrSessionNotFound.
func (s *Store) LoadSession(ctx context.Context, id string) (*types.Session, error) {
	var (
		session       types.Session
		phase         string
		framingJSON   sql.NullString
		tensionJSON   sql.NullString
		profileJSON   sql.NullString
		keywordJSON   sql.NullString
		ruleJSON      sql.NullString
		candJSON      sql.NullString
		rawPartsJSON  sql.NullString
		createdAtText sql.NullString
		updatedAtText sql.NullString
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT id, owner, phase, framing, tension, profile, keyword_map,
			rule_output, rq_candidates, raw_input_parts, created_at, updated_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&session.ID, &session.Owner, &phase, &framingJSON, &tensionJSON,
		&profileJSON, &keywordJSON, &ruleJSON, &candJSON, &rawPartsJSON,
		&createdAtText, &updatedAtText)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, chat.ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	session.Phase = types.Phase(phase)
	unmarshalColumn(framingJSON, &session.Framing)
	unmarshalColumn(tensionJSON, &session.Tension)
	unmarshalColumn(profileJSON, &session.Profile)
	unmarshalColumn(keywordJSON, &session.KeywordMap)
	unmarshalColumn(ruleJSON, &session.RuleOutput)
	unmarshalColumn(candJSON, &session.RQCandidates)
	unmarshalColumn(rawPartsJSON, &session.RawInputParts)
	if session.KeywordMap == nil {
		session.KeywordMap = types.EmptyKeywordMap()
	}
	if createdAtText.Valid {
		session.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtText.String)
	}
	if updatedAtText.Valid {
		session.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtText.String)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE session_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg types.ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		session.Messages = append(session.Messages, msg)
	}

	return &session, rows.Err()
}

func unmarshalColumn(col sql.NullString, v any) {
	if col.Valid && col.String != "" {
		json.Unmarshal([]byte(col.String), v)
	}
}

// SessionSummary is a session listing row.
type SessionSummary struct {
	ID           string      `json:"id" yaml:"id"`
	Owner        string      `json:"owner" yaml:"owner"`
	Phase        types.Phase `json:"phase" yaml:"phase"`
	MessageCount int         `json:"message_count" yaml:"message_count"`
	UpdatedAt    time.Time   `json:"updated_at" yaml:"updated_at"`
}

// ListSessions returns session summaries ordered by most recent activity.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.owner, s.phase, s.updated_at,
			(SELECT count(*) FROM messages m WHERE m.session_id = s.id)
		 FROM sessions s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var summaries []SessionSummary
	for rows.Next() {
		var (
			sum       SessionSummary
			phase     string
			updatedAt sql.NullString
		)
		if err := rows.Scan(&sum.ID, &sum.Owner, &phase, &updatedAt, &sum.MessageCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sum.Phase = types.Phase(phase)
		if updatedAt.Valid {
			sum.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt.String)
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// MessageHit is a full-text search result over conversation messages.
type MessageHit struct {
	SessionID string      `json:"session_id" yaml:"session_id"`
	Owner     string      `json:"owner" yaml:"owner"`
	Phase     types.Phase `json:"phase" yaml:"phase"`
	Role      string      `json:"role" yaml:"role"`
	Content   string      `json:"content" yaml:"content"`
}

// SearchMessages runs an FTS5 query over message content, ranked by
// relevance. Zero maxResults uses the store default.
func (s *Store) SearchMessages(ctx context.Context, query string, maxResults int) ([]MessageHit, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.session_id, s.owner, s.phase, m.role, m.content
		 FROM messages_fts
		 JOIN messages m ON m.rowid = messages_fts.rowid
		 JOIN sessions s ON s.id = m.session_id
		 WHERE messages_fts MATCH ?
		 ORDER BY messages_fts.rank
		 LIMIT ?`, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}
	defer rows.Close()

	var hits []MessageHit
	for rows.Next() {
		var (
			hit   MessageHit
			phase string
		)
		if err := rows.Scan(&hit.SessionID, &hit.Owner, &phase, &hit.Role, &hit.Content); err != nil {
			return nil, fmt.Errorf("scanning search hit: %w", err)
		}
		hit.Phase = types.Phase(phase)
		hits = append(hits, hit)
	}

	return hits, rows.Err()
}

// ImportSummary holds counts from a keyword library import run.
type ImportSummary struct {
	Added   int
	Updated int
	Invalid int
}

// Total returns the number of observations processed.
func (s ImportSummary) Total() int {
	return s.Added + s.Updated + s.Invalid
}

// ImportObservations upserts keyword observations into the library,
// writing a progress line per observation. Invalid observations are
// counted and skipped, not fatal.
func (s *Store) ImportObservations(ctx context.Context, w io.Writer, observations []types.KeywordObservation) (ImportSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var summary ImportSummary

	for i, obs := range observations {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := keywords.Validate([]types.KeywordObservation{obs}); err != nil {
			fmt.Fprintf(w, "invalid %q: %v\n", obs.Term, err)
			summary.Invalid++
			continue
		}

		var existing float64
		err := tx.QueryRowContext(ctx,
			`SELECT weight FROM observations WHERE term = ? AND orientation = ?`,
			obs.Term, string(obs.Orientation),
		).Scan(&existing)
		isUpdate := err == nil
		if err != nil && err != sql.ErrNoRows {
			return summary, fmt.Errorf("checking observation %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO observations (term, orientation, weight) VALUES (?, ?, ?)
			 ON CONFLICT(term, orientation) DO UPDATE SET weight=excluded.weight`,
			obs.Term, string(obs.Orientation), obs.Weight,
		)
		if err != nil {
			return summary, fmt.Errorf("upserting observation %q: %w", obs.Term, err)
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s (%s, %.2f)\n", obs.Term, obs.Orientation, obs.Weight)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "added   %s (%s, %.2f)\n", obs.Term, obs.Orientation, obs.Weight)
			summary.Added++
		}
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing import: %w", err)
	}

	fmt.Fprintf(w, "\nadded: %d, updated: %d, invalid: %d\n",
		summary.Added, summary.Updated, summary.Invalid)

	return summary, nil
}

// LoadObservations returns the keyword library in insertion order.
func (s *Store) LoadObservations(ctx context.Context) ([]types.KeywordObservation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term, orientation, weight FROM observations ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("loading observations: %w", err)
	}
	defer rows.Close()

	var observations []types.KeywordObservation
	for rows.Next() {
		var (
			obs         types.KeywordObservation
			orientation string
		)
		if err := rows.Scan(&obs.Term, &orientation, &obs.Weight); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}
		obs.Orientation = types.Orientation(orientation)
		observations = append(observations, obs)
	}

	return observations, rows.Err()
}
