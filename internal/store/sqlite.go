package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/LogoMakerApp-IA/New-orion-Repository/internal/domain"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		is_guest INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_guest_seen ON users(last_seen_at) WHERE is_guest = 1;

	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(user_id, content)
	);
	CREATE INDEX IF NOT EXISTS idx_memories_user ON memories(user_id);

	CREATE TABLE IF NOT EXISTS history (
		user_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		message_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, seq)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.UserSession, error) {
	query := `
		SELECT user_id, name, email, is_guest, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.UserSession
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Name, &user.Email, &user.IsGuest,
		&lastSeen, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.UserSession) error {
	query := `
	INSERT INTO users (user_id, name, email, is_guest, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.Name, user.Email, user.IsGuest,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// DeleteUser removes a user and their facts and history.
func (s *SQLiteStore) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, query := range []string{
		`DELETE FROM memories WHERE user_id = ?`,
		`DELETE FROM history WHERE user_id = ?`,
		`DELETE FROM users WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, userID); err != nil {
			return fmt.Errorf("delete user data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete user: %w", err)
	}
	return nil
}

// GetStaleGuests retrieves guest users idle past the TTL.
func (s *SQLiteStore) GetStaleGuests(ctx context.Context, ttl time.Duration) ([]*domain.UserSession, error) {
	threshold := time.Now().Add(-ttl).Unix()
	query := `
		SELECT user_id, name, email, is_guest, last_seen_at, created_at, updated_at
		FROM users WHERE is_guest = 1 AND last_seen_at < ?`

	rows, err := s.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("query stale guests: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close stale guest rows", "error", closeErr)
		}
	}()

	var users []*domain.UserSession
	for rows.Next() {
		var user domain.UserSession
		var lastSeen, createdAt, updatedAt int64

		if err := rows.Scan(
			&user.UserID, &user.Name, &user.Email, &user.IsGuest,
			&lastSeen, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stale guest row: %w", err)
		}

		user.LastSeenAt = time.Unix(lastSeen, 0)
		user.CreatedAt = time.Unix(createdAt, 0)
		user.UpdatedAt = time.Unix(updatedAt, 0)
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale guests: %w", err)
	}

	return users, nil
}

// GetFacts retrieves all memory facts for a user in insertion order.
func (s *SQLiteStore) GetFacts(ctx context.Context, userID string) ([]domain.MemoryEntry, error) {
	query := `SELECT id, content, created_at FROM memories WHERE user_id = ? ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close fact rows", "error", closeErr)
		}
	}()

	var facts []domain.MemoryEntry
	for rows.Next() {
		var entry domain.MemoryEntry
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0)
		facts = append(facts, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}

	return facts, nil
}

// SaveFact persists one fact, deduplicated by exact content equality.
func (s *SQLiteStore) SaveFact(ctx context.Context, userID, content string) (bool, error) {
	query := `
		INSERT INTO memories (id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, content) DO NOTHING`

	result, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), userID, content, time.Now().Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("save fact: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ClearFacts removes every fact for a user.
func (s *SQLiteStore) ClearFacts(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}
	return nil
}

// GetHistory retrieves the persisted conversation log in order.
func (s *SQLiteStore) GetHistory(ctx context.Context, userID string) ([]domain.Message, error) {
	query := `
		SELECT message_id, role, content, created_at
		FROM history WHERE user_id = ? ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close history rows", "error", closeErr)
		}
	}()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		msg.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return messages, nil
}

// SaveHistory replaces the persisted conversation log, keeping at most
// the last HistoryCap messages.
func (s *SQLiteStore) SaveHistory(ctx context.Context, userID string, messages []domain.Message) error {
	if len(messages) > HistoryCap {
		messages = messages[len(messages)-HistoryCap:]
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save history: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear previous history: %w", err)
	}

	insert := `INSERT INTO history (user_id, seq, message_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	for i, msg := range messages {
		if _, err := tx.ExecContext(ctx, insert,
			userID, i, msg.ID, string(msg.Role), msg.Content, msg.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("insert history row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save history: %w", err)
	}
	return nil
}

// ClearHistory removes the persisted conversation log.
func (s *SQLiteStore) ClearHistory(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
