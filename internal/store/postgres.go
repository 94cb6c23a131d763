// Package store — PostgreSQL Store implementation backed by pgxpool.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/agrisage/agrisage/backend/pkg/models"
)

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// PostgresOption configures the store.
type PostgresOption func(*pgxpool.Config)

// WithMaxConns caps the connection pool size.
func WithMaxConns(n int) PostgresOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = int32(n)
		}
	}
}

// NewPostgresStore connects to PostgreSQL and runs migrations.
func NewPostgresStore(ctx context.Context, connURL string, opts ...PostgresOption) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	for _, opt := range opts {
		opt(poolCfg)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("postgres store initialized")
	return s, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS users (
			id                 TEXT PRIMARY KEY,
			name               TEXT NOT NULL DEFAULT '',
			email              TEXT NOT NULL UNIQUE,
			location           TEXT NOT NULL DEFAULT '',
			preferred_language TEXT NOT NULL DEFAULT '',
			crops_grown        TEXT NOT NULL DEFAULT '',
			user_type          TEXT NOT NULL DEFAULT '',
			years_experience   INT NOT NULL DEFAULT 0,
			main_goal          TEXT NOT NULL DEFAULT '',
			password_hash      TEXT NOT NULL,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS chat_sessions (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id         TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			sender     TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages (session_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id, updated_at);

		CREATE TABLE IF NOT EXISTS weather_cache (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			lat           DOUBLE PRECISION NOT NULL,
			lon           DOUBLE PRECISION NOT NULL,
			discriminator TEXT NOT NULL,
			payload       JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at    TIMESTAMPTZ NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ai_task_cache (
			id            TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			lat           DOUBLE PRECISION NOT NULL,
			lon           DOUBLE PRECISION NOT NULL,
			discriminator TEXT NOT NULL,
			payload       JSONB NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			expires_at    TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_weather_cache_key ON weather_cache (user_id, lat, lon, discriminator);
		CREATE INDEX IF NOT EXISTS idx_ai_task_cache_key ON ai_task_cache (user_id, lat, lon, discriminator);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// ── Users ───────────────────────────────────────────────────

const userColumns = `id, name, email, location, preferred_language, crops_grown,
	user_type, years_experience, main_goal, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var crops string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Location, &u.PreferredLanguage,
		&crops, &u.UserType, &u.YearsExperience, &u.MainGoal, &u.PasswordHash,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if crops != "" {
		u.CropsGrown = strings.Split(crops, ",")
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "user", Key: id}
	}
	return u, err
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "user", Key: email}
	}
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, location, preferred_language, crops_grown,
			user_type, years_experience, main_goal, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Name, user.Email, user.Location, user.PreferredLanguage,
		strings.Join(user.CropsGrown, ","), user.UserType, user.YearsExperience,
		user.MainGoal, user.PasswordHash, user.CreatedAt, user.UpdatedAt)
	return err
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user *models.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET name = $2, email = $3, location = $4, preferred_language = $5,
			crops_grown = $6, user_type = $7, years_experience = $8, main_goal = $9,
			password_hash = $10, updated_at = $11
		WHERE id = $1`,
		user.ID, user.Name, user.Email, user.Location, user.PreferredLanguage,
		strings.Join(user.CropsGrown, ","), user.UserType, user.YearsExperience,
		user.MainGoal, user.PasswordHash, user.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "user", Key: user.ID}
	}
	return nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "user", Key: id}
	}
	return nil
}

// ── Chat ────────────────────────────────────────────────────

func (s *PostgresStore) CreateSession(ctx context.Context, session *models.ChatSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_sessions (id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CreatedAt, session.UpdatedAt)
	return err
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	var sess models.ChatSession
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at, updated_at FROM chat_sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "chat session", Key: id}
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *PostgresStore) ListSessionsByUser(ctx context.Context, userID string, limit int) ([]models.ChatSession, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, created_at, updated_at FROM chat_sessions
		WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ChatSession{}
	for rows.Next() {
		var sess models.ChatSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "chat session", Key: id}
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, msg *models.ChatMessage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE chat_sessions SET updated_at = $2 WHERE id = $1`,
		msg.SessionID, msg.Timestamp)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "chat session", Key: msg.SessionID}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, sender, message, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.SessionID, msg.Sender, msg.Text, msg.Timestamp)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	if limit <= 0 {
		limit = 200
	}
	// Newest window of the log, returned oldest first.
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, sender, message, created_at FROM (
			SELECT id, session_id, sender, message, created_at FROM chat_messages
			WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2
		) recent ORDER BY created_at ASC`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ChatMessage{}
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Text, &msg.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// ── Cache ───────────────────────────────────────────────────

// cacheTable whitelists the family → table mapping; family never reaches SQL
// text from user input.
func cacheTable(family CacheFamily) (string, error) {
	switch family {
	case CacheWeather, CacheTasks:
		return string(family), nil
	default:
		return "", fmt.Errorf("unknown cache family %q", family)
	}
}

func (s *PostgresStore) GetCacheEntry(ctx context.Context, family CacheFamily, key models.CacheKey) (*models.CacheEntry, error) {
	table, err := cacheTable(family)
	if err != nil {
		return nil, err
	}
	var e models.CacheEntry
	err = s.pool.QueryRow(ctx, `
		SELECT id, user_id, lat, lon, discriminator, payload, created_at, expires_at
		FROM `+table+`
		WHERE user_id = $1 AND lat = $2 AND lon = $3 AND discriminator = $4 AND expires_at > NOW()
		LIMIT 1`,
		key.UserID, key.Lat, key.Lon, key.Discriminator).
		Scan(&e.ID, &e.UserID, &e.Lat, &e.Lon, &e.Discriminator, &e.Payload, &e.CreatedAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: table, Key: key.Discriminator}
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *PostgresStore) PutCacheEntry(ctx context.Context, family CacheFamily, entry *models.CacheEntry) error {
	table, err := cacheTable(family)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Supersede any prior entries for the same key before inserting.
	_, err = tx.Exec(ctx, `
		DELETE FROM `+table+`
		WHERE user_id = $1 AND lat = $2 AND lon = $3 AND discriminator = $4`,
		entry.UserID, entry.Lat, entry.Lon, entry.Discriminator)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO `+table+` (id, user_id, lat, lon, discriminator, payload, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.UserID, entry.Lat, entry.Lon, entry.Discriminator,
		entry.Payload, entry.CreatedAt, entry.ExpiresAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) PurgeExpiredCache(ctx context.Context, family CacheFamily, cutoff time.Time) (int, error) {
	table, err := cacheTable(family)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

var _ Store = (*PostgresStore)(nil)
