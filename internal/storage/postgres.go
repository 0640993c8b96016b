package storage

import (
	"context"
	_ "embed"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"hammer-relay/internal/config"
)

//go:embed schema.sql
var schema string

// DB wraps a PostgreSQL connection pool for the verification audit trail.
type DB struct {
	pool *pgxpool.Pool
}

// New creates a new database connection pool and ensures the schema exists.
func New(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolCfg.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL")
	return &DB{pool: pool}, nil
}

// Close shuts down the connection pool.
func (db *DB) Close() {
	db.pool.Close()
}

// Healthy checks database connectivity.
func (db *DB) Healthy(ctx context.Context) bool {
	return db.pool.Ping(ctx) == nil
}

// LogVerification inserts a verification record into the audit log.
func (db *DB) LogVerification(ctx context.Context, v *Verification) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO verifications (id, code_hash, code_bytes, outcome, checker_status,
			message, duration_ms, request_id, request_ip, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := db.pool.Exec(ctx, query,
		v.ID, v.CodeHash, v.CodeBytes, v.Outcome, v.CheckerStatus,
		truncateForDB(v.Message, 65535),
		v.DurationMS, v.RequestID, v.RequestIP,
		v.CreatedAt, v.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting verification: %w", err)
	}
	return nil
}

// GetVerification retrieves a single verification by ID.
func (db *DB) GetVerification(ctx context.Context, id string) (*Verification, error) {
	query := `
		SELECT id, code_hash, code_bytes, outcome, checker_status, message,
			duration_ms, request_id, request_ip, created_at, completed_at
		FROM verifications WHERE id = $1`

	var v Verification
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.CodeHash, &v.CodeBytes, &v.Outcome, &v.CheckerStatus, &v.Message,
		&v.DurationMS, &v.RequestID, &v.RequestIP,
		&v.CreatedAt, &v.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("querying verification %s: %w", id, err)
	}
	return &v, nil
}

// ListVerifications queries verifications with optional filters, newest first.
func (db *DB) ListVerifications(ctx context.Context, filter VerificationFilter) ([]Verification, error) {
	query := `
		SELECT id, code_hash, code_bytes, outcome, checker_status,
			duration_ms, created_at, completed_at
		FROM verifications
		WHERE ($1 = '' OR outcome = $1)
		  AND ($2 = '' OR code_hash = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`

	rows, err := db.pool.Query(ctx, query,
		filter.Outcome, filter.CodeHash, clampLimit(filter.Limit), filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("querying verifications: %w", err)
	}
	defer rows.Close()

	results := []Verification{}
	for rows.Next() {
		var v Verification
		if err := rows.Scan(
			&v.ID, &v.CodeHash, &v.CodeBytes, &v.Outcome, &v.CheckerStatus,
			&v.DurationMS, &v.CreatedAt, &v.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning verification row: %w", err)
		}
		results = append(results, v)
	}

	return results, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

// truncateForDB cuts s to at most maxLen bytes without splitting a UTF-8 sequence.
func truncateForDB(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
