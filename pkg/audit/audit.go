// Package audit implements a best-effort, append-only record of
// pipeline calls. Adapted from
// pkg/budget/postgres_store.go's database/sql + lib/pq idiom (same
// "$N"-placeholder style) and pkg/store/receipt_store_sqlite.go's
// migrate-on-open pattern, generalized from a single-database-specific
// store to a PostgreSQL one since toolexec's deployment target keeps
// its own state external rather than colocated with the host process.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gowebpki/jcs"
	_ "github.com/lib/pq"
)

// Entry is one recorded pipeline call.
type Entry struct {
	Component   string
	Action      string
	Digest      string
	ArgsHash    string
	OutcomeKind string // "ok", or an execerr Kind string
	Elapsed     time.Duration
	At          time.Time
}

// Sink writes Entry rows. A Sink must never block the call it is
// recording on anything but the write itself, and its Record must never
// be allowed to turn a successful pipeline call into a failed one.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}

// PostgresSink is the production Sink.
type PostgresSink struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresSink wraps db, creating the audit_log table if absent.
func NewPostgresSink(db *sql.DB, logger *slog.Logger) (*PostgresSink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PostgresSink{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			id SERIAL PRIMARY KEY,
			component TEXT NOT NULL,
			action TEXT NOT NULL,
			digest TEXT NOT NULL,
			args_hash TEXT NOT NULL,
			outcome_kind TEXT NOT NULL,
			elapsed_ms BIGINT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// Record inserts one row.
func (s *PostgresSink) Record(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (component, action, digest, args_hash, outcome_kind, elapsed_ms, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.Component, e.Action, e.Digest, e.ArgsHash, e.OutcomeKind, e.Elapsed.Milliseconds(), e.At)
	return err
}

// HashArgs canonicalizes args per RFC 8785 (JSON Canonicalization
// Scheme) before hashing, so differently-formatted-but-equivalent JSON
// (reordered keys, incidental whitespace) hashes identically.
func HashArgs(args json.RawMessage) (string, error) {
	canon, err := jcs.Transform(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

// RecordOrLog calls sink.Record and, on failure, logs the failure
// instead of propagating it — an audit-write failure must never turn a
// successful (or already-failed) pipeline call into a new failure.
func RecordOrLog(ctx context.Context, sink Sink, logger *slog.Logger, e Entry) {
	if sink == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := sink.Record(ctx, e); err != nil {
		logger.ErrorContext(ctx, "audit write failed",
			"component", e.Component, "action", e.Action, "error", err)
	}
}
