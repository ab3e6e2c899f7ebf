package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/satriahrh/arunika-actor/domain/entities"
	"github.com/satriahrh/arunika-actor/domain/repositories"
	"github.com/satriahrh/arunika-actor/internal/config"
)

// Retention modes
const (
	RetentionEphemeral  = "ephemeral"
	RetentionSession    = "session"
	RetentionPersistent = "persistent"
)

// Store is a SQLite-backed journal of finished turns. In ephemeral mode it
// keeps nothing. Session mode prunes by age and count, persistent mode by
// count only.
type Store struct {
	db     *sql.DB
	cfg    config.JournalConfig
	actor  string
	logger *zap.Logger
}

// Ensure Store implements the TurnJournal interface
var _ repositories.TurnJournal = (*Store)(nil)

// Open initializes the journal and applies retention once
func Open(ctx context.Context, cfg config.JournalConfig, actor string, logger *zap.Logger) (*Store, error) {
	if cfg.RetentionMode == RetentionEphemeral {
		return &Store{cfg: cfg, actor: actor, logger: logger}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, cfg: cfg, actor: actor, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	if removed, err := s.Prune(ctx, time.Now()); err != nil {
		logger.Warn("Journal prune on start failed", zap.Error(err))
	} else if removed > 0 {
		logger.Info("Pruned journal", zap.Int64("removed", removed))
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS turns (
    id TEXT PRIMARY KEY,
    actor TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    state TEXT NOT NULL,
    outcome TEXT,
    transcript TEXT,
    reply_text TEXT,
    audio_bytes INTEGER NOT NULL DEFAULT 0,
    audio_duration_ns INTEGER NOT NULL DEFAULT 0,
    cache_hit INTEGER NOT NULL DEFAULT 0,
    error TEXT,
    started_at INTEGER NOT NULL,
    finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_turns_started ON turns(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases underlying resources
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record writes a finished turn. Recording the same turn twice overwrites it.
func (s *Store) Record(ctx context.Context, turn *entities.SessionTurn) error {
	if s.db == nil {
		return nil
	}

	var finished sql.NullInt64
	if turn.FinishedAt != nil {
		finished = sql.NullInt64{Int64: turn.FinishedAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns(id, actor, sequence, state, outcome, transcript, reply_text,
		     audio_bytes, audio_duration_ns, cache_hit, error, started_at, finished_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET state=excluded.state, outcome=excluded.outcome,
		     transcript=excluded.transcript, reply_text=excluded.reply_text,
		     audio_bytes=excluded.audio_bytes, audio_duration_ns=excluded.audio_duration_ns,
		     cache_hit=excluded.cache_hit, error=excluded.error, finished_at=excluded.finished_at`,
		turn.ID, s.actor, turn.Sequence, string(turn.State), string(turn.Outcome), turn.Transcript, turn.ReplyText,
		turn.AudioBytes, int64(turn.AudioDuration), turn.CacheHit, turn.Error, turn.StartedAt.UnixNano(), finished)
	if err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

// Recent returns up to limit turns, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]*entities.SessionTurn, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sequence, state, outcome, transcript, reply_text, audio_bytes,
		     audio_duration_ns, cache_hit, error, started_at, finished_at
		 FROM turns ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*entities.SessionTurn
	for rows.Next() {
		var (
			t                 entities.SessionTurn
			state, outcome    string
			duration, started int64
			finished          sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Sequence, &state, &outcome, &t.Transcript, &t.ReplyText, &t.AudioBytes,
			&duration, &t.CacheHit, &t.Error, &started, &finished); err != nil {
			return nil, err
		}
		t.State = entities.TurnState(state)
		t.Outcome = entities.TurnOutcome(outcome)
		t.AudioDuration = time.Duration(duration)
		t.StartedAt = time.Unix(0, started)
		if finished.Valid {
			ts := time.Unix(0, finished.Int64)
			t.FinishedAt = &ts
		}
		turns = append(turns, &t)
	}
	return turns, rows.Err()
}

// Prune applies the configured retention relative to now and returns the
// number of removed turns
func (s *Store) Prune(ctx context.Context, now time.Time) (removed int64, err error) {
	if s.db == nil {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if s.cfg.RetentionMode == RetentionSession && s.cfg.RetentionDays > 0 {
		cutoff := now.Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		res, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE started_at < ?`, cutoff.UnixNano())
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if s.cfg.MaxTurns > 0 {
		res, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE id IN (
			SELECT id FROM turns ORDER BY started_at DESC LIMIT -1 OFFSET ?
		)`, s.cfg.MaxTurns)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		removed += n
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return removed, nil
}
