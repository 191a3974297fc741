package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	// DriverMemory keeps everything in process. Open refuses it; callers
	// build an in-memory store instead.
	DriverMemory Driver = "memory"
)

// Normalize maps common aliases to a Driver.
func Normalize(d string) Driver {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "pg", "pgx", "pgsql", "postgres", "postgresql":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "memory", "mem", "inmemory":
		return DriverMemory
	}
	return Driver(d)
}

// Open opens a DB, tunes the pool and ensures the schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:examportal.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/examportal?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	tunePool(driver, db)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		if err := applySQLitePragmas(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := ensureSchema(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func tunePool(driver Driver, db *sql.DB) {
	switch driver {
	case DriverSQLite:
		// single writer; a bigger pool only produces SQLITE_BUSY
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	default:
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(45 * time.Minute)
		db.SetConnMaxIdleTime(15 * time.Minute)
	}
}

func applySQLitePragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	// Some drivers reject multi-statement scripts; fall back to one at a time.
	if _, err := db.ExecContext(ctx, schema); err != nil {
		for _, stmt := range strings.Split(schema, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, e := db.ExecContext(ctx, stmt); e != nil {
				return fmt.Errorf("schema: %w", e)
			}
		}
	}
	return nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS tests (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  course_name TEXT NOT NULL,
  test_name TEXT NOT NULL,
  duration INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  question_id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_text TEXT NOT NULL,
  question_type TEXT NOT NULL CHECK (question_type IN ('MCQ','MSQ','NAT')),
  correct_answer TEXT NOT NULL DEFAULT '',
  explanation TEXT NOT NULL DEFAULT '',
  marks INTEGER NOT NULL CHECK (marks > 0)
);

CREATE TABLE IF NOT EXISTS options (
  option_id INTEGER PRIMARY KEY AUTOINCREMENT,
  question_id INTEGER NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
  option_text TEXT NOT NULL,
  is_correct INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS test_results (
  result_id INTEGER PRIMARY KEY AUTOINCREMENT,
  test_id INTEGER NOT NULL REFERENCES tests(id),
  user_id TEXT NOT NULL,
  score REAL NOT NULL CHECK (score >= 0),
  total_questions INTEGER NOT NULL,
  attempted_questions INTEGER NOT NULL,
  correct_answers INTEGER NOT NULL,
  percentage REAL NOT NULL DEFAULT 0,
  max_marks REAL NOT NULL DEFAULT 0,
  submission_time INTEGER NOT NULL, -- unix millis
  time_taken_seconds INTEGER
);

CREATE TABLE IF NOT EXISTS test_responses (
  result_id INTEGER NOT NULL REFERENCES test_results(result_id) ON DELETE CASCADE,
  question_id INTEGER NOT NULL REFERENCES questions(question_id),
  user_answer TEXT,
  is_correct INTEGER NOT NULL DEFAULT 0,
  marked_for_review INTEGER NOT NULL DEFAULT 0,
  marks_awarded REAL,
  PRIMARY KEY (result_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_questions_test ON questions(test_id, question_id);
CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id, option_id);
CREATE INDEX IF NOT EXISTS idx_results_rank ON test_results(test_id, percentage DESC, submission_time ASC);
CREATE INDEX IF NOT EXISTS idx_results_user ON test_results(user_id, submission_time DESC);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  event_id TEXT NOT NULL,
  typ TEXT NOT NULL,   -- e.g., TestSubmitted
  key TEXT NOT NULL,   -- natural key: result id
  data TEXT NOT NULL,  -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS tests (
  id BIGSERIAL PRIMARY KEY,
  course_name TEXT NOT NULL,
  test_name TEXT NOT NULL,
  duration INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  question_id BIGSERIAL PRIMARY KEY,
  test_id BIGINT NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
  question_text TEXT NOT NULL,
  question_type TEXT NOT NULL CHECK (question_type IN ('MCQ','MSQ','NAT')),
  correct_answer TEXT NOT NULL DEFAULT '',
  explanation TEXT NOT NULL DEFAULT '',
  marks INTEGER NOT NULL CHECK (marks > 0)
);

CREATE TABLE IF NOT EXISTS options (
  option_id BIGSERIAL PRIMARY KEY,
  question_id BIGINT NOT NULL REFERENCES questions(question_id) ON DELETE CASCADE,
  option_text TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS test_results (
  result_id BIGSERIAL PRIMARY KEY,
  test_id BIGINT NOT NULL REFERENCES tests(id),
  user_id TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL CHECK (score >= 0),
  total_questions INTEGER NOT NULL,
  attempted_questions INTEGER NOT NULL,
  correct_answers INTEGER NOT NULL,
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_marks DOUBLE PRECISION NOT NULL DEFAULT 0,
  submission_time BIGINT NOT NULL,
  time_taken_seconds BIGINT
);

CREATE TABLE IF NOT EXISTS test_responses (
  result_id BIGINT NOT NULL REFERENCES test_results(result_id) ON DELETE CASCADE,
  question_id BIGINT NOT NULL REFERENCES questions(question_id),
  user_answer TEXT,
  is_correct BOOLEAN NOT NULL DEFAULT FALSE,
  marked_for_review BOOLEAN NOT NULL DEFAULT FALSE,
  marks_awarded DOUBLE PRECISION,
  PRIMARY KEY (result_id, question_id)
);

CREATE INDEX IF NOT EXISTS idx_questions_test ON questions(test_id, question_id);
CREATE INDEX IF NOT EXISTS idx_options_question ON options(question_id, option_id);
CREATE INDEX IF NOT EXISTS idx_results_rank ON test_results(test_id, percentage DESC, submission_time ASC);
CREATE INDEX IF NOT EXISTS idx_results_user ON test_results(user_id, submission_time DESC);

CREATE TABLE IF NOT EXISTS event_log (
  "offset" BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  event_id TEXT NOT NULL,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
