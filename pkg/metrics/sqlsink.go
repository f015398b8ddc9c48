package metrics

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLSink is a database/sql-backed Sink with the sqlite3, postgres and mysql
// drivers blank-imported, matching the multi-backend persistence style of
// the teacher's pkg/rag (which drives several vector backends behind one
// interface the same way). Its INSERT statements use ? placeholders, which
// go-sqlite3 and go-sql-driver/mysql accept and lib/pq does not, so
// WriteInteraction and WriteInsight fail on a postgres connection.
type SQLSink struct {
	db *sql.DB
}

// OpenSQLSink opens driverName ("sqlite3", "postgres", or "mysql") at dsn
// and ensures the interaction/insight tables exist.
func OpenSQLSink(driverName, dsn string) (*SQLSink, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open metrics sink: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate metrics schema: %w", err)
	}
	return &SQLSink{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS interaction_records (
	session_id TEXT, agent_id TEXT, llm_capability TEXT, query_hash TEXT,
	quality REAL, response_time_ms INTEGER, tokens_used INTEGER, cost REAL,
	success INTEGER, error_kind TEXT, ts INTEGER
)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS learning_insights (
	type TEXT, title TEXT, description TEXT, confidence REAL,
	data_points INTEGER, status TEXT, ts INTEGER
)`)
	return err
}

// WriteInteraction persists one InteractionRecord.
func (s *SQLSink) WriteInteraction(ctx context.Context, r InteractionRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO interaction_records
	(session_id, agent_id, llm_capability, query_hash, quality, response_time_ms, tokens_used, cost, success, error_kind, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.SessionID, r.AgentID, r.LLMCapability, r.QueryHash, r.Quality,
		r.ResponseTimeMS, r.TokensUsed, r.Cost, r.Success, r.ErrorKind, r.Timestamp.UnixNano())
	return err
}

// WriteInsight persists one LearningInsight.
func (s *SQLSink) WriteInsight(ctx context.Context, i LearningInsight) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO learning_insights (type, title, description, confidence, data_points, status, ts)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.Type, i.Title, i.Description, i.Confidence, i.DataPoints, string(i.Status), i.Timestamp.UnixNano())
	return err
}

// Close releases the underlying database handle.
func (s *SQLSink) Close() error { return s.db.Close() }
