package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"

	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	rerrors "restaurant-rank/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	profile    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	payload    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_source_created ON runs (source, created_at DESC);
`

// SQLiteStore keeps runs in a SQLite database
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens a SQLite database and runs migrations
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, rerrors.Storage("open db", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, rerrors.Storage("pragma", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, rerrors.Storage("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, run *StoredRun) error {
	if err := prepare(run); err != nil {
		return err
	}

	payload, err := json.Marshal(run)
	if err != nil {
		return rerrors.Storage("marshal run", err)
	}

	ib := sqlbuilder.SQLite.NewInsertBuilder()
	ib.ReplaceInto("runs")
	ib.Cols("id", "source", "profile", "created_at", "payload")
	ib.Values(run.ID, run.Source, run.Profile, run.CreatedAt.UnixNano(), string(payload))

	query, args := ib.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return rerrors.Storage("insert run", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*StoredRun, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("payload")
	sb.From("runs")
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var payload string
	err := s.db.GetContext(ctx, &payload, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, rerrors.NotFound("run", id)
	}
	if err != nil {
		return nil, rerrors.Storage("query run", err)
	}
	return decodeRun(payload)
}

func (s *SQLiteStore) List(ctx context.Context, filter *ListFilter) ([]*StoredRun, error) {
	sb := sqlbuilder.SQLite.NewSelectBuilder()
	sb.Select("payload")
	sb.From("runs")

	if filter != nil {
		var where []string
		if filter.Source != "" {
			where = append(where, sb.Equal("source", filter.Source))
		}
		if filter.Profile != "" {
			where = append(where, sb.Equal("profile", filter.Profile))
		}
		if !filter.Since.IsZero() {
			where = append(where, sb.GreaterEqualThan("created_at", filter.Since.UnixNano()))
		}
		if !filter.Until.IsZero() {
			where = append(where, sb.LessEqualThan("created_at", filter.Until.UnixNano()))
		}
		if len(where) > 0 {
			sb.Where(where...)
		}
	}
	sb.OrderBy("created_at DESC", "id")

	if filter != nil {
		switch {
		case filter.Limit > 0:
			sb.Limit(filter.Limit)
		case filter.Offset > 0:
			// SQLite needs a LIMIT before OFFSET
			sb.Limit(math.MaxInt32)
		}
		if filter.Offset > 0 {
			sb.Offset(filter.Offset)
		}
	}

	query, args := sb.Build()
	var payloads []string
	if err := s.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		return nil, rerrors.Storage("list runs", err)
	}

	runs := make([]*StoredRun, 0, len(payloads))
	for _, payload := range payloads {
		run, err := decodeRun(payload)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	del := sqlbuilder.SQLite.NewDeleteBuilder()
	del.DeleteFrom("runs")
	del.Where(del.Equal("id", id))

	query, args := del.Build()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return rerrors.Storage("delete run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return rerrors.NotFound("run", id)
	}
	return nil
}

func (s *SQLiteStore) Latest(ctx context.Context, source string) (*StoredRun, error) {
	return latestOf(ctx, s, source)
}

func (s *SQLiteStore) Compare(ctx context.Context, oldID, newID string) (*CompareResult, error) {
	return compareIn(ctx, s, oldID, newID)
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodeRun(payload string) (*StoredRun, error) {
	var run StoredRun
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return nil, rerrors.Storage("unmarshal run", err)
	}
	return &run, nil
}
