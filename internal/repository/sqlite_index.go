package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anime-shed/comicvault-grader/pkg/models"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS gradings (
	user_id               TEXT NOT NULL,
	comic_id              TEXT NOT NULL,
	final                 REAL NOT NULL,
	confidence            REAL NOT NULL,
	restoration_suspected INTEGER NOT NULL DEFAULT 0,
	analysis_path         TEXT NOT NULL DEFAULT '',
	report_path           TEXT NOT NULL DEFAULT '',
	created_at            INTEGER NOT NULL,
	PRIMARY KEY (user_id, comic_id)
);
CREATE INDEX IF NOT EXISTS idx_gradings_user_created ON gradings(user_id, created_at DESC);
`

const defaultListLimit = 100

// SQLiteIndex implements GradingIndex on an embedded SQLite database
type SQLiteIndex struct {
	db *sql.DB
}

// OpenSQLiteIndex opens (or creates) the index. ":memory:" keeps it in process.
func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	// single writer; also keeps one shared in-memory database
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (x *SQLiteIndex) Record(ctx context.Context, s models.GradingSummary) error {
	if s.UserID == "" || s.ComicID == "" {
		return ErrInvalidRecord
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	const q = `INSERT INTO gradings (user_id, comic_id, final, confidence, restoration_suspected, analysis_path, report_path, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, comic_id) DO UPDATE SET
	final = excluded.final,
	confidence = excluded.confidence,
	restoration_suspected = excluded.restoration_suspected,
	analysis_path = excluded.analysis_path,
	report_path = excluded.report_path,
	created_at = excluded.created_at`
	_, err := x.db.ExecContext(ctx, q,
		s.UserID,
		s.ComicID,
		s.Final,
		s.Confidence,
		s.RestorationSuspected,
		s.AnalysisPath,
		s.ReportPath,
		s.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("record grading: %w", err)
	}
	return nil
}

func (x *SQLiteIndex) Get(ctx context.Context, userID, comicID string) (models.GradingSummary, error) {
	const q = `SELECT user_id, comic_id, final, confidence, restoration_suspected, analysis_path, report_path, created_at
FROM gradings
WHERE user_id = ? AND comic_id = ?`

	s, err := scanSummary(x.db.QueryRowContext(ctx, q, userID, comicID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.GradingSummary{}, ErrGradingNotFound
	}
	if err != nil {
		return models.GradingSummary{}, fmt.Errorf("get grading: %w", err)
	}
	return s, nil
}

func (x *SQLiteIndex) ListByUser(ctx context.Context, userID string, limit int) ([]models.GradingSummary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	const q = `SELECT user_id, comic_id, final, confidence, restoration_suspected, analysis_path, report_path, created_at
FROM gradings
WHERE user_id = ?
ORDER BY created_at DESC, comic_id ASC
LIMIT ?`

	rows, err := x.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list gradings: %w", err)
	}
	defer rows.Close()

	out := []models.GradingSummary{}
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grading: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (x *SQLiteIndex) Close() error {
	return x.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row rowScanner) (models.GradingSummary, error) {
	var s models.GradingSummary
	var created int64
	if err := row.Scan(
		&s.UserID, &s.ComicID,
		&s.Final, &s.Confidence, &s.RestorationSuspected,
		&s.AnalysisPath, &s.ReportPath,
		&created,
	); err != nil {
		return models.GradingSummary{}, err
	}
	s.CreatedAt = time.Unix(0, created).UTC()
	return s, nil
}
