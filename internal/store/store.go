// Package store persists emitted captures locally: one PNG file per frame
// plus a SQLite row of metadata keyed by the run that produced it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/screenwatch/screenwatch/internal/analyze"
	"github.com/screenwatch/screenwatch/internal/event"
	"github.com/screenwatch/screenwatch/internal/resilience"
	"github.com/screenwatch/screenwatch/internal/trace"
)

const schema = `
CREATE TABLE IF NOT EXISTS captures (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	source_id     TEXT NOT NULL,
	captured_at   TIMESTAMP NOT NULL,
	file_path     TEXT NOT NULL,
	width         INTEGER NOT NULL,
	height        INTEGER NOT NULL,
	app_name      TEXT,
	window_title  TEXT,
	window_id     INTEGER,
	ocr_text      TEXT
);
CREATE INDEX IF NOT EXISTS idx_captures_run ON captures(run_id);
CREATE INDEX IF NOT EXISTS idx_captures_source ON captures(source_id, captured_at);
`

// Record is one persisted capture row.
type Record struct {
	ID         int64
	RunID      string
	SourceID   string
	CapturedAt time.Time
	FilePath   string
	Width      int
	Height     int
	AppName    string
	Title      string
	WindowID   uint32
	OCRText    string
}

// Store writes capture frames and their metadata under a single directory.
type Store struct {
	db    *sql.DB
	dir   string
	runID string
	retry resilience.RetryConfig
}

// Open prepares the storage directory and the SQLite database inside it.
// Each Open starts a fresh run id; rows from earlier runs are kept.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "captures.db")+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	retry := resilience.DefaultRetryConfig()
	retry.IsRetryable = resilience.IsRetryableSQLite

	return &Store{
		db:    db,
		dir:   dir,
		runID: uuid.New().String(),
		retry: retry,
	}, nil
}

// RunID identifies this store session in persisted rows.
func (s *Store) RunID() string { return s.runID }

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func frameFilename(res *event.CaptureResult) string {
	source := unsafePathChars.ReplaceAllString(res.SourceID, "-")
	return fmt.Sprintf("%s_%d.png", source, res.Timestamp.UnixMilli())
}

// Save writes the frame to disk and records its metadata. It returns the
// path of the written PNG. The insert retries on transient SQLite lock
// errors; the file write does not.
func (s *Store) Save(ctx context.Context, res *event.CaptureResult, meta *analyze.Metadata) (string, error) {
	ctx, span := trace.StartSpan(ctx, "store_save")
	defer span.End()
	span.SetAttr("source", res.SourceID)

	path := filepath.Join(s.dir, frameFilename(res))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create frame file: %w", err)
	}
	if err := png.Encode(f, res.Image); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("encode frame: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close frame file: %w", err)
	}

	rec := Record{
		RunID:      s.runID,
		SourceID:   res.SourceID,
		CapturedAt: res.Timestamp,
		FilePath:   path,
		Width:      res.Image.Bounds().Dx(),
		Height:     res.Image.Bounds().Dy(),
	}
	if res.Window != nil {
		rec.AppName = res.Window.AppName
		rec.Title = res.Window.Title
		rec.WindowID = res.Window.WindowID
	}
	if meta != nil {
		rec.OCRText = meta.Text
	}

	err = resilience.Retry(ctx, s.retry, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO captures
				(run_id, source_id, captured_at, file_path, width, height,
				 app_name, window_title, window_id, ocr_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.SourceID, rec.CapturedAt, rec.FilePath,
			rec.Width, rec.Height, rec.AppName, rec.Title, rec.WindowID, rec.OCRText,
		)
		return err
	})
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("insert capture: %w", err)
	}
	return path, nil
}

// CountRun reports how many rows the current run has persisted.
func (s *Store) CountRun(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM captures WHERE run_id = ?`, s.runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count captures: %w", err)
	}
	return n, nil
}

// RecentRun returns the newest rows of the current run, most recent first.
func (s *Store) RecentRun(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, source_id, captured_at, file_path, width, height,
		       app_name, window_title, window_id, ocr_text
		FROM captures
		WHERE run_id = ?
		ORDER BY captured_at DESC
		LIMIT ?`, s.runID, limit)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.RunID, &r.SourceID, &r.CapturedAt,
			&r.FilePath, &r.Width, &r.Height,
			&r.AppName, &r.Title, &r.WindowID, &r.OCRText); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
