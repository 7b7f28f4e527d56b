// Package store persists document records and their per-stage artifacts in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = errors.New("document not found")

//go:embed migrations/*.sql
var migrations embed.FS

// Status is the lifecycle state of a document.
type Status string

const (
	StatusUploaded             Status = "UPLOADED"
	StatusOCRInProgress        Status = "OCR_IN_PROGRESS"
	StatusOCRCompleted         Status = "OCR_COMPLETED"
	StatusCorrectionInProgress Status = "CORRECTION_IN_PROGRESS"
	StatusCorrectionCompleted  Status = "CORRECTION_COMPLETED"
	StatusFlatteningInProgress Status = "FLATTENING_IN_PROGRESS"
	StatusCompleted            Status = "COMPLETED"
	StatusFailed               Status = "FAILED"
	StatusEdited               Status = "EDITED"
)

// Terminal reports whether no further pipeline transitions follow.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusEdited
}

// Document is one persisted record. JSON columns are kept raw; callers
// decode them into the type of their stage.
type Document struct {
	ID        string
	Filename  string
	FilePath  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time

	RawOCR         json.RawMessage
	InitialTree    json.RawMessage
	CorrectedTree  json.RawMessage
	FinalState     json.RawMessage
	PageDimensions json.RawMessage

	ErrorMessage string
	IsEdited     bool
}

// StageUpdate carries the artifacts written alongside a status change. Only
// non-nil fields are written.
type StageUpdate struct {
	RawOCR         json.RawMessage
	InitialTree    json.RawMessage
	CorrectedTree  json.RawMessage
	FinalState     json.RawMessage
	PageDimensions json.RawMessage
	ErrorMessage   *string
	IsEdited       *bool
}

// Store is a SQLite-backed document repository. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, log *slog.Logger) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(10000)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases from splitting per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, log: log, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	slices.Sort(names)

	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")

		var applied int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", version, err)
		}
		if applied > 0 {
			continue
		}

		body, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version, s.now().UTC().Format(time.RFC3339Nano)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		s.log.Info("applied migration", "version", version)
	}
	return nil
}

// Create inserts a new record in UPLOADED status.
func (s *Store) Create(ctx context.Context, id, filename, filePath string) (*Document, error) {
	now := s.now().UTC()
	ts := now.Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (id, filename, file_path, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`, id, filename, filePath, StatusUploaded, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("create document %s: %w", id, err)
	}
	return &Document{
		ID:        id,
		Filename:  filename,
		FilePath:  filePath,
		Status:    StatusUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

const documentColumns = `id, filename, file_path, status, created_at, updated_at,
	raw_ocr_result, initial_tree_data, corrected_tree_data, final_document_state,
	page_dimensions_data, error_message, is_edited`

// Get loads a full record including every stage artifact.
func (s *Store) Get(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return d, nil
}

// List returns every record, newest first, without the stage artifacts.
func (s *Store) List(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, file_path, status, created_at, updated_at,
		error_message, is_edited FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			d                Document
			created, updated string
			errMsg           sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.Filename, &d.FilePath, &d.Status, &created, &updated, &errMsg, &d.IsEdited); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.CreatedAt = parseTime(created)
		d.UpdatedAt = parseTime(updated)
		d.ErrorMessage = errMsg.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// UpdateStatus moves a record to status and writes the non-nil artifacts of u.
func (s *Store) UpdateStatus(ctx context.Context, id string, status Status, u StageUpdate) error {
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{status, s.now().UTC().Format(time.RFC3339Nano)}

	addJSON := func(col string, v json.RawMessage) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, string(v))
		}
	}
	addJSON("raw_ocr_result", u.RawOCR)
	addJSON("initial_tree_data", u.InitialTree)
	addJSON("corrected_tree_data", u.CorrectedTree)
	addJSON("final_document_state", u.FinalState)
	addJSON("page_dimensions_data", u.PageDimensions)
	if u.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *u.ErrorMessage)
	}
	if u.IsEdited != nil {
		sets = append(sets, "is_edited = ?")
		args = append(args, *u.IsEdited)
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return expectOne(res, id)
}

// SaveState replaces the final document state with a client edit and marks
// the record EDITED.
func (s *Store) SaveState(ctx context.Context, id string, state json.RawMessage) error {
	edited := true
	return s.UpdateStatus(ctx, id, StatusEdited, StageUpdate{FinalState: state, IsEdited: &edited})
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var (
		d                                          Document
		created, updated                           string
		rawOCR, initial, corrected, final, pageDim sql.NullString
		errMsg                                     sql.NullString
	)
	if err := row.Scan(&d.ID, &d.Filename, &d.FilePath, &d.Status, &created, &updated,
		&rawOCR, &initial, &corrected, &final, &pageDim, &errMsg, &d.IsEdited); err != nil {
		return nil, err
	}
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	d.RawOCR = rawJSON(rawOCR)
	d.InitialTree = rawJSON(initial)
	d.CorrectedTree = rawJSON(corrected)
	d.FinalState = rawJSON(final)
	d.PageDimensions = rawJSON(pageDim)
	d.ErrorMessage = errMsg.String
	return &d, nil
}

func rawJSON(v sql.NullString) json.RawMessage {
	if !v.Valid {
		return nil
	}
	return json.RawMessage(v.String)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
