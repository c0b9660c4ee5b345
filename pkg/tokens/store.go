package tokens

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a token record does not exist.
var ErrNotFound = errors.New("token not found")

// Record is one issued API token.
type Record struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Validator reports whether a presented token is known and active.
// The rate limiter consumes this narrow view of the registry; lookup
// failures must be treated by callers as not-found, never as a reason to
// fail the request.
type Validator interface {
	Active(ctx context.Context, token string) (bool, error)
}

// Store is the SQLite-backed token registry.
//
// SQLite runs in WAL mode with a single writer connection, which is
// plenty for an admin-driven registry that sees a handful of writes and
// one indexed read per rate-limited request.
type Store struct {
	db *sql.DB

	issueStmt  *sql.Stmt
	listStmt   *sql.Stmt
	getStmt    *sql.Stmt
	toggleStmt *sql.Stmt
	activeStmt *sql.Stmt
}

// NewStore opens (creating if needed) the token database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare token statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS api_tokens (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		token TEXT NOT NULL UNIQUE,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_api_tokens_email ON api_tokens(email);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.issueStmt, err = s.db.Prepare(`
		INSERT INTO api_tokens (email, token, active, created_at)
		VALUES (?, ?, 1, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare issue statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, email, token, active, created_at
		FROM api_tokens
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.getStmt, err = s.db.Prepare(`
		SELECT id, email, token, active, created_at
		FROM api_tokens
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare get statement: %w", err)
	}

	s.toggleStmt, err = s.db.Prepare(`
		UPDATE api_tokens SET active = 1 - active WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare toggle statement: %w", err)
	}

	s.activeStmt, err = s.db.Prepare(`
		SELECT active FROM api_tokens WHERE token = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare active statement: %w", err)
	}

	return nil
}

// Issue creates a new active token for the given email and returns the
// full record. The token value is shown once to the operator; there is no
// way to recover it later other than reading the database.
func (s *Store) Issue(ctx context.Context, email string) (*Record, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := s.issueStmt.ExecContext(ctx, email, token, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to insert token: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return &Record{
		ID:        id,
		Email:     email,
		Token:     token,
		Active:    true,
		CreatedAt: now.Truncate(time.Second),
	}, nil
}

// List returns all issued tokens, newest first.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.getStmt.QueryRowContext(ctx, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Toggle flips a token between active and disabled and returns the
// updated record.
func (s *Store) Toggle(ctx context.Context, id int64) (*Record, error) {
	res, err := s.toggleStmt.ExecContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle token %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, id)
}

// Active implements Validator. Unknown tokens report false with no error.
func (s *Store) Active(ctx context.Context, token string) (bool, error) {
	var active int
	err := s.activeStmt.QueryRowContext(ctx, token).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up token: %w", err)
	}
	return active != 0, nil
}

// Close closes the registry.
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{s.issueStmt, s.listStmt, s.getStmt, s.toggleStmt, s.activeStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var active int
	var created int64
	if err := row.Scan(&rec.ID, &rec.Email, &rec.Token, &active, &created); err != nil {
		return nil, err
	}
	rec.Active = active != 0
	rec.CreatedAt = time.Unix(created, 0).UTC()
	return &rec, nil
}

// generateToken produces an opaque "sk_"-prefixed credential from 24
// random bytes, matching the shape operators already distribute.
func generateToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return "sk_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
