// Package datasource persists buyer profiles and seller deals in a local
// SQLite database. Taxonomy selections are stored the way they travel on the
// wire: as JSON arrays of catalog names.
package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/model"
)

// ErrNotFound is returned when a profile or deal does not exist.
var ErrNotFound = errors.New("record not found")

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id               TEXT PRIMARY KEY,
	kind             TEXT NOT NULL,
	company          TEXT NOT NULL,
	owner            TEXT NOT NULL,
	countries        TEXT NOT NULL DEFAULT '[]',
	industry_sectors TEXT NOT NULL DEFAULT '[]',
	description      TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_owner ON profiles(owner);

CREATE TABLE IF NOT EXISTS deals (
	id                  TEXT PRIMARY KEY,
	title               TEXT NOT NULL,
	seller              TEXT NOT NULL,
	geography_selection TEXT NOT NULL DEFAULT '',
	industry_sector     TEXT NOT NULL DEFAULT '',
	asking_price        INTEGER NOT NULL DEFAULT 0,
	description         TEXT NOT NULL DEFAULT '',
	status              TEXT NOT NULL,
	created_at          TEXT NOT NULL,
	updated_at          TEXT NOT NULL,
	completed_at        TEXT
);
CREATE INDEX IF NOT EXISTS idx_deals_status ON deals(status);
`

// Store is a profile and deal store backed by one SQLite file
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	defer debug.LogEnterExit("datasource.Open")()
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// A single writer keeps WAL contention out of the picture for a local CLI.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema to %s: %w", path, err)
	}
	debug.Log("opened store %s", path)
	return &Store{db: db, path: path}, nil
}

// Path is the database file backing the store.
func (s *Store) Path() string { return s.path }

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveProfile inserts or replaces a profile.
func (s *Store) SaveProfile(ctx context.Context, p model.Profile) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	countries, err := encodeNames(p.TargetCriteria.Countries)
	if err != nil {
		return err
	}
	sectors, err := encodeNames(p.TargetCriteria.IndustrySectors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, kind, company, owner, countries, industry_sectors, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			company = excluded.company,
			owner = excluded.owner,
			countries = excluded.countries,
			industry_sectors = excluded.industry_sectors,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		p.ID, string(p.Kind), p.Company, p.Owner, countries, sectors, p.Description,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", p.ID, err)
	}
	return nil
}

const profileColumns = `id, kind, company, owner, countries, industry_sectors, description, created_at, updated_at`

// GetProfile loads one profile by ID.
func (s *Store) GetProfile(ctx context.Context, id string) (model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, fmt.Errorf("profile %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}
	return p, nil
}

// ProfileQuery narrows ListProfiles. Zero values match everything.
type ProfileQuery struct {
	Owner string
	Kind  model.ProfileKind
}

// ListProfiles returns matching profiles, most recently updated first.
func (s *Store) ListProfiles(ctx context.Context, q ProfileQuery) ([]model.Profile, error) {
	var (
		where []string
		args  []any
	)
	if q.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, q.Owner)
	}
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	query := `SELECT ` + profileColumns + ` FROM profiles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []model.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}
	return out, nil
}

// DeleteProfile removes a profile.
func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete profile %s: %w", id, err)
	}
	return requireRow(res, "profile", id)
}

// SaveDeal inserts or replaces a deal.
func (s *Store) SaveDeal(ctx context.Context, d model.Deal) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("save deal: %w", err)
	}
	return saveDeal(ctx, s.db, d)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveDeal(ctx context.Context, db execer, d model.Deal) error {
	var completed sql.NullString
	if d.CompletedAt != nil {
		completed = sql.NullString{String: formatTime(*d.CompletedAt), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO deals (id, title, seller, geography_selection, industry_sector, asking_price, description, status, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			seller = excluded.seller,
			geography_selection = excluded.geography_selection,
			industry_sector = excluded.industry_sector,
			asking_price = excluded.asking_price,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at,
			completed_at = excluded.completed_at`,
		d.ID, d.Title, d.Seller, d.GeographySelection, d.IndustrySector, d.AskingPrice, d.Description,
		string(d.Status), formatTime(d.CreatedAt), formatTime(d.UpdatedAt), completed,
	)
	if err != nil {
		return fmt.Errorf("save deal %s: %w", d.ID, err)
	}
	return nil
}

const dealColumns = `id, title, seller, geography_selection, industry_sector, asking_price, description, status, created_at, updated_at, completed_at`

// GetDeal loads one deal by ID.
func (s *Store) GetDeal(ctx context.Context, id string) (model.Deal, error) {
	return getDeal(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDeal(ctx context.Context, db queryRower, id string) (model.Deal, error) {
	row := db.QueryRowContext(ctx, `SELECT `+dealColumns+` FROM deals WHERE id = ?`, id)
	d, err := scanDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Deal{}, fmt.Errorf("deal %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Deal{}, fmt.Errorf("get deal %s: %w", id, err)
	}
	return d, nil
}

// ListDeals returns deals with the given status ("" for all), most recently
// updated first.
func (s *Store) ListDeals(ctx context.Context, status model.DealStatus) ([]model.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY updated_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	var out []model.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deals: %w", err)
	}
	return out, nil
}

// UpdateDealStatus moves a deal through its status workflow inside one
// transaction and returns the updated record.
func (s *Store) UpdateDealStatus(ctx context.Context, id string, to model.DealStatus, now time.Time) (model.Deal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Deal{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	d, err := getDeal(ctx, tx, id)
	if err != nil {
		return model.Deal{}, err
	}
	if err := d.Transition(to, now); err != nil {
		return model.Deal{}, fmt.Errorf("deal %s: %w", id, err)
	}
	if err := saveDeal(ctx, tx, d); err != nil {
		return model.Deal{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Deal{}, fmt.Errorf("commit: %w", err)
	}
	return d, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(sc scanner) (model.Profile, error) {
	var (
		p                    model.Profile
		kind                 string
		countries, sectors   string
		createdAt, updatedAt string
	)
	if err := sc.Scan(&p.ID, &kind, &p.Company, &p.Owner, &countries, &sectors, &p.Description, &createdAt, &updatedAt); err != nil {
		return model.Profile{}, err
	}
	p.Kind = model.ProfileKind(kind)
	p.TargetCriteria.Countries = parseJSONStringArray(countries)
	p.TargetCriteria.IndustrySectors = parseJSONStringArray(sectors)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

func scanDeal(sc scanner) (model.Deal, error) {
	var (
		d                    model.Deal
		status               string
		createdAt, updatedAt string
		completedAt          sql.NullString
	)
	if err := sc.Scan(&d.ID, &d.Title, &d.Seller, &d.GeographySelection, &d.IndustrySector,
		&d.AskingPrice, &d.Description, &status, &createdAt, &updatedAt, &completedAt); err != nil {
		return model.Deal{}, err
	}
	d.Status = model.DealStatus(status)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	if completedAt.Valid && completedAt.String != "" {
		t := parseTime(completedAt.String)
		d.CompletedAt = &t
	}
	return d, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		debug.Log("unparseable timestamp %q: %v", s, err)
		return time.Time{}
	}
	return t
}

func encodeNames(names []string) (string, error) {
	if len(names) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("encode names: %w", err)
	}
	return string(b), nil
}

// parseJSONStringArray parses a JSON array of strings
func parseJSONStringArray(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" || s == "[]" {
		return nil
	}

	var result []string
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		// Fallback to simple parser for hand-edited rows
		result = nil
		s = strings.TrimPrefix(s, "[")
		s = strings.TrimSuffix(s, "]")
		if s == "" {
			return nil
		}
		for _, item := range strings.Split(s, ",") {
			item = strings.TrimSpace(item)
			item = strings.Trim(item, `"`)
			if item != "" {
				result = append(result, item)
			}
		}
	}
	return result
}
