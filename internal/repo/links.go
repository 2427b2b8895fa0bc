package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal"
)

// Counter columns that support field-level atomic label increments.
const (
	DeviceStats  = "device_stats"
	BrowserStats = "browser_stats"
	OSStats      = "os_stats"
)

var counterColumns = map[string]bool{
	DeviceStats:  true,
	BrowserStats: true,
	OSStats:      true,
}

var linkCols = []any{
	"code", "short_url", "original_url", "owner_id", "name", "qr_code",
	"is_active", "protected", "unlock_id", "expires_at", "phone", "message",
	"clicks", "last_clicked_at", "created_at", "stats", "device_stats",
	"browser_stats", "os_stats", "agents", "multi_agent_enabled",
	"last_used_index", "agent_assignment",
}

type linkRow struct {
	Code              string `db:"code"`
	ShortURL          string `db:"short_url"`
	OriginalURL       string `db:"original_url"`
	OwnerID           string `db:"owner_id"`
	Name              string `db:"name"`
	QRCode            string `db:"qr_code"`
	IsActive          bool   `db:"is_active"`
	Protected         bool   `db:"protected"`
	UnlockID          string `db:"unlock_id"`
	ExpiresAt         *Date  `db:"expires_at"`
	Phone             string `db:"phone"`
	Message           string `db:"message"`
	Clicks            int64  `db:"clicks"`
	LastClickedAt     *Date  `db:"last_clicked_at"`
	CreatedAt         Date   `db:"created_at"`
	Stats             string `db:"stats"`
	DeviceStats       string `db:"device_stats"`
	BrowserStats      string `db:"browser_stats"`
	OSStats           string `db:"os_stats"`
	Agents            string `db:"agents"`
	MultiAgentEnabled bool   `db:"multi_agent_enabled"`
	LastUsedIndex     int    `db:"last_used_index"`
	AgentAssignment   string `db:"agent_assignment"`
}

type LinksRepo struct {
	db *sql.DB
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db}
}

// Create inserts a new record, failing with ErrSlugTaken when the code is
// already present. The conditional insert closes the check-then-set race
// between concurrent creators of the same custom slug.
func (r *LinksRepo) Create(ctx context.Context, rec *internal.LinkRecord) error {
	executor := goqu.New("sqlite3", r.db)

	log.Debug().Str("code", rec.Code).Msg("creating link record")

	row, err := rowFromDomain(rec)
	if err != nil {
		return err
	}

	query := executor.Insert("links").
		Cols(linkCols...).
		Vals(row.vals()).
		OnConflict(goqu.DoNothing())

	res, err := query.Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", rec.Code).Msg("failed to create link record")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		log.Debug().Str("code", rec.Code).Msg("slug already taken")
		return internal.ErrSlugTaken
	}

	log.Info().Str("code", rec.Code).Msg("link record created")
	return nil
}

// GetByCode fetches a record by primary key. Lifecycle checks (expiry,
// active flag) belong to the resolver, not here.
func (r *LinksRepo) GetByCode(ctx context.Context, code string) (*internal.LinkRecord, error) {
	executor := goqu.New("sqlite3", r.db)

	var row linkRow
	found, err := executor.From("links").
		Select(linkCols...).
		Where(goqu.Ex{"code": code}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to fetch link record")
		return nil, err
	}
	if !found {
		return nil, internal.ErrLinkNotFound
	}

	return row.toDomain()
}

// Delete removes a record. Used by expire-on-read; deleting an absent code
// is not an error.
func (r *LinksRepo) Delete(ctx context.Context, code string) error {
	executor := goqu.New("sqlite3", r.db)

	_, err := executor.Delete("links").
		Where(goqu.Ex{"code": code}).
		Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to delete link record")
		return err
	}

	log.Info().Str("code", code).Msg("link record deleted")
	return nil
}

// BumpLabel atomically increments one label inside a counter column
// (device/browser/OS stats) in a single statement. Independent of any
// transaction; concurrent bumps never lose a count.
func (r *LinksRepo) BumpLabel(ctx context.Context, code, column, label string) error {
	if !counterColumns[column] {
		return fmt.Errorf("not a counter column: %s", column)
	}

	executor := goqu.New("sqlite3", r.db)
	path := jsonPath(label)
	expr := goqu.L(
		fmt.Sprintf("json_set(%s, ?, coalesce(json_extract(%s, ?), 0) + 1)", column, column),
		path, path,
	)

	_, err := executor.Update("links").
		Set(goqu.Record{column: expr}).
		Where(goqu.Ex{"code": code}).
		Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", code).Str("column", column).Str("label", label).
			Msg("failed to bump label counter")
		return err
	}
	return nil
}

// UpdateRecord runs a transactional read-modify-write: the record is read,
// passed to apply, and written back in the same transaction. This is the
// path for the composite stats blob, the click count and the rotation
// cursor, so concurrent redirects on the same code cannot lose an update.
func (r *LinksRepo) UpdateRecord(ctx context.Context, code string, apply func(*internal.LinkRecord) error) (*internal.LinkRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	executor := goqu.NewTx("sqlite3", tx)

	var row linkRow
	found, err := executor.From("links").
		Select(linkCols...).
		Where(goqu.Ex{"code": code}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, internal.ErrLinkNotFound
	}

	rec, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if err := apply(rec); err != nil {
		return nil, err
	}

	updated, err := rowFromDomain(rec)
	if err != nil {
		return nil, err
	}

	_, err = executor.Update("links").
		Set(updated.mutable()).
		Where(goqu.Ex{"code": code}).
		Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to write back link record")
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *linkRow) vals() []any {
	return []any{
		r.Code, r.ShortURL, r.OriginalURL, r.OwnerID, r.Name, r.QRCode,
		r.IsActive, r.Protected, r.UnlockID, nullableDate(r.ExpiresAt),
		r.Phone, r.Message, r.Clicks, nullableDate(r.LastClickedAt),
		r.CreatedAt, r.Stats, r.DeviceStats, r.BrowserStats, r.OSStats,
		r.Agents, r.MultiAgentEnabled, r.LastUsedIndex, r.AgentAssignment,
	}
}

// nullableDate avoids handing goqu a typed nil valuer.
func nullableDate(d *Date) any {
	if d == nil {
		return nil
	}
	return *d
}

// mutable lists the columns a redirect or owner edit may change. Code,
// owner and created_at stay fixed for the record's lifetime.
func (r *linkRow) mutable() goqu.Record {
	return goqu.Record{
		"original_url":        r.OriginalURL,
		"name":                r.Name,
		"is_active":           r.IsActive,
		"protected":           r.Protected,
		"unlock_id":           r.UnlockID,
		"expires_at":          nullableDate(r.ExpiresAt),
		"message":             r.Message,
		"clicks":              r.Clicks,
		"last_clicked_at":     nullableDate(r.LastClickedAt),
		"stats":               r.Stats,
		"device_stats":        r.DeviceStats,
		"browser_stats":       r.BrowserStats,
		"os_stats":            r.OSStats,
		"agents":              r.Agents,
		"multi_agent_enabled": r.MultiAgentEnabled,
		"last_used_index":     r.LastUsedIndex,
		"agent_assignment":    r.AgentAssignment,
	}
}

func (r *linkRow) toDomain() (*internal.LinkRecord, error) {
	rec := &internal.LinkRecord{
		Code:              r.Code,
		ShortURL:          r.ShortURL,
		OriginalURL:       r.OriginalURL,
		OwnerID:           r.OwnerID,
		Name:              r.Name,
		QRCode:            r.QRCode,
		IsActive:          r.IsActive,
		Protected:         r.Protected,
		UnlockID:          r.UnlockID,
		Phone:             r.Phone,
		Message:           r.Message,
		Clicks:            r.Clicks,
		CreatedAt:         r.CreatedAt.Time(),
		MultiAgentEnabled: r.MultiAgentEnabled,
		LastUsedIndex:     r.LastUsedIndex,
	}

	if r.ExpiresAt != nil {
		t := r.ExpiresAt.Time()
		rec.ExpiresAt = &t
	}
	if r.LastClickedAt != nil {
		t := r.LastClickedAt.Time()
		rec.LastClickedAt = &t
	}

	blobs := []struct {
		name string
		raw  string
		dst  any
	}{
		{"stats", r.Stats, &rec.Stats},
		{"device_stats", r.DeviceStats, &rec.DeviceStats},
		{"browser_stats", r.BrowserStats, &rec.BrowserStats},
		{"os_stats", r.OSStats, &rec.OSStats},
		{"agents", r.Agents, &rec.Agents},
		{"agent_assignment", r.AgentAssignment, &rec.AgentAssignment},
	}
	for _, b := range blobs {
		if err := json.Unmarshal([]byte(b.raw), b.dst); err != nil {
			return nil, fmt.Errorf("corrupt %s blob for %s: %w", b.name, r.Code, err)
		}
	}

	return rec, nil
}

func rowFromDomain(rec *internal.LinkRecord) (*linkRow, error) {
	row := &linkRow{
		Code:              rec.Code,
		ShortURL:          rec.ShortURL,
		OriginalURL:       rec.OriginalURL,
		OwnerID:           rec.OwnerID,
		Name:              rec.Name,
		QRCode:            rec.QRCode,
		IsActive:          rec.IsActive,
		Protected:         rec.Protected,
		UnlockID:          rec.UnlockID,
		Phone:             rec.Phone,
		Message:           rec.Message,
		Clicks:            rec.Clicks,
		CreatedAt:         Date(rec.CreatedAt),
		MultiAgentEnabled: rec.MultiAgentEnabled,
		LastUsedIndex:     rec.LastUsedIndex,
	}

	if rec.ExpiresAt != nil {
		d := Date(*rec.ExpiresAt)
		row.ExpiresAt = &d
	}
	if rec.LastClickedAt != nil {
		d := Date(*rec.LastClickedAt)
		row.LastClickedAt = &d
	}

	var err error
	if row.Stats, err = marshalBlob(orEmptyStats(rec.Stats)); err != nil {
		return nil, err
	}
	if row.DeviceStats, err = marshalBlob(orEmptyMap(rec.DeviceStats)); err != nil {
		return nil, err
	}
	if row.BrowserStats, err = marshalBlob(orEmptyMap(rec.BrowserStats)); err != nil {
		return nil, err
	}
	if row.OSStats, err = marshalBlob(orEmptyMap(rec.OSStats)); err != nil {
		return nil, err
	}
	if row.Agents, err = marshalBlob(orEmptyAgents(rec.Agents)); err != nil {
		return nil, err
	}
	if row.AgentAssignment, err = marshalBlob(orEmptyAssignment(rec.AgentAssignment)); err != nil {
		return nil, err
	}

	return row, nil
}

func marshalBlob(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func orEmptyStats(s []internal.CountryStat) []internal.CountryStat {
	if s == nil {
		return []internal.CountryStat{}
	}
	return s
}

func orEmptyAgents(s []internal.Agent) []internal.Agent {
	if s == nil {
		return []internal.Agent{}
	}
	return s
}

func orEmptyMap(m map[string]int64) map[string]int64 {
	if m == nil {
		return map[string]int64{}
	}
	return m
}

func orEmptyAssignment(m map[string]internal.AgentLoad) map[string]internal.AgentLoad {
	if m == nil {
		return map[string]internal.AgentLoad{}
	}
	return m
}

// jsonPath builds a quoted JSON path for a label. Double quotes would break
// out of the path expression, so they are stripped.
func jsonPath(label string) string {
	label = strings.Map(func(r rune) rune {
		if r == '"' || r < 32 {
			return -1
		}
		return r
	}, label)
	if label == "" {
		label = "Unknown"
	}
	return `$."` + label + `"`
}
