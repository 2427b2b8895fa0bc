package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal"
)

var pageCols = []any{
	"username", "owner_id", "bio", "profile_pic", "links", "page_clicks",
	"stats", "page_url", "created_at", "updated_at",
}

type pageRow struct {
	Username   string `db:"username"`
	OwnerID    string `db:"owner_id"`
	Bio        string `db:"bio"`
	ProfilePic string `db:"profile_pic"`
	Links      string `db:"links"`
	PageClicks int64  `db:"page_clicks"`
	Stats      string `db:"stats"`
	PageURL    string `db:"page_url"`
	CreatedAt  Date   `db:"created_at"`
	UpdatedAt  Date   `db:"updated_at"`
}

type PagesRepo struct {
	db *sql.DB
}

func NewPagesRepo(db *sql.DB) *PagesRepo {
	return &PagesRepo{db: db}
}

// Upsert creates the page or replaces its editable fields. Click counters,
// stats and created_at survive updates.
func (r *PagesRepo) Upsert(ctx context.Context, page *internal.LinkPage) error {
	executor := goqu.New("sqlite3", r.db)

	log.Debug().Str("username", page.Username).Msg("saving link page")

	links, err := marshalBlob(orEmptyLinks(page.Links))
	if err != nil {
		return err
	}
	stats, err := marshalBlob(orEmptyStats(page.Stats))
	if err != nil {
		return err
	}

	now := Date(time.Now().UTC())
	query := executor.Insert("link_pages").
		Cols(pageCols...).
		Vals([]any{
			page.Username, page.OwnerID, page.Bio, page.ProfilePic, links,
			page.PageClicks, stats, page.PageURL, now, now,
		}).
		OnConflict(goqu.DoUpdate("username", goqu.Record{
			"bio":         page.Bio,
			"profile_pic": page.ProfilePic,
			"links":       links,
			"page_url":    page.PageURL,
			"updated_at":  now,
		}))

	if _, err := query.Executor().ExecContext(ctx); err != nil {
		log.Error().Err(err).Str("username", page.Username).Msg("failed to save link page")
		return err
	}

	log.Info().Str("username", page.Username).Msg("link page saved")
	return nil
}

func (r *PagesRepo) GetByUsername(ctx context.Context, username string) (*internal.LinkPage, error) {
	executor := goqu.New("sqlite3", r.db)

	var row pageRow
	found, err := executor.From("link_pages").
		Select(pageCols...).
		Where(goqu.Ex{"username": username}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to fetch link page")
		return nil, err
	}
	if !found {
		return nil, internal.ErrPageNotFound
	}

	return row.toDomain()
}

// RecordView runs the page-view counter update as a single transactional
// read-modify-write: read the page, apply the mutation, write back, commit.
// Concurrent viewers of the same page serialize here instead of losing
// updates.
func (r *PagesRepo) RecordView(ctx context.Context, username string, apply func(*internal.LinkPage) error) (*internal.LinkPage, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	executor := goqu.NewTx("sqlite3", tx)

	var row pageRow
	found, err := executor.From("link_pages").
		Select(pageCols...).
		Where(goqu.Ex{"username": username}).
		Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, internal.ErrPageNotFound
	}

	page, err := row.toDomain()
	if err != nil {
		return nil, err
	}

	if err := apply(page); err != nil {
		return nil, err
	}

	stats, err := marshalBlob(orEmptyStats(page.Stats))
	if err != nil {
		return nil, err
	}

	_, err = executor.Update("link_pages").
		Set(goqu.Record{
			"page_clicks": page.PageClicks,
			"stats":       stats,
		}).
		Where(goqu.Ex{"username": username}).
		Executor().ExecContext(ctx)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to record page view")
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return page, nil
}

func (r *pageRow) toDomain() (*internal.LinkPage, error) {
	page := &internal.LinkPage{
		Username:   r.Username,
		OwnerID:    r.OwnerID,
		Bio:        r.Bio,
		ProfilePic: r.ProfilePic,
		PageClicks: r.PageClicks,
		PageURL:    r.PageURL,
		CreatedAt:  r.CreatedAt.Time(),
		UpdatedAt:  r.UpdatedAt.Time(),
	}

	if err := json.Unmarshal([]byte(r.Links), &page.Links); err != nil {
		return nil, fmt.Errorf("corrupt links blob for %s: %w", r.Username, err)
	}
	if err := json.Unmarshal([]byte(r.Stats), &page.Stats); err != nil {
		return nil, fmt.Errorf("corrupt stats blob for %s: %w", r.Username, err)
	}

	return page, nil
}

func orEmptyLinks(s []internal.PageLink) []internal.PageLink {
	if s == nil {
		return []internal.PageLink{}
	}
	return s
}
