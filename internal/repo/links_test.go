package repo

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adhithya200503/AgentSync/internal"
	"github.com/Adhithya200503/AgentSync/internal/db"
)

func newTestRepos(t *testing.T) (*LinksRepo, *PagesRepo) {
	t.Helper()

	conn, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, conn.Close())
	})

	return NewLinksRepo(conn), NewPagesRepo(conn)
}

func newTestRecord(code string) *internal.LinkRecord {
	return &internal.LinkRecord{
		Code:          code,
		ShortURL:      "http://localhost:8080/" + code,
		OriginalURL:   "https://example.com",
		OwnerID:       "owner-1",
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
		LastUsedIndex: -1,
	}
}

func TestLinksRepo_CreateAndGet(t *testing.T) {
	links, _ := newTestRepos(t)
	ctx := context.Background()

	expires := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	rec := newTestRecord("abc123")
	rec.ExpiresAt = &expires
	rec.Agents = []internal.Agent{{IsCreator: true, Email: "a@b.com", Phone: "111", JoinedAt: rec.CreatedAt}}

	require.NoError(t, links.Create(ctx, rec))

	got, err := links.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, rec.OriginalURL, got.OriginalURL)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, expires, *got.ExpiresAt, time.Second)
	require.Len(t, got.Agents, 1)
	assert.True(t, got.Agents[0].IsCreator)
	assert.Equal(t, -1, got.LastUsedIndex)
	assert.Nil(t, got.LastClickedAt)
}

func TestLinksRepo_CreateConflict(t *testing.T) {
	links, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, links.Create(ctx, newTestRecord("taken")))

	err := links.Create(ctx, newTestRecord("taken"))
	assert.ErrorIs(t, err, internal.ErrSlugTaken)
}

func TestLinksRepo_GetByCode_NotFound(t *testing.T) {
	links, _ := newTestRepos(t)

	_, err := links.GetByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, internal.ErrLinkNotFound)
}

func TestLinksRepo_Delete(t *testing.T) {
	links, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, links.Create(ctx, newTestRecord("gone")))
	require.NoError(t, links.Delete(ctx, "gone"))

	_, err := links.GetByCode(ctx, "gone")
	assert.ErrorIs(t, err, internal.ErrLinkNotFound)

	// Deleting an absent code is not an error.
	assert.NoError(t, links.Delete(ctx, "gone"))
}

func TestLinksRepo_BumpLabel(t *testing.T) {
	links, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, links.Create(ctx, newTestRecord("bump")))

	require.NoError(t, links.BumpLabel(ctx, "bump", DeviceStats, "mobile"))
	require.NoError(t, links.BumpLabel(ctx, "bump", DeviceStats, "mobile"))
	require.NoError(t, links.BumpLabel(ctx, "bump", DeviceStats, "desktop"))
	require.NoError(t, links.BumpLabel(ctx, "bump", BrowserStats, "Chrome"))
	require.NoError(t, links.BumpLabel(ctx, "bump", OSStats, ""))

	got, err := links.GetByCode(ctx, "bump")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.DeviceStats["mobile"])
	assert.Equal(t, int64(1), got.DeviceStats["desktop"])
	assert.Equal(t, int64(1), got.BrowserStats["Chrome"])
	assert.Equal(t, int64(1), got.OSStats["Unknown"], "empty labels fall back to Unknown")
}

func TestLinksRepo_BumpLabel_RejectsUnknownColumn(t *testing.T) {
	links, _ := newTestRepos(t)

	err := links.BumpLabel(context.Background(), "x", "clicks", "label")
	assert.Error(t, err)
}

func TestLinksRepo_UpdateRecord(t *testing.T) {
	links, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, links.Create(ctx, newTestRecord("upd")))

	updated, err := links.UpdateRecord(ctx, "upd", func(rec *internal.LinkRecord) error {
		rec.Clicks++
		rec.LastUsedIndex = 2
		rec.Stats = []internal.CountryStat{{Country: "DE", Count: 1, TopCities: []internal.CityStat{{City: "Berlin", Count: 1}}}}
		rec.AgentAssignment = map[string]internal.AgentLoad{"a@b.com": {AssignedCount: 1}}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Clicks)

	got, err := links.GetByCode(ctx, "upd")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Clicks)
	assert.Equal(t, 2, got.LastUsedIndex)
	require.Len(t, got.Stats, 1)
	assert.Equal(t, "DE", got.Stats[0].Country)
	assert.Equal(t, int64(1), got.AgentAssignment["a@b.com"].AssignedCount)
}

func TestLinksRepo_UpdateRecord_ApplyErrorRollsBack(t *testing.T) {
	links, _ := newTestRepos(t)
	ctx := context.Background()

	require.NoError(t, links.Create(ctx, newTestRecord("rb")))

	_, err := links.UpdateRecord(ctx, "rb", func(rec *internal.LinkRecord) error {
		rec.Clicks = 99
		return internal.ErrNotOwner
	})
	require.ErrorIs(t, err, internal.ErrNotOwner)

	got, err := links.GetByCode(ctx, "rb")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Clicks)
}

func TestPagesRepo_UpsertPreservesCounters(t *testing.T) {
	_, pages := newTestRepos(t)
	ctx := context.Background()

	page := &internal.LinkPage{
		Username: "tester",
		OwnerID:  "owner-1",
		Bio:      "first bio",
		Links:    []internal.PageLink{{Title: "Site", URL: "https://example.com", Icon: "link"}},
		PageURL:  "http://localhost:8080/zaplink/tester",
	}
	require.NoError(t, pages.Upsert(ctx, page))

	_, err := pages.RecordView(ctx, "tester", func(p *internal.LinkPage) error {
		p.PageClicks++
		return nil
	})
	require.NoError(t, err)

	page.Bio = "second bio"
	require.NoError(t, pages.Upsert(ctx, page))

	got, err := pages.GetByUsername(ctx, "tester")
	require.NoError(t, err)
	assert.Equal(t, "second bio", got.Bio)
	assert.Equal(t, int64(1), got.PageClicks, "click counter survives updates")
}

func TestPagesRepo_RecordView_NotFound(t *testing.T) {
	_, pages := newTestRepos(t)

	_, err := pages.RecordView(context.Background(), "nobody", func(p *internal.LinkPage) error {
		p.PageClicks++
		return nil
	})
	assert.ErrorIs(t, err, internal.ErrPageNotFound)
}
