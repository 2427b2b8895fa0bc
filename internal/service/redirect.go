package service

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal"
	"github.com/Adhithya200503/AgentSync/internal/geo"
	"github.com/Adhithya200503/AgentSync/internal/repo"
	"github.com/Adhithya200503/AgentSync/internal/routing"
	"github.com/Adhithya200503/AgentSync/internal/stats"
	"github.com/Adhithya200503/AgentSync/internal/ua"
)

// GeoLookup is the external IP-to-location collaborator.
type GeoLookup interface {
	Lookup(ctx context.Context, ip string) geo.Observation
}

// Redirect is the decided response for a redirect request.
type Redirect struct {
	Status   int
	Location string
}

type RedirectConfig struct {
	UnlockBaseURL   string
	WhatsAppBaseURL string
}

// RedirectService resolves short codes, routes multi-agent links and keeps
// the usage counters. The redirect decision is always made before any
// counter write, and counter failures are logged, never surfaced.
type RedirectService struct {
	links *repo.LinksRepo
	pages *repo.PagesRepo
	geo   GeoLookup
	cfg   RedirectConfig
}

func NewRedirectService(links *repo.LinksRepo, pages *repo.PagesRepo, geoLookup GeoLookup, cfg RedirectConfig) *RedirectService {
	return &RedirectService{
		links: links,
		pages: pages,
		geo:   geoLookup,
		cfg:   cfg,
	}
}

// Resolve fetches the record behind code and applies the lifecycle gate.
// A record past its expiry is deleted on the spot (expire-on-read), so
// resolution is not read-only: the next resolve of the same code reports
// not-found.
func (s *RedirectService) Resolve(ctx context.Context, code string) (*internal.LinkRecord, error) {
	rec, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		if err := s.links.Delete(ctx, code); err != nil {
			log.Error().Err(err).Str("code", code).Msg("failed to delete expired link")
		}
		return nil, internal.ErrLinkExpired
	}

	if !rec.IsActive {
		return nil, internal.ErrLinkInactive
	}

	return rec, nil
}

// HandleRedirect runs the full redirect pipeline: resolve, lifecycle gate,
// agent routing, geo/UA resolution, counter updates, redirect decision.
// Analytics persistence failures never stop the redirect.
func (s *RedirectService) HandleRedirect(ctx context.Context, code, clientIP, userAgent string) (Redirect, error) {
	rec, err := s.Resolve(ctx, code)
	if err != nil {
		return Redirect{}, err
	}

	// Protected links are only counted once unlocked, which happens
	// outside this path.
	if rec.Protected {
		return Redirect{
			Status:   http.StatusFound,
			Location: s.cfg.UnlockBaseURL + "/" + code,
		}, nil
	}

	target := rec.OriginalURL
	var sel routing.Selection
	routed := false
	if rec.HasAgents() {
		if picked, ok := routing.SelectTarget(rec); ok {
			sel = picked
			routed = true
			target = routing.TargetURL(s.cfg.WhatsAppBaseURL, sel.Agent, rec)
		}
		// No selectable agent: fall back to the stored target verbatim.
	}

	obs := s.geo.Lookup(ctx, clientIP)
	fp := ua.Parse(userAgent)

	s.recordClick(ctx, rec.Code, obs, fp, sel, routed)

	return Redirect{Status: http.StatusFound, Location: target}, nil
}

// recordClick persists the analytics of one redirect. The click count,
// country stats, rotation cursor and per-agent assignment commit in one
// transaction; the device/browser/OS labels are independent field-level
// atomic increments. All failures are swallowed after logging.
func (s *RedirectService) recordClick(ctx context.Context, code string, obs geo.Observation, fp ua.Fingerprint, sel routing.Selection, routed bool) {
	_, err := s.links.UpdateRecord(ctx, code, func(rec *internal.LinkRecord) error {
		rec.Clicks++
		now := time.Now().UTC()
		rec.LastClickedAt = &now
		rec.Stats = stats.Apply(rec.Stats, obs.Country, obs.City)

		if routed {
			if sel.Cursor >= 0 {
				rec.LastUsedIndex = sel.Cursor
			}
			if rec.AgentAssignment == nil {
				rec.AgentAssignment = make(map[string]internal.AgentLoad)
			}
			key := routing.AssignmentKey(sel.Agent)
			load := rec.AgentAssignment[key]
			load.AssignedCount++
			load.AgentUID = sel.Agent.AgentUID
			load.Name = sel.Agent.Name
			rec.AgentAssignment[key] = load
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to record click analytics")
	}

	for column, label := range map[string]string{
		repo.DeviceStats:  fp.Device,
		repo.BrowserStats: fp.Browser,
		repo.OSStats:      fp.OS,
	} {
		if err := s.links.BumpLabel(ctx, code, column, label); err != nil {
			log.Error().Err(err).Str("code", code).Str("column", column).
				Msg("failed to bump label counter")
		}
	}
}

// PageView records a bio-link page view and returns the updated page. The
// click increment and the stats merge commit together in one transaction;
// geo resolution happens before the transaction opens.
func (s *RedirectService) PageView(ctx context.Context, username, clientIP string) (*internal.LinkPage, error) {
	obs := s.geo.Lookup(ctx, clientIP)

	return s.pages.RecordView(ctx, username, func(page *internal.LinkPage) error {
		page.PageClicks++
		page.Stats = stats.Apply(page.Stats, obs.Country, obs.City)
		return nil
	})
}
