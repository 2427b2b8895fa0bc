package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Adhithya200503/AgentSync/internal"
	"github.com/Adhithya200503/AgentSync/internal/qr"
	"github.com/Adhithya200503/AgentSync/internal/repo"
	"github.com/Adhithya200503/AgentSync/internal/routing"
)

const (
	shortSlugLength = 8
	waCodeLength    = 6
	maxURLLength    = 2048
	maxBioLength    = 250
)

var (
	phonePattern    = regexp.MustCompile(`^\d+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	webURLPattern   = regexp.MustCompile(`^https?://.+\..+`)
	mailtoPattern   = regexp.MustCompile(`^mailto:.+@.+\..+`)
)

type LinkConfig struct {
	BaseURL         string
	PageBaseURL     string
	WhatsAppBaseURL string
}

// LinkService creates short links, WhatsApp links and link pages, and
// manages the agent roster of a WhatsApp link.
type LinkService struct {
	links *repo.LinksRepo
	pages *repo.PagesRepo
	cfg   LinkConfig
}

func NewLinkService(links *repo.LinksRepo, pages *repo.PagesRepo, cfg LinkConfig) *LinkService {
	return &LinkService{links: links, pages: pages, cfg: cfg}
}

type CreateShortURLInput struct {
	OriginalURL string
	CustomSlug  string
	Protected   bool
	Name        string
	OwnerID     string // empty for anonymous creation
}

// CreateShortURL validates the target, picks or generates a slug, renders
// the QR code and persists the record with zeroed counters. A QR failure
// aborts creation; a taken slug surfaces as ErrSlugTaken.
func (s *LinkService) CreateShortURL(ctx context.Context, in CreateShortURLInput) (*internal.LinkRecord, error) {
	if err := validateURL(in.OriginalURL); err != nil {
		return nil, err
	}

	slug := strings.TrimSpace(in.CustomSlug)
	if slug == "" {
		slug = generateCode(shortSlugLength)
	}

	qrData, err := qr.DataURL(in.OriginalURL)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("QR code generation failed")
		return nil, fmt.Errorf("%w: %v", internal.ErrQRCodeFailed, err)
	}

	rec := &internal.LinkRecord{
		Code:          slug,
		ShortURL:      s.shortURL(slug),
		OriginalURL:   in.OriginalURL,
		OwnerID:       in.OwnerID,
		Name:          in.Name,
		QRCode:        qrData,
		IsActive:      true,
		Protected:     in.Protected,
		CreatedAt:     time.Now().UTC(),
		LastUsedIndex: -1,
	}
	if in.Protected {
		rec.UnlockID = uuid.NewString()
	}

	if err := s.links.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type CreateWhatsAppLinkInput struct {
	Phone      string
	Message    string
	Duration   string
	CustomSlug string
	OwnerID    string
	OwnerName  string
	OwnerEmail string
}

// CreateWhatsAppLink creates a routable WhatsApp link seeded with the
// creator as its only agent. Round-robin starts disabled.
func (s *LinkService) CreateWhatsAppLink(ctx context.Context, in CreateWhatsAppLinkInput) (*internal.LinkRecord, error) {
	if !phonePattern.MatchString(in.Phone) {
		return nil, internal.NewValidationError("phone", "must contain digits only")
	}

	code := strings.TrimSpace(in.CustomSlug)
	if code == "" {
		code = generateCode(waCodeLength)
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if d, err := ParseExpiry(in.Duration); err != nil {
		return nil, err
	} else if d != nil {
		t := now.Add(*d)
		expiresAt = &t
	}

	creator := internal.Agent{
		IsCreator: true,
		Name:      in.OwnerName,
		Email:     strings.ToLower(strings.TrimSpace(in.OwnerEmail)),
		Phone:     in.Phone,
		Message:   in.Message,
		AgentUID:  in.OwnerID,
		JoinedAt:  now,
	}

	rec := &internal.LinkRecord{
		Code:          code,
		ShortURL:      s.shortURL(code),
		OwnerID:       in.OwnerID,
		IsActive:      true,
		ExpiresAt:     expiresAt,
		Phone:         in.Phone,
		Message:       in.Message,
		CreatedAt:     now,
		Agents:        []internal.Agent{creator},
		LastUsedIndex: -1,
	}

	// The stored target is the same deep link a redirect to the creator
	// produces, so the fallback path and the routed path stay in sync.
	rec.OriginalURL = routing.TargetURL(s.cfg.WhatsAppBaseURL, creator, rec)

	qrData, err := qr.DataURL(rec.OriginalURL)
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("QR code generation failed")
		return nil, fmt.Errorf("%w: %v", internal.ErrQRCodeFailed, err)
	}
	rec.QRCode = qrData

	if err := s.links.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

type AddAgentInput struct {
	Name     string
	Email    string
	Phone    string
	Message  string
	AgentUID string
}

// AddAgent appends an agent to an owned link. Agents sharing a non-empty
// email or phone with an existing one are rejected.
func (s *LinkService) AddAgent(ctx context.Context, ownerID, code string, in AddAgentInput) (*internal.Agent, error) {
	if in.Phone == "" && in.Email == "" && in.Name == "" {
		return nil, internal.NewValidationError("agent", "phone, email or name required")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	phone := strings.TrimSpace(in.Phone)

	agent := internal.Agent{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Phone:    phone,
		Message:  strings.TrimSpace(in.Message),
		AgentUID: in.AgentUID,
		JoinedAt: time.Now().UTC(),
	}
	if agent.Name == "" {
		agent.Name = "unknown"
	}

	_, err := s.links.UpdateRecord(ctx, code, func(rec *internal.LinkRecord) error {
		if rec.OwnerID != ownerID {
			return internal.ErrNotOwner
		}

		duplicate := lo.SomeBy(rec.Agents, func(a internal.Agent) bool {
			return (email != "" && strings.EqualFold(a.Email, email)) ||
				(phone != "" && a.Phone == phone)
		})
		if duplicate {
			return internal.ErrAgentExists
		}

		rec.Agents = append(rec.Agents, agent)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// RemoveAgent drops the agent at index from an owned link.
func (s *LinkService) RemoveAgent(ctx context.Context, ownerID, code string, index int) error {
	_, err := s.links.UpdateRecord(ctx, code, func(rec *internal.LinkRecord) error {
		if rec.OwnerID != ownerID {
			return internal.ErrNotOwner
		}
		if index < 0 || index >= len(rec.Agents) {
			return internal.NewValidationError("index", "no agent at this index")
		}
		rec.Agents = append(rec.Agents[:index], rec.Agents[index+1:]...)
		return nil
	})
	return err
}

// ListAgents returns the roster and routing mode of an owned link.
func (s *LinkService) ListAgents(ctx context.Context, ownerID, code string) ([]internal.Agent, bool, error) {
	rec, err := s.links.GetByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if rec.OwnerID != ownerID {
		return nil, false, internal.ErrNotOwner
	}
	return rec.Agents, rec.MultiAgentEnabled, nil
}

// SetMultiAgent toggles round-robin routing on an owned link.
func (s *LinkService) SetMultiAgent(ctx context.Context, ownerID, code string, enabled bool) error {
	_, err := s.links.UpdateRecord(ctx, code, func(rec *internal.LinkRecord) error {
		if rec.OwnerID != ownerID {
			return internal.ErrNotOwner
		}
		rec.MultiAgentEnabled = enabled
		return nil
	})
	return err
}

type SaveLinkPageInput struct {
	Username   string
	Bio        string
	ProfilePic string
	Links      []internal.PageLink
}

// SaveLinkPage creates or updates a bio-link page. Usernames are global;
// updating a page owned by someone else fails with ErrUsernameTaken. Page
// click counters survive updates.
func (s *LinkService) SaveLinkPage(ctx context.Context, ownerID string, in SaveLinkPageInput) (*internal.LinkPage, error) {
	if err := validateLinkPage(in); err != nil {
		return nil, err
	}

	existing, err := s.pages.GetByUsername(ctx, in.Username)
	if err != nil && !errors.Is(err, internal.ErrPageNotFound) {
		return nil, err
	}
	if existing != nil && existing.OwnerID != ownerID {
		return nil, internal.ErrUsernameTaken
	}

	page := &internal.LinkPage{
		Username:   in.Username,
		OwnerID:    ownerID,
		Bio:        in.Bio,
		ProfilePic: in.ProfilePic,
		Links: lo.Map(in.Links, func(l internal.PageLink, _ int) internal.PageLink {
			return internal.PageLink{Title: l.Title, URL: l.URL, Type: l.Type, Icon: l.Icon}
		}),
		PageURL: fmt.Sprintf("%s/zaplink/%s", strings.TrimRight(s.cfg.PageBaseURL, "/"), in.Username),
	}

	if err := s.pages.Upsert(ctx, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *LinkService) shortURL(code string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.BaseURL, "/"), code)
}

// ParseExpiry converts a duration string to a lifetime. Supported forms
// are "<n>m" (minutes), "<n>h" (hours) and "permanent"/empty for no
// expiry.
func ParseExpiry(duration string) (*time.Duration, error) {
	if duration == "" || duration == "permanent" {
		return nil, nil
	}

	if len(duration) < 2 {
		return nil, internal.NewValidationError("duration", "use <n>m, <n>h or permanent")
	}

	amount, err := strconv.Atoi(duration[:len(duration)-1])
	if err != nil || amount <= 0 {
		return nil, internal.NewValidationError("duration", "use <n>m, <n>h or permanent")
	}

	var d time.Duration
	switch duration[len(duration)-1] {
	case 'm':
		d = time.Duration(amount) * time.Minute
	case 'h':
		d = time.Duration(amount) * time.Hour
	default:
		return nil, internal.NewValidationError("duration", "use <n>m, <n>h or permanent")
	}
	return &d, nil
}

func generateCode(length int) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:length]
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return internal.NewValidationError("originalUrl", "URL cannot be empty")
	}
	if len(rawURL) > maxURLLength {
		return internal.NewValidationError("originalUrl", "URL is too long")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return internal.NewValidationError("originalUrl", "invalid URL format")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return internal.NewValidationError("originalUrl", "URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return internal.NewValidationError("originalUrl", "URL must contain a valid host")
	}
	return nil
}

func validateLinkPage(in SaveLinkPageInput) error {
	if in.Username == "" {
		return internal.NewValidationError("username", "username is required")
	}
	if !usernamePattern.MatchString(in.Username) {
		return internal.NewValidationError("username", "only alphanumerics, underscores, hyphens and periods allowed")
	}
	if len(in.Username) < 3 || len(in.Username) > 30 {
		return internal.NewValidationError("username", "must be between 3 and 30 characters")
	}
	if len(in.Bio) > maxBioLength {
		return internal.NewValidationError("bio", "cannot exceed 250 characters")
	}
	if in.ProfilePic != "" && !webURLPattern.MatchString(in.ProfilePic) {
		return internal.NewValidationError("profilePic", "invalid profile picture URL")
	}
	if len(in.Links) == 0 {
		return internal.NewValidationError("links", "at least one link is required")
	}

	for i, link := range in.Links {
		field := fmt.Sprintf("links[%d]", i)
		if strings.TrimSpace(link.Title) == "" {
			return internal.NewValidationError(field, "title is required")
		}
		if strings.TrimSpace(link.URL) == "" {
			return internal.NewValidationError(field, "url is required")
		}
		if !webURLPattern.MatchString(link.URL) && !mailtoPattern.MatchString(link.URL) {
			return internal.NewValidationError(field, "must start with http(s):// or mailto:")
		}
		if strings.TrimSpace(link.Icon) == "" {
			return internal.NewValidationError(field, "icon is required")
		}
	}
	return nil
}
