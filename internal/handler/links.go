package handler

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal"
	"github.com/Adhithya200503/AgentSync/internal/auth"
	"github.com/Adhithya200503/AgentSync/internal/service"
)

type LinkHandler struct {
	redirects *service.RedirectService
	links     *service.LinkService
}

func NewLinkHandler(redirects *service.RedirectService, links *service.LinkService) *LinkHandler {
	return &LinkHandler{redirects: redirects, links: links}
}

type CreateShortURLRequest struct {
	OriginalURL string `json:"originalUrl"`
	CustomURL   string `json:"customUrl"`
	Protected   bool   `json:"protected"`
	Name        string `json:"name"`
}

type CreateShortURLResponse struct {
	ShortID  string `json:"shortId"`
	ShortURL string `json:"shortUrl"`
	QRCode   string `json:"qrcode"`
	UnlockID string `json:"unLockId,omitempty"`
	Name     string `json:"name,omitempty"`
}

func (h *LinkHandler) CreateShortURL(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateShortURLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	rec, err := h.links.CreateShortURL(ctx, service.CreateShortURLInput{
		OriginalURL: req.OriginalURL,
		CustomSlug:  req.CustomURL,
		Protected:   req.Protected,
		Name:        req.Name,
		OwnerID:     auth.UserID(c),
	})
	if err != nil {
		log.Error().Err(err).Str("customUrl", req.CustomURL).Msg("failed to create short URL")
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, CreateShortURLResponse{
		ShortID:  rec.Code,
		ShortURL: rec.ShortURL,
		QRCode:   rec.QRCode,
		UnlockID: rec.UnlockID,
		Name:     rec.Name,
	})
}

func (h *LinkHandler) Redirect(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	log.Debug().Str("code", code).Msg("redirect request")

	res, err := h.redirects.HandleRedirect(ctx, code, getClientIP(c.Request()), c.Request().UserAgent())
	if err != nil {
		log.Warn().Err(err).Str("code", code).Msg("redirect refused")
		return httpError(err)
	}

	return c.Redirect(res.Status, res.Location)
}

// httpError maps domain errors onto HTTP statuses. Unmapped errors fall
// through to the central error handler as 500s.
func httpError(err error) error {
	switch {
	case errors.Is(err, internal.ErrLinkNotFound), errors.Is(err, internal.ErrPageNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, internal.ErrLinkExpired), errors.Is(err, internal.ErrLinkInactive):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, internal.ErrSlugTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, internal.ErrUsernameTaken), errors.Is(err, internal.ErrNotOwner):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, internal.ErrAgentExists), internal.IsValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, internal.ErrQRCodeFailed):
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate QR code")
	default:
		return err
	}
}

// getClientIP extracts the client IP from the request, preferring proxy
// headers.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(first) != nil {
			return first
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
