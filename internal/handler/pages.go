package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal"
	"github.com/Adhithya200503/AgentSync/internal/auth"
	"github.com/Adhithya200503/AgentSync/internal/service"
)

type SaveLinkPageRequest struct {
	Username   string              `json:"username"`
	Bio        string              `json:"bio"`
	ProfilePic string              `json:"profilePic"`
	Links      []internal.PageLink `json:"links"`
}

func (h *LinkHandler) SaveLinkPage(c echo.Context) error {
	ctx := c.Request().Context()

	var req SaveLinkPageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	page, err := h.links.SaveLinkPage(ctx, auth.UserID(c), service.SaveLinkPageInput{
		Username:   req.Username,
		Bio:        req.Bio,
		ProfilePic: req.ProfilePic,
		Links:      req.Links,
	})
	if err != nil {
		log.Error().Err(err).Str("username", req.Username).Msg("failed to save link page")
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":     true,
		"message":     "link page saved successfully",
		"linkPageUrl": page.PageURL,
	})
}

// GetLinkPage serves a bio-link page and counts the view. The counter
// update and stats merge commit in one transaction with the read.
func (h *LinkHandler) GetLinkPage(c echo.Context) error {
	ctx := c.Request().Context()
	username := c.Param("username")

	page, err := h.redirects.PageView(ctx, username, getClientIP(c.Request()))
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("page view failed")
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    page,
	})
}
