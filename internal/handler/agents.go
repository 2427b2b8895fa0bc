package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal"
	"github.com/Adhithya200503/AgentSync/internal/auth"
	"github.com/Adhithya200503/AgentSync/internal/service"
)

type CreateWhatsAppLinkRequest struct {
	Phone        string `json:"phone"`
	Message      string `json:"message"`
	Duration     string `json:"duration"`
	CustomDomain string `json:"customDomain"`
	Name         string `json:"name"`
	Email        string `json:"email"`
}

type CreateWhatsAppLinkResponse struct {
	ShortURL string               `json:"shortUrl"`
	Link     *internal.LinkRecord `json:"link"`
}

func (h *LinkHandler) CreateWhatsAppLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateWhatsAppLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	rec, err := h.links.CreateWhatsAppLink(ctx, service.CreateWhatsAppLinkInput{
		Phone:      req.Phone,
		Message:    req.Message,
		Duration:   req.Duration,
		CustomSlug: req.CustomDomain,
		OwnerID:    auth.UserID(c),
		OwnerName:  req.Name,
		OwnerEmail: req.Email,
	})
	if err != nil {
		log.Error().Err(err).Str("customDomain", req.CustomDomain).Msg("failed to create WhatsApp link")
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, CreateWhatsAppLinkResponse{
		ShortURL: rec.ShortURL,
		Link:     rec,
	})
}

type AddAgentRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	AgentUID string `json:"agentUid"`
}

func (h *LinkHandler) AddAgent(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	var req AddAgentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	agent, err := h.links.AddAgent(ctx, auth.UserID(c), code, service.AddAgentInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Message:  req.Message,
		AgentUID: req.AgentUID,
	})
	if err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to add agent")
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"message": "agent added successfully",
		"agent":   agent,
	})
}

func (h *LinkHandler) RemoveAgent(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid agent index")
	}

	if err := h.links.RemoveAgent(ctx, auth.UserID(c), code, index); err != nil {
		log.Error().Err(err).Str("code", code).Int("index", index).Msg("failed to remove agent")
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "agent removed"})
}

func (h *LinkHandler) ListAgents(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	agents, multiAgent, err := h.links.ListAgents(ctx, auth.UserID(c), code)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"multiAgentEnabled": multiAgent,
		"agents":            agents,
	})
}

type ToggleMultiAgentRequest struct {
	MultiAgentEnabled *bool `json:"multiAgentEnabled"`
}

func (h *LinkHandler) ToggleMultiAgent(c echo.Context) error {
	ctx := c.Request().Context()
	code := c.Param("code")

	var req ToggleMultiAgentRequest
	if err := c.Bind(&req); err != nil || req.MultiAgentEnabled == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multiAgentEnabled must be a boolean")
	}

	if err := h.links.SetMultiAgent(ctx, auth.UserID(c), code, *req.MultiAgentEnabled); err != nil {
		log.Error().Err(err).Str("code", code).Msg("failed to toggle multi-agent routing")
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success":           true,
		"multiAgentEnabled": *req.MultiAgentEnabled,
	})
}
