package main

import (
	"cmp"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Adhithya200503/AgentSync/internal/auth"
	"github.com/Adhithya200503/AgentSync/internal/db"
	"github.com/Adhithya200503/AgentSync/internal/geo"
	"github.com/Adhithya200503/AgentSync/internal/handler"
	"github.com/Adhithya200503/AgentSync/internal/repo"
	"github.com/Adhithya200503/AgentSync/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

type Config struct {
	Host            string
	Port            string
	DBPath          string
	BaseURL         string
	PageBaseURL     string
	UnlockBaseURL   string
	WhatsAppBaseURL string
	GeoBaseURL      string
	GeoTimeout      time.Duration
	JWTSecret       string
	LogLevel        string
	Debug           bool
}

func newConfigFromEnv() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := Config{
		Host:            cmp.Or(os.Getenv("HOST"), "localhost"),
		Port:            cmp.Or(os.Getenv("PORT"), "8080"),
		DBPath:          cmp.Or(os.Getenv("DB_PATH"), "agentsync.db"),
		BaseURL:         os.Getenv("BASE_URL"),
		PageBaseURL:     os.Getenv("FRONTEND_BASE_URL"),
		UnlockBaseURL:   os.Getenv("UNLOCK_BASE_URL"),
		WhatsAppBaseURL: cmp.Or(os.Getenv("WHATSAPP_BASE_URL"), "https://wa.me"),
		GeoBaseURL:      cmp.Or(os.Getenv("GEO_BASE_URL"), "https://ipwho.is"),
		GeoTimeout:      30 * time.Second,
		JWTSecret:       os.Getenv("JWT_SECRET"),
		LogLevel:        cmp.Or(os.Getenv("LOG_LEVEL"), "info"),
		Debug:           os.Getenv("DEBUG") == "1",
	}

	if raw := os.Getenv("GEO_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, err
		}
		cfg.GeoTimeout = d
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://" + cfg.Host + ":" + cfg.Port
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.PageBaseURL == "" {
		cfg.PageBaseURL = cfg.BaseURL
	}
	if cfg.UnlockBaseURL == "" {
		cfg.UnlockBaseURL = cfg.BaseURL + "/unlock"
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret"
		log.Warn().Msg("using default JWT secret - set JWT_SECRET for production")
	}

	return cfg, nil
}

func main() {
	cfg, err := newConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse configuration from environment")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("failed to parse log level")
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Debug {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx := context.Background()
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("application error")
	}
}

func run(ctx context.Context, cfg Config) error {
	log.Info().
		Str("version", version).
		Str("build_time", buildTime).
		Msg("starting application")

	dbInstance, err := db.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer dbInstance.Close()

	e := echo.New()
	defer e.Close()

	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	linksRepo := repo.NewLinksRepo(dbInstance)
	pagesRepo := repo.NewPagesRepo(dbInstance)
	geoClient := geo.NewClient(cfg.GeoBaseURL, cfg.GeoTimeout)

	redirectService := service.NewRedirectService(linksRepo, pagesRepo, geoClient, service.RedirectConfig{
		UnlockBaseURL:   cfg.UnlockBaseURL,
		WhatsAppBaseURL: cfg.WhatsAppBaseURL,
	})
	linkService := service.NewLinkService(linksRepo, pagesRepo, service.LinkConfig{
		BaseURL:         cfg.BaseURL,
		PageBaseURL:     cfg.PageBaseURL,
		WhatsAppBaseURL: cfg.WhatsAppBaseURL,
	})

	authenticator := auth.NewAuthenticator(cfg.JWTSecret)
	linkHandler := handler.NewLinkHandler(redirectService, linkService)

	e.POST("/create-short-url", linkHandler.CreateShortURL, auth.OptionalAuth(authenticator))
	e.POST("/link-pages", linkHandler.SaveLinkPage, auth.RequireAuth(authenticator))
	e.GET("/link-page/:username", linkHandler.GetLinkPage)

	api := e.Group("/api", auth.RequireAuth(authenticator))
	api.POST("/wa-links", linkHandler.CreateWhatsAppLink)
	api.GET("/links/:code/agents", linkHandler.ListAgents)
	api.POST("/links/:code/agents", linkHandler.AddAgent)
	api.DELETE("/links/:code/agents/:index", linkHandler.RemoveAgent)
	api.PUT("/links/:code/multi-agent", linkHandler.ToggleMultiAgent)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Parameterized redirect route (must be last)
	e.GET("/:code", linkHandler.Redirect)

	log.Info().Str("address", cfg.Port).Msg("server starting")

	runServer(ctx, e, cfg.Port)

	return nil
}

func runServer(ctx context.Context, e *echo.Echo, port string) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + port)
	}()

	<-ctx.Done()

	log.Info().Msg("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during graceful shutdown")
	}

	if err := <-serverErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("server stopped")
}

func customErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	log.Error().
		Int("code", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Err(err).
		Msg("http error")

	if c.Response().Committed {
		return
	}

	c.JSON(code, map[string]any{
		"error": message,
	})
}
