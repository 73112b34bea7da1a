package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopchat/shopchat/config"
	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/llm"
	"github.com/shopchat/shopchat/internal/products"
	"github.com/shopchat/shopchat/internal/relevance"
	"github.com/shopchat/shopchat/internal/shopper"
	"github.com/shopchat/shopchat/internal/store"
	"github.com/shopchat/shopchat/internal/telemetry"
)

// Run wires the full pipeline from config and serves HTTP on cfg.General.Listen.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(telemetry.Handler()))

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()
	if cfg.Storage.Backend == "postgres" {
		if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
			return fmt.Errorf("applying migrations: %w", err)
		}
	}

	metrics := telemetry.New(prometheus.DefaultRegisterer)
	completer := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.URL, cfg.LLM.Model, cfg.LLM.MaxTokens, cfg.LLM.Timeout)
	source := products.NewClient(cfg.SerpAPI.APIKey, cfg.SerpAPI.Endpoint, cfg.SerpAPI.Engine, cfg.SerpAPI.HL, cfg.SerpAPI.GL, cfg.SerpAPI.Timeout)
	filter := relevance.New(completer, log.New(log.Writer(), "[FILTER] ", log.LstdFlags))
	evaluator := eval.New(completer, log.New(log.Writer(), "[EVAL] ", log.LstdFlags), metrics)
	orch := shopper.NewOrchestrator(source, filter, completer, evaluator, st,
		cfg.SerpAPI.Limit, log.New(log.Writer(), "[SHOP] ", log.LstdFlags), metrics)

	sh := &SearchHandler{Runner: orch}
	sh.Register(e)

	if cfg.Reevaluate.Cron != "" {
		sched := &Scheduler{
			Orch:       orch,
			Cron:       cfg.Reevaluate.Cron,
			MaxRetries: cfg.Reevaluate.MaxRetries,
			RetryDelay: cfg.Reevaluate.RetryDelay,
			Logger:     log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
			Stop:       make(chan struct{}),
		}
		sched.Start()
		defer close(sched.Stop)
	}

	return e.Start(cfg.General.Listen)
}
