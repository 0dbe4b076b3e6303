package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DigitumDei/WellnessWingman-sub001/internal/api/handlers"
	"github.com/DigitumDei/WellnessWingman-sub001/internal/middleware"
	"github.com/DigitumDei/WellnessWingman-sub001/pkg/jwt"
)

type Config struct {
	App             *fiber.App
	CaptureHandler  handlers.CaptureHandler
	EntryHandler    handlers.EntryHandler
	SummaryHandler  handlers.SummaryHandler
	SettingsHandler handlers.SettingsHandler
	Middleware      middleware.Middleware
	JWTService      jwt.JWTService
	Metrics         prometheus.Gatherer
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.Captures()
	c.Entries()
	c.Summaries()
	c.Settings()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	if c.Metrics != nil {
		c.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(c.Metrics, promhttp.HandlerOpts{})))
	}
}

func (c *Config) Captures() {
	captures := c.App.Group("/api/v1/captures", c.Middleware.AuthMiddleware(c.JWTService))
	captures.Get("/pending", c.CaptureHandler.GetPending)
	captures.Post("/pending", c.CaptureHandler.SavePending)
	captures.Delete("/pending", c.CaptureHandler.ClearPending)
	captures.Post("/pending/finalize", c.CaptureHandler.Finalize)
	captures.Post("/upload", c.CaptureHandler.Upload)
}

func (c *Config) Entries() {
	entries := c.App.Group("/api/v1/entries", c.Middleware.AuthMiddleware(c.JWTService))
	// registered before /:id so "events" is not taken for an id
	entries.Get("/events", c.EntryHandler.Events)

	entries.Get("", c.EntryHandler.GetEntries)
	entries.Get("/:id", c.EntryHandler.GetEntry)
	entries.Patch("/:id/notes", c.EntryHandler.UpdateNotes)
	entries.Delete("/:id", c.EntryHandler.DeleteEntry)
	entries.Post("/:id/queue", c.EntryHandler.QueueEntry)
	entries.Post("/:id/retry", c.EntryHandler.RetryEntry)
	entries.Get("/:id/analysis", c.EntryHandler.GetAnalysis)
}

func (c *Config) Summaries() {
	summaries := c.App.Group("/api/v1/summaries", c.Middleware.AuthMiddleware(c.JWTService))
	summaries.Get("/:date", c.SummaryHandler.GetDailySummary)
}

func (c *Config) Settings() {
	settings := c.App.Group("/api/v1/settings", c.Middleware.AuthMiddleware(c.JWTService))
	settings.Get("/llm", c.SettingsHandler.GetLLMSettings)
	settings.Put("/llm", c.SettingsHandler.UpdateLLMSettings)
}
