package ui

import (
	"fmt"
	"html"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const unavailablePage = `<!doctype html>
<html><head><meta charset="utf-8"><title>CPG POD Tracker</title></head>
<body><h1>CPG POD Tracker</h1><p style="color:#b00020">%s</p></body></html>`

// Unavailable serves an error page on every route when the UI is misconfigured,
// so the container keeps listening while the problem is fixed.
func Unavailable(reason string, log zerolog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{AppName: "pod-ui", DisableStartupMessage: true})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Use(func(c *fiber.Ctx) error {
		log.Warn().Str("component", "ui").Str("event", "ui_unavailable").Str("path", c.Path()).Msg(reason)
		c.Type("html", "utf-8")
		return c.Status(fiber.StatusServiceUnavailable).
			SendString(fmt.Sprintf(unavailablePage, html.EscapeString(reason)))
	})
	return app
}
