package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reportability-engine/internal/version"
)

// NewEcho builds the echo server: recovery and request-ID middleware,
// a liveness check, and the streaming chat endpoint. The returned *echo.Echo
// has its Server.Handler wrapped in otelhttp, so every inbound request gets
// a root span before echo's own routing and middleware run; the spans
// internal/llm/openai and internal/llm/anthropic start via tracer.Start
// become children of it rather than orphans.
func NewEcho(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", healthz)
	e.POST("/chat/stream", ChatStream(deps))

	e.Server.Handler = otelhttp.NewHandler(e, "reportability-engine")
	return e
}

func healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version.Version})
}
