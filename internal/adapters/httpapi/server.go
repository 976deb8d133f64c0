package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/bnema/repo-digest-notifier/internal/application"
	"github.com/bnema/repo-digest-notifier/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	InstallPath  = "/install"
	CallbackPath = "/oauth/callback"
	HealthPath   = "/healthz"
	MetricsPath  = "/metrics"
)

// Installer drives the workspace install flow.
type Installer interface {
	Begin(ctx context.Context) (string, error)
	HandleCallback(ctx context.Context, req application.CallbackRequest) (domain.Installation, error)
}

type Options struct {
	// RateLimit is requests per second per client IP on the install routes.
	RateLimit rate.Limit
	RateBurst int
	// TrustedProxies are the peers whose X-Forwarded-For header names the
	// client. With none, the TCP peer address is used as is.
	TrustedProxies []*net.IPNet
	// Metrics serves MetricsPath when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// NewServer builds the echo instance. The rate limiter's sweeper runs
// until ctx is done.
func NewServer(ctx context.Context, installer Installer, opts Options) *echo.Echo {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = plainTextErrors
	e.IPExtractor = clientIP(opts.TrustedProxies)

	e.Use(requestLogger(logger))
	e.Use(middleware.Recover())

	limiter := NewRateLimiter(opts.RateLimit, opts.RateBurst)
	go limiter.Run(ctx)

	h := &installHandler{installer: installer, logger: logger}
	e.GET(InstallPath, h.begin, limiter.Middleware())
	e.GET(CallbackPath, h.callback, limiter.Middleware())

	e.GET(HealthPath, health)
	if opts.Metrics != nil {
		e.GET(MetricsPath, echo.WrapHandler(opts.Metrics))
	}

	return e
}

func clientIP(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, network := range trusted {
		options = append(options, echo.TrustIPRange(network))
	}
	return echo.ExtractIPFromXFFHeader(options...)
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == HealthPath || path == MetricsPath
		},
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ctx := c.Request().Context()
			if v.Error == nil {
				logger.InfoContext(ctx, "request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
				return nil
			}

			logger.WarnContext(ctx, "request failed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error.Error())
			return nil
		},
	})
}

type installHandler struct {
	installer Installer
	logger    *slog.Logger
}

func (h *installHandler) begin(c echo.Context) error {
	authorizeURL, err := h.installer.Begin(c.Request().Context())
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "start install", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Installation failed")
	}

	return c.Redirect(http.StatusFound, authorizeURL)
}

func (h *installHandler) callback(c echo.Context) error {
	req := application.CallbackRequest{
		Code:  c.QueryParam("code"),
		State: c.QueryParam("state"),
		Error: c.QueryParam("error"),
	}

	if _, err := h.installer.HandleCallback(c.Request().Context(), req); err != nil {
		return mapInstallError(err)
	}

	return c.String(http.StatusOK, "Installation successful!")
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
