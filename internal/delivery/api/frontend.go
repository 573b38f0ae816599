package api

import (
	"log/slog"
	"net/url"
	"strings"

	"accounts/config"
	"accounts/internal/delivery/api/router"
	"accounts/internal/errors"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

// skipBackend keeps the front end away from API and health routes.
func skipBackend(c echo.Context) bool {
	path := c.Request().URL.Path

	return path == "/health" || path == router.PrefixAPI || strings.HasPrefix(path, router.PrefixAPI+"/")
}

// registerFrontend serves static assets and proxies the remaining non-API
// paths to the front-end dev server. Both are optional.
func registerFrontend(e *echo.Echo, cfg *config.FrontendConfig, logger *slog.Logger) error {
	if cfg == nil {
		return nil
	}

	if cfg.StaticDir != "" {
		e.Use(echomiddleware.StaticWithConfig(echomiddleware.StaticConfig{
			Skipper: skipBackend,
			Root:    cfg.StaticDir,
			Index:   "index.html",
		}))
		logger.Info("Serving static front end", slog.String("dir", cfg.StaticDir))
	}

	if cfg.Upstream != "" {
		target, err := url.Parse(cfg.Upstream)
		if err != nil {
			return errors.Wrap(err, "invalid frontend upstream")
		}
		if target.Scheme == "" || target.Host == "" {
			return errors.Errorf("frontend upstream %q must be an absolute URL", cfg.Upstream)
		}

		e.Use(echomiddleware.ProxyWithConfig(echomiddleware.ProxyConfig{
			Skipper:  skipBackend,
			Balancer: echomiddleware.NewRoundRobinBalancer([]*echomiddleware.ProxyTarget{{URL: target}}),
		}))
		logger.Info("Proxying front end", slog.String("upstream", target.String()))
	}

	return nil
}
