// Package app assembles the fiber application serving the power endpoint
package app

import (
	"errors"
	"net/http"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/celestiaorg/shelver/internal/api/v1/handlers"
	"github.com/celestiaorg/shelver/internal/api/v1/middleware"
	"github.com/celestiaorg/shelver/internal/api/v1/routes"
	"github.com/celestiaorg/shelver/internal/compute"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/metrics"
	"github.com/celestiaorg/shelver/internal/services"
	"github.com/celestiaorg/shelver/internal/types"
)

// Options tune how NewPowerHandler talks to OpenStack
type Options struct {
	// HTTPClient is used for identity and compute calls. Nil uses http.DefaultClient.
	HTTPClient *http.Client
	// Metrics receives request counters. Nil disables them.
	Metrics *metrics.Metrics
}

// NewPowerHandler wires the identity client, the power service and the handler for cfg
func NewPowerHandler(cfg *config.Config, log logrus.FieldLogger, opts Options) *handlers.PowerHandler {
	identity := compute.NewIdentity(cfg.Credentials, opts.HTTPClient)
	service := services.NewPowerService(identity, services.OpenStackServers(opts.HTTPClient), cfg.Policy.StopPolicy, log)
	return handlers.NewPowerHandler(cfg, service, log, opts.Metrics)
}

// NewApp creates the fiber application. Collectors are registered with reg,
// which also backs /metrics; a nil reg disables metrics.
func NewApp(cfg *config.Config, log logrus.FieldLogger, reg *prometheus.Registry, httpClient *http.Client) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))

	opts := Options{HTTPClient: httpClient}
	var metricsHandler fiber.Handler
	if reg != nil {
		opts.Metrics = metrics.New(reg)
		metricsHandler = adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	routes.RegisterRoutes(app, NewPowerHandler(cfg, log, opts), metricsHandler)

	return app
}

// errorHandler answers fiber level failures (unknown routes, panics) with the
// same JSON error shape as the power handler
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	if code == fiber.StatusNotFound {
		return c.Status(code).JSON(types.ErrorResponse{Error: types.NotFoundKind, Message: err.Error()})
	}
	return c.Status(code).JSON(types.ErrInternal(err.Error(), 0))
}
