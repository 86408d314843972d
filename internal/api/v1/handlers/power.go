// Package handlers adapts HTTP and Lambda requests to the power service
package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/celestiaorg/shelver/internal/compute"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/metrics"
	"github.com/celestiaorg/shelver/internal/services"
	"github.com/celestiaorg/shelver/internal/types"
)

// Query parameter and header names read from a request
const (
	QueryAction     = "action"
	QueryRegion     = "region"
	QueryInstanceID = "instance_id"
	QueryAPIKey     = "api_key"
	HeaderAPIKey    = "X-API-Key"
)

// Unauthorized messages
const (
	ErrMsgAPIKeyMissing = "API key not provided. Use X-API-Key header or api_key query parameter"
	ErrMsgAPIKeyInvalid = "Invalid API key"
)

// Invocation is a transport independent view of one request
type Invocation struct {
	Query   map[string]string
	Headers map[string]string
}

// Result is the status code and JSON body answered to an Invocation
type Result struct {
	StatusCode int
	Body       interface{}
}

// PowerService is the part of services.Power used by the handler
type PowerService interface {
	Execute(ctx context.Context, req services.ActionRequest) (*services.Outcome, error)
}

// PowerHandler handles start, stop and status requests
type PowerHandler struct {
	cfg     *config.Config
	service PowerService
	log     logrus.FieldLogger
	metrics *metrics.Metrics
}

// NewPowerHandler creates a new power handler. m may be nil.
func NewPowerHandler(cfg *config.Config, service PowerService, log logrus.FieldLogger, m *metrics.Metrics) *PowerHandler {
	return &PowerHandler{
		cfg:     cfg,
		service: service,
		log:     log,
		metrics: m,
	}
}

// Invoke runs one request to completion. Every failure is turned into a typed
// error body; Invoke never returns a Go error.
func (h *PowerHandler) Invoke(ctx context.Context, inv Invocation) Result {
	start := time.Now()

	res, kind := h.invoke(ctx, inv)
	h.metrics.ObserveRequest(actionLabel(inv.Query[QueryAction]), kind, time.Since(start))
	return res
}

// actionLabel bounds the metric label to the allowed actions
func actionLabel(raw string) string {
	action, err := services.ParseAction(raw)
	if err != nil {
		return "invalid"
	}
	return string(action)
}

func (h *PowerHandler) invoke(ctx context.Context, inv Invocation) (Result, string) {
	if err := h.cfg.Validate(); err != nil {
		h.log.WithError(err).Error("configuration error")
		var envErr *config.EnvError
		var missing []string
		if errors.As(err, &envErr) {
			missing = envErr.Missing
		}
		return errorResult(http.StatusInternalServerError, types.ErrConfiguration(err.Error(), missing))
	}

	if h.cfg.Policy.RequireAPIKey {
		if msg := h.checkAPIKey(inv); msg != "" {
			h.log.WithField("reason", msg).Warn("API key validation failed")
			return errorResult(http.StatusUnauthorized, types.ErrUnauthorized(msg))
		}
	}

	action, err := services.ParseAction(inv.Query[QueryAction])
	if err != nil {
		return errorResult(http.StatusBadRequest, types.ErrInvalidAction(inv.Query[QueryAction], services.AllowedActions()))
	}

	region, instanceID := h.cfg.ResolveTarget(inv.Query[QueryRegion], inv.Query[QueryInstanceID])
	outcome, err := h.service.Execute(ctx, services.ActionRequest{
		Action:     action,
		Region:     region,
		InstanceID: instanceID,
	})
	if err != nil {
		return h.classify(err, instanceID)
	}

	h.metrics.ObserveCommand(string(outcome.Command))

	body := types.PowerResponse{
		InstanceID: outcome.InstanceID,
		Message:    outcome.Message,
		FromState:  string(outcome.FromState),
	}
	if outcome.Action == services.ActionStatus {
		body.State = string(outcome.State)
	}
	return Result{StatusCode: http.StatusOK, Body: body}, "ok"
}

// checkAPIKey returns an empty string when the request carries the configured key
func (h *PowerHandler) checkAPIKey(inv Invocation) string {
	provided := lookupHeader(inv.Headers, HeaderAPIKey)
	if provided == "" {
		provided = inv.Query[QueryAPIKey]
	}
	if provided == "" {
		return ErrMsgAPIKeyMissing
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.APIKey)) != 1 {
		return ErrMsgAPIKeyInvalid
	}
	return ""
}

// classify maps a service error to its response
func (h *PowerHandler) classify(err error, instanceID string) (Result, string) {
	var (
		missingErr  *services.MissingParametersError
		stateErr    *services.InvalidStateError
		authErr     *compute.AuthError
		upstreamErr *compute.UpstreamError
	)

	switch {
	case errors.As(err, &missingErr):
		return errorResult(http.StatusBadRequest, types.ErrMissingParameters(missingErr.Missing))
	case errors.As(err, &stateErr):
		return errorResult(http.StatusBadRequest, types.ErrInvalidState(string(stateErr.State), stateErr.Error()))
	case errors.Is(err, compute.ErrInstanceNotFound):
		h.log.WithField("instance_id", instanceID).Warn("instance not found")
		return errorResult(http.StatusNotFound, types.ErrInstanceNotFound(instanceID))
	case errors.As(err, &authErr):
		h.log.WithError(err).Error("authentication failed")
		return errorResult(http.StatusInternalServerError,
			types.ErrInternal(fmt.Sprintf("AuthError: %s", authErr.Error()), authErr.Status))
	case errors.As(err, &upstreamErr):
		h.log.WithError(err).Error("compute API call failed")
		return errorResult(http.StatusInternalServerError,
			types.ErrInternal(fmt.Sprintf("UpstreamError: %s", upstreamErr.Error()), upstreamErr.Status))
	default:
		h.log.WithError(err).Error("unhandled error")
		return errorResult(http.StatusInternalServerError,
			types.ErrInternal(fmt.Sprintf("InternalError: %s", err.Error()), 0))
	}
}

func errorResult(status int, body types.ErrorResponse) (Result, string) {
	return Result{StatusCode: status, Body: body}, string(body.Error)
}

// lookupHeader finds a header value by case-insensitive name
func lookupHeader(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Handle serves the power endpoint over fiber
func (h *PowerHandler) Handle(c *fiber.Ctx) error {
	inv := Invocation{
		Query:   make(map[string]string),
		Headers: make(map[string]string),
	}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		inv.Query[string(k)] = string(v)
	})
	c.Request().Header.VisitAll(func(k, v []byte) {
		inv.Headers[string(k)] = string(v)
	})

	res := h.Invoke(c.UserContext(), inv)
	return c.Status(res.StatusCode).JSON(res.Body)
}

// HandleAPIGateway serves the power endpoint behind API Gateway
func (h *PowerHandler) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	res := h.Invoke(ctx, Invocation{
		Query:   req.QueryStringParameters,
		Headers: req.Headers,
	})
	body, status := encode(res)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{fiber.HeaderContentType: fiber.MIMEApplicationJSON},
		Body:       body,
	}, nil
}

// HandleFunctionURL serves the power endpoint behind a Lambda function URL
func (h *PowerHandler) HandleFunctionURL(ctx context.Context, req events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	res := h.Invoke(ctx, Invocation{
		Query:   req.QueryStringParameters,
		Headers: req.Headers,
	})
	body, status := encode(res)
	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{fiber.HeaderContentType: fiber.MIMEApplicationJSON},
		Body:       body,
	}, nil
}

// encode renders a Result for the Lambda responses
func encode(res Result) (string, int) {
	body, err := json.Marshal(res.Body)
	if err != nil {
		fallback, _ := json.Marshal(types.ErrInternal(fmt.Sprintf("EncodeError: %s", err.Error()), 0))
		return string(fallback), http.StatusInternalServerError
	}
	return string(body), res.StatusCode
}
