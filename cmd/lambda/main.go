package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/celestiaorg/shelver/internal/api/v1/handlers"
	"github.com/celestiaorg/shelver/internal/app"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/logger"
	"github.com/celestiaorg/shelver/internal/types"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	h := app.NewPowerHandler(cfg, log, app.Options{})
	lambda.Start(dispatch(h, log))
}

// dispatch accepts both API Gateway proxy events and function URL events.
// Function URL events carry requestContext.http; proxy events do not.
// Events that cannot be decoded are answered with a 500 internal_error body.
func dispatch(h *handlers.PowerHandler, log logrus.FieldLogger) func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	return func(ctx context.Context, raw json.RawMessage) (interface{}, error) {
		var probe struct {
			RequestContext struct {
				HTTP *json.RawMessage `json:"http"`
			} `json:"requestContext"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return undecodable(log, "event", err), nil
		}

		if probe.RequestContext.HTTP != nil {
			var req events.LambdaFunctionURLRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				res := undecodable(log, "function URL event", err)
				return events.LambdaFunctionURLResponse{
					StatusCode: res.StatusCode,
					Headers:    res.Headers,
					Body:       res.Body,
				}, nil
			}
			return h.HandleFunctionURL(ctx, req)
		}

		var req events.APIGatewayProxyRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return undecodable(log, "API Gateway event", err), nil
		}
		return h.HandleAPIGateway(ctx, req)
	}
}

func undecodable(log logrus.FieldLogger, kind string, err error) events.APIGatewayProxyResponse {
	log.WithError(err).Errorf("failed to decode %s", kind)
	body, _ := json.Marshal(types.ErrInternal(fmt.Sprintf("InvalidEvent: failed to decode %s: %s", kind, err.Error()), 0))
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusInternalServerError,
		Headers:    map[string]string{fiber.HeaderContentType: fiber.MIMEApplicationJSON},
		Body:       string(body),
	}
}
