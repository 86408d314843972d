package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	fiber "github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/celestiaorg/shelver/internal/api/v1/handlers"
	"github.com/celestiaorg/shelver/internal/compute"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/logger"
	"github.com/celestiaorg/shelver/internal/metrics"
	"github.com/celestiaorg/shelver/internal/services"
	"github.com/celestiaorg/shelver/internal/types"
	"github.com/celestiaorg/shelver/test/mocks"
)

const testAPIKey = "k3y-for-tests"

type PowerHandlerTestSuite struct {
	suite.Suite
	cloud *mocks.OpenStackCloud
	cfg   *config.Config
}

func TestPowerHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(PowerHandlerTestSuite))
}

func (s *PowerHandlerTestSuite) SetupTest() {
	s.cloud = mocks.NewOpenStackCloud()
	s.cfg = &config.Config{
		Credentials: config.Credentials{
			AuthURL:      s.cloud.AuthURL(),
			Username:     mocks.DefaultOpenStackUsername,
			Password:     mocks.DefaultOpenStackPassword,
			ProjectID:    mocks.DefaultOpenStackProjectID,
			UserDomainID: "default",
		},
		Policy: config.Policy{
			TargetSource: config.TargetSourceQuery,
			StopPolicy:   config.StopPolicyShelve,
		},
		Region:     mocks.DefaultOpenStackRegion,
		InstanceID: mocks.DefaultOpenStackInstanceID,
	}
}

func (s *PowerHandlerTestSuite) TearDownTest() {
	s.cloud.Close()
}

func (s *PowerHandlerTestSuite) newHandler() *handlers.PowerHandler {
	identity := compute.NewIdentity(s.cfg.Credentials, nil)
	service := services.NewPowerService(identity, services.OpenStackServers(nil), s.cfg.Policy.StopPolicy, logger.Discard())
	return handlers.NewPowerHandler(s.cfg, service, logger.Discard(), metrics.New(prometheus.NewRegistry()))
}

// do sends a GET / through a fiber app and decodes the JSON body
func (s *PowerHandlerTestSuite) do(query url.Values, headers map[string]string) (int, map[string]interface{}) {
	app := fiber.New()
	app.Get("/", s.newHandler().Handle)

	req := httptest.NewRequest(http.MethodGet, "/?"+query.Encode(), nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))

	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var body map[string]interface{}
	s.Require().NoError(json.Unmarshal(raw, &body), string(raw))
	return resp.StatusCode, body
}

func actionQuery(action string) url.Values {
	q := url.Values{}
	if action != "" {
		q.Set("action", action)
	}
	return q
}

func (s *PowerHandlerTestSuite) TestStatus() {
	status, body := s.do(actionQuery(""), nil)
	s.Equal(http.StatusOK, status)
	s.Equal(map[string]interface{}{
		"instance_id": mocks.DefaultOpenStackInstanceID,
		"state":       "ACTIVE",
	}, body)

	// status is repeatable and never acts
	status, again := s.do(actionQuery("  STATUS "), nil)
	s.Equal(http.StatusOK, status)
	s.Equal(body, again)
	s.Empty(s.cloud.Actions())
	s.Equal(2, s.cloud.AuthCalls())
	s.Equal([]string{mocks.DefaultOpenStackToken, mocks.DefaultOpenStackToken}, s.cloud.ComputeAuthHeaders())
}

func (s *PowerHandlerTestSuite) TestStatusUppercasesState() {
	s.cloud.SetStatus("shutoff")

	_, body := s.do(actionQuery("status"), nil)
	s.Equal("SHUTOFF", body["state"])
}

func (s *PowerHandlerTestSuite) TestStartFromShelvedOffloaded() {
	s.cloud.SetStatus("SHELVED_OFFLOADED")

	status, body := s.do(actionQuery("start"), nil)
	s.Equal(http.StatusOK, status)
	s.Equal("unshelve requested", body["message"])
	s.Equal("SHELVED_OFFLOADED", body["from_state"])
	s.Equal([]string{"unshelve"}, s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestStartFromActive() {
	status, body := s.do(actionQuery("start"), nil)
	s.Equal(http.StatusOK, status)
	s.Equal("already active", body["message"])
	s.NotContains(body, "from_state")
	s.Empty(s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestStartFromShutoff() {
	s.cloud.SetStatus("SHUTOFF")
	s.cloud.SetActionResponse(http.StatusNoContent, "")

	status, body := s.do(actionQuery("start"), nil)
	s.Equal(http.StatusOK, status)
	s.Equal("start requested", body["message"])
	s.Equal("SHUTOFF", body["from_state"])
	s.Equal([]string{"os-start"}, s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestStopFromActive() {
	status, body := s.do(actionQuery("stop"), nil)
	s.Equal(http.StatusOK, status)
	s.Equal("shelve requested from ACTIVE", body["message"])
	s.Equal([]string{"shelve"}, s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestStopFromShelved() {
	s.cloud.SetStatus("SHELVED")

	status, body := s.do(actionQuery("stop"), nil)
	s.Equal(http.StatusOK, status)
	s.Equal("already shelved", body["message"])
	s.Empty(s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestStopFromShutoffUnderRejectPolicy() {
	s.cloud.SetStatus("SHUTOFF")
	s.cfg.Policy.StopPolicy = config.StopPolicyReject

	status, body := s.do(actionQuery("stop"), nil)
	s.Equal(http.StatusBadRequest, status)
	s.Equal(string(types.InvalidStateKind), body["error"])
	s.Equal("SHUTOFF", body["state"])
	s.Empty(s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestInvalidAction() {
	status, body := s.do(actionQuery("reboot"), nil)
	s.Equal(http.StatusBadRequest, status)
	s.Equal(string(types.InvalidActionKind), body["error"])
	s.ElementsMatch([]interface{}{"start", "stop", "status"}, body["allowed"])
	s.Equal(0, s.cloud.AuthCalls())
}

func (s *PowerHandlerTestSuite) TestMissingParameters() {
	s.cfg.Region = ""
	s.cfg.InstanceID = ""

	status, body := s.do(actionQuery("status"), nil)
	s.Equal(http.StatusBadRequest, status)
	s.Equal(string(types.MissingParametersKind), body["error"])
	s.Equal([]interface{}{"region", "instance_id"}, body["missing"])
	s.Equal(0, s.cloud.AuthCalls())
}

func (s *PowerHandlerTestSuite) TestQueryTargetOverridesEnv() {
	s.cfg.InstanceID = "some-other-instance"

	q := actionQuery("status")
	q.Set("instance_id", mocks.DefaultOpenStackInstanceID)
	q.Set("region", mocks.DefaultOpenStackRegion)
	status, body := s.do(q, nil)
	s.Equal(http.StatusOK, status)
	s.Equal(mocks.DefaultOpenStackInstanceID, body["instance_id"])
}

func (s *PowerHandlerTestSuite) TestEnvTargetSourceIgnoresQuery() {
	s.cfg.Policy.TargetSource = config.TargetSourceEnv

	q := actionQuery("status")
	q.Set("instance_id", "ignored")
	status, body := s.do(q, nil)
	s.Equal(http.StatusOK, status)
	s.Equal(mocks.DefaultOpenStackInstanceID, body["instance_id"])
}

func (s *PowerHandlerTestSuite) TestMissingConfiguration() {
	s.cfg.Credentials.Password = ""
	s.cfg.Credentials.ProjectID = ""

	status, body := s.do(actionQuery("reboot"), nil)
	s.Equal(http.StatusInternalServerError, status)
	s.Equal(string(types.ConfigurationErrorKind), body["error"])
	s.Equal([]interface{}{"OS_PASSWORD", "OS_PROJECT_ID"}, body["missing"])
	s.Contains(body["detail"], "OS_PASSWORD, OS_PROJECT_ID")
	s.Equal(0, s.cloud.AuthCalls())
}

func (s *PowerHandlerTestSuite) TestAPIKey() {
	s.cfg.Policy.RequireAPIKey = true
	s.cfg.APIKey = testAPIKey

	s.Run("header", func() {
		status, _ := s.do(actionQuery("status"), map[string]string{"x-api-key": testAPIKey})
		s.Equal(http.StatusOK, status)
	})

	s.Run("query parameter", func() {
		q := actionQuery("status")
		q.Set("api_key", testAPIKey)
		status, _ := s.do(q, nil)
		s.Equal(http.StatusOK, status)
	})

	calls := s.cloud.AuthCalls()

	s.Run("wrong key", func() {
		status, body := s.do(actionQuery("start"), map[string]string{"X-API-Key": "nope"})
		s.Equal(http.StatusUnauthorized, status)
		s.Equal(string(types.UnauthorizedKind), body["error"])
		s.Equal(handlers.ErrMsgAPIKeyInvalid, body["message"])
	})

	s.Run("absent key", func() {
		status, body := s.do(actionQuery("start"), nil)
		s.Equal(http.StatusUnauthorized, status)
		s.Equal(handlers.ErrMsgAPIKeyMissing, body["message"])
	})

	s.Run("key is case sensitive", func() {
		status, _ := s.do(actionQuery("status"), map[string]string{"X-API-Key": "K3Y-FOR-TESTS"})
		s.Equal(http.StatusUnauthorized, status)
	})

	s.Equal(calls, s.cloud.AuthCalls())
	s.Empty(s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestAPIKeyRequiredWithoutConfiguredKey() {
	s.cfg.Policy.RequireAPIKey = true

	status, body := s.do(actionQuery("status"), map[string]string{"X-API-Key": ""})
	s.Equal(http.StatusInternalServerError, status)
	s.Equal([]interface{}{"API_KEY"}, body["missing"])
}

func (s *PowerHandlerTestSuite) TestInstanceNotFound() {
	s.cloud.OmitServer()

	status, body := s.do(actionQuery("stop"), nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal(string(types.InstanceNotFoundKind), body["error"])
	s.Equal(mocks.DefaultOpenStackInstanceID, body["instance_id"])
	s.Empty(s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestUnknownInstance() {
	q := actionQuery("start")
	q.Set("instance_id", "does-not-exist")

	status, body := s.do(q, nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal("does-not-exist", body["instance_id"])
}

func (s *PowerHandlerTestSuite) TestInstanceIDStaysInOnePathSegment() {
	q := actionQuery("stop")
	q.Set("instance_id", "a/../"+mocks.DefaultOpenStackInstanceID)

	status, body := s.do(q, nil)
	s.Equal(http.StatusNotFound, status)
	s.Equal(string(types.InstanceNotFoundKind), body["error"])
	s.Empty(s.cloud.Actions())
	s.Equal([]string{"/compute/v2.1/servers/a%2F..%2F" + mocks.DefaultOpenStackInstanceID}, s.cloud.ComputePaths())
}

func (s *PowerHandlerTestSuite) TestActionFailure() {
	s.cloud.SetActionResponse(http.StatusConflict, `{"conflictingRequest": {"code": 409, "message": "Cannot 'shelve' instance while it is in task_state shelving"}}`)

	status, body := s.do(actionQuery("stop"), nil)
	s.Equal(http.StatusInternalServerError, status)
	s.Equal(string(types.InternalErrorKind), body["error"])
	s.Equal(float64(http.StatusConflict), body["upstream_status"])
	s.Contains(body["detail"], "409")
	s.Equal([]string{"shelve"}, s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestAuthenticationFailure() {
	s.cloud.SetTokenStatus(http.StatusUnauthorized)

	status, body := s.do(actionQuery("status"), nil)
	s.Equal(http.StatusInternalServerError, status)
	s.Equal(string(types.InternalErrorKind), body["error"])
	s.Equal(float64(http.StatusUnauthorized), body["upstream_status"])
	s.Contains(body["detail"], "AuthError: ")
	s.Equal(0, s.cloud.GetCalls())
}

func (s *PowerHandlerTestSuite) TestUnknownRegion() {
	q := actionQuery("status")
	q.Set("region", "BHS5")

	status, body := s.do(q, nil)
	s.Equal(http.StatusInternalServerError, status)
	s.Contains(body["detail"], "AuthError: ")
	s.NotContains(body, "upstream_status")
	s.Equal(0, s.cloud.GetCalls())
}

func (s *PowerHandlerTestSuite) TestHandleAPIGateway() {
	s.cloud.SetStatus("SHELVED")

	resp, err := s.newHandler().HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		QueryStringParameters: map[string]string{"action": "Start"},
	})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal(fiber.MIMEApplicationJSON, resp.Headers[fiber.HeaderContentType])
	s.JSONEq(`{"instance_id":"`+mocks.DefaultOpenStackInstanceID+`","message":"unshelve requested","from_state":"SHELVED"}`, resp.Body)
	s.Equal([]string{"unshelve"}, s.cloud.Actions())
}

func (s *PowerHandlerTestSuite) TestHandleAPIGatewayWithoutQuery() {
	s.cfg.Policy.RequireAPIKey = true
	s.cfg.APIKey = testAPIKey

	resp, err := s.newHandler().HandleAPIGateway(context.Background(), events.APIGatewayProxyRequest{
		Headers: map[string]string{"X-Api-Key": testAPIKey},
	})
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.JSONEq(`{"instance_id":"`+mocks.DefaultOpenStackInstanceID+`","state":"ACTIVE"}`, resp.Body)
}

func (s *PowerHandlerTestSuite) TestHandleFunctionURL() {
	resp, err := s.newHandler().HandleFunctionURL(context.Background(), events.LambdaFunctionURLRequest{
		QueryStringParameters: map[string]string{"action": "bogus"},
	})
	s.Require().NoError(err)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal(fiber.MIMEApplicationJSON, resp.Headers[fiber.HeaderContentType])
	s.Contains(resp.Body, `"invalid_action"`)
}
