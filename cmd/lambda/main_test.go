package main

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/shelver/internal/app"
	"github.com/celestiaorg/shelver/internal/config"
	"github.com/celestiaorg/shelver/internal/logger"
	"github.com/celestiaorg/shelver/test/mocks"
)

func newDispatch(t *testing.T) (func(context.Context, json.RawMessage) (interface{}, error), *mocks.OpenStackCloud) {
	t.Helper()
	cloud := mocks.NewOpenStackCloud()
	t.Cleanup(cloud.Close)

	cfg := &config.Config{
		Credentials: config.Credentials{
			AuthURL:      cloud.AuthURL(),
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
	return dispatch(app.NewPowerHandler(cfg, logger.Discard(), app.Options{}), logger.Discard()), cloud
}

func TestDispatch_APIGateway(t *testing.T) {
	fn, cloud := newDispatch(t)

	raw := json.RawMessage(`{"resource":"/","path":"/","httpMethod":"GET","queryStringParameters":{"action":"stop"},"requestContext":{"stage":"prod"}}`)
	out, err := fn(context.Background(), raw)
	require.NoError(t, err)

	resp, ok := out.(events.APIGatewayProxyResponse)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["Content-Type"])
	assert.Contains(t, resp.Body, "shelve requested from ACTIVE")
	assert.Equal(t, []string{"shelve"}, cloud.Actions())
}

func TestDispatch_FunctionURL(t *testing.T) {
	fn, cloud := newDispatch(t)
	cloud.SetStatus("SHELVED")

	raw := json.RawMessage(`{"version":"2.0","rawPath":"/","rawQueryString":"action=start","queryStringParameters":{"action":"start"},"headers":{"host":"example.lambda-url.eu-west-1.on.aws"},"requestContext":{"http":{"method":"GET","path":"/"}}}`)
	out, err := fn(context.Background(), raw)
	require.NoError(t, err)

	resp, ok := out.(events.LambdaFunctionURLResponse)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"instance_id":"`+mocks.DefaultOpenStackInstanceID+`","message":"unshelve requested","from_state":"SHELVED"}`, resp.Body)
}

func TestDispatch_EmptyEvent(t *testing.T) {
	fn, cloud := newDispatch(t)

	out, err := fn(context.Background(), json.RawMessage(`{}`))
	require.NoError(t, err)

	resp := out.(events.APIGatewayProxyResponse)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Body, `"state":"ACTIVE"`)
	assert.Empty(t, cloud.Actions())
}

func TestDispatch_MalformedEvent(t *testing.T) {
	for _, raw := range []string{`"ping"`, `[]`, `42`, `{"queryStringParameters":"action=stop"}`} {
		t.Run(raw, func(t *testing.T) {
			fn, cloud := newDispatch(t)

			out, err := fn(context.Background(), json.RawMessage(raw))
			require.NoError(t, err)

			resp, ok := out.(events.APIGatewayProxyResponse)
			require.True(t, ok)
			assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Headers["Content-Type"])

			var body map[string]interface{}
			require.NoError(t, json.Unmarshal([]byte(resp.Body), &body))
			assert.Equal(t, "internal_error", body["error"])
			assert.Contains(t, body["detail"], "InvalidEvent")
			assert.Equal(t, 0, cloud.AuthCalls())
		})
	}
}

func TestDispatch_MalformedFunctionURLEvent(t *testing.T) {
	fn, cloud := newDispatch(t)

	out, err := fn(context.Background(), json.RawMessage(`{"queryStringParameters":[1],"requestContext":{"http":{"method":"GET"}}}`))
	require.NoError(t, err)

	resp, ok := out.(events.LambdaFunctionURLResponse)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, resp.Body, `"error":"internal_error"`)
	assert.Equal(t, 0, cloud.AuthCalls())
}
