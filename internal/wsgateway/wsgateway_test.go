package wsgateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainstream/streams/internal/config"
)

func wsConfig() config.WebSocket {
	return config.WebSocket{
		MaxFrameBytes:     8 * 1024 * 1024,
		HeartbeatInterval: 5 * time.Second,
		ClientTimeout:     10 * time.Second,
		ChannelCapacity:   100,
	}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestClientMessageUnmarshalsSubscribe(t *testing.T) {
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"subscribe":{"stream":"blocks.>"}}`), &msg))
	require.NotNil(t, msg.Subscribe)
	assert.Equal(t, "blocks.>", msg.Subscribe.Stream)
	assert.Nil(t, msg.Unsubscribe)
}

func TestClientMessageUnmarshalsUnsubscribe(t *testing.T) {
	var msg ClientMessage
	require.NoError(t, json.Unmarshal([]byte(`{"unsubscribe":{"stream":"transactions.>"}}`), &msg))
	require.NotNil(t, msg.Unsubscribe)
	assert.Equal(t, "transactions.>", msg.Unsubscribe.Stream)
	assert.Nil(t, msg.Subscribe)
}

func TestTopicFromBlockRoundTrips(t *testing.T) {
	height := uint64(42)
	topic := Topic{Stream: "blocks.>", FromBlock: &height}
	data, err := json.Marshal(topic)
	require.NoError(t, err)

	var out Topic
	require.NoError(t, json.Unmarshal(data, &out))
	require.NotNil(t, out.FromBlock)
	assert.Equal(t, height, *out.FromBlock)
	assert.False(t, out.Latest)
}

func TestServerMessageBuilders(t *testing.T) {
	assert.Equal(t, ServerMessage{Type: TypeSubscribed, Stream: "blocks.>"}, subscribedMsg("blocks.>"))
	assert.Equal(t, ServerMessage{Type: TypeUnsubscribed, Stream: "blocks.>"}, unsubscribedMsg("blocks.>"))
	assert.Equal(t, ServerMessage{Type: TypeError, Stream: "blocks.>", Error: "boom"}, errorMsg("blocks.>", "boom"))
}

func TestServerMessageOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(subscribedMsg("blocks.>"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"subscribed","stream":"blocks.>"}`, string(data))
}

func TestExtractAPIKeyPrefersAuthorizationHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws?api_key=from-query", nil)
	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", extractAPIKey(r))
}

func TestExtractAPIKeyFallsBackToQueryParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws?api_key=from-query", nil)
	assert.Equal(t, "from-query", extractAPIKey(r))
}

func TestExtractAPIKeyIgnoresNonBearerHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws?api_key=from-query", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	assert.Equal(t, "from-query", extractAPIKey(r))
}

func TestExtractAPIKeyEmptyWhenNeitherPresent(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	assert.Equal(t, "", extractAPIKey(r))
}

func TestGatewayRejectsMissingAPIKeyBeforeUpgrade(t *testing.T) {
	g := New(nil, nil, wsConfig(), testLogger())
	srv := httptest.NewServer(g)
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNopMetricsSatisfiesInterface(t *testing.T) {
	var m Metrics = nopMetrics{}
	m.IncSessionOpened()
	m.IncSessionClosed()
	m.IncSubscribed()
	m.IncUnsubscribed()
	m.IncDuplicateSubscription()
	m.IncBackpressureDropped()
	m.IncAuthRejected()
}
