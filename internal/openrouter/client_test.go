package openrouter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"advisor-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Portfolio Advisor", r.Header.Get("X-Title"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestComplete_Success(t *testing.T) {
	c := serve(t, http.StatusOK, `{"choices":[{"message":{"content":"Diversify."},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`)

	got, err := c.Complete(context.Background(), "sys", "what should I do?")
	require.NoError(t, err)
	assert.Equal(t, "Diversify.", got.Text)
	assert.Equal(t, 7, got.TokenCount)
}

func TestComplete_ErrorInBody(t *testing.T) {
	c := serve(t, http.StatusOK, `{"error":{"message":"upstream down","code":502}}`)

	_, err := c.Complete(context.Background(), "sys", "q")
	assert.ErrorIs(t, err, models.ErrBackendRequestFailed)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestComplete_BadStatus(t *testing.T) {
	c := serve(t, http.StatusUnauthorized, `nope`)

	_, err := c.Complete(context.Background(), "sys", "q")
	assert.ErrorIs(t, err, models.ErrBackendRequestFailed)
}

func TestComplete_MalformedBody(t *testing.T) {
	c := serve(t, http.StatusOK, `not json`)

	_, err := c.Complete(context.Background(), "sys", "q")
	assert.ErrorIs(t, err, models.ErrBackendResponseMalformed)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, zap.NewNop())
	assert.ErrorIs(t, err, models.ErrBackendUnavailable)
}
