package mail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/techfemme/academy/backend/go-services/internal/config"
)

func TestSendGridSender_PostsWelcome(t *testing.T) {
	var (
		gotPath string
		gotAuth string
		body    map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendGridSender("sg-key", "Academy", "hello@example.com", srv.URL)
	require.NoError(t, s.SendWelcome(context.Background(), "ada@example.com", "Ada"))

	require.Equal(t, "/v3/mail/send", gotPath)
	require.Equal(t, "Bearer sg-key", gotAuth)
	from := body["from"].(map[string]interface{})
	require.Equal(t, "hello@example.com", from["email"])
	p := body["personalizations"].([]interface{})[0].(map[string]interface{})
	to := p["to"].([]interface{})[0].(map[string]interface{})
	require.Equal(t, "ada@example.com", to["email"])
}

func TestSendGridSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	s := NewSendGridSender("bad", "Academy", "hello@example.com", srv.URL)
	err := s.SendWelcome(context.Background(), "ada@example.com", "Ada")
	require.Error(t, err)
	require.Contains(t, err.Error(), "401")
}

func TestNewFromConfig_FallsBackToLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewFromConfig(config.SendGridConfig{}, zap.New(core))
	_, ok := s.(*LogSender)
	require.True(t, ok)

	require.NoError(t, s.SendWelcome(context.Background(), "ada@example.com", "Ada"))
	require.Equal(t, 1, logs.Len())
}
