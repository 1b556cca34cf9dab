package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSMSClient_Publish(t *testing.T) {
	var received smsPublishRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/publish", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(smsPublishResponse{MessageID: "msg-123"})
	}))
	defer server.Close()

	client := NewSMSClient(server.URL, zap.NewNop())
	messageID, err := client.Publish(context.Background(), "env-alerts", "temperature too high", SMSSubject)

	require.NoError(t, err)
	assert.Equal(t, "msg-123", messageID)
	assert.Equal(t, "env-alerts", received.Topic)
	assert.Equal(t, "temperature too high", received.Message)
	assert.Equal(t, SMSSubject, received.Subject)
}

func TestSMSClient_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewSMSClient(server.URL, zap.NewNop())
	_, err := client.Publish(context.Background(), "env-alerts", "msg", SMSSubject)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestMailClient_Send(t *testing.T) {
	var received mailSendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/send", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mailSendResponse{MessageID: "mail-456"})
	}))
	defer server.Close()

	client := NewMailClient(server.URL, zap.NewNop())
	messageID, err := client.Send(context.Background(),
		"alerts@ecodetect.io", "ops@ecodetect.io", EmailSubject, "<html></html>", "text body")

	require.NoError(t, err)
	assert.Equal(t, "mail-456", messageID)
	assert.Equal(t, "alerts@ecodetect.io", received.Sender)
	assert.Equal(t, "ops@ecodetect.io", received.To)
	assert.Equal(t, EmailSubject, received.Subject)
	assert.Equal(t, "<html></html>", received.HTMLBody)
	assert.Equal(t, "text body", received.TextBody)
}

func TestMailClient_ApplicationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mailSendResponse{Error: "sender not verified"})
	}))
	defer server.Close()

	client := NewMailClient(server.URL, zap.NewNop())
	_, err := client.Send(context.Background(), "a@b.c", "d@e.f", "s", "h", "t")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sender not verified")
}
