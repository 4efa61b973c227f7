package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-automation/internal/config"
	"go-automation/pkg/action"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSignedPost(t *testing.T) {
	var (
		gotMethod string
		gotSig    string
		gotCustom string
		gotBody   map[string]interface{}
		rawBody   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotSig = r.Header.Get(SignatureHeader)
		gotCustom = r.Header.Get("X-Team")
		rawBody, _ = io.ReadAll(r.Body)
		_ = json.Unmarshal(rawBody, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewHTTPWebhookSender(&config.Config{WebhookTimeout: time.Second, WebhookSecret: "s3cret"})
	hook := action.WebhookEffect{
		URL:     srv.URL,
		Headers: map[string]string{"X-Team": "growth"},
		Payload: map[string]interface{}{"recipientId": "r1", "campaignId": "c1"},
	}

	require.NoError(t, sender.Send(context.Background(), action.Effect{ID: "e1"}, hook))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "growth", gotCustom)
	assert.Equal(t, "r1", gotBody["recipientId"])
	assert.Equal(t, "sha256="+Sign("s3cret", rawBody), gotSig)
}

func TestWebhookUnsignedWithoutSecret(t *testing.T) {
	var gotSig string
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotMethod = r.Method
	}))
	defer srv.Close()

	sender := NewHTTPWebhookSender(&config.Config{WebhookTimeout: time.Second})
	require.NoError(t, sender.Send(context.Background(), action.Effect{ID: "e1"}, action.WebhookEffect{URL: srv.URL, Method: "put"}))
	assert.Empty(t, gotSig)
	assert.Equal(t, http.MethodPut, gotMethod)
}

func TestWebhookFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/slow" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sender := NewHTTPWebhookSender(&config.Config{WebhookTimeout: 50 * time.Millisecond})

	err := sender.Send(context.Background(), action.Effect{}, action.WebhookEffect{URL: srv.URL})
	assert.ErrorContains(t, err, "answered 500")

	err = sender.Send(context.Background(), action.Effect{}, action.WebhookEffect{URL: srv.URL + "/slow"})
	assert.Error(t, err)
}
