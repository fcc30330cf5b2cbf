package notifier_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/notifier"
)

func TestWebhookNotifier_PostsEvent(t *testing.T) {
	var got notifier.CaseSynced
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := notifier.NewWebhookNotifier(srv.URL, time.Second)
	err := n.CaseSynced(context.Background(), &domain.DiagnosisCase{
		ID: "case-1", ClientID: "client-1", Crop: "Tomato", Label: "Late Blight", Risk: domain.RiskHigh,
	})
	require.NoError(t, err)
	assert.Equal(t, "case.synced", got.Event)
	assert.Equal(t, "case-1", got.CaseID)
	assert.Equal(t, domain.RiskHigh, got.Risk)
}

func TestWebhookNotifier_RejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := notifier.NewWebhookNotifier(srv.URL, time.Second)
	err := n.CaseSynced(context.Background(), &domain.DiagnosisCase{ID: "case-1"})
	assert.ErrorContains(t, err, "502")
}
