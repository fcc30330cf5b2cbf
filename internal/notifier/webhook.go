package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mavuno/agrolink/internal/domain"
)

// WebhookNotifier POSTs a CaseSynced event to a configured URL.
// Any 2xx response counts as delivered.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
}

func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (n *WebhookNotifier) CaseSynced(ctx context.Context, c *domain.DiagnosisCase) error {
	body, err := json.Marshal(CaseSynced{
		Event:    "case.synced",
		CaseID:   c.ID,
		ClientID: c.ClientID,
		FarmerID: c.FarmerID,
		Crop:     c.Crop,
		Label:    c.Label,
		Risk:     c.Risk,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected webhook status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that WebhookNotifier implements Notifier
var _ Notifier = (*WebhookNotifier)(nil)
