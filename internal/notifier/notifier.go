package notifier

import (
	"context"

	"github.com/mavuno/agrolink/internal/domain"
)

// CaseSynced is the JSON body posted when a queued diagnosis reaches the
// backend and becomes a case.
type CaseSynced struct {
	Event    string      `json:"event"`
	CaseID   string      `json:"case_id"`
	ClientID string      `json:"client_id"`
	FarmerID string      `json:"farmer_id,omitempty"`
	Crop     string      `json:"crop"`
	Label    string      `json:"label"`
	Risk     domain.Risk `json:"risk"`
}

// Notifier tells downstream systems (expert dashboards, SMS gateways) that a
// case was synced. Mocking this interface keeps tests free of HTTP calls.
type Notifier interface {
	CaseSynced(ctx context.Context, c *domain.DiagnosisCase) error
}

// NopNotifier is used when no webhook is configured.
type NopNotifier struct{}

func (NopNotifier) CaseSynced(context.Context, *domain.DiagnosisCase) error { return nil }

var _ Notifier = NopNotifier{}
