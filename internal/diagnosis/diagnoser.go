// Package diagnosis turns a crop photo into a structured diagnosis using a
// hosted vision model.
package diagnosis

import (
	"context"

	"github.com/mavuno/agrolink/internal/domain"
)

// Diagnoser identifies the pest or disease shown in an image.
type Diagnoser interface {
	Diagnose(ctx context.Context, img domain.ImageData, userQuery string) (*domain.Diagnosis, error)
}

// Unavailable is used when no model credentials are configured. Queued
// submissions stay queued until a real diagnoser is wired in.
type Unavailable struct{}

func (Unavailable) Diagnose(context.Context, domain.ImageData, string) (*domain.Diagnosis, error) {
	return nil, domain.ErrDiagnoserUnavailable
}

var _ Diagnoser = Unavailable{}
