package repository

import (
	"context"

	"github.com/mavuno/agrolink/internal/domain"
)

// DealerRepository is the dealer directory: dealers with their inventories,
// the canonical product catalog, and the few writes the marketplace makes.
// The pgx implementation is in pg_dealer_repo.go; the in-memory one backs
// local runs and tests.
type DealerRepository interface {
	// ListDealers returns every dealer with its full inventory, in directory order.
	ListDealers(ctx context.Context) ([]domain.AgroDealer, error)
	GetDealer(ctx context.Context, id string) (*domain.AgroDealer, error)
	// ListCatalog returns canonical product definitions in catalog order.
	ListCatalog(ctx context.Context) ([]domain.CatalogProduct, error)

	SaveReservation(ctx context.Context, r *domain.Reservation) error
	// IncrementGroupBuy adds one participant to an active group buy and
	// returns the updated record.
	IncrementGroupBuy(ctx context.Context, dealerID, productID string) (*domain.GroupBuy, error)
	RecordSearch(ctx context.Context, term string) error
	DemandHeat(ctx context.Context, limit int) ([]domain.DemandHeatItem, error)
}

// CaseRepository stores diagnosis cases created when queued submissions sync.
type CaseRepository interface {
	// Create is idempotent on ClientID: a replayed submission returns the
	// existing case instead of creating a second one.
	Create(ctx context.Context, c *domain.DiagnosisCase) (*domain.DiagnosisCase, error)
	GetByID(ctx context.Context, id string) (*domain.DiagnosisCase, error)
	List(ctx context.Context) ([]*domain.DiagnosisCase, error)
}
