package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/clock"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/repository"
)

const (
	reservationPrefix = "MVNO-"
	demandHeatLimit   = 10
	deliveryMessage   = "A local Boda rider has been notified and will contact you shortly via SMS to confirm delivery."
)

// Search kinds reported to the OnSearch hook.
const (
	KindProducts    = "products"
	KindSubstitutes = "substitutes"
	KindSearch      = "search"
)

// MarketplaceOptions tunes the simulated backend latency and carries the
// optional metric hook.
type MarketplaceOptions struct {
	SearchLatency     time.Duration
	SubstituteLatency time.Duration
	OnSearch          func(kind string, results int)
}

// MarketplaceService matches farmer searches against dealer inventories and
// ranks substitutes for products that are unavailable. Lookups never write
// to the directory except for demand counters, reservations and group buys.
type MarketplaceService struct {
	repo   repository.DealerRepository
	clock  clock.Clock
	logger *zap.Logger
	opts   MarketplaceOptions
}

func NewMarketplaceService(
	repo repository.DealerRepository,
	clk clock.Clock,
	logger *zap.Logger,
	opts MarketplaceOptions,
) *MarketplaceService {
	return &MarketplaceService{repo: repo, clock: clk, logger: logger, opts: opts}
}

// FindDealersWithProduct returns every {product, dealer} pair whose product
// name contains all query terms, in directory order. Out-of-stock matches
// are included; location is only logged.
func (s *MarketplaceService) FindDealersWithProduct(ctx context.Context, query, location string) ([]domain.ProductDealerResult, error) {
	s.logger.Debug("product search", zap.String("query", query), zap.String("location", location))

	results, err := s.findDirect(ctx, query)
	if err != nil {
		return nil, err
	}
	s.recordSearch(ctx, query)
	s.observe(KindProducts, len(results))
	return results, nil
}

func (s *MarketplaceService) findDirect(ctx context.Context, query string) ([]domain.ProductDealerResult, error) {
	if err := s.clock.Sleep(ctx, s.opts.SearchLatency); err != nil {
		return nil, err
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []domain.ProductDealerResult{}, nil
	}

	dealers, err := s.repo.ListDealers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dealers: %w", err)
	}

	results := []domain.ProductDealerResult{}
	for _, d := range dealers {
		for _, p := range d.Inventory {
			if matchesAll(p.Name, terms) {
				results = append(results, domain.ProductDealerResult{Product: p, Dealer: d.Summary()})
			}
		}
	}
	return results, nil
}

func matchesAll(name string, terms []string) bool {
	name = strings.ToLower(name)
	for _, t := range terms {
		if !strings.Contains(name, t) {
			return false
		}
	}
	return true
}

// FindSubstitutes resolves originalName against the catalog and returns
// in-stock, unexpired products sharing its active ingredient or mode of
// action, ranked: biocontrol first, then later expiry, then nearer dealer,
// then lower price. A blank name yields no substitutes.
func (s *MarketplaceService) FindSubstitutes(ctx context.Context, originalName string) ([]domain.ProductDealerResult, error) {
	results, err := s.findSubstitutes(ctx, originalName)
	if err != nil {
		return nil, err
	}
	s.recordSearch(ctx, originalName)
	s.observe(KindSubstitutes, len(results))
	return results, nil
}

func (s *MarketplaceService) findSubstitutes(ctx context.Context, originalName string) ([]domain.ProductDealerResult, error) {
	if err := s.clock.Sleep(ctx, s.opts.SubstituteLatency); err != nil {
		return nil, err
	}

	results := []domain.ProductDealerResult{}
	needle := strings.ToLower(strings.TrimSpace(originalName))
	if needle == "" {
		return results, nil
	}

	catalog, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	original, ok := resolveCatalog(catalog, needle)
	if !ok {
		return results, nil
	}

	dealers, err := s.repo.ListDealers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dealers: %w", err)
	}

	now := s.clock.Now()
	for _, d := range dealers {
		for _, p := range d.Inventory {
			if p.ID == original.ID {
				continue
			}
			if p.ActiveIngredient != original.ActiveIngredient && p.MoA != original.MoA {
				continue
			}
			if !p.InStock() || p.ExpiredAt(now) {
				continue
			}
			results = append(results, domain.ProductDealerResult{Product: p, Dealer: d.Summary()})
		}
	}

	RankSubstitutes(results)
	return results, nil
}

// resolveCatalog returns the first catalog entry whose name contains needle.
func resolveCatalog(catalog []domain.CatalogProduct, needle string) (domain.CatalogProduct, bool) {
	for _, c := range catalog {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			return c, true
		}
	}
	return domain.CatalogProduct{}, false
}

// RankSubstitutes sorts candidates in place. The sort is stable, so fully
// tied candidates keep directory order.
func RankSubstitutes(results []domain.ProductDealerResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Product.IsBiocontrol != b.Product.IsBiocontrol {
			return a.Product.IsBiocontrol
		}
		if !a.Product.ExpiryDate.Equal(b.Product.ExpiryDate.Time) {
			return a.Product.ExpiryDate.After(b.Product.ExpiryDate.Time)
		}
		if a.Dealer.Distance != b.Dealer.Distance {
			return a.Dealer.Distance < b.Dealer.Distance
		}
		return a.Product.Price < b.Product.Price
	})
}

// Search runs a direct lookup and, only when none of the direct matches is
// in stock, a substitute lookup for the same query. Combined is the union
// narrowed by the filter and stably sorted. The query counts as one search.
func (s *MarketplaceService) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error) {
	req.Normalize()
	if strings.TrimSpace(req.Query) == "" {
		return nil, domain.ErrInvalidQuery
	}
	s.logger.Debug("combined search",
		zap.String("query", req.Query), zap.String("location", req.Location),
		zap.String("filter", string(req.Filter)), zap.String("sort", string(req.Sort)))

	direct, err := s.findDirect(ctx, req.Query)
	if err != nil {
		return nil, err
	}
	s.recordSearch(ctx, req.Query)

	substitutes := []domain.ProductDealerResult{}
	if !anyInStock(direct) {
		substitutes, err = s.findSubstitutes(ctx, req.Query)
		if err != nil {
			return nil, err
		}
	}

	combined := make([]domain.ProductDealerResult, 0, len(direct)+len(substitutes))
	for _, r := range append(append([]domain.ProductDealerResult(nil), direct...), substitutes...) {
		if keep(r, req.Filter) {
			combined = append(combined, r)
		}
	}
	sortCombined(combined, req.Sort)

	s.observe(KindSearch, len(combined))
	return &domain.SearchResult{Direct: direct, Substitutes: substitutes, Combined: combined}, nil
}

func anyInStock(results []domain.ProductDealerResult) bool {
	for _, r := range results {
		if r.Product.InStock() {
			return true
		}
	}
	return false
}

func keep(r domain.ProductDealerResult, f domain.SearchFilter) bool {
	switch f {
	case domain.FilterInStock:
		return r.Product.InStock()
	case domain.FilterHasAgronomist:
		return r.Dealer.HasAgronomist
	default:
		return true
	}
}

func sortCombined(results []domain.ProductDealerResult, by domain.SearchSort) {
	sort.SliceStable(results, func(i, j int) bool {
		if by == domain.SortPrice {
			return results[i].Product.Price < results[j].Product.Price
		}
		return results[i].Dealer.Distance < results[j].Dealer.Distance
	})
}

// DealerInventory returns one dealer's inventory; an unknown dealer has none.
func (s *MarketplaceService) DealerInventory(ctx context.Context, dealerID string) ([]domain.Product, error) {
	d, err := s.repo.GetDealer(ctx, dealerID)
	if errors.Is(err, domain.ErrNotFound) {
		return []domain.Product{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get dealer: %w", err)
	}
	if d.Inventory == nil {
		return []domain.Product{}, nil
	}
	return d.Inventory, nil
}

func (s *MarketplaceService) AllDealers(ctx context.Context) ([]domain.AgroDealer, error) {
	dealers, err := s.repo.ListDealers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dealers: %w", err)
	}
	return dealers, nil
}

// DealersWithAgronomists returns dealers with an on-site agronomist, best
// rated first.
func (s *MarketplaceService) DealersWithAgronomists(ctx context.Context) ([]domain.AgroDealer, error) {
	dealers, err := s.AllDealers(ctx)
	if err != nil {
		return nil, err
	}
	out := []domain.AgroDealer{}
	for _, d := range dealers {
		if d.HasAgronomist {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (s *MarketplaceService) DemandHeat(ctx context.Context) ([]domain.DemandHeatItem, error) {
	heat, err := s.repo.DemandHeat(ctx, demandHeatLimit)
	if err != nil {
		return nil, fmt.Errorf("demand heat: %w", err)
	}
	return heat, nil
}

// ReserveProduct holds an in-stock product at a dealer and returns the
// reservation code the farmer shows at the counter.
func (s *MarketplaceService) ReserveProduct(ctx context.Context, productID, dealerID string) (*domain.Reservation, error) {
	d, err := s.repo.GetDealer(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	p, ok := d.ProductFor(productID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !p.InStock() {
		return nil, domain.ErrOutOfStock
	}

	res := &domain.Reservation{
		Code:      newReservationCode(),
		ProductID: productID,
		DealerID:  dealerID,
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.SaveReservation(ctx, res); err != nil {
		return nil, fmt.Errorf("save reservation: %w", err)
	}

	s.logger.Info("product reserved",
		zap.String("code", res.Code), zap.String("product_id", productID), zap.String("dealer_id", dealerID))
	return res, nil
}

// newReservationCode yields MVNO- followed by six upper-case alphanumerics.
func newReservationCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return reservationPrefix + strings.ToUpper(id[:6])
}

// JoinGroupBuy adds the farmer to a dealer's running group buy.
func (s *MarketplaceService) JoinGroupBuy(ctx context.Context, productID, dealerID string) (*domain.GroupBuyStatus, error) {
	gb, err := s.repo.IncrementGroupBuy(ctx, dealerID, productID)
	if err != nil {
		return nil, err
	}

	status := &domain.GroupBuyStatus{
		ProductID:     productID,
		DealerID:      dealerID,
		Current:       gb.Current,
		Threshold:     gb.Threshold,
		DiscountPrice: gb.DiscountPrice,
		Unlocked:      gb.Current >= gb.Threshold,
	}
	s.logger.Info("group buy joined",
		zap.String("product_id", productID), zap.String("dealer_id", dealerID),
		zap.Int("current", gb.Current), zap.Int("threshold", gb.Threshold))
	return status, nil
}

// RequestDelivery asks a rider to deliver from a dealer that offers it.
func (s *MarketplaceService) RequestDelivery(ctx context.Context, dealerID string) (*domain.DeliveryRequest, error) {
	d, err := s.repo.GetDealer(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	if !d.OffersDelivery {
		return nil, domain.ErrNoDelivery
	}
	return &domain.DeliveryRequest{
		DealerID:    dealerID,
		Message:     deliveryMessage,
		RequestedAt: s.clock.Now(),
	}, nil
}

// recordSearch feeds the demand heat map with one hit for the whole query,
// counted case-insensitively. A failed write never fails the search.
func (s *MarketplaceService) recordSearch(ctx context.Context, query string) {
	if err := s.repo.RecordSearch(ctx, query); err != nil {
		s.logger.Warn("record search", zap.String("query", query), zap.Error(err))
	}
}

func (s *MarketplaceService) observe(kind string, n int) {
	if s.opts.OnSearch != nil {
		s.opts.OnSearch(kind, n)
	}
}
