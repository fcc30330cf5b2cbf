package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/clock"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/repository"
	"github.com/mavuno/agrolink/internal/service"
)

var today = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func newMarketplace(repo repository.DealerRepository) (*service.MarketplaceService, *clock.Fixed) {
	clk := &clock.Fixed{At: today}
	svc := service.NewMarketplaceService(repo, clk, zap.NewNop(), service.MarketplaceOptions{
		SearchLatency:     700 * time.Millisecond,
		SubstituteLatency: 500 * time.Millisecond,
	})
	return svc, clk
}

func pairs(results []domain.ProductDealerResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Dealer.ID + "/" + r.Product.ID
	}
	return out
}

func TestFindDealersWithProduct_TermsInAnyOrder(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	ctx := context.Background()

	got, err := svc.FindDealersWithProduct(ctx, "Fungicide Agri", "Nakuru")
	require.NoError(t, err)
	assert.Equal(t, []string{"dealer-1/prod-02", "dealer-2/prod-02", "dealer-4/prod-02", "dealer-5/prod-02"}, pairs(got))

	got, err = svc.FindDealersWithProduct(ctx, "Agri Thrive Miracle", "Nakuru")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindDealersWithProduct_IncludesOutOfStock(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())

	got, err := svc.FindDealersWithProduct(context.Background(), "mancozeb", "")
	require.NoError(t, err)
	require.Equal(t, []string{"dealer-1/prod-01", "dealer-2/prod-01", "dealer-4/prod-01"}, pairs(got))
	assert.Equal(t, 0, got[1].Product.Quantity)
	assert.Nil(t, got[0].Dealer.Inventory, "embedded dealer carries no inventory")
}

func TestFindDealersWithProduct_EmptyQuery(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())

	got, err := svc.FindDealersWithProduct(context.Background(), "   ", "")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindDealersWithProduct_SimulatesLatency(t *testing.T) {
	svc, clk := newMarketplace(repository.NewSeededDealerRepository())

	_, err := svc.FindDealersWithProduct(context.Background(), "copper", "")
	require.NoError(t, err)
	assert.Equal(t, 1, clk.Sleeps)
	assert.Equal(t, 700*time.Millisecond, clk.Slept)
}

func TestFindDealersWithProduct_CancelledContext(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.FindDealersWithProduct(ctx, "copper", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindDealersWithProduct_RepositoryError(t *testing.T) {
	repo := repository.NewSeededDealerRepository()
	repo.ListDealersErr = errors.New("db down")
	svc, _ := newMarketplace(repo)

	_, err := svc.FindDealersWithProduct(context.Background(), "copper", "")
	assert.ErrorContains(t, err, "db down")
}

// substituteFixture has one original product and candidates that exercise
// every ranking criterion and both exclusion rules.
func substituteFixture() *repository.MemoryDealerRepository {
	orig := domain.CatalogProduct{ID: "orig", Name: "Blight Stop 50WP", SKU: "O", ActiveIngredient: "Metalaxyl", MoA: "4"}
	bio := domain.CatalogProduct{ID: "bio", Name: "Trichoderma Guard", SKU: "B", ActiveIngredient: "Metalaxyl", MoA: "BM02", IsBiocontrol: true}
	bio2 := domain.CatalogProduct{ID: "bio2", Name: "Bacillus Shield", SKU: "B2", ActiveIngredient: "Bacillus", MoA: "4", IsBiocontrol: true}
	chem := domain.CatalogProduct{ID: "chem", Name: "Ridomil Max", SKU: "C", ActiveIngredient: "Mefenoxam", MoA: "4"}
	other := domain.CatalogProduct{ID: "other", Name: "Unrelated Foliar", SKU: "U", ActiveIngredient: "Urea", MoA: "N/A"}
	d := domain.MustDate

	dealers := []domain.AgroDealer{
		{ID: "far", Distance: 5, Inventory: []domain.Product{
			chem.Stamp(10, 100, d("2027-01-01")),
			bio.Stamp(10, 200, d("2025-12-01")),
		}},
		{ID: "near-expensive", Distance: 2, Inventory: []domain.Product{
			bio.Stamp(5, 300, d("2025-12-01")),
			orig.Stamp(0, 900, d("2026-01-01")),
		}},
		{ID: "near-cheap", Distance: 2, Inventory: []domain.Product{
			bio.Stamp(5, 250, d("2025-12-01")),
			other.Stamp(50, 10, d("2030-01-01")),
		}},
		{ID: "closest", Distance: 1, Inventory: []domain.Product{
			bio2.Stamp(0, 150, d("2030-01-01")),
			chem.Stamp(3, 90, d("2025-05-31")),
			orig.Stamp(7, 800, d("2026-01-01")),
		}},
		{ID: "fresh-bio", Distance: 9, Inventory: []domain.Product{
			bio2.Stamp(4, 400, d("2025-06-02")),
		}},
		{ID: "same-day", Distance: 0.5, Inventory: []domain.Product{
			bio.Stamp(9, 100, d("2025-06-01")),
		}},
	}
	return repository.NewMemoryDealerRepository(dealers, []domain.CatalogProduct{orig, bio, bio2, chem, other})
}

func TestFindSubstitutes_Ranking(t *testing.T) {
	svc, clk := newMarketplace(substituteFixture())

	got, err := svc.FindSubstitutes(context.Background(), "blight stop")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"near-cheap/bio",     // biocontrol, latest expiry, distance 2, price 250
		"near-expensive/bio", // same expiry and distance, price 300
		"far/bio",            // same expiry, distance 5
		"fresh-bio/bio2",     // biocontrol but earlier expiry (tomorrow)
		"far/chem",           // non-biocontrol ranks after every biocontrol despite later expiry
	}, pairs(got))
	assert.Equal(t, 500*time.Millisecond, clk.Slept)
}

func TestFindSubstitutes_ExcludesOutOfStockExpiredAndOriginal(t *testing.T) {
	svc, _ := newMarketplace(substituteFixture())

	got, err := svc.FindSubstitutes(context.Background(), "Blight")
	require.NoError(t, err)
	for _, r := range got {
		assert.NotEqual(t, "orig", r.Product.ID)
		assert.Positive(t, r.Product.Quantity)
		assert.False(t, r.Product.ExpiredAt(today), r.Product.ID)
		assert.NotEqual(t, "closest", r.Dealer.ID, "closest dealer only has excluded candidates")
	}
}

func TestFindSubstitutes_ExcludesProductOnItsExpiryDay(t *testing.T) {
	svc, _ := newMarketplace(substituteFixture())

	got, err := svc.FindSubstitutes(context.Background(), "blight")
	require.NoError(t, err)
	assert.NotContains(t, pairs(got), "same-day/bio")
}

func TestFindSubstitutes_BlankName(t *testing.T) {
	svc, _ := newMarketplace(substituteFixture())

	got, err := svc.FindSubstitutes(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindSubstitutes_UnknownProduct(t *testing.T) {
	svc, _ := newMarketplace(substituteFixture())

	got, err := svc.FindSubstitutes(context.Background(), "Miracle Grow")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRankSubstitutes_BiocontrolDominatesExpiry(t *testing.T) {
	d := domain.MustDate
	results := []domain.ProductDealerResult{
		{Product: domain.Product{CatalogProduct: domain.CatalogProduct{ID: "chem"}, ExpiryDate: d("2028-01-01")}},
		{Product: domain.Product{CatalogProduct: domain.CatalogProduct{ID: "bio", IsBiocontrol: true}, ExpiryDate: d("2025-07-01")}},
	}
	service.RankSubstitutes(results)
	assert.Equal(t, "bio", results[0].Product.ID)
}

func TestRankSubstitutes_TieBreaks(t *testing.T) {
	d := domain.MustDate
	bio := domain.CatalogProduct{IsBiocontrol: true}
	mk := func(id string, dist, price float64) domain.ProductDealerResult {
		p := bio.Stamp(1, price, d("2026-01-01"))
		p.ID = id
		return domain.ProductDealerResult{Product: p, Dealer: domain.AgroDealer{Distance: dist}}
	}
	results := []domain.ProductDealerResult{mk("far", 9, 1), mk("near-dear", 1, 500), mk("near-cheap", 1, 100)}
	service.RankSubstitutes(results)
	assert.Equal(t, []string{"near-cheap", "near-dear", "far"},
		[]string{results[0].Product.ID, results[1].Product.ID, results[2].Product.ID})
}

func TestSearch_DirectInStockSkipsSubstitutes(t *testing.T) {
	svc, clk := newMarketplace(repository.NewSeededDealerRepository())
	ctx := context.Background()

	res, err := svc.Search(ctx, domain.SearchRequest{Query: "copper"})
	require.NoError(t, err)
	assert.Equal(t, []string{"dealer-2/prod-03", "dealer-3/prod-03"}, pairs(res.Combined))
	assert.Empty(t, res.Substitutes)
	assert.Equal(t, 1, clk.Sleeps, "no substitute lookup when a direct match is in stock")

	res, err = svc.Search(ctx, domain.SearchRequest{Query: "copper", Sort: domain.SortPrice})
	require.NoError(t, err)
	assert.Equal(t, []string{"dealer-3/prod-03", "dealer-2/prod-03"}, pairs(res.Combined))

	res, err = svc.Search(ctx, domain.SearchRequest{Query: "copper", Filter: domain.FilterHasAgronomist})
	require.NoError(t, err)
	assert.Equal(t, []string{"dealer-3/prod-03"}, pairs(res.Combined))
	assert.Len(t, res.Direct, 2)
}

func TestSearch_OutOfStockFallsBackToSubstitutes(t *testing.T) {
	svc, clk := newMarketplace(substituteFixture())

	res, err := svc.Search(context.Background(), domain.SearchRequest{Query: "blight stop", Filter: domain.FilterInStock})
	require.NoError(t, err)
	// "closest" holds the original in stock, so no fallback.
	assert.Equal(t, 1, clk.Sleeps)
	assert.Equal(t, []string{"closest/orig"}, pairs(res.Combined))

	repo := repository.NewSeededDealerRepository()
	svc, clk = newMarketplace(repo)
	res, err = svc.Search(context.Background(), domain.SearchRequest{Query: "neem", Filter: "bogus"})
	require.NoError(t, err)
	assert.Equal(t, 2, clk.Sleeps, "substitute lookup runs when nothing is in stock")
	assert.Equal(t, []string{"dealer-1/prod-04"}, pairs(res.Combined))

	res, err = svc.Search(context.Background(), domain.SearchRequest{Query: "neem", Filter: domain.FilterInStock})
	require.NoError(t, err)
	assert.Empty(t, res.Combined)
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	_, err := svc.Search(context.Background(), domain.SearchRequest{Query: " "})
	assert.ErrorIs(t, err, domain.ErrInvalidQuery)
}

func TestSearch_ObservesHook(t *testing.T) {
	kinds := map[string]int{}
	svc := service.NewMarketplaceService(repository.NewSeededDealerRepository(), &clock.Fixed{At: today}, zap.NewNop(),
		service.MarketplaceOptions{OnSearch: func(kind string, n int) { kinds[kind] += n }})
	ctx := context.Background()

	_, err := svc.Search(ctx, domain.SearchRequest{Query: "copper"})
	require.NoError(t, err)
	_, err = svc.FindDealersWithProduct(ctx, "mancozeb", "")
	require.NoError(t, err)

	assert.Equal(t, 2, kinds[service.KindSearch])
	assert.Equal(t, 3, kinds[service.KindProducts])
}

func TestDemandHeat_CountsSearches(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	ctx := context.Background()

	_, err := svc.FindDealersWithProduct(ctx, "Fall Armyworm", "")
	require.NoError(t, err)

	heat, err := svc.DemandHeat(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, heat)
	assert.Equal(t, domain.DemandHeatItem{PestName: "Fall Armyworm", SearchCount: 143}, heat[0])
}

func TestDemandHeat_OneHitPerQueryOnEveryLookup(t *testing.T) {
	svc, _ := newMarketplace(repository.NewMemoryDealerRepository(repository.SeedDealers(), repository.SeedCatalog()))
	ctx := context.Background()

	_, err := svc.FindDealersWithProduct(ctx, "agri fungicide", "")
	require.NoError(t, err)
	_, err = svc.FindSubstitutes(ctx, "Agri")
	require.NoError(t, err)
	_, err = svc.Search(ctx, domain.SearchRequest{Query: "AGRI  Fungicide"})
	require.NoError(t, err)

	heat, err := svc.DemandHeat(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.DemandHeatItem{
		{PestName: "agri fungicide", SearchCount: 2},
		{PestName: "Agri", SearchCount: 1},
	}, heat)
}

func TestDealerQueries(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	ctx := context.Background()

	all, err := svc.AllDealers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	agro, err := svc.DealersWithAgronomists(ctx)
	require.NoError(t, err)
	ids := make([]string, len(agro))
	for i, d := range agro {
		ids[i] = d.ID
	}
	assert.Equal(t, []string{"dealer-5", "dealer-1", "dealer-3"}, ids)

	inv, err := svc.DealerInventory(ctx, "dealer-3")
	require.NoError(t, err)
	assert.Len(t, inv, 2)

	inv, err = svc.DealerInventory(ctx, "dealer-404")
	require.NoError(t, err)
	assert.Empty(t, inv)
}

func TestReserveProduct(t *testing.T) {
	repo := repository.NewSeededDealerRepository()
	svc, _ := newMarketplace(repo)
	ctx := context.Background()

	res, err := svc.ReserveProduct(ctx, "prod-01", "dealer-1")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^MVNO-[A-Z0-9]{6}$`), res.Code)
	assert.Equal(t, today, res.CreatedAt)
	saved, ok := repo.Reservation(res.Code)
	require.True(t, ok)
	assert.Equal(t, "prod-01", saved.ProductID)

	_, err = svc.ReserveProduct(ctx, "prod-01", "dealer-2")
	assert.ErrorIs(t, err, domain.ErrOutOfStock)

	_, err = svc.ReserveProduct(ctx, "prod-05", "dealer-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.ReserveProduct(ctx, "prod-01", "dealer-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJoinGroupBuy(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	ctx := context.Background()

	status, err := svc.JoinGroupBuy(ctx, "prod-01", "dealer-4")
	require.NoError(t, err)
	assert.Equal(t, 5, status.Current)
	assert.False(t, status.Unlocked)

	for i := 0; i < 5; i++ {
		status, err = svc.JoinGroupBuy(ctx, "prod-01", "dealer-4")
		require.NoError(t, err)
	}
	assert.Equal(t, 10, status.Current)
	assert.True(t, status.Unlocked)
	assert.Equal(t, 950.0, status.DiscountPrice)

	_, err = svc.JoinGroupBuy(ctx, "prod-01", "dealer-1")
	assert.ErrorIs(t, err, domain.ErrNoGroupBuy)
}

func TestRequestDelivery(t *testing.T) {
	svc, _ := newMarketplace(repository.NewSeededDealerRepository())
	ctx := context.Background()

	req, err := svc.RequestDelivery(ctx, "dealer-1")
	require.NoError(t, err)
	assert.Equal(t, "dealer-1", req.DealerID)
	assert.Contains(t, req.Message, "Boda rider")

	_, err = svc.RequestDelivery(ctx, "dealer-2")
	assert.ErrorIs(t, err, domain.ErrNoDelivery)

	_, err = svc.RequestDelivery(ctx, "dealer-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
