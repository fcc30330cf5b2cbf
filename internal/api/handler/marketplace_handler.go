package handler

import (
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/mavuno/agrolink/internal/api/middleware"
	"github.com/mavuno/agrolink/internal/domain"
	"github.com/mavuno/agrolink/internal/service"
)

// MarketplaceHandler serves product, substitute and combined searches.
type MarketplaceHandler struct {
	svc    *service.MarketplaceService
	logger *zap.Logger
}

func NewMarketplaceHandler(svc *service.MarketplaceService, logger *zap.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{svc: svc, logger: logger}
}

// Products handles GET /api/v1/products
//
// @Summary  Find dealers stocking a product
// @Tags     marketplace
// @Produce  json
// @Param    q         query     string  true   "Product name terms, any order"
// @Param    location  query     string  false  "Farmer location"
// @Success  200       {object}  map[string]any
// @Router   /api/v1/products [get]
func (h *MarketplaceHandler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	results, err := h.svc.FindDealersWithProduct(r.Context(), q.Get("q"), q.Get("location"))
	if err != nil {
		h.fail(w, r, "product search failed", err)
		return
	}
	respondList(w, results)
}

// Substitutes handles GET /api/v1/substitutes
//
// @Summary  Ranked substitutes for an unavailable product
// @Tags     marketplace
// @Produce  json
// @Param    product  query     string  true  "Original product name"
// @Success  200      {object}  map[string]any
// @Router   /api/v1/substitutes [get]
func (h *MarketplaceHandler) Substitutes(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.FindSubstitutes(r.Context(), r.URL.Query().Get("product"))
	if err != nil {
		h.fail(w, r, "substitute search failed", err)
		return
	}
	respondList(w, results)
}

// Search handles GET /api/v1/search
//
// @Summary  Direct matches plus substitutes, filtered and sorted
// @Tags     marketplace
// @Produce  json
// @Param    q         query     string  true   "Product name terms"
// @Param    location  query     string  false  "Farmer location"
// @Param    filter    query     string  false  "all | in_stock | has_agronomist"
// @Param    sort      query     string  false  "distance | price"
// @Success  200       {object}  domain.SearchResult
// @Failure  422       {object}  map[string]string
// @Router   /api/v1/search [get]
func (h *MarketplaceHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.svc.Search(r.Context(), domain.SearchRequest{
		Query:    q.Get("q"),
		Location: q.Get("location"),
		Filter:   domain.SearchFilter(q.Get("filter")),
		Sort:     domain.SearchSort(q.Get("sort")),
	})
	if err != nil {
		h.fail(w, r, "search failed", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// DemandHeat handles GET /api/v1/demand-heat
//
// @Summary  Most searched pests and products
// @Tags     marketplace
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/demand-heat [get]
func (h *MarketplaceHandler) DemandHeat(w http.ResponseWriter, r *http.Request) {
	heat, err := h.svc.DemandHeat(r.Context())
	if err != nil {
		h.fail(w, r, "demand heat failed", err)
		return
	}
	respondList(w, heat)
}

func (h *MarketplaceHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Warn(msg,
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		zap.Error(err),
	)
	mapError(w, err)
}
