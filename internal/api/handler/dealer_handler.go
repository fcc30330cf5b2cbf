package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/mavuno/agrolink/internal/api/middleware"
	"github.com/mavuno/agrolink/internal/service"
)

// DealerHandler serves the dealer directory and the per-dealer actions:
// reservations, group buys and delivery requests.
type DealerHandler struct {
	svc    *service.MarketplaceService
	logger *zap.Logger
}

func NewDealerHandler(svc *service.MarketplaceService, logger *zap.Logger) *DealerHandler {
	return &DealerHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/dealers
//
// @Summary  All dealers with inventories
// @Tags     dealers
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/dealers [get]
func (h *DealerHandler) List(w http.ResponseWriter, r *http.Request) {
	dealers, err := h.svc.AllDealers(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dealers")
		return
	}
	respondList(w, dealers)
}

// Agronomists handles GET /api/v1/dealers/agronomists
//
// @Summary  Dealers with an on-site agronomist, best rated first
// @Tags     dealers
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/dealers/agronomists [get]
func (h *DealerHandler) Agronomists(w http.ResponseWriter, r *http.Request) {
	dealers, err := h.svc.DealersWithAgronomists(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list dealers")
		return
	}
	respondList(w, dealers)
}

// Inventory handles GET /api/v1/dealers/{id}/inventory
//
// @Summary  One dealer's inventory (empty for an unknown dealer)
// @Tags     dealers
// @Produce  json
// @Param    id   path      string  true  "Dealer ID"
// @Success  200  {object}  map[string]any
// @Router   /api/v1/dealers/{id}/inventory [get]
func (h *DealerHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.svc.DealerInventory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondList(w, inv)
}

// Reserve handles POST /api/v1/dealers/{id}/products/{productID}/reservations
//
// @Summary  Reserve an in-stock product
// @Tags     dealers
// @Produce  json
// @Param    id         path      string  true  "Dealer ID"
// @Param    productID  path      string  true  "Product ID"
// @Success  201        {object}  domain.Reservation
// @Failure  404        {object}  map[string]string
// @Failure  409        {object}  map[string]string
// @Router   /api/v1/dealers/{id}/products/{productID}/reservations [post]
func (h *DealerHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ReserveProduct(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "id"))
	if err != nil {
		h.warn(r, "reservation failed", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, res)
}

// JoinGroupBuy handles POST /api/v1/dealers/{id}/products/{productID}/group-buy
//
// @Summary  Join a dealer's group buy
// @Tags     dealers
// @Produce  json
// @Param    id         path      string  true  "Dealer ID"
// @Param    productID  path      string  true  "Product ID"
// @Success  200        {object}  domain.GroupBuyStatus
// @Failure  404        {object}  map[string]string
// @Failure  409        {object}  map[string]string
// @Router   /api/v1/dealers/{id}/products/{productID}/group-buy [post]
func (h *DealerHandler) JoinGroupBuy(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.JoinGroupBuy(r.Context(), chi.URLParam(r, "productID"), chi.URLParam(r, "id"))
	if err != nil {
		h.warn(r, "group buy join failed", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

// RequestDelivery handles POST /api/v1/dealers/{id}/delivery
//
// @Summary  Ask a rider to deliver from a dealer
// @Tags     dealers
// @Produce  json
// @Param    id   path      string  true  "Dealer ID"
// @Success  202  {object}  domain.DeliveryRequest
// @Failure  404  {object}  map[string]string
// @Failure  409  {object}  map[string]string
// @Router   /api/v1/dealers/{id}/delivery [post]
func (h *DealerHandler) RequestDelivery(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.RequestDelivery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.warn(r, "delivery request failed", err)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, req)
}

func (h *DealerHandler) warn(r *http.Request, msg string, err error) {
	h.logger.Warn(msg,
		zap.String("dealer_id", chi.URLParam(r, "id")),
		zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
		zap.Error(err),
	)
}
