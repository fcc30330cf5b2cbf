package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/api/handler"
	apimw "github.com/mavuno/agrolink/internal/api/middleware"
	"github.com/mavuno/agrolink/internal/connectivity"
	"github.com/mavuno/agrolink/internal/service"
)

// MaxBodyBytes bounds request bodies; diagnosis photos arrive base64-encoded.
const MaxBodyBytes = 8 << 20

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	market *service.MarketplaceService,
	diag *service.DiagnosisService,
	net connectivity.Checker,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(MaxBodyBytes))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	mh := handler.NewMarketplaceHandler(market, logger)
	dh := handler.NewDealerHandler(market, logger)
	sh := handler.NewSyncHandler(diag, logger)
	hh := handler.NewHealthHandler(net)

	r.Get("/health", hh.Health)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", mh.Products)
		r.Get("/substitutes", mh.Substitutes)
		r.Get("/search", mh.Search)
		r.Get("/demand-heat", mh.DemandHeat)

		// /agronomists is registered before /{id} routes so chi does not
		// read it as a dealer id.
		r.Get("/dealers", dh.List)
		r.Get("/dealers/agronomists", dh.Agronomists)
		r.Route("/dealers/{id}", func(r chi.Router) {
			r.Get("/inventory", dh.Inventory)
			r.Post("/delivery", dh.RequestDelivery)
			r.Post("/products/{productID}/reservations", dh.Reserve)
			r.Post("/products/{productID}/group-buy", dh.JoinGroupBuy)
		})

		r.Post("/diagnoses", sh.Submit)
		r.Get("/sync", sh.Status)
		r.Get("/cases", sh.ListCases)
		r.Get("/cases/{id}", sh.GetCase)
	})

	return r
}
