package repository

import "github.com/mavuno/agrolink/internal/domain"

// SeedCatalog returns the built-in product catalog.
func SeedCatalog() []domain.CatalogProduct {
	return []domain.CatalogProduct{
		{ID: "prod-01", Name: "Mancozeb 80WP", SKU: "FNG-MANCO-80WP", ActiveIngredient: "Mancozeb", MoA: "M3", Unit: "1kg", IsRegistered: true},
		{ID: "prod-02", Name: "Agri-Thrive Fungicide", SKU: "FNG-AGTHR-500G", ActiveIngredient: "Chlorothalonil", MoA: "M5", Unit: "500g", IsRegistered: true},
		{ID: "prod-03", Name: "Copper Oxychloride", SKU: "FNG-COPPER-1KG", ActiveIngredient: "Copper Oxychloride", MoA: "M1", Unit: "1kg", IsRegistered: true},
		{ID: "prod-04", Name: "Neem Oil Biopesticide", SKU: "BIO-NEEM-1L", ActiveIngredient: "Azadirachtin", MoA: "UN", Unit: "1L", IsBiocontrol: true, IsRegistered: true},
		{ID: "prod-05", Name: "VirusResist Cassava Stems", SKU: "PLT-CAS-VR-10", ActiveIngredient: "Genetic Resistance", MoA: "N/A", Unit: "bundle", IsBiocontrol: true, IsRegistered: true},
		{ID: "prod-06", Name: "Pyrethrin Concentrate", SKU: "INS-PYR-500ML", ActiveIngredient: "Pyrethrin", MoA: "3A", Unit: "500ml", IsBiocontrol: true, IsRegistered: true},
	}
}

// SeedDealers returns the built-in dealer directory, each catalog item
// stamped with the dealer's own stock, price and expiry.
func SeedDealers() []domain.AgroDealer {
	c := SeedCatalog()
	d := domain.MustDate

	mancozebGroupBuy := c[0].Stamp(50, 1100, d("2026-10-31"))
	mancozebGroupBuy.GroupBuy = &domain.GroupBuy{IsActive: true, Threshold: 10, Current: 4, DiscountPrice: 950}

	return []domain.AgroDealer{
		{
			ID: "dealer-1", Name: "Nakuru Agrovet Supplies", Distance: 2.5,
			Address: "123 Kenyatta Ave, Nakuru", Phone: "+254 712 345 678",
			Inventory: []domain.Product{
				c[0].Stamp(25, 1200, d("2025-12-31")),
				c[1].Stamp(15, 950, d("2026-06-30")),
				c[3].Stamp(0, 2500, d("2025-08-01")),
				c[5].Stamp(18, 1800, d("2025-10-15")),
			},
			OffersDelivery: true, HasAgronomist: true, AgronomistName: "Esther Wambui", Rating: 4.8,
		},
		{
			ID: "dealer-2", Name: "GreenFarm Inputs Eldoret", Distance: 5.1,
			Address: "456 Oloo St, Eldoret", Phone: "+254 723 456 789",
			Inventory: []domain.Product{
				c[0].Stamp(0, 1150, d("2025-11-30")),
				c[2].Stamp(30, 1500, d("2026-02-28")),
				c[1].Stamp(8, 980, d("2025-07-20")),
			},
			Rating: 4.2,
		},
		{
			ID: "dealer-3", Name: "Kisumu Agro-Solutions", Distance: 8.0,
			Address: "789 Lakeside Rd, Kisumu", Phone: "+254 734 567 890",
			Inventory: []domain.Product{
				c[4].Stamp(100, 50, d("2024-12-31")),
				c[2].Stamp(12, 1450, d("2025-09-15")),
			},
			OffersDelivery: true, HasAgronomist: true, AgronomistName: "Peter Omondi", Rating: 4.5,
		},
		{
			ID: "dealer-4", Name: "FarmFirst Nanyuki", Distance: 12.3,
			Address: "321 Equator Lane, Nanyuki", Phone: "+254 745 678 901",
			Inventory: []domain.Product{
				mancozebGroupBuy,
				c[1].Stamp(2, 900, d("2024-11-30")),
			},
			OffersDelivery: true, Rating: 4.0,
		},
		{
			ID: "dealer-5", Name: "Meru Crop Experts", Distance: 4.2,
			Address: "987 Meru Bypass", Phone: "+254 756 789 012",
			Inventory: []domain.Product{
				c[1].Stamp(20, 920, d("2026-08-15")),
				c[5].Stamp(30, 1750, d("2026-01-20")),
			},
			HasAgronomist: true, AgronomistName: "Grace Kawira", Rating: 4.9,
		},
	}
}

// SeedDemandHeat is the baseline of pest searches reported before any
// searches are recorded.
func SeedDemandHeat() []domain.DemandHeatItem {
	return []domain.DemandHeatItem{
		{PestName: "Fall Armyworm", SearchCount: 142},
		{PestName: "Late Blight", SearchCount: 119},
		{PestName: "Gray Leaf Spot", SearchCount: 98},
		{PestName: "Cassava Mosaic Disease", SearchCount: 75},
		{PestName: "Nitrogen Deficiency", SearchCount: 51},
	}
}
