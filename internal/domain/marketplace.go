package domain

import (
	"strings"
	"time"
)

// GroupBuy is pooled-purchase metadata attached to a dealer's product.
// The discount unlocks once Current reaches Threshold.
type GroupBuy struct {
	IsActive      bool    `json:"is_active"`
	Threshold     int     `json:"threshold"`
	Current       int     `json:"current"`
	DiscountPrice float64 `json:"discount_price"`
}

// CatalogProduct is the canonical definition of a product, before a dealer
// stamps it with price, stock and expiry.
type CatalogProduct struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SKU              string `json:"sku"`
	ActiveIngredient string `json:"active_ingredient"`
	MoA              string `json:"moa"`
	Unit             string `json:"unit"`
	IsBiocontrol     bool   `json:"is_biocontrol"`
	IsRegistered     bool   `json:"is_registered"`
}

// Product is a catalog item as held in one dealer's inventory.
// Quantity 0 means out of stock.
type Product struct {
	CatalogProduct
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	ExpiryDate Date      `json:"expiry_date"`
	GroupBuy   *GroupBuy `json:"group_buy,omitempty"`
}

// Stamp creates a dealer-owned inventory entry from a catalog definition.
func (c CatalogProduct) Stamp(quantity int, price float64, expiry Date) Product {
	return Product{CatalogProduct: c, Quantity: quantity, Price: price, ExpiryDate: expiry}
}

func (p Product) InStock() bool { return p.Quantity > 0 }

// ExpiredAt reports whether the expiry date, taken as midnight UTC, is
// earlier than now. A product is already expired during its expiry day.
func (p Product) ExpiredAt(now time.Time) bool {
	return p.ExpiryDate.Before(now)
}

// Clone returns a deep copy so the group-buy record is never shared.
func (p Product) Clone() Product {
	if p.GroupBuy != nil {
		gb := *p.GroupBuy
		p.GroupBuy = &gb
	}
	return p
}

// AgroDealer is an input supplier together with the inventory it owns.
type AgroDealer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Distance       float64   `json:"distance"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	Inventory      []Product `json:"inventory"`
	OffersDelivery bool      `json:"offers_delivery"`
	HasAgronomist  bool      `json:"has_agronomist"`
	AgronomistName string    `json:"agronomist_name,omitempty"`
	Rating         float64   `json:"rating,omitempty"`
}

// Clone deep-copies the dealer and its inventory.
func (d AgroDealer) Clone() AgroDealer {
	inv := make([]Product, len(d.Inventory))
	for i, p := range d.Inventory {
		inv[i] = p.Clone()
	}
	d.Inventory = inv
	return d
}

// Summary returns the dealer without its inventory, for embedding in results.
func (d AgroDealer) Summary() AgroDealer {
	d.Inventory = nil
	return d
}

// ProductFor returns the dealer's inventory entry for productID.
func (d AgroDealer) ProductFor(productID string) (Product, bool) {
	for _, p := range d.Inventory {
		if p.ID == productID {
			return p, true
		}
	}
	return Product{}, false
}

// ProductDealerResult joins a product with the dealer stocking it.
type ProductDealerResult struct {
	Product Product    `json:"product"`
	Dealer  AgroDealer `json:"dealer"`
}

// SearchFilter narrows a combined search result.
type SearchFilter string

const (
	FilterAll           SearchFilter = "all"
	FilterInStock       SearchFilter = "in_stock"
	FilterHasAgronomist SearchFilter = "has_agronomist"
)

func (f SearchFilter) IsValid() bool {
	switch f {
	case FilterAll, FilterInStock, FilterHasAgronomist:
		return true
	}
	return false
}

// SearchSort orders a combined search result.
type SearchSort string

const (
	SortDistance SearchSort = "distance"
	SortPrice    SearchSort = "price"
)

func (s SearchSort) IsValid() bool {
	return s == SortDistance || s == SortPrice
}

// SearchRequest is the inbound payload of a combined product search.
type SearchRequest struct {
	Query    string       `json:"query"`
	Location string       `json:"location"`
	Filter   SearchFilter `json:"filter"`
	Sort     SearchSort   `json:"sort"`
}

// Normalize fills defaults for empty or unknown filter and sort values.
func (r *SearchRequest) Normalize() {
	if !r.Filter.IsValid() {
		r.Filter = FilterAll
	}
	if !r.Sort.IsValid() {
		r.Sort = SortDistance
	}
}

// SearchResult separates direct matches from ranked substitutes and carries
// the filtered, sorted union the client renders.
type SearchResult struct {
	Direct      []ProductDealerResult `json:"direct"`
	Substitutes []ProductDealerResult `json:"substitutes"`
	Combined    []ProductDealerResult `json:"combined"`
}

// Reservation records a product held for a farmer at a dealer.
type Reservation struct {
	Code      string    `json:"reservation_code"`
	ProductID string    `json:"product_id"`
	DealerID  string    `json:"dealer_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupBuyStatus reports a group buy after a farmer joins it.
type GroupBuyStatus struct {
	ProductID     string  `json:"product_id"`
	DealerID      string  `json:"dealer_id"`
	Current       int     `json:"current"`
	Threshold     int     `json:"threshold"`
	DiscountPrice float64 `json:"discount_price"`
	Unlocked      bool    `json:"unlocked"`
}

// DeliveryRequest confirms that a rider has been asked to deliver from a dealer.
type DeliveryRequest struct {
	DealerID    string    `json:"dealer_id"`
	Message     string    `json:"message"`
	RequestedAt time.Time `json:"requested_at"`
}

// DemandHeatItem counts how often a pest or product term was searched.
type DemandHeatItem struct {
	PestName    string `json:"pest_name"`
	SearchCount int    `json:"search_count"`
}

// SearchKey folds a query into the key demand is counted under: lower case,
// with runs of whitespace collapsed to one space.
func SearchKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
