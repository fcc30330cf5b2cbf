package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mavuno/agrolink/internal/domain"
)

type pgDealerRepository struct {
	pool *pgxpool.Pool
}

// NewPgDealerRepository returns a DealerRepository backed by PostgreSQL.
func NewPgDealerRepository(pool *pgxpool.Pool) DealerRepository {
	return &pgDealerRepository{pool: pool}
}

const dealerColumns = `id, name, distance, address, phone, offers_delivery,
	has_agronomist, COALESCE(agronomist_name, ''), COALESCE(rating, 0)`

const inventoryQuery = `
	SELECT i.dealer_id, c.id, c.name, c.sku, c.active_ingredient, c.moa, c.unit,
	       c.is_biocontrol, c.is_registered, i.quantity, i.price, i.expiry_date,
	       i.group_buy_active, i.group_buy_threshold, i.group_buy_current, i.group_buy_discount_price
	FROM dealer_inventory i
	JOIN catalog_products c ON c.id = i.product_id`

func (r *pgDealerRepository) ListDealers(ctx context.Context) ([]domain.AgroDealer, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+dealerColumns+` FROM dealers ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list dealers: %w", err)
	}
	defer rows.Close()

	var dealers []domain.AgroDealer
	index := make(map[string]int)
	for rows.Next() {
		d, err := scanDealer(rows)
		if err != nil {
			return nil, err
		}
		index[d.ID] = len(dealers)
		dealers = append(dealers, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	invRows, err := r.pool.Query(ctx, inventoryQuery+` ORDER BY i.dealer_id, i.position, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer invRows.Close()

	for invRows.Next() {
		dealerID, p, err := scanInventory(invRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[dealerID]; ok {
			dealers[i].Inventory = append(dealers[i].Inventory, p)
		}
	}
	return dealers, invRows.Err()
}

func (r *pgDealerRepository) GetDealer(ctx context.Context, id string) (*domain.AgroDealer, error) {
	d, err := scanDealer(r.pool.QueryRow(ctx, `SELECT `+dealerColumns+` FROM dealers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dealer: %w", err)
	}

	rows, err := r.pool.Query(ctx, inventoryQuery+` WHERE i.dealer_id = $1 ORDER BY i.position, c.id`, id)
	if err != nil {
		return nil, fmt.Errorf("get dealer inventory: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		_, p, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		d.Inventory = append(d.Inventory, p)
	}
	return d, rows.Err()
}

func (r *pgDealerRepository) ListCatalog(ctx context.Context) ([]domain.CatalogProduct, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, sku, active_ingredient, moa, unit, is_biocontrol, is_registered
		FROM catalog_products ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var catalog []domain.CatalogProduct
	for rows.Next() {
		var c domain.CatalogProduct
		if err := rows.Scan(&c.ID, &c.Name, &c.SKU, &c.ActiveIngredient, &c.MoA, &c.Unit, &c.IsBiocontrol, &c.IsRegistered); err != nil {
			return nil, err
		}
		catalog = append(catalog, c)
	}
	return catalog, rows.Err()
}

func (r *pgDealerRepository) SaveReservation(ctx context.Context, res *domain.Reservation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reservations (code, product_id, dealer_id, created_at)
		VALUES ($1, $2, $3, $4)`,
		res.Code, res.ProductID, res.DealerID, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (r *pgDealerRepository) IncrementGroupBuy(ctx context.Context, dealerID, productID string) (*domain.GroupBuy, error) {
	var gb domain.GroupBuy
	err := r.pool.QueryRow(ctx, `
		UPDATE dealer_inventory
		SET group_buy_current = group_buy_current + 1
		WHERE dealer_id = $1 AND product_id = $2 AND group_buy_active
		RETURNING group_buy_active, group_buy_threshold, group_buy_current, group_buy_discount_price`,
		dealerID, productID,
	).Scan(&gb.IsActive, &gb.Threshold, &gb.Current, &gb.DiscountPrice)
	if err == nil {
		return &gb, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("increment group buy: %w", err)
	}

	// Distinguish an unknown product from one without a running group buy.
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM dealer_inventory WHERE dealer_id = $1 AND product_id = $2)`,
		dealerID, productID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup inventory: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrNoGroupBuy
}

func (r *pgDealerRepository) RecordSearch(ctx context.Context, term string) error {
	key := domain.SearchKey(term)
	if key == "" {
		return nil
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO search_demand (term, label, search_count, updated_at) VALUES ($1, $2, 1, $3)
		ON CONFLICT (term) DO UPDATE
		SET search_count = search_demand.search_count + 1, updated_at = EXCLUDED.updated_at`,
		key, strings.Join(strings.Fields(term), " "), time.Now().UTC())
	return err
}

func (r *pgDealerRepository) DemandHeat(ctx context.Context, limit int) ([]domain.DemandHeatItem, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT label, search_count FROM search_demand
		ORDER BY search_count DESC, term ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("demand heat: %w", err)
	}
	defer rows.Close()

	var out []domain.DemandHeatItem
	for rows.Next() {
		var h domain.DemandHeatItem
		if err := rows.Scan(&h.PestName, &h.SearchCount); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ---- helpers ----

func scanDealer(row pgx.Row) (*domain.AgroDealer, error) {
	var d domain.AgroDealer
	err := row.Scan(
		&d.ID, &d.Name, &d.Distance, &d.Address, &d.Phone, &d.OffersDelivery,
		&d.HasAgronomist, &d.AgronomistName, &d.Rating,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanInventory(row pgx.Row) (string, domain.Product, error) {
	var (
		dealerID  string
		p         domain.Product
		expiry    time.Time
		gbActive  *bool
		threshold *int
		current   *int
		discount  *float64
	)
	err := row.Scan(
		&dealerID, &p.ID, &p.Name, &p.SKU, &p.ActiveIngredient, &p.MoA, &p.Unit,
		&p.IsBiocontrol, &p.IsRegistered, &p.Quantity, &p.Price, &expiry,
		&gbActive, &threshold, &current, &discount,
	)
	if err != nil {
		return "", domain.Product{}, err
	}
	p.ExpiryDate = domain.NewDate(expiry)
	if threshold != nil {
		gb := &domain.GroupBuy{Threshold: *threshold}
		if gbActive != nil {
			gb.IsActive = *gbActive
		}
		if current != nil {
			gb.Current = *current
		}
		if discount != nil {
			gb.DiscountPrice = *discount
		}
		p.GroupBuy = gb
	}
	return dealerID, p, nil
}
