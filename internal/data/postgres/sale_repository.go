package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/persistence"
)

const saleColumns = `id, kind, payer_id, payer_handle, payer_name, payer_email, payer_role, payer_tier,
	quantity, product_ref, product_name, amount_charged, amount_for_pool, payer_balance_after,
	pool_balance_after, status, external_order_id, correlation_id, created_at`

// pinTokenKeyConstraint makes every token key identify a single pin
const pinTokenKeyConstraint = "sale_pins_token_key"

// SaleRepository implements ledger.SaleRepository. Sales and their pins are
// append-only; only the consumed flag of a pin is ever updated.
type SaleRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewSaleRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.SaleRepository {
	return &SaleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *SaleRepository) WithTx(tx pgx.Tx) ledger.SaleRepository {
	return &SaleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the sale row followed by one row per pin, in request order.
func (r *SaleRepository) Create(ctx context.Context, sale *ledger.Sale) error {
	query := `
		INSERT INTO sales (` + saleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	var (
		payerID                         *uuid.UUID
		handle, name, email, role, tier string
	)
	if sale.Payer != nil {
		id := sale.Payer.ID
		payerID = &id
		handle, name, email = sale.Payer.Handle, sale.Payer.Name, sale.Payer.Email
		role, tier = string(sale.Payer.Role), string(sale.Payer.Tier)
	}

	_, err := r.querier.Exec(ctx, query,
		sale.ID,
		sale.Kind,
		payerID,
		handle,
		name,
		email,
		role,
		tier,
		sale.Quantity,
		sale.ProductRef,
		sale.ProductName,
		sale.AmountCharged,
		sale.AmountForPool,
		sale.PayerBalanceAfter,
		sale.PoolBalanceAfter,
		sale.Status,
		sale.ExternalOrderID,
		sale.CorrelationID,
		sale.CreatedAt,
	)
	if err != nil {
		if constraint, ok := persistence.UniqueViolation(err); ok && constraint == "sales_external_order_id_key" {
			return shared.ConflictError{Entity: "sale", Field: "external_order_id", Value: sale.ExternalOrderID}
		}
		r.logger.Error("Failed to create sale", "sale_id", sale.ID, "error", err)
		return fmt.Errorf("failed to create sale: %w", err)
	}

	pinQuery := `
		INSERT INTO sale_pins (sale_id, position, serial, token_key, consumed, consumed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, pin := range sale.Pins {
		if _, err := r.querier.Exec(ctx, pinQuery, sale.ID, i, pin.Serial, pin.Key, pin.Consumed, pin.ConsumedAt); err != nil {
			if constraint, ok := persistence.UniqueViolation(err); ok && constraint == pinTokenKeyConstraint {
				return shared.ConflictError{Entity: "token", Field: "token_key", Value: pin.Key}
			}
			r.logger.Error("Failed to create sale pin", "sale_id", sale.ID, "position", i, "error", err)
			return fmt.Errorf("failed to create sale pin: %w", err)
		}
	}

	return nil
}

// GetByID retrieves a sale with its pins
func (r *SaleRepository) GetByID(ctx context.Context, id int64) (*ledger.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	sale, err := scanSale(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "sale", Key: fmt.Sprint(id)}
		}
		r.logger.Error("Failed to get sale", "sale_id", id, "error", err)
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	if err := r.attachPins(ctx, []*ledger.Sale{sale}); err != nil {
		return nil, err
	}

	return sale, nil
}

// List returns sales newest first
func (r *SaleRepository) List(ctx context.Context, limit, offset int) ([]*ledger.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

// ListByPayerHandle returns the sales paid by handle, newest first
func (r *SaleRepository) ListByPayerHandle(ctx context.Context, handle string, limit, offset int) ([]*ledger.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE payer_handle = $1
		ORDER BY id DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, handle, limit, offset)
}

func (r *SaleRepository) list(ctx context.Context, query string, args ...interface{}) ([]*ledger.Sale, error) {
	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list sales", "error", err)
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]*ledger.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			r.logger.Error("Failed to scan sale", "error", err)
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over sales", "error", err)
		return nil, fmt.Errorf("error iterating over sales: %w", err)
	}
	rows.Close()

	if err := r.attachPins(ctx, sales); err != nil {
		return nil, err
	}

	return sales, nil
}

func (r *SaleRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM sales`).Scan(&count); err != nil {
		r.logger.Error("Failed to count sales", "error", err)
		return 0, fmt.Errorf("failed to count sales: %w", err)
	}
	return count, nil
}

// ExistsByExternalOrderID reports whether a sale already carries the order id.
// An empty id never matches.
func (r *SaleRepository) ExistsByExternalOrderID(ctx context.Context, externalOrderID string) (bool, error) {
	if externalOrderID == "" {
		return false, nil
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sales WHERE external_order_id = $1)`
	if err := r.querier.QueryRow(ctx, query, externalOrderID).Scan(&exists); err != nil {
		r.logger.Error("Failed to check external order id", "external_order_id", externalOrderID, "error", err)
		return false, fmt.Errorf("failed to check external order id: %w", err)
	}
	return exists, nil
}

// LockPin locks the pin carrying tokenKey when it belongs to a sale paid by payerHandle
func (r *SaleRepository) LockPin(ctx context.Context, payerHandle, tokenKey string) (*ledger.PinRef, error) {
	query := `
		SELECT p.sale_id, p.position, p.token_key, p.consumed
		FROM sale_pins p
		JOIN sales s ON s.id = p.sale_id
		WHERE s.payer_handle = $1 AND p.token_key = $2
		FOR UPDATE OF p
	`

	var ref ledger.PinRef
	err := r.querier.QueryRow(ctx, query, payerHandle, tokenKey).Scan(
		&ref.SaleID,
		&ref.Position,
		&ref.TokenKey,
		&ref.Consumed,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Entity: "token", Key: payerHandle + "/" + tokenKey}
		}
		r.logger.Error("Failed to lock sale pin", "payer_handle", payerHandle, "error", err)
		return nil, fmt.Errorf("failed to lock sale pin: %w", err)
	}

	return &ref, nil
}

// SetPinConsumed flips the pin to consumed. The row trigger rejects any reset.
func (r *SaleRepository) SetPinConsumed(ctx context.Context, ref *ledger.PinRef, consumedAt time.Time) error {
	query := `
		UPDATE sale_pins
		SET consumed = TRUE, consumed_at = $1
		WHERE sale_id = $2 AND position = $3
	`

	result, err := r.querier.Exec(ctx, query, consumedAt, ref.SaleID, ref.Position)
	if err != nil {
		r.logger.Error("Failed to mark pin consumed", "sale_id", ref.SaleID, "position", ref.Position, "error", err)
		return fmt.Errorf("failed to mark pin consumed: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Entity: "token", Key: ref.TokenKey}
	}

	return nil
}

func (r *SaleRepository) attachPins(ctx context.Context, sales []*ledger.Sale) error {
	if len(sales) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(sales))
	byID := make(map[int64]*ledger.Sale, len(sales))
	for _, sale := range sales {
		ids = append(ids, sale.ID)
		byID[sale.ID] = sale
		sale.Pins = make([]ledger.Pin, 0)
	}

	query := `
		SELECT sale_id, serial, token_key, consumed, consumed_at
		FROM sale_pins
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to load sale pins", "error", err)
		return fmt.Errorf("failed to load sale pins: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			saleID int64
			pin    ledger.Pin
		)
		if err := rows.Scan(&saleID, &pin.Serial, &pin.Key, &pin.Consumed, &pin.ConsumedAt); err != nil {
			r.logger.Error("Failed to scan sale pin", "error", err)
			return fmt.Errorf("failed to scan sale pin: %w", err)
		}
		if sale, ok := byID[saleID]; ok {
			sale.Pins = append(sale.Pins, pin)
		}
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Error iterating over sale pins", "error", err)
		return fmt.Errorf("error iterating over sale pins: %w", err)
	}

	return nil
}

func scanSale(row pgx.Row) (*ledger.Sale, error) {
	var (
		sale                            ledger.Sale
		payerID                         *uuid.UUID
		handle, name, email, role, tier string
	)
	err := row.Scan(
		&sale.ID,
		&sale.Kind,
		&payerID,
		&handle,
		&name,
		&email,
		&role,
		&tier,
		&sale.Quantity,
		&sale.ProductRef,
		&sale.ProductName,
		&sale.AmountCharged,
		&sale.AmountForPool,
		&sale.PayerBalanceAfter,
		&sale.PoolBalanceAfter,
		&sale.Status,
		&sale.ExternalOrderID,
		&sale.CorrelationID,
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if payerID != nil {
		sale.Payer = &account.Snapshot{
			ID:     *payerID,
			Handle: handle,
			Name:   name,
			Email:  email,
			Role:   account.Role(role),
			Tier:   account.Tier(tier),
		}
	}

	return &sale, nil
}
