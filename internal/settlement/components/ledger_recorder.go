package components

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/settlement/service"
)

// LedgerRecorderImpl writes ledger records and queues their read-model projection
// through the outbox in the same transaction.
type LedgerRecorderImpl struct {
	sales       ledger.SaleRepository
	adjustments ledger.AdjustmentRepository
	topUps      ledger.TopUpRepository
	outbox      service.OutboxManager
	logger      *slog.Logger
}

func NewLedgerRecorder(
	sales ledger.SaleRepository,
	adjustments ledger.AdjustmentRepository,
	topUps ledger.TopUpRepository,
	outboxManager service.OutboxManager,
	logger *slog.Logger,
) service.LedgerRecorder {
	return &LedgerRecorderImpl{
		sales:       sales,
		adjustments: adjustments,
		topUps:      topUps,
		outbox:      outboxManager,
		logger:      logger,
	}
}

func (r *LedgerRecorderImpl) RecordSale(ctx context.Context, tx pgx.Tx, sale *ledger.Sale) error {
	if err := r.sales.WithTx(tx).Create(ctx, sale); err != nil {
		return err
	}
	entry := ledger.EntryFromSale(sale)
	return r.outbox.Enqueue(ctx, tx, shared.EventTypeSaleSettled, entry.AggregateID(), entry)
}

func (r *LedgerRecorderImpl) RecordAdjustment(ctx context.Context, tx pgx.Tx, adjustment *ledger.Adjustment) error {
	if err := r.adjustments.WithTx(tx).Create(ctx, adjustment); err != nil {
		return err
	}
	entry := ledger.EntryFromAdjustment(adjustment)
	return r.outbox.Enqueue(ctx, tx, shared.EventTypeAdjustmentRecorded, entry.AggregateID(), entry)
}

func (r *LedgerRecorderImpl) RecordTopUp(ctx context.Context, tx pgx.Tx, topUp *ledger.TopUp) error {
	if err := r.topUps.WithTx(tx).Create(ctx, topUp); err != nil {
		return err
	}
	entry := ledger.EntryFromTopUp(topUp)
	return r.outbox.Enqueue(ctx, tx, shared.EventTypePoolToppedUp, entry.AggregateID(), entry)
}

// LockToken locks the pin row so concurrent flips of one token serialize.
func (r *LedgerRecorderImpl) LockToken(ctx context.Context, tx pgx.Tx, payerHandle, tokenKey string) (*ledger.PinRef, error) {
	return r.sales.WithTx(tx).LockPin(ctx, payerHandle, tokenKey)
}

func (r *LedgerRecorderImpl) RecordTokenConsumption(ctx context.Context, tx pgx.Tx, ref *ledger.PinRef, consumption *ledger.TokenConsumption) error {
	if err := r.sales.WithTx(tx).SetPinConsumed(ctx, ref, consumption.ConsumedAt); err != nil {
		return fmt.Errorf("failed to mark token %s of sale %d consumed: %w", ref.TokenKey, ref.SaleID, err)
	}
	aggregateID := string(shared.EntryKindSale) + ":" + strconv.FormatInt(ref.SaleID, 10)
	return r.outbox.Enqueue(ctx, tx, shared.EventTypeTokenConsumed, aggregateID, consumption)
}
