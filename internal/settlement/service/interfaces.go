package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/persistence"
)

// Engine performs every balance mutation. Each call commits fully or not at all.
type Engine interface {
	SettleSale(ctx context.Context, request *shared.SaleRequest) (*shared.SaleResult, error)
	Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*shared.AdjustmentResult, error)
	TopUp(ctx context.Context, request *shared.TopUpRequest) (*shared.TopUpResult, error)
	MarkConsumed(ctx context.Context, request *shared.TokenConsumptionRequest) (*shared.TokenConsumptionResult, error)
}

// ProcessingService settles sale requests delivered asynchronously. A nil error
// means the request reached a final outcome and the message can be acknowledged.
type ProcessingService interface {
	ProcessSale(ctx context.Context, request *shared.SaleRequest) error
}

// TxRunner runs a unit of work in a retried serializable transaction
type TxRunner interface {
	RunSerializable(ctx context.Context, fn persistence.TxFunc) error
}

// RequestValidator rejects malformed or mispriced requests before any transaction opens
type RequestValidator interface {
	ValidateSale(ctx context.Context, request *shared.SaleRequest) error
	IsDuplicate(ctx context.Context, request *shared.SaleRequest) (bool, error)
}

// PayerResolver reads accounts inside the settlement transaction, holding row locks
type PayerResolver interface {
	// ResolvePayer returns nil for anonymous requests
	ResolvePayer(ctx context.Context, tx pgx.Tx, payerID *uuid.UUID) (*account.Account, error)
	ResolveAccount(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*account.Account, error)
}

// BalanceManager applies debits and credits to accounts and the pool
type BalanceManager interface {
	DebitAccount(ctx context.Context, tx pgx.Tx, acc *account.Account, amount decimal.Decimal) (decimal.Decimal, error)
	AdjustAccount(ctx context.Context, tx pgx.Tx, acc *account.Account, signedAmount decimal.Decimal) (decimal.Decimal, error)
	// DebitPool charges the pool and mirrors the new balance onto every intermediary
	DebitPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (*pool.Pool, int64, error)
	// TopUpPool credits the pool and every intermediary by amount
	TopUpPool(ctx context.Context, tx pgx.Tx, amount decimal.Decimal) (previous decimal.Decimal, updated *pool.Pool, credited int64, err error)
}

// LedgerRecorder persists immutable ledger records together with their outbox events
type LedgerRecorder interface {
	RecordSale(ctx context.Context, tx pgx.Tx, sale *ledger.Sale) error
	RecordAdjustment(ctx context.Context, tx pgx.Tx, adjustment *ledger.Adjustment) error
	RecordTopUp(ctx context.Context, tx pgx.Tx, topUp *ledger.TopUp) error
	LockToken(ctx context.Context, tx pgx.Tx, payerHandle, tokenKey string) (*ledger.PinRef, error)
	RecordTokenConsumption(ctx context.Context, tx pgx.Tx, ref *ledger.PinRef, consumption *ledger.TokenConsumption) error
}

// OutboxManager writes settlement events to the transactional outbox
type OutboxManager interface {
	Enqueue(ctx context.Context, tx pgx.Tx, eventType shared.EventType, aggregateID string, payload any) error
}

// FailureRecorder keeps a record of rejected asynchronous requests
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.SaleRequest, cause error) error
}
