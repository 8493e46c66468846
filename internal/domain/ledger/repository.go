package ledger

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

// SaleRepository persists sales in the authoritative store
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	GetByID(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, limit, offset int) ([]*Sale, error)
	Count(ctx context.Context) (int64, error)
	ListByPayerHandle(ctx context.Context, handle string, limit, offset int) ([]*Sale, error)
	ExistsByExternalOrderID(ctx context.Context, externalOrderID string) (bool, error)

	// LockPin finds the earliest sale of payerHandle carrying tokenKey and locks that pin row
	LockPin(ctx context.Context, payerHandle, tokenKey string) (*PinRef, error)
	SetPinConsumed(ctx context.Context, ref *PinRef, consumedAt time.Time) error

	WithTx(tx pgx.Tx) SaleRepository
}

// AdjustmentRepository persists manual adjustments
type AdjustmentRepository interface {
	Create(ctx context.Context, adjustment *Adjustment) error
	WithTx(tx pgx.Tx) AdjustmentRepository
}

// TopUpRepository persists pool top-ups
type TopUpRepository interface {
	Create(ctx context.Context, topUp *TopUp) error
	WithTx(tx pgx.Tx) TopUpRepository
}

// ReadRepository is the query-side store fed by the outbox
type ReadRepository interface {
	Upsert(ctx context.Context, entry *Entry) error
	SetTokenConsumed(ctx context.Context, consumption *TokenConsumption) error
	GetByAccountHandle(ctx context.Context, handle string, limit, offset int) ([]*Entry, error)
	CountByAccountHandle(ctx context.Context, handle string) (int64, error)
	GetByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*Entry, error)
	Summarize(ctx context.Context, from, to time.Time) ([]*KindSummary, error)
}

// FailureRepository stores rejected asynchronous requests
type FailureRepository interface {
	Create(ctx context.Context, failure *Failure) error
}
