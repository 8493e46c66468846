package shared

// SaleKind discriminates the two sale request shapes
type SaleKind string

const (
	// SaleKindFlat charges the payer and the pool the same amount
	SaleKindFlat SaleKind = "FLAT"
	// SaleKindTiered charges the payer a tier price and the pool the original price
	SaleKindTiered SaleKind = "TIERED"
)

// SaleStatusCompleted is recorded when the caller does not report an upstream order status
const SaleStatusCompleted = "COMPLETED"

// AdjustmentType tags the direction of a manual balance adjustment
type AdjustmentType string

const (
	AdjustmentTypeCredit AdjustmentType = "recarga"
	AdjustmentTypeDebit  AdjustmentType = "retiro"
)

// EntryKind identifies the kind of ledger entry in the read model
type EntryKind string

const (
	EntryKindSale       EntryKind = "SALE"
	EntryKindAdjustment EntryKind = "ADJUSTMENT"
	EntryKindTopUp      EntryKind = "TOP_UP"
)

// EventType identifies settlement events written to the outbox
type EventType string

const (
	EventTypeSaleSettled        EventType = "SALE_SETTLED"
	EventTypeAdjustmentRecorded EventType = "ADJUSTMENT_RECORDED"
	EventTypePoolToppedUp       EventType = "POOL_TOPPED_UP"
	EventTypeTokenConsumed      EventType = "TOKEN_CONSUMED"
)

// FailureReason defines rejected request categories
type FailureReason string

const (
	FailureReasonInvalidRequest        FailureReason = "INVALID_REQUEST"
	FailureReasonNotFound              FailureReason = "NOT_FOUND"
	FailureReasonInsufficientFunds     FailureReason = "INSUFFICIENT_FUNDS"
	FailureReasonInsufficientPoolFunds FailureReason = "INSUFFICIENT_POOL_FUNDS"
	FailureReasonArithmetic            FailureReason = "ARITHMETIC_ERROR"
	FailureReasonPolicy                FailureReason = "POLICY_VIOLATION"
	FailureReasonDuplicate             FailureReason = "DUPLICATE_ORDER"
	FailureReasonConcurrency           FailureReason = "CONCURRENCY_CONFLICT"
	FailureReasonUnknownError          FailureReason = "UNKNOWN_ERROR"
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
