package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/policy"
	"github.com/reseller-settlement/internal/domain/sequence"
	"github.com/reseller-settlement/internal/domain/shared"
)

// SettlementEngine validates requests, allocates ledger ids and runs every
// mutation in one serializable transaction through the TxRunner.
type SettlementEngine struct {
	txRunner  TxRunner
	sequence  sequence.Generator
	validator RequestValidator
	payers    PayerResolver
	balances  BalanceManager
	recorder  LedgerRecorder
	logger    *slog.Logger
}

func NewSettlementEngine(
	txRunner TxRunner,
	sequenceGen sequence.Generator,
	validator RequestValidator,
	payers PayerResolver,
	balances BalanceManager,
	recorder LedgerRecorder,
	logger *slog.Logger,
) *SettlementEngine {
	return &SettlementEngine{
		txRunner:  txRunner,
		sequence:  sequenceGen,
		validator: validator,
		payers:    payers,
		balances:  balances,
		recorder:  recorder,
		logger:    logger,
	}
}

var _ Engine = (*SettlementEngine)(nil)

func (e *SettlementEngine) loggerFor(correlationID string) *slog.Logger {
	if correlationID == "" {
		return e.logger
	}
	return e.logger.With("correlation_id", correlationID)
}

// nextEntryID is allocated outside the settlement transaction, so an aborted
// settlement leaves a gap instead of a reused id.
func (e *SettlementEngine) nextEntryID(ctx context.Context) (int64, error) {
	id, err := e.sequence.Next(ctx, sequence.LedgerEntries)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate ledger entry id: %w", err)
	}
	return id, nil
}

// SettleSale debits the payer (client or administrator), debits the pool by the
// original price and mirrors the new pool balance onto every intermediary.
func (e *SettlementEngine) SettleSale(ctx context.Context, request *shared.SaleRequest) (*shared.SaleResult, error) {
	logger := e.loggerFor(request.CorrelationID)

	if err := e.validator.ValidateSale(ctx, request); err != nil {
		logger.Warn("Sale request rejected", "request_id", request.RequestID.String(), "error", err)
		return nil, err
	}

	saleID, err := e.nextEntryID(ctx)
	if err != nil {
		logger.Error("Failed to allocate sale id", "request_id", request.RequestID.String(), "error", err)
		return nil, err
	}

	var result *shared.SaleResult
	err = e.txRunner.RunSerializable(ctx, func(ctx context.Context, tx pgx.Tx) error {
		payer, err := e.payers.ResolvePayer(ctx, tx, request.PayerID)
		if err != nil {
			return err
		}

		var payerBalanceAfter decimal.NullDecimal
		if payer != nil && policy.HoldsIndependentBalance(payer.Role) {
			newBalance, err := e.balances.DebitAccount(ctx, tx, payer, request.AmountCharged())
			if err != nil {
				return err
			}
			payerBalanceAfter = decimal.NewNullDecimal(newBalance)
		}

		updatedPool, synced, err := e.balances.DebitPool(ctx, tx, request.AmountForPool())
		if err != nil {
			return err
		}
		if payer != nil && policy.IsPoolMirror(payer.Role) {
			payerBalanceAfter = decimal.NewNullDecimal(updatedPool.Balance)
		}

		sale := ledger.NewSale(saleID, request, payer, payerBalanceAfter, updatedPool.Balance)
		if err := e.recorder.RecordSale(ctx, tx, sale); err != nil {
			return err
		}

		result = &shared.SaleResult{
			SaleID:               saleID,
			PayerBalanceAfter:    payerBalanceAfter,
			PoolBalanceAfter:     updatedPool.Balance,
			IntermediariesSynced: synced,
		}
		return nil
	})
	if err != nil {
		logger.Warn("Sale settlement aborted", "request_id", request.RequestID.String(), "sale_id", saleID, "error", err)
		return nil, err
	}

	logger.Info("Sale settled",
		"request_id", request.RequestID.String(),
		"sale_id", result.SaleID,
		"pool_balance_after", result.PoolBalanceAfter.StringFixed(2),
		"intermediaries_synced", result.IntermediariesSynced,
	)
	return result, nil
}

// Adjust credits or debits a client or administrator balance. An administrator
// named as counterpart funds the adjustment and is debited by the absolute amount
// before the target moves; any other counterpart, or the authorizing caller when
// none is named, is only recorded on the entry.
func (e *SettlementEngine) Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*shared.AdjustmentResult, error) {
	logger := e.loggerFor(request.CorrelationID)

	if err := request.Validate(); err != nil {
		return nil, err
	}

	adjustmentID, err := e.nextEntryID(ctx)
	if err != nil {
		logger.Error("Failed to allocate adjustment id", "account_id", request.AccountID.String(), "error", err)
		return nil, err
	}

	var result *shared.AdjustmentResult
	err = e.txRunner.RunSerializable(ctx, func(ctx context.Context, tx pgx.Tx) error {
		target, err := e.payers.ResolveAccount(ctx, tx, request.AccountID)
		if err != nil {
			return err
		}
		if !policy.HoldsIndependentBalance(target.Role) {
			return shared.PolicyError{Reason: fmt.Sprintf("%s accounts mirror the pool and cannot be adjusted", target.Role)}
		}

		counterpart, err := e.resolveCounterpart(ctx, tx, request, target)
		if err != nil {
			return err
		}

		var counterpartAfter decimal.NullDecimal
		funded := request.CounterpartID != nil && counterpart.Role == account.RoleAdministrator
		if funded {
			balanceAfter, err := e.balances.DebitAccount(ctx, tx, counterpart, request.Amount.Abs())
			if err != nil {
				return err
			}
			counterpartAfter = decimal.NewNullDecimal(balanceAfter)
		}

		previous := target.Balance
		newBalance, err := e.balances.AdjustAccount(ctx, tx, target, request.Amount)
		if err != nil {
			return err
		}

		adjustment := &ledger.Adjustment{
			ID:                 adjustmentID,
			Account:            target.Snapshot(),
			Amount:             request.Amount,
			Type:               ledger.AdjustmentTypeFor(request.Amount),
			PreviousBalance:    previous,
			NewBalance:         newBalance,
			CounterpartDebited: funded,
			CorrelationID:      request.CorrelationID,
			CreatedAt:          time.Now().UTC(),
		}
		if counterpart != nil {
			adjustment.CounterpartID = &counterpart.ID
			adjustment.CounterpartName = counterpart.Name
		}

		if err := e.recorder.RecordAdjustment(ctx, tx, adjustment); err != nil {
			return err
		}

		result = &shared.AdjustmentResult{
			TransactionID:           adjustmentID,
			AccountID:               target.ID,
			Type:                    adjustment.Type,
			PreviousBalance:         previous,
			NewBalance:              newBalance,
			CounterpartBalanceAfter: counterpartAfter,
		}
		return nil
	})
	if err != nil {
		logger.Warn("Adjustment aborted", "account_id", request.AccountID.String(), "error", err)
		return nil, err
	}

	logger.Info("Adjustment recorded",
		"transaction_id", result.TransactionID,
		"account_id", result.AccountID.String(),
		"type", result.Type,
		"new_balance", result.NewBalance.StringFixed(2),
	)
	return result, nil
}

// resolveCounterpart locks the named counterpart, falling back to the authorizer.
// It returns nil when neither is known.
func (e *SettlementEngine) resolveCounterpart(ctx context.Context, tx pgx.Tx, request *shared.AdjustmentRequest, target *account.Account) (*account.Account, error) {
	id := request.CounterpartID
	if id == nil {
		id = request.AuthorizedBy
	}
	if id == nil {
		return nil, nil
	}
	if *id == target.ID {
		return target, nil
	}
	return e.payers.ResolveAccount(ctx, tx, *id)
}

// TopUp increments the pool and every intermediary by the same amount.
func (e *SettlementEngine) TopUp(ctx context.Context, request *shared.TopUpRequest) (*shared.TopUpResult, error) {
	logger := e.loggerFor(request.CorrelationID)

	if err := request.Validate(); err != nil {
		return nil, err
	}

	topUpID, err := e.nextEntryID(ctx)
	if err != nil {
		logger.Error("Failed to allocate top-up id", "error", err)
		return nil, err
	}

	var result *shared.TopUpResult
	err = e.txRunner.RunSerializable(ctx, func(ctx context.Context, tx pgx.Tx) error {
		previous, updatedPool, credited, err := e.balances.TopUpPool(ctx, tx, request.Amount)
		if err != nil {
			return err
		}

		topUp := &ledger.TopUp{
			ID:                     topUpID,
			Amount:                 request.Amount,
			PreviousBalance:        previous,
			NewBalance:             updatedPool.Balance,
			IntermediariesCredited: credited,
			RequestedBy:            request.RequestedBy,
			CorrelationID:          request.CorrelationID,
			CreatedAt:              time.Now().UTC(),
		}
		if err := e.recorder.RecordTopUp(ctx, tx, topUp); err != nil {
			return err
		}

		result = &shared.TopUpResult{
			TopUpID:                topUpID,
			PreviousBalance:        previous,
			NewBalance:             updatedPool.Balance,
			IntermediariesCredited: credited,
		}
		return nil
	})
	if err != nil {
		logger.Warn("Pool top-up aborted", "amount", request.Amount.StringFixed(2), "error", err)
		return nil, err
	}

	logger.Info("Pool topped up",
		"top_up_id", result.TopUpID,
		"new_balance", result.NewBalance.StringFixed(2),
		"intermediaries_credited", result.IntermediariesCredited,
	)
	return result, nil
}

// MarkConsumed flips a fulfillment token from unconsumed to consumed. Repeating
// the current state is a no-op; reverting a consumed token is refused.
func (e *SettlementEngine) MarkConsumed(ctx context.Context, request *shared.TokenConsumptionRequest) (*shared.TokenConsumptionResult, error) {
	logger := e.loggerFor(request.CorrelationID)

	if err := request.Validate(); err != nil {
		return nil, err
	}

	var result *shared.TokenConsumptionResult
	err := e.txRunner.RunSerializable(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ref, err := e.recorder.LockToken(ctx, tx, request.PayerHandle, request.TokenKey)
		if err != nil {
			return err
		}

		result = &shared.TokenConsumptionResult{
			SaleID:   ref.SaleID,
			TokenKey: ref.TokenKey,
			Consumed: ref.Consumed,
		}

		switch {
		case ref.Consumed == request.Consumed:
			return nil
		case ref.Consumed && !request.Consumed:
			return shared.PolicyError{Reason: "a consumed token cannot be marked unconsumed"}
		}

		consumption := &ledger.TokenConsumption{
			SaleID:     ref.SaleID,
			TokenKey:   ref.TokenKey,
			Consumed:   true,
			ConsumedAt: time.Now().UTC(),
		}
		if err := e.recorder.RecordTokenConsumption(ctx, tx, ref, consumption); err != nil {
			return err
		}

		result.Consumed = true
		result.Changed = true
		return nil
	})
	if err != nil {
		logger.Warn("Token consumption rejected", "payer_handle", request.PayerHandle, "token_key", request.TokenKey, "error", err)
		return nil, err
	}

	logger.Info("Token consumption resolved",
		"sale_id", result.SaleID,
		"token_key", result.TokenKey,
		"changed", result.Changed,
	)
	return result, nil
}
