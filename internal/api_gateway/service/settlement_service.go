package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/platform/identity"
	"github.com/reseller-settlement/internal/platform/messaging/producers"
	settlement "github.com/reseller-settlement/internal/settlement/service"
)

// SettlementServiceImpl applies caller authorization, then delegates to the
// settlement engine (synchronous) or the sale request topic (asynchronous).
type SettlementServiceImpl struct {
	engine      settlement.Engine
	saleRepo    ledger.SaleRepository
	accountRepo account.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

func NewSettlementService(
	logger *slog.Logger,
	engine settlement.Engine,
	saleRepo ledger.SaleRepository,
	accountRepo account.Repository,
	producer producers.MessagePublisher,
) SettlementService {
	return &SettlementServiceImpl{
		engine:      engine,
		saleRepo:    saleRepo,
		accountRepo: accountRepo,
		producer:    producer,
		logger:      logger,
	}
}

// authorizePayer defaults the payer to the caller. Only administrators may charge
// another account or settle an anonymous sale against the pool alone.
func authorizePayer(caller *identity.Identity, request *shared.SaleRequest) error {
	if caller.Role == account.RoleAdministrator {
		return nil
	}
	if request.PayerID == nil {
		payer := caller.AccountID
		request.PayerID = &payer
		return nil
	}
	if *request.PayerID != caller.AccountID {
		return shared.PolicyError{Reason: "sales can only be charged to the caller's own account"}
	}
	return nil
}

func (s *SettlementServiceImpl) SettleSale(ctx context.Context, caller *identity.Identity, request *shared.SaleRequest) (*shared.SaleResult, error) {
	if err := authorizePayer(caller, request); err != nil {
		return nil, err
	}
	return s.engine.SettleSale(ctx, request)
}

// SubmitSale only checks the request shape; pricing and balances are checked
// when the processor settles it.
func (s *SettlementServiceImpl) SubmitSale(ctx context.Context, caller *identity.Identity, request *shared.SaleRequest) (uuid.UUID, error) {
	if err := authorizePayer(caller, request); err != nil {
		return uuid.Nil, err
	}
	if err := request.Validate(); err != nil {
		return uuid.Nil, err
	}

	key := request.RequestID.String()
	if err := s.producer.Publish(ctx, key, request); err != nil {
		s.logger.Error("Failed to publish sale request",
			"request_id", key,
			"product_ref", request.ProductRef,
			"error", err,
		)
		return uuid.Nil, err
	}

	s.logger.Info("Sale request published",
		"request_id", key,
		"kind", request.Kind,
		"product_ref", request.ProductRef,
		"external_order_id", request.ExternalOrderID,
	)
	return request.RequestID, nil
}

func (s *SettlementServiceImpl) Adjust(ctx context.Context, request *shared.AdjustmentRequest) (*shared.AdjustmentResult, error) {
	return s.engine.Adjust(ctx, request)
}

func (s *SettlementServiceImpl) TopUp(ctx context.Context, request *shared.TopUpRequest) (*shared.TopUpResult, error) {
	return s.engine.TopUp(ctx, request)
}

// MarkConsumed lets payers flip their own tokens; administrators and masters may
// flip any payer's tokens.
func (s *SettlementServiceImpl) MarkConsumed(ctx context.Context, caller *identity.Identity, request *shared.TokenConsumptionRequest) (*shared.TokenConsumptionResult, error) {
	if caller.Role != account.RoleAdministrator && caller.Role != account.RoleMaster {
		acc, err := s.accountRepo.GetByID(ctx, caller.AccountID)
		if err != nil {
			return nil, err
		}
		if acc.Handle != request.PayerHandle {
			return nil, shared.PolicyError{Reason: "tokens can only be consumed by their payer"}
		}
	}
	return s.engine.MarkConsumed(ctx, request)
}

func (s *SettlementServiceImpl) GetSale(ctx context.Context, id int64) (*ledger.Sale, error) {
	return s.saleRepo.GetByID(ctx, id)
}

func (s *SettlementServiceImpl) ListSales(ctx context.Context, page, perPage int) ([]*ledger.Sale, int64, error) {
	offset := (page - 1) * perPage

	sales, err := s.saleRepo.List(ctx, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.saleRepo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

func (s *SettlementServiceImpl) ListSalesByPayer(ctx context.Context, handle string, page, perPage int) ([]*ledger.Sale, error) {
	return s.saleRepo.ListByPayerHandle(ctx, handle, perPage, (page-1)*perPage)
}
