package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reseller-settlement/internal/domain/catalog"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
	"github.com/reseller-settlement/internal/settlement/service"
)

type RequestValidatorImpl struct {
	catalog catalog.Repository
	sales   ledger.SaleRepository
	logger  *slog.Logger
}

func NewRequestValidator(catalogRepo catalog.Repository, saleRepo ledger.SaleRepository, logger *slog.Logger) service.RequestValidator {
	return &RequestValidatorImpl{
		catalog: catalogRepo,
		sales:   saleRepo,
		logger:  logger,
	}
}

// ValidateSale checks the request shape, then its prices against the catalog.
// The product name is filled from the catalog when the caller left it empty.
func (v *RequestValidatorImpl) ValidateSale(ctx context.Context, request *shared.SaleRequest) error {
	if err := request.Validate(); err != nil {
		return err
	}

	product, err := v.catalog.GetByCode(ctx, request.ProductRef)
	if err != nil {
		var notFound shared.NotFoundError
		if errors.As(err, &notFound) {
			return shared.ValidationError{Field: "product_ref", Message: "unknown product " + request.ProductRef}
		}
		v.logger.Error("Failed to read product from catalog", "product_ref", request.ProductRef, "error", err)
		return fmt.Errorf("failed to read product %s: %w", request.ProductRef, err)
	}

	if err := product.CheckPricing(request); err != nil {
		v.logger.Warn("Sale price does not match catalog",
			"request_id", request.RequestID.String(),
			"product_ref", request.ProductRef,
			"amount_charged", request.AmountCharged().StringFixed(2),
			"amount_for_pool", request.AmountForPool().StringFixed(2),
		)
		return err
	}

	if request.ProductName == "" {
		request.ProductName = product.Name
	}
	return nil
}

// IsDuplicate reports whether a sale with the same external order id is already committed.
func (v *RequestValidatorImpl) IsDuplicate(ctx context.Context, request *shared.SaleRequest) (bool, error) {
	if request.ExternalOrderID == "" {
		return false, nil
	}

	exists, err := v.sales.ExistsByExternalOrderID(ctx, request.ExternalOrderID)
	if err != nil {
		v.logger.Error("Failed to check external order id", "external_order_id", request.ExternalOrderID, "error", err)
		return false, fmt.Errorf("failed to check external order id %s: %w", request.ExternalOrderID, err)
	}
	return exists, nil
}
