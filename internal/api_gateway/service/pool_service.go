package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
)

type PoolServiceImpl struct {
	poolRepo pool.Repository
	logger   *slog.Logger
	hashCost int
}

func NewPoolService(logger *slog.Logger, poolRepo pool.Repository) PoolService {
	return &PoolServiceImpl{
		poolRepo: poolRepo,
		logger:   logger,
		hashCost: bcrypt.DefaultCost,
	}
}

// Initialize stores the pool with bcrypt hashes of the API credentials. The
// plain credentials are never persisted.
func (s *PoolServiceImpl) Initialize(ctx context.Context, initialBalance decimal.Decimal, apiKey, apiSecret string) (*pool.Pool, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, shared.ValidationError{Field: "api_credentials", Message: "api_key and api_secret are required"}
	}

	keyHash, err := bcrypt.GenerateFromPassword([]byte(apiKey), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api key: %w", err)
	}
	secretHash, err := bcrypt.GenerateFromPassword([]byte(apiSecret), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash api secret: %w", err)
	}

	p, err := pool.NewPool(initialBalance.Round(2), string(keyHash), string(secretHash))
	if err != nil {
		return nil, err
	}
	if err := s.poolRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("Pool initialized", "balance", p.Balance.StringFixed(2))
	return p, nil
}

func (s *PoolServiceImpl) Get(ctx context.Context) (*pool.Pool, error) {
	return s.poolRepo.Get(ctx)
}
