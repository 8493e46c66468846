package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/reseller-settlement/internal/domain/account"
	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/pool"
	"github.com/reseller-settlement/internal/domain/shared"
)

type ReportServiceImpl struct {
	readRepo    ledger.ReadRepository
	accountRepo account.Repository
	poolRepo    pool.Repository
	logger      *slog.Logger
}

func NewReportService(logger *slog.Logger, readRepo ledger.ReadRepository, accountRepo account.Repository, poolRepo pool.Repository) ReportService {
	return &ReportServiceImpl{
		readRepo:    readRepo,
		accountRepo: accountRepo,
		poolRepo:    poolRepo,
		logger:      logger,
	}
}

func checkRange(from, to time.Time) error {
	if !from.Before(to) {
		return shared.ValidationError{Field: "from", Message: "must be before to"}
	}
	return nil
}

func (s *ReportServiceImpl) EntriesByHandle(ctx context.Context, handle string, page, perPage int) ([]*ledger.Entry, int64, error) {
	entries, err := s.readRepo.GetByAccountHandle(ctx, handle, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.readRepo.CountByAccountHandle(ctx, handle)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *ReportServiceImpl) EntriesByRange(ctx context.Context, from, to time.Time, page, perPage int) ([]*ledger.Entry, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.readRepo.GetByTimeRange(ctx, from, to, perPage, (page-1)*perPage)
}

func (s *ReportServiceImpl) Summary(ctx context.Context, from, to time.Time) ([]*ledger.KindSummary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	return s.readRepo.Summarize(ctx, from, to)
}

// Overview runs the aggregate, the role counts and the pool read concurrently.
// A missing pool is reported as nil rather than failing the overview.
func (s *ReportServiceImpl) Overview(ctx context.Context, from, to time.Time) (*Overview, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}

	overview := &Overview{From: from, To: to}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		kinds, err := s.readRepo.Summarize(gctx, from, to)
		if err != nil {
			return fmt.Errorf("failed to summarize entries: %w", err)
		}
		overview.Kinds = kinds
		return nil
	})

	g.Go(func() error {
		counts, err := s.accountRepo.CountByRole(gctx)
		if err != nil {
			return fmt.Errorf("failed to count accounts: %w", err)
		}
		overview.AccountCounts = counts
		return nil
	})

	g.Go(func() error {
		p, err := s.poolRepo.Get(gctx)
		if err != nil {
			var notFound shared.NotFoundError
			if errors.As(err, &notFound) {
				return nil
			}
			return fmt.Errorf("failed to read pool: %w", err)
		}
		overview.Pool = p
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to build reporting overview", "error", err)
		return nil, err
	}
	return overview, nil
}
