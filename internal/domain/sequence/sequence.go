// Package sequence issues the monotonic integer ids shared by every ledger entry.
package sequence

import "context"

// LedgerEntries is the counter shared by sales, adjustments and top-ups.
const LedgerEntries = "ledger_entries"

// Generator atomically increments a named counter, creating it at 1 when absent.
// Issued values are never handed out twice; gaps are allowed.
type Generator interface {
	Next(ctx context.Context, name string) (int64, error)
}
