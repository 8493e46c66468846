package postgres

import (
	"log/slog"
	"os"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// decimalArg matches decimal arguments by value, ignoring exponent differences.
type decimalArg struct {
	want decimal.Decimal
}

func decimalEq(s string) pgxmock.Argument {
	return decimalArg{want: decimal.RequireFromString(s)}
}

func (d decimalArg) Match(v interface{}) bool {
	got, ok := v.(decimal.Decimal)
	return ok && got.Equal(d.want)
}

func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
