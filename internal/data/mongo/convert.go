package mongo

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	dec, err := primitive.ParseDecimal128(d.StringFixed(2))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to decimal128: %w", d.String(), err)
	}
	return dec, nil
}

func toNullableDecimal128(d decimal.NullDecimal) (*primitive.Decimal128, error) {
	if !d.Valid {
		return nil, nil
	}
	dec, err := toDecimal128(d.Decimal)
	if err != nil {
		return nil, err
	}
	return &dec, nil
}

func fromDecimal128(dec primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(dec.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse decimal128 %s: %w", dec.String(), err)
	}
	return d, nil
}

func fromNullableDecimal128(dec *primitive.Decimal128) (decimal.NullDecimal, error) {
	if dec == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := fromDecimal128(*dec)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

// decimalFromRaw accepts the numeric encodings the catalog service has used
// for prices. A missing field reads as zero.
func decimalFromRaw(rv bson.RawValue) (decimal.Decimal, error) {
	if rv.IsZero() || rv.Type == bsontype.Null {
		return decimal.Zero, nil
	}
	if dec, ok := rv.Decimal128OK(); ok {
		return fromDecimal128(dec)
	}
	if f, ok := rv.DoubleOK(); ok {
		return decimal.NewFromFloat(f).Round(2), nil
	}
	if i, ok := rv.Int32OK(); ok {
		return decimal.NewFromInt32(i), nil
	}
	if i, ok := rv.Int64OK(); ok {
		return decimal.NewFromInt(i), nil
	}
	if s, ok := rv.StringValueOK(); ok {
		return decimal.NewFromString(s)
	}
	return decimal.Zero, fmt.Errorf("unsupported price encoding %s", rv.Type)
}
