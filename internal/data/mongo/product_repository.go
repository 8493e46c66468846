package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/reseller-settlement/internal/domain/catalog"
	"github.com/reseller-settlement/internal/domain/shared"
)

// productDocument keeps prices raw because the catalog has stored them both as
// doubles and as decimals over time.
type productDocument struct {
	Code        string        `bson:"code"`
	Name        string        `bson:"name"`
	Price       bson.RawValue `bson:"price"`
	PriceOro    bson.RawValue `bson:"price_oro"`
	PricePlata  bson.RawValue `bson:"price_plata"`
	PriceBronce bson.RawValue `bson:"price_bronce"`
	Available   bool          `bson:"available"`
}

func (d *productDocument) toProduct() (*catalog.Product, error) {
	product := &catalog.Product{
		Code:      d.Code,
		Name:      d.Name,
		Available: d.Available,
	}

	var err error
	if product.Price, err = decimalFromRaw(d.Price); err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}
	if product.PriceOro, err = decimalFromRaw(d.PriceOro); err != nil {
		return nil, fmt.Errorf("price_oro: %w", err)
	}
	if product.PricePlata, err = decimalFromRaw(d.PricePlata); err != nil {
		return nil, fmt.Errorf("price_plata: %w", err)
	}
	if product.PriceBronce, err = decimalFromRaw(d.PriceBronce); err != nil {
		return nil, fmt.Errorf("price_bronce: %w", err)
	}

	return product, nil
}

// ProductRepository reads the product catalog owned by the catalog service
type ProductRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewProductRepository reads products from the named collection of db.
func NewProductRepository(logger *slog.Logger, db *mongo.Database, collection string) catalog.Repository {
	return &ProductRepository{
		collection: db.Collection(collection),
		logger:     logger,
	}
}

func (r *ProductRepository) GetByCode(ctx context.Context, code string) (*catalog.Product, error) {
	var doc productDocument
	err := r.collection.FindOne(ctx, bson.M{"code": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NotFoundError{Entity: "product", Key: code}
		}
		r.logger.Error("Failed to get product", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	product, err := doc.toProduct()
	if err != nil {
		r.logger.Error("Failed to decode product prices", "code", code, "error", err)
		return nil, fmt.Errorf("failed to decode product %s: %w", code, err)
	}

	return product, nil
}
