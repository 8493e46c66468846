package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reseller-settlement/internal/domain/ledger"
	"github.com/reseller-settlement/internal/domain/shared"
)

const (
	// LedgerCollectionName is the name of the ledger read-model collection in MongoDB
	LedgerCollectionName = "ledger_entries"
)

type pinDocument struct {
	Serial     string     `bson:"serial"`
	Key        string     `bson:"key"`
	Consumed   bool       `bson:"consumed"`
	ConsumedAt *time.Time `bson:"consumed_at,omitempty"`
}

type entryDocument struct {
	ID               string                `bson:"_id,omitempty"`
	EntryID          int64                 `bson:"entry_id"`
	Kind             string                `bson:"kind"`
	AccountID        string                `bson:"account_id,omitempty"`
	AccountHandle    string                `bson:"account_handle,omitempty"`
	AccountName      string                `bson:"account_name,omitempty"`
	AccountRole      string                `bson:"account_role,omitempty"`
	ProductRef       string                `bson:"product_ref,omitempty"`
	ProductName      string                `bson:"product_name,omitempty"`
	Quantity         int                   `bson:"quantity,omitempty"`
	Amount           primitive.Decimal128  `bson:"amount"`
	PoolAmount       primitive.Decimal128  `bson:"pool_amount"`
	BalanceAfter     *primitive.Decimal128 `bson:"balance_after"`
	PoolBalanceAfter *primitive.Decimal128 `bson:"pool_balance_after"`
	AdjustmentType   string                `bson:"adjustment_type,omitempty"`
	CounterpartName  string                `bson:"counterpart_name,omitempty"`
	Status           string                `bson:"status,omitempty"`
	ExternalOrderID  string                `bson:"external_order_id,omitempty"`
	Pins             []pinDocument         `bson:"pins,omitempty"`
	CorrelationID    string                `bson:"correlation_id,omitempty"`
	CreatedAt        time.Time             `bson:"created_at"`
	ProjectedAt      time.Time             `bson:"projected_at"`
}

func newEntryDocument(entry *ledger.Entry) (*entryDocument, error) {
	amount, err := toDecimal128(entry.Amount)
	if err != nil {
		return nil, err
	}
	poolAmount, err := toDecimal128(entry.PoolAmount)
	if err != nil {
		return nil, err
	}
	balanceAfter, err := toNullableDecimal128(entry.BalanceAfter)
	if err != nil {
		return nil, err
	}
	poolBalanceAfter, err := toNullableDecimal128(entry.PoolBalanceAfter)
	if err != nil {
		return nil, err
	}

	doc := &entryDocument{
		ID:               entry.AggregateID(),
		EntryID:          entry.EntryID,
		Kind:             string(entry.Kind),
		AccountID:        entry.AccountID,
		AccountHandle:    entry.AccountHandle,
		AccountName:      entry.AccountName,
		AccountRole:      entry.AccountRole,
		ProductRef:       entry.ProductRef,
		ProductName:      entry.ProductName,
		Quantity:         entry.Quantity,
		Amount:           amount,
		PoolAmount:       poolAmount,
		BalanceAfter:     balanceAfter,
		PoolBalanceAfter: poolBalanceAfter,
		AdjustmentType:   string(entry.AdjustmentType),
		CounterpartName:  entry.CounterpartName,
		Status:           entry.Status,
		ExternalOrderID:  entry.ExternalOrderID,
		CorrelationID:    entry.CorrelationID,
		CreatedAt:        entry.CreatedAt,
		ProjectedAt:      time.Now().UTC(),
	}
	for _, pin := range entry.Pins {
		doc.Pins = append(doc.Pins, pinDocument(pin))
	}
	return doc, nil
}

func (d *entryDocument) toEntry() (*ledger.Entry, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	poolAmount, err := fromDecimal128(d.PoolAmount)
	if err != nil {
		return nil, err
	}
	balanceAfter, err := fromNullableDecimal128(d.BalanceAfter)
	if err != nil {
		return nil, err
	}
	poolBalanceAfter, err := fromNullableDecimal128(d.PoolBalanceAfter)
	if err != nil {
		return nil, err
	}

	entry := &ledger.Entry{
		EntryID:          d.EntryID,
		Kind:             shared.EntryKind(d.Kind),
		AccountID:        d.AccountID,
		AccountHandle:    d.AccountHandle,
		AccountName:      d.AccountName,
		AccountRole:      d.AccountRole,
		ProductRef:       d.ProductRef,
		ProductName:      d.ProductName,
		Quantity:         d.Quantity,
		Amount:           amount,
		PoolAmount:       poolAmount,
		BalanceAfter:     balanceAfter,
		PoolBalanceAfter: poolBalanceAfter,
		AdjustmentType:   shared.AdjustmentType(d.AdjustmentType),
		CounterpartName:  d.CounterpartName,
		Status:           d.Status,
		ExternalOrderID:  d.ExternalOrderID,
		CorrelationID:    d.CorrelationID,
		CreatedAt:        d.CreatedAt,
	}
	for _, pin := range d.Pins {
		entry.Pins = append(entry.Pins, ledger.Pin(pin))
	}
	return entry, nil
}

// LedgerRepository implements ledger.ReadRepository for MongoDB. Documents are
// keyed by kind and entry id, so replaying an outbox message is harmless.
type LedgerRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewLedgerRepository creates a new MongoDB ledger read repository
func NewLedgerRepository(logger *slog.Logger, db *mongo.Database) ledger.ReadRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the projection of entry once. An existing document is left
// untouched so replays never reset consumed pins.
func (r *LedgerRepository) Upsert(ctx context.Context, entry *ledger.Entry) error {
	collection := r.db.Collection(LedgerCollectionName)

	doc, err := newEntryDocument(entry)
	if err != nil {
		r.logger.Error("Failed to encode ledger entry", "entry", entry.AggregateID(), "error", err)
		return err
	}

	id := doc.ID
	doc.ID = "" // supplied by the upsert filter

	filter := bson.M{"_id": id}
	update := bson.M{"$setOnInsert": doc}
	_, err = collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		r.logger.Error("Failed to upsert ledger entry", "entry", id, "error", err)
		return fmt.Errorf("failed to upsert ledger entry: %w", err)
	}

	return nil
}

// SetTokenConsumed marks the first pin of the sale carrying the token key.
func (r *LedgerRepository) SetTokenConsumed(ctx context.Context, consumption *ledger.TokenConsumption) error {
	collection := r.db.Collection(LedgerCollectionName)

	id := (&ledger.Entry{Kind: shared.EntryKindSale, EntryID: consumption.SaleID}).AggregateID()
	filter := bson.M{"_id": id, "pins.key": consumption.TokenKey}
	update := bson.M{
		"$set": bson.M{
			"pins.$.consumed":    consumption.Consumed,
			"pins.$.consumed_at": consumption.ConsumedAt,
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to update token consumption", "entry", id, "error", err)
		return fmt.Errorf("failed to update token consumption: %w", err)
	}

	if result.MatchedCount == 0 {
		return shared.NotFoundError{Entity: "ledger entry", Key: id}
	}

	return nil
}

// GetByAccountHandle retrieves paginated entries for an account, newest first.
func (r *LedgerRepository) GetByAccountHandle(ctx context.Context, handle string, limit, offset int) ([]*ledger.Entry, error) {
	filter := bson.M{"account_handle": handle}
	opts := options.Find().
		SetSort(bson.D{{Key: "entry_id", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	entries, err := r.find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "account_handle", handle, "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) CountByAccountHandle(ctx context.Context, handle string) (int64, error) {
	collection := r.db.Collection(LedgerCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"account_handle": handle})
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "account_handle", handle, "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}

// GetByTimeRange retrieves paginated entries created within [from, to], newest first.
func (r *LedgerRepository) GetByTimeRange(ctx context.Context, from, to time.Time, limit, offset int) ([]*ledger.Entry, error) {
	filter := bson.M{
		"created_at": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	entries, err := r.find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get ledger entries by time range",
			"from", from,
			"to", to,
			"error", err)
		return nil, fmt.Errorf("failed to get ledger entries by time range: %w", err)
	}

	return entries, nil
}

type summaryDocument struct {
	Kind            string               `bson:"_id"`
	Count           int64                `bson:"count"`
	TotalAmount     primitive.Decimal128 `bson:"total_amount"`
	TotalPoolAmount primitive.Decimal128 `bson:"total_pool_amount"`
}

// Summarize totals entries per kind within [from, to].
func (r *LedgerRepository) Summarize(ctx context.Context, from, to time.Time) ([]*ledger.KindSummary, error) {
	collection := r.db.Collection(LedgerCollectionName)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"created_at": bson.M{"$gte": from, "$lte": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":               "$kind",
			"count":             bson.M{"$sum": 1},
			"total_amount":      bson.M{"$sum": "$amount"},
			"total_pool_amount": bson.M{"$sum": "$pool_amount"},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		r.logger.Error("Failed to summarize ledger entries", "error", err)
		return nil, fmt.Errorf("failed to summarize ledger entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []summaryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		r.logger.Error("Failed to decode ledger summary", "error", err)
		return nil, fmt.Errorf("failed to decode ledger summary: %w", err)
	}

	summaries := make([]*ledger.KindSummary, 0, len(docs))
	for _, doc := range docs {
		total, err := fromDecimal128(doc.TotalAmount)
		if err != nil {
			return nil, err
		}
		totalPool, err := fromDecimal128(doc.TotalPoolAmount)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, &ledger.KindSummary{
			Kind:            shared.EntryKind(doc.Kind),
			Count:           doc.Count,
			TotalAmount:     total,
			TotalPoolAmount: totalPool,
		})
	}

	return summaries, nil
}

func (r *LedgerRepository) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*ledger.Entry, error) {
	collection := r.db.Collection(LedgerCollectionName)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	entries := make([]*ledger.Entry, 0, len(docs))
	for i := range docs {
		entry, err := docs[i].toEntry()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
