package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/southsidewear/storefront/internal/domain"
)

const pendingOrdersCollection = "pending_orders"

type pendingOrderDocument struct {
	OrderID   string              `bson:"_id"`
	Items     []cartItemDocument  `bson:"items"`
	Shipping  domain.ShippingInfo `bson:"shipping"`
	CreatedAt time.Time           `bson:"created_at"`
}

type cartItemDocument struct {
	ID      string `bson:"id"`
	Product string `bson:"product"`
	Price   int64  `bson:"price"`
	Size    string `bson:"size"`
}

func toDocument(order *domain.PendingOrder) pendingOrderDocument {
	items := make([]cartItemDocument, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, cartItemDocument(it))
	}
	return pendingOrderDocument{
		OrderID:   order.OrderID,
		Items:     items,
		Shipping:  order.Shipping,
		CreatedAt: order.CreatedAt.UTC(),
	}
}

func (d pendingOrderDocument) toDomain() *domain.PendingOrder {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, domain.CartItem(it))
	}
	return &domain.PendingOrder{
		OrderID:   d.OrderID,
		Items:     items,
		Shipping:  d.Shipping,
		CreatedAt: d.CreatedAt,
	}
}

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(pendingOrdersCollection)}
}

// CreateIndexes adds the created_at index used when browsing orders.
func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	_, err := m.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoRepository) SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error {
	doc := toDocument(order)
	opts := options.Replace().SetUpsert(true)

	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": doc.OrderID}, doc, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert pending order: %w", err)
	}
	return nil
}

func (m *MongoRepository) GetPendingOrder(ctx context.Context, orderID string) (*domain.PendingOrder, error) {
	var doc pendingOrderDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get pending order: %w", err)
	}
	return doc.toDomain(), nil
}

func (m *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.collection.Database().Client().Disconnect(ctx)
}
