package mongo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/YelzhanWeb/tableorder/internal/domain"
	"github.com/YelzhanWeb/tableorder/internal/interfaces"
)

// orderDoc embeds items and the status log in one document, so a status
// update is a single atomic findAndModify.
type orderDoc struct {
	ID        string     `bson:"_id"`
	TableID   string     `bson:"table_id"`
	Status    string     `bson:"status"`
	Items     []itemDoc  `bson:"items"`
	Note      string     `bson:"note"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
	History   []eventDoc `bson:"history,omitempty"`
}

type itemDoc struct {
	Name     string `bson:"name"`
	Quantity int    `bson:"quantity"`
	Status   string `bson:"status"`
	Note     string `bson:"note"`
}

type eventDoc struct {
	Scope          string    `bson:"scope"`
	ItemIndex      *int      `bson:"item_index,omitempty"`
	PreviousStatus string    `bson:"previous_status"`
	NewStatus      string    `bson:"new_status"`
	ChangedAt      time.Time `bson:"changed_at"`
}

var withoutHistory = bson.M{"history": 0}

type OrderStore struct {
	collection *mongo.Collection
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{
		collection: db.Collection("orders"),
	}
}

func (r *OrderStore) Create(ctx context.Context, o *domain.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, toDoc(o)); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}
	return nil
}

func (r *OrderStore) Get(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(withoutHistory)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return fromDoc(doc), nil
}

func (r *OrderStore) List(ctx context.Context) ([]*domain.Order, error) {
	opts := options.Find().
		SetProjection(withoutHistory).
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []orderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	result := make([]*domain.Order, 0, len(docs))
	for _, doc := range docs {
		result = append(result, fromDoc(doc))
	}
	return result, nil
}

func (r *OrderStore) UpdateStatus(ctx context.Context, id string, patch interfaces.StatusPatch) (*domain.Order, error) {
	set := bson.M{
		"status":     string(patch.Status),
		"updated_at": patch.UpdatedAt,
	}
	for i, status := range patch.ItemStatuses {
		set["items."+strconv.Itoa(i)+".status"] = string(status)
	}

	update := bson.M{"$set": set}
	if len(patch.Changes) > 0 {
		entries := make([]eventDoc, len(patch.Changes))
		for i, c := range patch.Changes {
			entries[i] = eventDoc{
				Scope:          string(c.Scope),
				ItemIndex:      c.ItemIndex,
				PreviousStatus: c.PreviousStatus,
				NewStatus:      c.NewStatus,
				ChangedAt:      c.OccurredAt,
			}
		}
		update["$push"] = bson.M{"history": bson.M{"$each": entries}}
	}

	// Matching on the item count keeps a patch from growing the items array.
	filter := bson.M{"_id": id, "items": bson.M{"$size": len(patch.ItemStatuses)}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutHistory)

	var doc orderDoc
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot update order status: %w", err)
	}
	return fromDoc(doc), nil
}

func (r *OrderStore) History(ctx context.Context, orderID string) ([]domain.StatusLog, error) {
	var doc orderDoc
	opts := options.FindOne().SetProjection(bson.M{"history": 1})
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cannot get order history: %w", err)
	}

	logs := make([]domain.StatusLog, len(doc.History))
	for i, e := range doc.History {
		logs[i] = domain.StatusLog{
			OrderID:        orderID,
			Scope:          domain.Scope(e.Scope),
			ItemIndex:      e.ItemIndex,
			PreviousStatus: e.PreviousStatus,
			NewStatus:      e.NewStatus,
			ChangedAt:      e.ChangedAt,
		}
	}
	return logs, nil
}

func toDoc(o *domain.Order) orderDoc {
	doc := orderDoc{
		ID:        o.ID,
		TableID:   o.TableID,
		Status:    string(o.Status),
		Items:     make([]itemDoc, len(o.Items)),
		Note:      o.Note,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for i, item := range o.Items {
		doc.Items[i] = itemDoc{Name: item.Name, Quantity: item.Quantity, Status: string(item.Status), Note: item.Note}
	}
	return doc
}

func fromDoc(doc orderDoc) *domain.Order {
	o := &domain.Order{
		ID:        doc.ID,
		TableID:   doc.TableID,
		Status:    domain.OrderStatus(doc.Status),
		Items:     make([]domain.OrderItem, len(doc.Items)),
		Note:      doc.Note,
		CreatedAt: doc.CreatedAt.UTC(),
		UpdatedAt: doc.UpdatedAt.UTC(),
	}
	for i, item := range doc.Items {
		o.Items[i] = domain.OrderItem{Name: item.Name, Quantity: item.Quantity, Status: domain.ItemStatus(item.Status), Note: item.Note}
	}
	return o
}

var _ interfaces.OrderRepository = (*OrderStore)(nil)
