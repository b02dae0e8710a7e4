package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "ecofinds/model"
)

// MongoStore keeps carts, orders and products in MongoDB. A cart is one
// document keyed by user id. Checkout needs a replica set, since it runs
// inside a multi-document transaction.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	carts    *mongo.Collection
	orders   *mongo.Collection
	now      func() time.Time
}

type productDoc struct {
	ID          string               `bson:"_id"`
	SellerID    string               `bson:"seller_id"`
	Title       string               `bson:"title"`
	Description string               `bson:"description"`
	Category    string               `bson:"category"`
	Price       primitive.Decimal128 `bson:"price"`
	CreatedAt   time.Time            `bson:"created_at"`
}

type cartDoc struct {
	UserID    string            `bson:"_id"`
	Items     []models.CartItem `bson:"items"`
	Version   int64             `bson:"version"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type orderItemDoc struct {
	ProductID string               `bson:"product"`
	Title     string               `bson:"title"`
	Quantity  int                  `bson:"quantity"`
	UnitPrice primitive.Decimal128 `bson:"unit_price"`
}

type orderDoc struct {
	ID            string               `bson:"_id"`
	UserID        string               `bson:"user_id"`
	Items         []orderItemDoc       `bson:"items"`
	Total         primitive.Decimal128 `bson:"total"`
	PaymentMethod string               `bson:"payment_method"`
	PaymentStatus string               `bson:"payment_status"`
	CreatedAt     time.Time            `bson:"created_at"`
	// Seq orders inserts that share a created_at millisecond.
	Seq primitive.ObjectID `bson:"seq"`
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(database)
	return &MongoStore{
		client:   client,
		products: db.Collection("products"),
		carts:    db.Collection("carts"),
		orders:   db.Collection("orders"),
		now:      time.Now,
	}, nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	if _, err := s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create orders index: %w", err)
	}
	if _, err := s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("create products index: %w", err)
	}
	return nil
}

// timestamps are stored at millisecond precision
func (s *MongoStore) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(v.String())
}

// --- products ---

func (s *MongoStore) CreateProduct(ctx context.Context, p models.Product) (models.Product, error) {
	price, err := toDecimal128(p.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("encode price: %w", err)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.stamp()
	}
	doc := productDoc{
		ID: p.ID, SellerID: p.SellerID, Title: p.Title, Description: p.Description,
		Category: p.Category, Price: price, CreatedAt: p.CreatedAt,
	}
	if _, err := s.products.InsertOne(ctx, doc); err != nil {
		return models.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (d productDoc) model() (models.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("decode price of %s: %w", d.ID, err)
	}
	return models.Product{
		ID: d.ID, SellerID: d.SellerID, Title: d.Title, Description: d.Description,
		Category: d.Category, Price: price, CreatedAt: d.CreatedAt,
	}, nil
}

func (s *MongoStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	var doc productDoc
	err := s.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return doc.model()
}

func (s *MongoStore) ListProducts(ctx context.Context) ([]models.Product, error) {
	cur, err := s.products.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]models.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// --- carts ---

func (s *MongoStore) GetCart(ctx context.Context, userID string) (models.Cart, error) {
	var doc cartDoc
	err := s.carts.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.NewCart(userID), nil
	}
	if err != nil {
		return models.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	cart := models.Cart{UserID: userID, Items: doc.Items, Version: doc.Version, UpdatedAt: doc.UpdatedAt}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return cart, nil
}

func (s *MongoStore) PutCart(ctx context.Context, cart models.Cart) (models.Cart, error) {
	out := cart.Clone()
	out.UpdatedAt = s.stamp()
	out.Version = cart.Version + 1

	if cart.Version == 0 {
		_, err := s.carts.InsertOne(ctx, cartDoc{
			UserID: cart.UserID, Items: out.Items, Version: out.Version, UpdatedAt: out.UpdatedAt,
		})
		if mongo.IsDuplicateKeyError(err) {
			return models.Cart{}, ErrConflict
		}
		if err != nil {
			return models.Cart{}, fmt.Errorf("put cart: %w", err)
		}
		return out, nil
	}

	res, err := s.carts.UpdateOne(ctx,
		bson.M{"_id": cart.UserID, "version": cart.Version},
		bson.M{
			"$set": bson.M{"items": out.Items, "updated_at": out.UpdatedAt},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return models.Cart{}, fmt.Errorf("put cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Cart{}, ErrConflict
	}
	return out, nil
}

// --- orders ---

func newOrderDoc(o models.Order) (orderDoc, error) {
	total, err := toDecimal128(o.Total)
	if err != nil {
		return orderDoc{}, fmt.Errorf("encode total: %w", err)
	}
	doc := orderDoc{
		ID:            o.ID,
		UserID:        o.UserID,
		Items:         make([]orderItemDoc, 0, len(o.Items)),
		Total:         total,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		CreatedAt:     o.CreatedAt,
		Seq:           primitive.NewObjectID(),
	}
	for _, it := range o.Items {
		price, err := toDecimal128(it.UnitPrice)
		if err != nil {
			return orderDoc{}, fmt.Errorf("encode unit price: %w", err)
		}
		doc.Items = append(doc.Items, orderItemDoc{
			ProductID: it.ProductID, Title: it.Title, Quantity: it.Quantity, UnitPrice: price,
		})
	}
	return doc, nil
}

func (d orderDoc) model() (models.Order, error) {
	total, err := fromDecimal128(d.Total)
	if err != nil {
		return models.Order{}, fmt.Errorf("decode total of %s: %w", d.ID, err)
	}
	o := models.Order{
		ID:            d.ID,
		UserID:        d.UserID,
		Items:         make([]models.OrderItem, 0, len(d.Items)),
		Total:         total,
		PaymentMethod: models.PaymentMethod(d.PaymentMethod),
		PaymentStatus: models.PaymentStatus(d.PaymentStatus),
		CreatedAt:     d.CreatedAt,
	}
	for _, it := range d.Items {
		price, err := fromDecimal128(it.UnitPrice)
		if err != nil {
			return models.Order{}, fmt.Errorf("decode unit price of %s: %w", d.ID, err)
		}
		o.Items = append(o.Items, models.OrderItem{
			ProductID: it.ProductID, Title: it.Title, Quantity: it.Quantity, UnitPrice: price,
		})
	}
	return o, nil
}

func (s *MongoStore) AppendOrder(ctx context.Context, order models.Order) error {
	doc, err := newOrderDoc(order)
	if err != nil {
		return err
	}
	if _, err := s.orders.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append order: %w", err)
	}
	return nil
}

// CommitCheckout inserts the order and empties the cart in one session
// transaction. A cart that has moved past cartVersion aborts it.
func (s *MongoStore) CommitCheckout(ctx context.Context, order models.Order, cartVersion int64) error {
	doc, err := newOrderDoc(order)
	if err != nil {
		return err
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.orders.InsertOne(sc, doc); err != nil {
			return nil, fmt.Errorf("insert order: %w", err)
		}
		res, err := s.carts.UpdateOne(sc,
			bson.M{"_id": order.UserID, "version": cartVersion},
			bson.M{
				"$set": bson.M{"items": []models.CartItem{}, "updated_at": s.stamp()},
				"$inc": bson.M{"version": 1},
			})
		if err != nil {
			return nil, fmt.Errorf("clear cart: %w", err)
		}
		if res.MatchedCount == 0 {
			return nil, ErrConflict
		}
		return nil, nil
	})
	return err
}

func (s *MongoStore) ListOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	cur, err := s.orders.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out := make([]models.Order, 0, len(docs))
	for _, d := range docs {
		o, err := d.model()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *MongoStore) GetOrder(ctx context.Context, id string) (models.Order, error) {
	var doc orderDoc
	err := s.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Order{}, ErrNotFound
	}
	if err != nil {
		return models.Order{}, fmt.Errorf("get order %s: %w", id, err)
	}
	return doc.model()
}

func (s *MongoStore) UpdatePaymentStatus(ctx context.Context, id string, from, to models.PaymentStatus) (models.Order, error) {
	res, err := s.orders.UpdateOne(ctx,
		bson.M{"_id": id, "payment_status": string(from)},
		bson.M{"$set": bson.M{"payment_status": string(to)}})
	if err != nil {
		return models.Order{}, fmt.Errorf("update payment status: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return models.Order{}, err
		}
		return models.Order{}, ErrConflict
	}
	return s.GetOrder(ctx, id)
}
