package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/eaglebank/product-transactions/shared/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// transactionDocument is the BSON shape of a transaction. dateOfSale is kept as
// the text received from the seed source so month filtering can match on it.
type transactionDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Category    string             `bson:"category"`
	Image       string             `bson:"image,omitempty"`
	Sold        bool               `bson:"sold"`
	DateOfSale  string             `bson:"dateOfSale"`
}

type statisticsDocument struct {
	TotalAmount  float64 `bson:"totalAmount"`
	TotalSold    int64   `bson:"totalSold"`
	TotalNotSold int64   `bson:"totalNotSold"`
}

// MongoStore serves transactions from a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to uri and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (s *MongoStore) InsertMany(ctx context.Context, transactions []models.Transaction) (int, error) {
	if len(transactions) == 0 {
		return 0, nil
	}
	docs := make([]any, len(transactions))
	for i, t := range transactions {
		docs[i] = toDocument(t)
	}
	res, err := s.collection.InsertMany(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert transactions: %w", err)
	}
	return len(res.InsertedIDs), nil
}

func (s *MongoStore) Find(ctx context.Context, filter Filter, page Page) ([]models.Transaction, error) {
	opts := options.Find()
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}
	cursor, err := s.collection.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	views := []models.Transaction{}
	for cursor.Next(ctx) {
		var doc transactionDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		views = append(views, fromDocument(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return views, nil
}

func (s *MongoStore) Statistics(ctx context.Context, filter Filter) (models.Statistics, error) {
	cursor, err := s.collection.Aggregate(ctx, statisticsPipeline(filter))
	if err != nil {
		return models.Statistics{}, fmt.Errorf("failed to aggregate statistics: %w", err)
	}
	var docs []statisticsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return models.Statistics{}, fmt.Errorf("failed to decode statistics: %w", err)
	}
	if len(docs) == 0 {
		return models.Statistics{}, nil
	}
	return models.Statistics{
		TotalAmount:  docs[0].TotalAmount,
		TotalSold:    docs[0].TotalSold,
		TotalNotSold: docs[0].TotalNotSold,
	}, nil
}

func (s *MongoStore) CountInRange(ctx context.Context, filter Filter, r PriceRange) (int64, error) {
	n, err := s.collection.CountDocuments(ctx, mongoRangeFilter(filter, r))
	if err != nil {
		return 0, fmt.Errorf("failed to count range %s: %w", r.Label, err)
	}
	return n, nil
}

func (s *MongoStore) CountByCategory(ctx context.Context, filter Filter) ([]models.CategoryCount, error) {
	cursor, err := s.collection.Aggregate(ctx, categoryPipeline(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}
	counts := []models.CategoryCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return counts, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mongoFilter translates a Filter into a find/match document.
func mongoFilter(f Filter) bson.M {
	query := bson.M{}
	if p := f.Month.Pattern(); p != "" {
		query["dateOfSale"] = bson.M{"$regex": p, "$options": "i"}
	}
	if p := f.SearchPattern(); p != "" {
		regex := bson.M{"$regex": p, "$options": "i"}
		query["$or"] = bson.A{
			bson.M{"title": regex},
			bson.M{"description": regex},
			bson.M{"$expr": bson.M{"$regexMatch": bson.M{
				"input":   bson.M{"$toString": "$price"},
				"regex":   p,
				"options": "i",
			}}},
		}
	}
	return query
}

func mongoRangeFilter(f Filter, r PriceRange) bson.M {
	query := mongoFilter(f)
	price := bson.M{}
	if r.MinInclusive {
		price["$gte"] = r.Min
	} else {
		price["$gt"] = r.Min
	}
	if r.Bounded() {
		price["$lte"] = r.Max
	}
	query["price"] = price
	return query
}

func statisticsPipeline(f Filter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(f)}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalAmount":  bson.M{"$sum": "$price"},
			"totalSold":    bson.M{"$sum": bson.M{"$cond": bson.A{"$sold", 1, 0}}},
			"totalNotSold": bson.M{"$sum": bson.M{"$cond": bson.A{"$sold", 0, 1}}},
		}}},
	}
}

func categoryPipeline(f Filter) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: mongoFilter(f)}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$category",
			"itemCount": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
}

func toDocument(t models.Transaction) transactionDocument {
	return transactionDocument{
		Title:       t.Title,
		Description: t.Description,
		Price:       t.Price,
		Category:    t.Category,
		Image:       t.Image,
		Sold:        t.Sold,
		DateOfSale:  t.DateOfSale,
	}
}

func fromDocument(d transactionDocument) models.Transaction {
	return models.Transaction{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		Image:       d.Image,
		Sold:        d.Sold,
		DateOfSale:  d.DateOfSale,
	}
}
