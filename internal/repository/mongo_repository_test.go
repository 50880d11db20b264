package repository

import (
	"testing"
	"time"

	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoFilter(t *testing.T) {
	t.Run("empty filter matches all", func(t *testing.T) {
		assert.Equal(t, bson.M{}, mongoFilter(Filter{}))
	})

	t.Run("month only", func(t *testing.T) {
		got := mongoFilter(Filter{Month: MonthFilter{Month: time.March}})
		assert.Equal(t, bson.M{"dateOfSale": bson.M{"$regex": `^[0-9]{4}-03-`, "$options": "i"}}, got)
	})

	t.Run("search covers title, description and textual price", func(t *testing.T) {
		got := mongoFilter(Filter{Month: MonthFilter{Text: "Jan"}, Search: "a.b"})
		require.Contains(t, got, "$or")
		or, ok := got["$or"].(bson.A)
		require.True(t, ok)
		require.Len(t, or, 3)
		assert.Equal(t, bson.M{"title": bson.M{"$regex": `a\.b`, "$options": "i"}}, or[0])
		assert.Equal(t, bson.M{"description": bson.M{"$regex": `a\.b`, "$options": "i"}}, or[1])
		assert.Contains(t, or[2], "$expr")
	})
}

func TestMongoRangeFilter(t *testing.T) {
	first := mongoRangeFilter(Filter{}, PriceRanges[0])
	assert.Equal(t, bson.M{"$gte": float64(0), "$lte": float64(100)}, first["price"])

	middle := mongoRangeFilter(Filter{}, PriceRanges[4])
	assert.Equal(t, bson.M{"$gt": float64(400), "$lte": float64(500)}, middle["price"])

	last := mongoRangeFilter(Filter{Month: MonthFilter{Text: "05"}}, PriceRanges[9])
	assert.Equal(t, bson.M{"$gt": float64(900)}, last["price"])
	assert.Contains(t, last, "dateOfSale")
}

func TestMongoPipelines(t *testing.T) {
	stats := statisticsPipeline(Filter{})
	require.Len(t, stats, 2)
	assert.Equal(t, "$match", stats[0][0].Key)
	assert.Equal(t, "$group", stats[1][0].Key)

	categories := categoryPipeline(Filter{})
	require.Len(t, categories, 3)
	assert.Equal(t, "$sort", categories[2][0].Key)
}

func TestDocumentConversion(t *testing.T) {
	tx := models.Transaction{
		ID: "ignored", Title: "Mens Casual Slim Fit", Description: "cotton", Price: 15.99,
		Category: "men's clothing", Image: "https://example.test/1.jpg", Sold: true,
		DateOfSale: "2021-12-27T20:29:54+05:30",
	}
	doc := toDocument(tx)
	assert.True(t, doc.ID.IsZero(), "store must assign the id")

	doc.ID = primitive.NewObjectID()
	back := fromDocument(doc)
	assert.Equal(t, doc.ID.Hex(), back.ID)
	tx.ID = back.ID
	assert.Equal(t, tx, back)
}
