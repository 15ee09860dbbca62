package service

import (
	"context"
	"testing"

	"github.com/shoaibhajj/E-shop/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestProductService_GetProductMapsImages(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("10", 1)
	store.mu.Lock()
	store.products[p.ID].ImageCover = "cover.jpeg"
	store.products[p.ID].Images = []string{"a.jpeg"}
	store.mu.Unlock()

	sut := NewProductService(store, "http://cdn.test/")
	view, err := sut.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn.test/products/cover.jpeg", view.ImageCover)
	assert.Equal(t, []string{"http://cdn.test/products/a.jpeg"}, view.Images)

	// the stored product keeps file names
	assert.Equal(t, "cover.jpeg", store.product(p.ID).ImageCover)
}

func TestProductService_RecomputeRatings(t *testing.T) {
	store := newMemStore()
	p := store.addProduct("10", 1)
	store.ratings[p.ID] = []float64{3, 4}

	sut := NewProductService(store, "http://cdn.test")
	view, err := sut.RecomputeRatings(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, view.RatingsAverage)
	assert.InDelta(t, 3.5, *view.RatingsAverage, 0.0001)
	assert.Equal(t, 2, view.RatingsQuantity)

	_, err = sut.RecomputeRatings(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}
