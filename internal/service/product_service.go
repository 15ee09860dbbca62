package service

import (
	"context"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductService is the slice of the catalog the checkout core depends on.
type ProductService struct {
	repo    repository.ProductRepository
	baseURL string
}

func NewProductService(repo repository.ProductRepository, baseURL string) *ProductService {
	return &ProductService{repo: repo, baseURL: baseURL}
}

// GetProduct returns the product with image names mapped to public URLs.
func (s *ProductService) GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	view := domain.ProductView(*product, s.baseURL)
	return &view, nil
}

// RecomputeRatings refreshes the rating aggregate after reviews changed.
func (s *ProductService) RecomputeRatings(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	if err := s.repo.RecomputeRatingAggregate(ctx, id); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}
