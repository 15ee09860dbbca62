package service

import (
	"context"
	"time"

	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OrderService is the order ledger. Every operation runs with the caller's
// capability: customers see only their own orders and staff may change
// payment and delivery state.
type OrderService struct {
	repo   repository.OrderRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewOrderService(repo repository.OrderRepository, logger *zap.Logger) *OrderService {
	return &OrderService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *OrderService) ListOrders(ctx context.Context, caller domain.Caller) ([]*domain.Order, error) {
	filter := repository.OrderFilter{}
	if !caller.CanManageOrders() {
		filter.UserID = caller.UserID
	}
	return s.repo.ListOrders(ctx, filter)
}

// GetOrder hides orders the caller may not view behind ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, caller domain.Caller, id primitive.ObjectID) (*domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.CanView(order) {
		return nil, repository.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) MarkPaid(ctx context.Context, caller domain.Caller, id primitive.ObjectID) (*domain.Order, error) {
	if !caller.CanManageOrders() {
		return nil, ErrForbidden
	}
	order, err := s.repo.MarkPaid(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Info("order marked paid", zap.String("order_id", id.Hex()), zap.String("by", caller.UserID.Hex()))
	return order, nil
}

func (s *OrderService) MarkDelivered(ctx context.Context, caller domain.Caller, id primitive.ObjectID) (*domain.Order, error) {
	if !caller.CanManageOrders() {
		return nil, ErrForbidden
	}
	order, err := s.repo.MarkDelivered(ctx, id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.logger.Info("order marked delivered", zap.String("order_id", id.Hex()), zap.String("by", caller.UserID.Hex()))
	return order, nil
}
