package http

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/payment"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"github.com/shoaibhajj/E-shop/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testJWTSecret = "test-secret"

func signToken(userID primitive.ObjectID, secret string, ttl time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID.Hex(),
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}

type mockUsers struct {
	mu    sync.RWMutex
	users map[primitive.ObjectID]*domain.User
}

func newMockUsers(users ...*domain.User) *mockUsers {
	m := &mockUsers{users: make(map[primitive.ObjectID]*domain.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUsers) GetUser(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func newUser(role domain.Role) *domain.User {
	return &domain.User{
		ID:     primitive.NewObjectID(),
		Name:   "Test User",
		Email:  "user@example.com",
		Role:   role,
		Active: true,
	}
}

// cartAPIMock returns cart or err from every call and records the last
// arguments it received.
type cartAPIMock struct {
	mu       sync.RWMutex
	cart     *domain.Cart
	err      error
	userID   primitive.ObjectID
	targetID primitive.ObjectID
	color    string
	quantity int
	coupon   string
	cleared  bool
}

func (m *cartAPIMock) record(userID, targetID primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userID = userID
	m.targetID = targetID
}

func (m *cartAPIMock) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.record(userID, primitive.NilObjectID)
	return m.cart, m.err
}

func (m *cartAPIMock) AddItem(_ context.Context, userID, productID primitive.ObjectID, color string) (*domain.Cart, error) {
	m.record(userID, productID)
	m.mu.Lock()
	m.color = color
	m.mu.Unlock()
	return m.cart, m.err
}

func (m *cartAPIMock) RemoveItem(_ context.Context, userID, itemID primitive.ObjectID) (*domain.Cart, error) {
	m.record(userID, itemID)
	return m.cart, m.err
}

func (m *cartAPIMock) UpdateItemQuantity(_ context.Context, userID, itemID primitive.ObjectID, quantity int) (*domain.Cart, error) {
	m.record(userID, itemID)
	m.mu.Lock()
	m.quantity = quantity
	m.mu.Unlock()
	return m.cart, m.err
}

func (m *cartAPIMock) ClearCart(_ context.Context, userID primitive.ObjectID) error {
	m.record(userID, primitive.NilObjectID)
	m.mu.Lock()
	m.cleared = m.err == nil
	m.mu.Unlock()
	return m.err
}

func (m *cartAPIMock) ApplyCoupon(_ context.Context, userID primitive.ObjectID, code string) (*domain.Cart, error) {
	m.record(userID, primitive.NilObjectID)
	m.mu.Lock()
	m.coupon = code
	m.mu.Unlock()
	return m.cart, m.err
}

type checkoutAPIMock struct {
	mu      sync.RWMutex
	order   *domain.Order
	session *payment.Session
	err     error
	cartID  primitive.ObjectID
	address domain.ShippingAddress
	urls    service.SessionURLs
}

func (m *checkoutAPIMock) CashCheckout(_ context.Context, _, cartID primitive.ObjectID, address domain.ShippingAddress) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartID = cartID
	m.address = address
	return m.order, m.err
}

func (m *checkoutAPIMock) CreateCheckoutSession(_ context.Context, _ *domain.User, cartID primitive.ObjectID, address domain.ShippingAddress, urls service.SessionURLs) (*payment.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cartID = cartID
	m.address = address
	m.urls = urls
	return m.session, m.err
}

type orderAPIMock struct {
	mu     sync.RWMutex
	orders []*domain.Order
	err    error
	caller domain.Caller
	action string
}

func (m *orderAPIMock) remember(caller domain.Caller, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caller = caller
	m.action = action
}

func (m *orderAPIMock) first() *domain.Order {
	if len(m.orders) == 0 {
		return nil
	}
	return m.orders[0]
}

func (m *orderAPIMock) ListOrders(_ context.Context, caller domain.Caller) ([]*domain.Order, error) {
	m.remember(caller, "list")
	return m.orders, m.err
}

func (m *orderAPIMock) GetOrder(_ context.Context, caller domain.Caller, _ primitive.ObjectID) (*domain.Order, error) {
	m.remember(caller, "get")
	return m.first(), m.err
}

func (m *orderAPIMock) MarkPaid(_ context.Context, caller domain.Caller, _ primitive.ObjectID) (*domain.Order, error) {
	m.remember(caller, "pay")
	return m.first(), m.err
}

func (m *orderAPIMock) MarkDelivered(_ context.Context, caller domain.Caller, _ primitive.ObjectID) (*domain.Order, error) {
	m.remember(caller, "deliver")
	return m.first(), m.err
}

func (m *orderAPIMock) lastAction() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.action
}

type productAPIMock struct {
	product *domain.Product
	err     error
}

func (m productAPIMock) GetProduct(context.Context, primitive.ObjectID) (*domain.Product, error) {
	return m.product, m.err
}

func (m productAPIMock) RecomputeRatings(context.Context, primitive.ObjectID) (*domain.Product, error) {
	return m.product, m.err
}

type eventHandlerMock struct {
	mu     sync.RWMutex
	events []*payment.Event
	err    error
}

func (m *eventHandlerMock) HandleEvent(_ context.Context, event *payment.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

func (m *eventHandlerMock) handled() []*payment.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*payment.Event(nil), m.events...)
}
