package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shoaibhajj/E-shop/internal/cache"
	"github.com/shoaibhajj/E-shop/internal/domain"
	"github.com/shoaibhajj/E-shop/internal/eventlog"
	"github.com/shoaibhajj/E-shop/internal/payment"
	"github.com/shoaibhajj/E-shop/internal/repository"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memStore is an in-memory document store implementing every repository
// the services use. Carts are copied on the way in and out so tests see
// the same isolation a real store gives.
type memStore struct {
	mu       sync.RWMutex
	carts    map[primitive.ObjectID]*domain.Cart
	products map[primitive.ObjectID]*domain.Product
	coupons  []*domain.Coupon
	users    map[primitive.ObjectID]*domain.User
	orders   map[primitive.ObjectID]*domain.Order
	ratings  map[primitive.ObjectID][]float64
	outbox   []*domain.OutboxMessage

	conflicts int // SaveCart loses the version race this many times
	saves     int
	commits   int
	err       error
	commitErr error
	// beforeCommit runs once at the start of the next CommitOrder, outside
	// the lock, to interleave a concurrent request
	beforeCommit func()
}

func newMemStore() *memStore {
	return &memStore{
		carts:    map[primitive.ObjectID]*domain.Cart{},
		products: map[primitive.ObjectID]*domain.Product{},
		users:    map[primitive.ObjectID]*domain.User{},
		orders:   map[primitive.ObjectID]*domain.Order{},
		ratings:  map[primitive.ObjectID][]float64{},
	}
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = c.SnapshotItems()
	if c.TotalPriceAfterDiscount != nil {
		d := *c.TotalPriceAfterDiscount
		out.TotalPriceAfterDiscount = &d
	}
	return &out
}

func (m *memStore) addProduct(price string, quantity int) *domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := &domain.Product{
		ID:       primitive.NewObjectID(),
		Title:    "product",
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
	}
	m.products[p.ID] = p
	return p
}

func (m *memStore) addUser(email string, role domain.Role) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := &domain.User{ID: primitive.NewObjectID(), Name: "Buyer " + email, Email: email, Role: role, Active: true}
	m.users[u.ID] = u
	return u
}

func (m *memStore) product(id primitive.ObjectID) domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.products[id]
}

func (m *memStore) orderCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

func (m *memStore) saveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *memStore) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.carts {
		if c.UserID == userID {
			return cloneCart(c), nil
		}
	}
	return nil, repository.ErrCartNotFound
}

func (m *memStore) GetCartByID(_ context.Context, cartID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.carts[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return cloneCart(c), nil
}

func (m *memStore) SaveCart(_ context.Context, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return repository.ErrConcurrentUpdate
	}

	if cart.ID.IsZero() {
		for _, c := range m.carts {
			if c.UserID == cart.UserID {
				return repository.ErrConcurrentUpdate
			}
		}
		cart.ID = primitive.NewObjectID()
		cart.Version = 1
	} else {
		stored, ok := m.carts[cart.ID]
		if !ok || stored.Version != cart.Version {
			return repository.ErrConcurrentUpdate
		}
		cart.Version++
	}
	m.saves++
	m.carts[cart.ID] = cloneCart(cart)
	return nil
}

func (m *memStore) DeleteCart(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for id, c := range m.carts {
		if c.UserID == userID {
			delete(m.carts, id)
			return nil
		}
	}
	return repository.ErrCartNotFound
}

func (m *memStore) GetProduct(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	out := *p
	return &out, nil
}

func (m *memStore) RecomputeRatingAggregate(_ context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	ratings := m.ratings[id]
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	avg := 0.0
	if len(ratings) > 0 {
		avg = sum / float64(len(ratings))
	}
	p.RatingsAverage = &avg
	p.RatingsQuantity = len(ratings)
	return nil
}

func (m *memStore) FindActive(_ context.Context, name string, now time.Time) (*domain.Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.coupons {
		if c.Name == domain.NormalizeCouponName(name) && c.IsActive(now) {
			out := *c
			return &out, nil
		}
	}
	return nil, repository.ErrCouponNotFound
}

func (m *memStore) addCoupon(coupon *domain.Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coupon.Name = domain.NormalizeCouponName(coupon.Name)
	m.coupons = append(m.coupons, coupon)
}

func (m *memStore) GetUser(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memStore) GetOrder(_ context.Context, id primitive.ObjectID) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	out := *o
	return &out, nil
}

func (m *memStore) ListOrders(_ context.Context, filter repository.OrderFilter) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Order, 0)
	for _, o := range m.orders {
		if filter.UserID.IsZero() || o.UserID == filter.UserID {
			c := *o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) MarkPaid(_ context.Context, id primitive.ObjectID, at time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.IsPaid, o.PaidAt, o.UpdatedAt = true, &at, at
	out := *o
	return &out, nil
}

func (m *memStore) MarkDelivered(_ context.Context, id primitive.ObjectID, at time.Time) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	o.IsDelivered, o.DeliveredAt, o.UpdatedAt = true, &at, at
	out := *o
	return &out, nil
}

// CommitOrder applies the whole commit or nothing, like the transactional
// store implementation.
func (m *memStore) CommitOrder(_ context.Context, order *domain.Order, cartVersion int64, msg *domain.OutboxMessage) error {
	m.mu.Lock()
	hook := m.beforeCommit
	m.beforeCommit = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.commitErr != nil {
		return m.commitErr
	}
	for _, o := range m.orders {
		if o.CartID == order.CartID {
			return repository.ErrDuplicateCheckout
		}
	}

	remaining := map[primitive.ObjectID]int{}
	for _, item := range order.Items {
		p, ok := m.products[item.ProductID]
		if !ok {
			return domain.ErrInsufficientStock
		}
		if _, seen := remaining[p.ID]; !seen {
			remaining[p.ID] = p.Quantity
		}
		if remaining[p.ID] < item.Quantity {
			return domain.ErrInsufficientStock
		}
		remaining[p.ID] -= item.Quantity
	}
	stored, ok := m.carts[order.CartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if stored.Version != cartVersion {
		return repository.ErrConcurrentUpdate
	}

	for _, item := range order.Items {
		p := m.products[item.ProductID]
		p.Quantity -= item.Quantity
		p.Sold += item.Quantity
	}
	delete(m.carts, order.CartID)
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	placed := *order
	m.orders[order.ID] = &placed
	if msg != nil {
		m.outbox = append(m.outbox, msg)
	}
	m.commits++
	return nil
}

func (m *memStore) outboxMessages() []*domain.OutboxMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxMessage(nil), m.outbox...)
}

type mockCache struct {
	m       sync.RWMutex
	carts   map[primitive.ObjectID]*domain.Cart
	deletes int
	err     error
}

func newMockCache() *mockCache {
	return &mockCache{carts: map[primitive.ObjectID]*domain.Cart{}}
}

func (c *mockCache) Get(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	c.m.RLock()
	defer c.m.RUnlock()
	if c.err != nil {
		return nil, c.err
	}
	cart, ok := c.carts[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart, nil
}

func (c *mockCache) Set(_ context.Context, userID primitive.ObjectID, cart *domain.Cart) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.err != nil {
		return c.err
	}
	c.carts[userID] = cart
	return nil
}

func (c *mockCache) Delete(_ context.Context, userID primitive.ObjectID) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.deletes++
	delete(c.carts, userID)
	return c.err
}

func (c *mockCache) has(userID primitive.ObjectID) bool {
	c.m.RLock()
	defer c.m.RUnlock()
	_, ok := c.carts[userID]
	return ok
}

func (c *mockCache) deleteCount() int {
	c.m.RLock()
	defer c.m.RUnlock()
	return c.deletes
}

type mockProvider struct {
	m        sync.RWMutex
	requests []payment.SessionRequest
	err      error
}

func (p *mockProvider) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	p.m.Lock()
	defer p.m.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &payment.Session{
		ID:                "cs_test",
		URL:               "https://pay.test/cs_test",
		AmountTotal:       req.Amount,
		Currency:          req.Currency,
		ClientReferenceID: req.ClientReferenceID,
		CustomerEmail:     req.CustomerEmail,
		Metadata:          req.Metadata,
	}, nil
}

// mockLedger claims events like the Postgres ledger: failed events and
// claims older than the lease can be claimed again.
type mockLedger struct {
	m         sync.RWMutex
	events    map[string]eventlog.Status
	claimedAt map[string]time.Time
	errs      map[string]error
	err       error
	lease     time.Duration
	now       time.Time
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		events:    map[string]eventlog.Status{},
		claimedAt: map[string]time.Time{},
		errs:      map[string]error{},
		lease:     eventlog.DefaultClaimLease,
		now:       testNow,
	}
}

func (l *mockLedger) Begin(_ context.Context, eventID, _, _ string) error {
	l.m.Lock()
	defer l.m.Unlock()
	if l.err != nil {
		return l.err
	}
	if status, ok := l.events[eventID]; ok {
		expired := status == eventlog.StatusReceived && l.now.Sub(l.claimedAt[eventID]) > l.lease
		if status != eventlog.StatusFailed && !expired {
			return eventlog.ErrDuplicateEvent
		}
	}
	l.events[eventID] = eventlog.StatusReceived
	l.claimedAt[eventID] = l.now
	return nil
}

func (l *mockLedger) advance(d time.Duration) {
	l.m.Lock()
	defer l.m.Unlock()
	l.now = l.now.Add(d)
}

func (l *mockLedger) Complete(ctx context.Context, eventID string, status eventlog.Status, procErr error) error {
	l.m.Lock()
	defer l.m.Unlock()
	if l.err != nil {
		return l.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := l.events[eventID]; !ok {
		return eventlog.ErrEventNotFound
	}
	l.events[eventID] = status
	l.errs[eventID] = procErr
	return nil
}

func (l *mockLedger) status(eventID string) eventlog.Status {
	l.m.RLock()
	defer l.m.RUnlock()
	return l.events[eventID]
}

var errDatabase = errors.New("database error")
