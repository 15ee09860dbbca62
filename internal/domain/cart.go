package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Cart struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID                  primitive.ObjectID `bson:"user" json:"user"`
	Items                   []CartItem         `bson:"cartItems" json:"cartItems"`
	TotalPrice              decimal.Decimal    `bson:"totalCartPrice" json:"totalCartPrice"`
	TotalPriceAfterDiscount *decimal.Decimal   `bson:"totalPriceAfterDiscount,omitempty" json:"totalPriceAfterDiscount,omitempty"`
	Version                 int64              `bson:"version" json:"-"`
	CreatedAt               time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt               time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type CartItem struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Color     string             `bson:"color,omitempty" json:"color,omitempty"`
	Price     decimal.Decimal    `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// NewCart creates an empty cart owned by userID. It is not persisted.
func NewCart(userID primitive.ObjectID) *Cart {
	return &Cart{
		UserID: userID,
		Items:  []CartItem{},
	}
}

// AddItem increments the line with the same (product, color) or appends a
// new line priced at price.
func (c *Cart) AddItem(productID primitive.ObjectID, color string, price decimal.Decimal) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Color == color {
			c.Items[i].Quantity++
			c.Recalculate()
			return
		}
	}
	c.Items = append(c.Items, CartItem{
		ID:        primitive.NewObjectID(),
		ProductID: productID,
		Color:     color,
		Price:     price,
		Quantity:  1,
	})
	c.Recalculate()
}

// Item returns the line with the given item id.
func (c *Cart) Item(itemID primitive.ObjectID) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// RemoveItem drops the line with the given id and reports whether it was there.
func (c *Cart) RemoveItem(itemID primitive.ObjectID) bool {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Recalculate()
			return true
		}
	}
	return false
}

func (c *Cart) SetQuantity(itemID primitive.ObjectID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	item, ok := c.Item(itemID)
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	c.Recalculate()
	return nil
}

// Recalculate re-derives the total and drops any discount computed against
// the previous total. Every item mutation must go through it.
func (c *Cart) Recalculate() {
	c.TotalPrice = ComputeTotal(c.Items)
	c.TotalPriceAfterDiscount = nil
}

// ApplyDiscount stores the discounted total for the current items.
func (c *Cart) ApplyDiscount(percent decimal.Decimal) {
	discounted := DiscountedTotal(c.TotalPrice, percent)
	c.TotalPriceAfterDiscount = &discounted
}

// PayableTotal is the discounted total when a coupon is applied, else the total.
func (c *Cart) PayableTotal() decimal.Decimal {
	if c.TotalPriceAfterDiscount != nil {
		return *c.TotalPriceAfterDiscount
	}
	return c.TotalPrice
}

// SnapshotItems returns a deep copy of the line items.
func (c *Cart) SnapshotItems() []CartItem {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return items
}
