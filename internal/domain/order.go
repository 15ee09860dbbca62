package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
)

type ShippingAddress struct {
	Details    string `bson:"details,omitempty" json:"details,omitempty"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	PostalCode string `bson:"postalCode,omitempty" json:"postalCode,omitempty"`
}

// Metadata flattens the address into provider session metadata.
func (a ShippingAddress) Metadata() map[string]string {
	m := make(map[string]string, 4)
	if a.Details != "" {
		m["details"] = a.Details
	}
	if a.Phone != "" {
		m["phone"] = a.Phone
	}
	if a.City != "" {
		m["city"] = a.City
	}
	if a.PostalCode != "" {
		m["postalCode"] = a.PostalCode
	}
	return m
}

// ShippingAddressFromMetadata rebuilds an address echoed back by the provider.
func ShippingAddressFromMetadata(m map[string]string) ShippingAddress {
	return ShippingAddress{
		Details:    m["details"],
		Phone:      m["phone"],
		City:       m["city"],
		PostalCode: m["postalCode"],
	}
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID          primitive.ObjectID `bson:"user" json:"user"`
	CartID          primitive.ObjectID `bson:"cart" json:"cart"`
	Items           []CartItem         `bson:"cartItems" json:"cartItems"`
	ShippingAddress ShippingAddress    `bson:"shippingAddress" json:"shippingAddress"`
	TaxPrice        decimal.Decimal    `bson:"taxPrice" json:"taxPrice"`
	ShippingPrice   decimal.Decimal    `bson:"shippingPrice" json:"shippingPrice"`
	TotalOrderPrice decimal.Decimal    `bson:"totalOrderPrice" json:"totalOrderPrice"`
	PaymentMethod   PaymentMethod      `bson:"paymentMethodType" json:"paymentMethodType"`
	IsPaid          bool               `bson:"isPaid" json:"isPaid"`
	PaidAt          *time.Time         `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	IsDelivered     bool               `bson:"isDelivered" json:"isDelivered"`
	DeliveredAt     *time.Time         `bson:"deliveredAt,omitempty" json:"deliveredAt,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Payment carries the paid state an order is created with.
type Payment struct {
	Method PaymentMethod
	IsPaid bool
	PaidAt *time.Time
}

type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Caller is the identity and capability an order ledger operation runs with.
type Caller struct {
	UserID primitive.ObjectID
	Role   Role
}

// CanManageOrders reports whether the caller may see all orders and change
// their payment and delivery status.
func (c Caller) CanManageOrders() bool {
	return c.Role == RoleAdmin || c.Role == RoleManager
}

// CanView reports whether the caller may read the order.
func (c Caller) CanView(o *Order) bool {
	return c.CanManageOrders() || o.UserID == c.UserID
}
