package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Coupon struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	ExpiresAt time.Time          `bson:"expire" json:"expire"`
	Discount  decimal.Decimal    `bson:"discount" json:"discount"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// NormalizeCouponName is the canonical form coupon names are stored and matched in.
func NormalizeCouponName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// IsActive reports whether the coupon expires strictly after now.
func (c *Coupon) IsActive(now time.Time) bool {
	return c.ExpiresAt.After(now)
}
