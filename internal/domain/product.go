package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title           string             `bson:"title" json:"title"`
	Price           decimal.Decimal    `bson:"price" json:"price"`
	Quantity        int                `bson:"quantity" json:"quantity"`
	Sold            int                `bson:"sold" json:"sold"`
	Colors          []string           `bson:"colors,omitempty" json:"colors,omitempty"`
	ImageCover      string             `bson:"imageCover,omitempty" json:"imageCover,omitempty"`
	Images          []string           `bson:"images,omitempty" json:"images,omitempty"`
	RatingsAverage  *float64           `bson:"ratingsAverage,omitempty" json:"ratingsAverage,omitempty"`
	RatingsQuantity int                `bson:"ratingsQuantity" json:"ratingsQuantity"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}

// ProductView returns a copy of p with stored image file names rewritten
// into absolute URLs under baseURL. The stored entity is never changed.
func ProductView(p Product, baseURL string) Product {
	base := strings.TrimRight(baseURL, "/") + "/products/"
	if p.ImageCover != "" {
		p.ImageCover = base + p.ImageCover
	}
	if len(p.Images) > 0 {
		images := make([]string, len(p.Images))
		for i, img := range p.Images {
			images[i] = base + img
		}
		p.Images = images
	}
	return p
}
