package domain

import "go.mongodb.org/mongo-driver/bson/primitive"

type User struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name   string             `bson:"name" json:"name"`
	Email  string             `bson:"email" json:"email"`
	Role   Role               `bson:"role" json:"role"`
	Active bool               `bson:"active" json:"active"`
}

func (u *User) Caller() Caller {
	return Caller{UserID: u.ID, Role: u.Role}
}
