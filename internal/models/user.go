package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID       primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Phone    string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Email    string             `json:"email,omitempty" bson:"email,omitempty"`
	Name     string             `json:"name,omitempty" bson:"name,omitempty"`
	Password string             `json:"-" bson:"password,omitempty"`
	Role     string             `json:"role" bson:"role"`
	IsActive bool               `json:"isActive" bson:"isActive"`
	OTPState `bson:",inline"`
	// PendingEmail is bound to Email only after the user proves the phone.
	PendingEmail string    `json:"-" bson:"pendingEmail,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// PublicUser is what clients see after login.
type PublicUser struct {
	ID    string `json:"id"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.Hex(), Phone: u.Phone, Email: u.Email, Name: u.Name, Role: u.Role}
}
