package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Admin struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email     string             `json:"email" bson:"email"`
	Phone     string             `json:"phone,omitempty" bson:"phone,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Password  string             `json:"-" bson:"password"`
	Role      string             `json:"role" bson:"role"`
	IsActive  bool               `json:"isActive" bson:"isActive"`
	OTPState  `bson:",inline"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type PublicAdmin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func (a *Admin) Public() PublicAdmin {
	return PublicAdmin{ID: a.ID.Hex(), Email: a.Email, Name: a.Name, Role: a.Role}
}

// AuditLog records security-relevant admin actions.
type AuditLog struct {
	ID        primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ActorID   *primitive.ObjectID `json:"actorId,omitempty" bson:"actorId,omitempty"`
	Action    string              `json:"action" bson:"action"`
	Success   bool                `json:"success" bson:"success"`
	IP        string              `json:"ip" bson:"ip"`
	UserAgent string              `json:"userAgent" bson:"userAgent"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}

const (
	AuditActionAdminLoginOTP = "admin_login_otp"
	AuditActionAdminLogout   = "admin_logout"
)
