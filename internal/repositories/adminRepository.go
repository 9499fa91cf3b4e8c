package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"interiorly/internal/database"
	"interiorly/internal/models"
	"interiorly/internal/utils"
)

type AdminRepository interface {
	CredentialStore
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, adminID primitive.ObjectID) (*models.Admin, error)
	Upsert(ctx context.Context, admin *models.Admin) (*models.Admin, error)
}

type adminRepository struct {
	*credentialStore
	db database.Service
}

func NewAdminRepository(db database.Service) AdminRepository {
	return &adminRepository{
		credentialStore: &credentialStore{db: db, collection: database.AdminsCollection, repository: "admin"},
		db:              db,
	}
}

func (r *adminRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.AdminsCollection)
}

func (r *adminRepository) findOne(ctx context.Context, queryType string, filter bson.M) (admin *models.Admin, err error) {
	done := utils.QueryTimer(queryType, "admin")
	defer func() {
		if errors.Is(err, mongo.ErrNoDocuments) {
			done(nil)
			return
		}
		done(err)
	}()

	var a models.Admin
	if err = r.collection().FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *adminRepository) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return r.findOne(ctx, "findByEmail", bson.M{"email": email})
}

func (r *adminRepository) FindByID(ctx context.Context, adminID primitive.ObjectID) (*models.Admin, error) {
	return r.findOne(ctx, "findById", bson.M{"_id": adminID})
}

// Upsert creates the admin or replaces its profile and password, keyed by email.
// OTP state of an existing admin is left untouched.
func (r *adminRepository) Upsert(ctx context.Context, admin *models.Admin) (saved *models.Admin, err error) {
	done := utils.QueryTimer("upsert", "admin")
	defer func() { done(err) }()

	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":      admin.Name,
			"phone":     admin.Phone,
			"password":  admin.Password,
			"role":      models.RoleAdmin,
			"isActive":  admin.IsActive,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"email":       admin.Email,
			"otpAttempts": 0,
			"createdAt":   now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var a models.Admin
	err = r.collection().FindOneAndUpdate(ctx, bson.M{"email": admin.Email}, update, opts).Decode(&a)
	if err != nil {
		log.Error().Err(err).Str("email", admin.Email).Msg("Failed to upsert admin")
		return nil, fmt.Errorf("failed to upsert admin: %w", err)
	}
	return &a, nil
}
