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

	"interiorly/internal/database"
	"interiorly/internal/models"
	"interiorly/internal/utils"
)

type UserRepository interface {
	CredentialStore
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	Update(ctx context.Context, userID primitive.ObjectID, updateFields bson.M) (*mongo.UpdateResult, error)
	CountAll(ctx context.Context) (int64, error)
	CountUsersCreatedBetween(ctx context.Context, startDate, endDate time.Time) (int64, error)
}

type userRepository struct {
	*credentialStore
	db database.Service
}

func NewUserRepository(db database.Service) UserRepository {
	return &userRepository{
		credentialStore: &credentialStore{db: db, collection: database.UsersCollection, repository: "user"},
		db:              db,
	}
}

func (r *userRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.UsersCollection)
}

func (r *userRepository) Create(ctx context.Context, user *models.User) (created *models.User, err error) {
	done := utils.QueryTimer("create", "user")
	defer func() { done(err) }()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = r.collection().InsertOne(ctx, user)
	if err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			log.Error().Err(err).Str("phone", user.Phone).Msg("Failed to insert user into database")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *userRepository) findOne(ctx context.Context, queryType string, filter bson.M) (user *models.User, err error) {
	done := utils.QueryTimer(queryType, "user")
	defer func() {
		if errors.Is(err, mongo.ErrNoDocuments) {
			done(nil)
			return
		}
		done(err)
	}()

	var u models.User
	if err = r.collection().FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, err // Can be mongo.ErrNoDocuments
	}
	return &u, nil
}

func (r *userRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findOne(ctx, "findByPhone", bson.M{"phone": phone})
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "findByEmail", bson.M{"email": email})
}

func (r *userRepository) FindByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, "findById", bson.M{"_id": userID})
}

func (r *userRepository) Update(ctx context.Context, userID primitive.ObjectID, updateFields bson.M) (result *mongo.UpdateResult, err error) {
	done := utils.QueryTimer("update", "user")
	defer func() { done(err) }()

	updateFields["updatedAt"] = time.Now()
	result, err = r.collection().UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": updateFields})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Error updating user")
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return result, nil
}

func (r *userRepository) CountAll(ctx context.Context) (count int64, err error) {
	done := utils.QueryTimer("countAll", "user")
	defer func() { done(err) }()

	count, err = r.collection().CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Error().Err(err).Msg("Failed to count total users")
		return 0, fmt.Errorf("failed to count total users: %w", err)
	}
	return count, nil
}

func (r *userRepository) CountUsersCreatedBetween(ctx context.Context, startDate, endDate time.Time) (count int64, err error) {
	done := utils.QueryTimer("countUsersCreatedBetween", "user")
	defer func() { done(err) }()

	filter := bson.M{
		"createdAt": bson.M{
			"$gte": startDate,
			"$lte": endDate,
		},
	}
	count, err = r.collection().CountDocuments(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count users created between dates")
		return 0, fmt.Errorf("failed to count users created between dates: %w", err)
	}
	return count, nil
}
