package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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

type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) (*models.Booking, error)
	FindByID(ctx context.Context, bookingID primitive.ObjectID) (*models.Booking, error)
	FindBlockedSlots(ctx context.Context, date string) ([]string, error)
	Find(ctx context.Context, query models.BookingQuery) ([]models.Booking, error)
	Count(ctx context.Context, query models.BookingQuery) (int64, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, bookingID primitive.ObjectID, status string) (*models.Booking, error)
	Delete(ctx context.Context, bookingID primitive.ObjectID) (*mongo.DeleteResult, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

type bookingRepository struct {
	db database.Service
}

func NewBookingRepository(db database.Service) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) collection() *mongo.Collection {
	return r.db.Database().Collection(database.BookingsCollection)
}

// Create inserts the booking as given. A duplicate key error from the
// uniq_active_slot index is returned wrapped so callers can detect it.
func (r *bookingRepository) Create(ctx context.Context, booking *models.Booking) (created *models.Booking, err error) {
	done := utils.QueryTimer("create", "booking")
	defer func() {
		if mongo.IsDuplicateKeyError(err) {
			done(nil)
			return
		}
		done(err)
	}()

	if booking.ID.IsZero() {
		booking.ID = primitive.NewObjectID()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if _, err = r.collection().InsertOne(ctx, booking); err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			log.Error().Err(err).Str("date", booking.Date).Str("time", booking.Time).Msg("Failed to insert booking")
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) FindByID(ctx context.Context, bookingID primitive.ObjectID) (booking *models.Booking, err error) {
	done := utils.QueryTimer("findById", "booking")
	defer func() {
		if errors.Is(err, mongo.ErrNoDocuments) {
			done(nil)
			return
		}
		done(err)
	}()

	var b models.Booking
	if err = r.collection().FindOne(ctx, bson.M{"_id": bookingID}).Decode(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepository) FindBlockedSlots(ctx context.Context, date string) (slots []string, err error) {
	done := utils.QueryTimer("findBlockedSlots", "booking")
	defer func() { done(err) }()

	filter := bson.M{
		"date":   date,
		"status": bson.M{"$in": models.ActiveBookingStatuses},
	}
	values, err := r.collection().Distinct(ctx, "time", filter)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("Failed to fetch blocked slots")
		return nil, fmt.Errorf("failed to fetch blocked slots: %w", err)
	}

	slots = make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			slots = append(slots, s)
		}
	}
	return slots, nil
}

func buildBookingFilter(query models.BookingQuery) bson.M {
	filter := bson.M{}
	if query.Status != "" {
		filter["status"] = query.Status
	}
	if query.Date != "" {
		filter["date"] = query.Date
	}
	if query.Q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query.Q), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"phone": pattern},
			bson.M{"city": pattern},
		}
	}
	return filter
}

func (r *bookingRepository) Find(ctx context.Context, query models.BookingQuery) (bookings []models.Booking, err error) {
	done := utils.QueryTimer("find", "booking")
	defer func() { done(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
		if query.Page > 1 {
			opts.SetSkip(int64((query.Page - 1) * query.Limit))
		}
	}

	cursor, err := r.collection().Find(ctx, buildBookingFilter(query), opts)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query bookings")
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings = []models.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		log.Error().Err(err).Msg("Failed to decode bookings")
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *bookingRepository) Count(ctx context.Context, query models.BookingQuery) (count int64, err error) {
	done := utils.QueryTimer("count", "booking")
	defer func() { done(err) }()

	count, err = r.collection().CountDocuments(ctx, buildBookingFilter(query))
	if err != nil {
		log.Error().Err(err).Msg("Failed to count bookings")
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

func (r *bookingRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (bookings []models.Booking, err error) {
	done := utils.QueryTimer("findByUser", "booking")
	defer func() { done(err) }()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection().Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to query user bookings")
		return nil, fmt.Errorf("failed to query user bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings = []models.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode user bookings: %w", err)
	}
	return bookings, nil
}

// UpdateStatus returns mongo.ErrNoDocuments when the booking is absent and a
// duplicate key error when the new status would re-occupy a taken slot.
func (r *bookingRepository) UpdateStatus(ctx context.Context, bookingID primitive.ObjectID, status string) (booking *models.Booking, err error) {
	done := utils.QueryTimer("updateStatus", "booking")
	defer func() {
		if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
			done(nil)
			return
		}
		done(err)
	}()

	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var b models.Booking
	err = r.collection().FindOneAndUpdate(ctx, bson.M{"_id": bookingID}, update, opts).Decode(&b)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) || mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		log.Error().Err(err).Str("booking_id", bookingID.Hex()).Msg("Failed to update booking status")
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &b, nil
}

func (r *bookingRepository) Delete(ctx context.Context, bookingID primitive.ObjectID) (result *mongo.DeleteResult, err error) {
	done := utils.QueryTimer("delete", "booking")
	defer func() { done(err) }()

	result, err = r.collection().DeleteOne(ctx, bson.M{"_id": bookingID})
	if err != nil {
		log.Error().Err(err).Str("booking_id", bookingID.Hex()).Msg("Failed to delete booking")
		return nil, fmt.Errorf("failed to delete booking: %w", err)
	}
	return result, nil
}

func (r *bookingRepository) CountByStatus(ctx context.Context) (counts map[string]int64, err error) {
	done := utils.QueryTimer("countByStatus", "booking")
	defer func() { done(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate booking statuses")
		return nil, fmt.Errorf("failed to aggregate booking statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booking status counts: %w", err)
	}

	counts = make(map[string]int64, len(models.BookingStatuses))
	for _, s := range models.BookingStatuses {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
