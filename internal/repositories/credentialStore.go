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

// ErrOTPStateChanged is returned when a conditional OTP update matched nothing:
// the OTP was replaced, consumed or locked by a concurrent request.
var ErrOTPStateChanged = errors.New("otp state changed concurrently")

// CredentialStore mutates the OTP sub-state of one identity document.
// Every method is a single atomic update bound to the state the caller read.
type CredentialStore interface {
	SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expires, now time.Time) error
	ClearOTP(ctx context.Context, id primitive.ObjectID, hash string) error
	RecordFailedAttempt(ctx context.Context, id primitive.ObjectID, hash string, maxAttempts int, now, lockUntil time.Time) (*models.OTPState, error)
	ConsumeOTP(ctx context.Context, id primitive.ObjectID, hash string, now time.Time) error
}

type credentialStore struct {
	db         database.Service
	collection string
	repository string
}

func (s *credentialStore) coll() *mongo.Collection {
	return s.db.Database().Collection(s.collection)
}

// notLocked matches documents whose lock is absent, null or already elapsed.
func notLocked(now time.Time) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"otpLockedUntil": nil},
		bson.M{"otpLockedUntil": bson.M{"$lte": now}},
	}}
}

func (s *credentialStore) SetOTP(ctx context.Context, id primitive.ObjectID, hash string, expires, now time.Time) (err error) {
	done := utils.QueryTimer("setOTP", s.repository)
	defer func() { done(err) }()

	filter := bson.M{"_id": id}
	for k, v := range notLocked(now) {
		filter[k] = v
	}
	update := bson.M{
		"$set": bson.M{
			"otpHash":     hash,
			"otpExpires":  expires,
			"otpAttempts": 0,
			"updatedAt":   now,
		},
		"$unset": bson.M{"otpLockedUntil": ""},
	}

	result, err := s.coll().UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("id", id.Hex()).Str("collection", s.collection).Msg("Failed to store otp")
		return fmt.Errorf("failed to store otp: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOTPStateChanged
	}
	return nil
}

func (s *credentialStore) ClearOTP(ctx context.Context, id primitive.ObjectID, hash string) (err error) {
	done := utils.QueryTimer("clearOTP", s.repository)
	defer func() { done(err) }()

	update := bson.M{
		"$set":   bson.M{"otpAttempts": 0, "updatedAt": time.Now()},
		"$unset": bson.M{"otpHash": "", "otpExpires": "", "otpLockedUntil": ""},
	}
	result, err := s.coll().UpdateOne(ctx, bson.M{"_id": id, "otpHash": hash}, update)
	if err != nil {
		log.Error().Err(err).Str("id", id.Hex()).Str("collection", s.collection).Msg("Failed to clear otp")
		return fmt.Errorf("failed to clear otp: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOTPStateChanged
	}
	return nil
}

// RecordFailedAttempt increments otpAttempts and sets otpLockedUntil once maxAttempts
// is reached, in one pipeline update, and returns the resulting state.
func (s *credentialStore) RecordFailedAttempt(ctx context.Context, id primitive.ObjectID, hash string, maxAttempts int, now, lockUntil time.Time) (state *models.OTPState, err error) {
	done := utils.QueryTimer("recordFailedAttempt", s.repository)
	defer func() {
		if errors.Is(err, ErrOTPStateChanged) {
			done(nil)
			return
		}
		done(err)
	}()

	filter := bson.M{"_id": id, "otpHash": hash}
	for k, v := range notLocked(now) {
		filter[k] = v
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "otpAttempts", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$otpAttempts", 0}}}, 1,
			}}}},
			{Key: "updatedAt", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "otpLockedUntil", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gte", Value: bson.A{"$otpAttempts", maxAttempts}}},
				lockUntil,
				"$otpLockedUntil",
			}}}},
		}}},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.OTPState
	err = s.coll().FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOTPStateChanged
		}
		log.Error().Err(err).Str("id", id.Hex()).Str("collection", s.collection).Msg("Failed to record otp attempt")
		return nil, fmt.Errorf("failed to record otp attempt: %w", err)
	}
	return &updated, nil
}

// ConsumeOTP clears the OTP only if it is still the one the caller verified and not locked.
func (s *credentialStore) ConsumeOTP(ctx context.Context, id primitive.ObjectID, hash string, now time.Time) (err error) {
	done := utils.QueryTimer("consumeOTP", s.repository)
	defer func() { done(err) }()

	filter := bson.M{"_id": id, "otpHash": hash, "otpExpires": bson.M{"$gt": now}}
	for k, v := range notLocked(now) {
		filter[k] = v
	}
	update := bson.M{
		"$set":   bson.M{"otpAttempts": 0, "updatedAt": now},
		"$unset": bson.M{"otpHash": "", "otpExpires": "", "otpLockedUntil": ""},
	}

	result, err := s.coll().UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("id", id.Hex()).Str("collection", s.collection).Msg("Failed to consume otp")
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrOTPStateChanged
	}
	return nil
}
