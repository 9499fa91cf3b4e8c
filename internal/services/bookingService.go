package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"interiorly/internal/events"
	"interiorly/internal/metrics"
	"interiorly/internal/models"
	"interiorly/internal/repositories"
	"interiorly/internal/utils"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	publishTimeout   = 5 * time.Second
)

type BookingService interface {
	GetBlockedSlots(ctx context.Context, date string) ([]string, error)
	CreateBooking(ctx context.Context, userID primitive.ObjectID, req *models.CreateBookingRequest) (*models.Booking, error)
	ListBookings(ctx context.Context, query models.BookingQuery) (*models.BookingPage, error)
	ListMyBookings(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, bookingID primitive.ObjectID, req *models.UpdateBookingStatusRequest) (*models.Booking, error)
	DeleteBooking(ctx context.Context, bookingID primitive.ObjectID) error
}

type bookingService struct {
	bookingRepo repositories.BookingRepository
	userRepo    repositories.UserRepository
	events      events.Sink
}

func NewBookingService(bookingRepo repositories.BookingRepository, userRepo repositories.UserRepository, sink events.Sink) BookingService {
	if sink == nil {
		sink = events.NopSink{}
	}
	return &bookingService{bookingRepo: bookingRepo, userRepo: userRepo, events: sink}
}

func (s *bookingService) GetBlockedSlots(ctx context.Context, date string) ([]string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return []string{}, nil
	}
	slots, err := s.bookingRepo.FindBlockedSlots(ctx, date)
	if err != nil {
		return nil, err
	}
	slices.Sort(slots)
	return slots, nil
}

func (s *bookingService) CreateBooking(ctx context.Context, userID primitive.ObjectID, req *models.CreateBookingRequest) (*models.Booking, error) {
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.City = strings.TrimSpace(req.City)
	if err := utils.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	log.Debug().Str("userID", userID.Hex()).Str("date", req.Date).Str("time", req.Time).Msg("Attempting to create booking")

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
		}
		return nil, err
	}
	if user.Phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrValidation)
	}

	booking, err := s.bookingRepo.Create(ctx, &models.Booking{
		UserID: user.ID,
		Phone:  user.Phone,
		Date:   req.Date,
		Time:   req.Time,
		City:   req.City,
		Status: models.BookingStatusPending,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			metrics.SlotConflictsTotal.Inc()
			log.Warn().Str("date", req.Date).Str("time", req.Time).Msg("Booking rejected, slot already taken")
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	metrics.BookingCreatedTotal.Inc()
	log.Info().Str("bookingID", booking.ID.Hex()).Msg("Booking created")
	s.publish(events.NewBooking, booking)
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, query models.BookingQuery) (*models.BookingPage, error) {
	query.Status = strings.TrimSpace(query.Status)
	query.Date = strings.TrimSpace(query.Date)
	query.Q = strings.TrimSpace(query.Q)
	if query.Status != "" && !slices.Contains(models.BookingStatuses, query.Status) {
		return nil, fmt.Errorf("%w: status must be one of %s", ErrValidation, strings.Join(models.BookingStatuses, " "))
	}
	if query.Date != "" {
		if _, err := time.Parse(models.DateLayout, query.Date); err != nil {
			return nil, fmt.Errorf("%w: date must be a date in YYYY-MM-DD format", ErrValidation)
		}
	}

	if !query.Paginated() {
		items, err := s.bookingRepo.Find(ctx, query)
		if err != nil {
			return nil, err
		}
		return &models.BookingPage{Items: items, Total: int64(len(items))}, nil
	}

	if query.Page < 1 {
		query.Page = 1
	}
	switch {
	case query.Limit < 1:
		query.Limit = defaultPageLimit
	case query.Limit > maxPageLimit:
		query.Limit = maxPageLimit
	}

	items, err := s.bookingRepo.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	total, err := s.bookingRepo.Count(ctx, query)
	if err != nil {
		return nil, err
	}
	return &models.BookingPage{Items: items, Total: total, Page: query.Page, Limit: query.Limit}, nil
}

func (s *bookingService) ListMyBookings(ctx context.Context, userID primitive.ObjectID) ([]models.Booking, error) {
	return s.bookingRepo.FindByUser(ctx, userID)
}

func (s *bookingService) UpdateStatus(ctx context.Context, bookingID primitive.ObjectID, req *models.UpdateBookingStatusRequest) (*models.Booking, error) {
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	if err := utils.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	booking, err := s.bookingRepo.UpdateStatus(ctx, bookingID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, fmt.Errorf("%w: booking", ErrNotFound)
		case mongo.IsDuplicateKeyError(err):
			metrics.SlotConflictsTotal.Inc()
			return nil, ErrSlotConflict
		}
		return nil, err
	}

	log.Info().Str("bookingID", bookingID.Hex()).Str("status", req.Status).Msg("Booking status updated")
	s.publish(events.BookingStatusUpdated, booking)
	return booking, nil
}

func (s *bookingService) DeleteBooking(ctx context.Context, bookingID primitive.ObjectID) error {
	result, err := s.bookingRepo.Delete(ctx, bookingID)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: booking", ErrNotFound)
	}

	log.Info().Str("bookingID", bookingID.Hex()).Msg("Booking deleted")
	s.publish(events.BookingDeleted, map[string]string{"id": bookingID.Hex()})
	return nil
}

// publish hands the event to the sink in the background; a failure is only logged.
func (s *bookingService) publish(name string, payload any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.events.Publish(ctx, name, payload); err != nil {
			metrics.EventsPublishedTotal.WithLabelValues(name, "failed").Inc()
			log.Warn().Err(err).Str("event", name).Msg("Failed to publish event")
			return
		}
		metrics.EventsPublishedTotal.WithLabelValues(name, "success").Inc()
	}()
}
