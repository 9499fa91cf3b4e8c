package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"interiorly/internal/metrics"
	"interiorly/internal/models"
	"interiorly/internal/repositories"
)

type StatsService interface {
	// GetStats counts bookings per status and users; NewUsers is set only when a range is given.
	GetStats(ctx context.Context, from, to *time.Time) (*models.BookingStats, error)
	// RunUserGauge refreshes the total users gauge until ctx is done.
	RunUserGauge(ctx context.Context, interval time.Duration)
}

type statsService struct {
	bookingRepo repositories.BookingRepository
	userRepo    repositories.UserRepository
}

func NewStatsService(bookingRepo repositories.BookingRepository, userRepo repositories.UserRepository) StatsService {
	return &statsService{bookingRepo: bookingRepo, userRepo: userRepo}
}

func (s *statsService) GetStats(ctx context.Context, from, to *time.Time) (*models.BookingStats, error) {
	byStatus, err := s.bookingRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.BookingStats{ByStatus: byStatus, TotalUsers: total}

	if from != nil || to != nil {
		start, end := time.Time{}, time.Now()
		if from != nil {
			start = *from
		}
		if to != nil {
			end = *to
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: from must be before to", ErrValidation)
		}
		count, err := s.userRepo.CountUsersCreatedBetween(ctx, start, end)
		if err != nil {
			return nil, err
		}
		stats.NewUsers = &count
	}
	return stats, nil
}

func (s *statsService) RunUserGauge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.refreshUserGauge(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *statsService) refreshUserGauge(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	count, err := s.userRepo.CountAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error updating total users gauge")
		return
	}
	metrics.TotalUsers.Set(float64(count))
}
