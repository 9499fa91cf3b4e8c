package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"interiorly/internal/metrics"
	"interiorly/internal/models"
	"interiorly/internal/repositories"
	"interiorly/internal/utils"
)

const (
	OTPTTL          = 5 * time.Minute
	OTPMaxAttempts  = 5
	OTPLockDuration = 15 * time.Minute

	ChannelMobile = "mobile"
	ChannelEmail  = "email"

	subjectKindUser  = "user"
	subjectKindAdmin = "admin"
)

// OTPSubject is one identity document as read by the caller. Every write the
// engine makes is conditional on State.OTPHash still being current.
type OTPSubject struct {
	ID    primitive.ObjectID
	Kind  string
	State models.OTPState
	Store repositories.CredentialStore
}

// DeliveryChannel sends a code over one out-of-band channel.
type DeliveryChannel struct {
	Name string
	Send func(ctx context.Context, code string) error
}

type OTPService interface {
	// Issue stores a fresh code and delivers it over every channel. It returns
	// the names of the channels that succeeded.
	Issue(ctx context.Context, subject OTPSubject, channels []DeliveryChannel) ([]string, error)
	// Verify checks code against the subject's pending OTP and consumes it on match.
	Verify(ctx context.Context, subject OTPSubject, code string) error
}

type otpService struct {
	deliveryTimeout time.Duration
	hashCost        int
	now             func() time.Time
}

func NewOTPService(deliveryTimeout time.Duration, hashCost int) OTPService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &otpService{deliveryTimeout: deliveryTimeout, hashCost: hashCost, now: time.Now}
}

func (s *otpService) Issue(ctx context.Context, subject OTPSubject, channels []DeliveryChannel) ([]string, error) {
	now := s.now()
	log.Debug().Str("id", subject.ID.Hex()).Str("kind", subject.Kind).Msg("Issuing otp")

	if subject.State.IsLocked(now) {
		log.Warn().Str("id", subject.ID.Hex()).Msg("OTP requested while locked")
		return nil, ErrTooManyAttempts
	}
	if len(channels) == 0 {
		return nil, ErrDeliveryUnavailable
	}

	code, err := utils.GenerateSecureOTP()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash otp")
		return nil, fmt.Errorf("failed to hash otp: %w", err)
	}

	if err := subject.Store.SetOTP(ctx, subject.ID, string(hash), now.Add(OTPTTL), now); err != nil {
		if errors.Is(err, repositories.ErrOTPStateChanged) {
			// Locked by a concurrent verify since the caller read the document.
			return nil, ErrTooManyAttempts
		}
		return nil, err
	}

	delivered := s.deliver(ctx, channels, code)
	if len(delivered) == 0 {
		if err := subject.Store.ClearOTP(ctx, subject.ID, string(hash)); err != nil && !errors.Is(err, repositories.ErrOTPStateChanged) {
			log.Error().Err(err).Str("id", subject.ID.Hex()).Msg("Failed to roll back undelivered otp")
		}
		log.Warn().Str("id", subject.ID.Hex()).Msg("OTP could not be delivered on any channel")
		return nil, ErrDeliveryUnavailable
	}

	log.Info().Str("id", subject.ID.Hex()).Strs("channels", delivered).Msg("OTP issued")
	return delivered, nil
}

// deliver attempts every channel concurrently and keeps the input order in the result.
func (s *otpService) deliver(ctx context.Context, channels []DeliveryChannel, code string) []string {
	ok := make([]bool, len(channels))
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(i int, ch DeliveryChannel) {
			defer wg.Done()
			err := withTimeout(ctx, s.deliveryTimeout, func(ctx context.Context) error {
				return ch.Send(ctx, code)
			})
			if err != nil {
				log.Warn().Err(err).Str("channel", ch.Name).Msg("OTP delivery failed")
				metrics.OTPSentTotal.WithLabelValues(ch.Name, "failed").Inc()
				return
			}
			metrics.OTPSentTotal.WithLabelValues(ch.Name, "success").Inc()
			ok[i] = true
		}(i, ch)
	}
	wg.Wait()

	delivered := make([]string, 0, len(channels))
	for i, ch := range channels {
		if ok[i] {
			delivered = append(delivered, ch.Name)
		}
	}
	return delivered
}

func (s *otpService) Verify(ctx context.Context, subject OTPSubject, code string) error {
	now := s.now()
	state := subject.State

	if !state.IsPending() {
		s.observe(subject, "invalid")
		return ErrInvalidCode
	}
	if state.IsLocked(now) {
		s.observe(subject, "locked")
		return ErrTooManyAttempts
	}
	if state.IsExpired(now) {
		s.observe(subject, "expired")
		return ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(state.OTPHash), []byte(code)); err != nil {
		updated, err := subject.Store.RecordFailedAttempt(ctx, subject.ID, state.OTPHash, OTPMaxAttempts, now, now.Add(OTPLockDuration))
		switch {
		case errors.Is(err, repositories.ErrOTPStateChanged):
		case err != nil:
			return err
		case updated.IsLocked(now):
			log.Warn().Str("id", subject.ID.Hex()).Str("kind", subject.Kind).Msg("OTP locked after too many failed attempts")
		}
		s.observe(subject, "invalid")
		return ErrInvalidCode
	}

	if err := subject.Store.ConsumeOTP(ctx, subject.ID, state.OTPHash, now); err != nil {
		if errors.Is(err, repositories.ErrOTPStateChanged) {
			// Consumed, replaced or locked by a concurrent request.
			s.observe(subject, "invalid")
			return ErrInvalidCode
		}
		return err
	}
	s.observe(subject, "success")
	return nil
}

func (s *otpService) observe(subject OTPSubject, outcome string) {
	metrics.OTPVerifyTotal.WithLabelValues(subject.Kind, outcome).Inc()
}
