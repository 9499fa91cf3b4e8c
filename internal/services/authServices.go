package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"interiorly/internal/metrics"
	"interiorly/internal/models"
	"interiorly/internal/repositories"
	"interiorly/internal/utils"
)

// AuthService runs the end-user phone/email OTP login.
type AuthService interface {
	SendOTP(ctx context.Context, req *models.SendOTPRequest) (*models.SendOTPResponse, error)
	VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.AuthResponse, error)
}

type authService struct {
	userRepo repositories.UserRepository
	otp      OTPService
	sessions SessionService
	email    EmailService
	sms      SMSService
}

func NewAuthService(userRepo repositories.UserRepository, otp OTPService, sessions SessionService, email EmailService, sms SMSService) AuthService {
	return &authService{userRepo: userRepo, otp: otp, sessions: sessions, email: email, sms: sms}
}

func validationError(err error) error {
	return fmt.Errorf("%w: %s", ErrValidation, utils.ValidationMessage(err))
}

func (a *authService) SendOTP(ctx context.Context, req *models.SendOTPRequest) (*models.SendOTPResponse, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := utils.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	log.Debug().Str("phone", req.Phone).Msg("Attempting to send login otp")

	user, err := a.findOrCreateUser(ctx, req)
	if err != nil {
		return nil, err
	}

	channels := []DeliveryChannel{{
		Name: ChannelMobile,
		Send: func(ctx context.Context, code string) error {
			return a.sms.SendSMS(ctx, user.Phone, otpSMSBody(code))
		},
	}}
	if user.Email != "" {
		channels = append(channels, DeliveryChannel{
			Name: ChannelEmail,
			Send: func(ctx context.Context, code string) error {
				return a.email.SendEmail(ctx, user.Email, "Your verification code", otpEmailBody(code))
			},
		})
	}

	delivered, err := a.otp.Issue(ctx, userSubject(user, a.userRepo), channels)
	if err != nil {
		return nil, err
	}
	return &models.SendOTPResponse{Message: "OTP sent", DeliveredVia: delivered}, nil
}

// findOrCreateUser resolves the phone to a user, creating one on first contact.
// A requested email is only recorded as pending; codes never go to it until the
// phone has been proven.
func (a *authService) findOrCreateUser(ctx context.Context, req *models.SendOTPRequest) (*models.User, error) {
	user, err := a.userRepo.FindByPhone(ctx, req.Phone)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		user, created, err := a.createUser(ctx, req)
		if err != nil || created {
			return user, err
		}
		return user, a.requestEmail(ctx, user, req.Email)
	case err != nil:
		log.Error().Err(err).Str("phone", req.Phone).Msg("Error finding user by phone")
		return nil, err
	}
	return user, a.requestEmail(ctx, user, req.Email)
}

// requestEmail stores email as the user's pending email when it is not already
// bound or pending.
func (a *authService) requestEmail(ctx context.Context, user *models.User, email string) error {
	if email == "" || email == user.Email || email == user.PendingEmail {
		return nil
	}
	if err := a.ensureEmailFree(ctx, email, user); err != nil {
		return err
	}
	if _, err := a.userRepo.Update(ctx, user.ID, bson.M{"pendingEmail": email}); err != nil {
		return err
	}
	user.PendingEmail = email
	log.Debug().Str("userID", user.ID.Hex()).Msg("Email pending until phone is verified")
	return nil
}

// bindPendingEmail moves a pending email onto the account after a phone login.
// An address taken in the meantime is dropped; the login itself still succeeds.
func (a *authService) bindPendingEmail(ctx context.Context, user *models.User) {
	if user.PendingEmail == "" {
		return
	}
	pending := user.PendingEmail

	fields := bson.M{"pendingEmail": ""}
	err := a.ensureEmailFree(ctx, pending, user)
	switch {
	case err == nil:
		fields["email"] = pending
	case errors.Is(err, ErrEmailInUse):
		// only the pending marker is cleared
	default:
		log.Error().Err(err).Str("userID", user.ID.Hex()).Msg("Error checking pending email")
		return
	}

	if _, err := a.userRepo.Update(ctx, user.ID, fields); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn().Str("userID", user.ID.Hex()).Msg("Pending email was claimed by another user")
			_, _ = a.userRepo.Update(ctx, user.ID, bson.M{"pendingEmail": ""})
		} else {
			log.Error().Err(err).Str("userID", user.ID.Hex()).Msg("Error binding pending email")
		}
		return
	}
	if email, ok := fields["email"].(string); ok {
		user.Email = email
	}
	user.PendingEmail = ""
}

func (a *authService) ensureEmailFree(ctx context.Context, email string, owner *models.User) error {
	existing, err := a.userRepo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	case err != nil:
		return err
	case owner == nil || existing.ID != owner.ID:
		log.Warn().Str("email", email).Msg("Email already linked to another user")
		return ErrEmailInUse
	}
	return nil
}

// createUser reports created=false when a concurrent first request for the
// same phone won the insert; the caller then treats the user as existing.
func (a *authService) createUser(ctx context.Context, req *models.SendOTPRequest) (*models.User, bool, error) {
	if req.Email != "" {
		if err := a.ensureEmailFree(ctx, req.Email, nil); err != nil {
			return nil, false, err
		}
	}

	user, err := a.userRepo.Create(ctx, &models.User{
		Phone:        req.Phone,
		PendingEmail: req.Email,
		Name:         req.Name,
		Role:         models.RoleUser,
		IsActive:     true,
	})
	if err == nil {
		log.Info().Str("userID", user.ID.Hex()).Msg("New user created on first otp request")
		metrics.NewUsersTotal.Inc()
		return user, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, err
	}

	user, findErr := a.userRepo.FindByPhone(ctx, req.Phone)
	if findErr != nil {
		return nil, false, findErr
	}
	return user, false, nil
}

func (a *authService) VerifyOTP(ctx context.Context, req *models.VerifyOTPRequest) (*models.AuthResponse, error) {
	req.Phone = strings.TrimSpace(req.Phone)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTP = strings.TrimSpace(req.OTP)
	if err := utils.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	if req.Phone == "" && req.Email == "" {
		return nil, fmt.Errorf("%w: phone or email is required", ErrValidation)
	}

	var (
		user *models.User
		err  error
	)
	if req.Phone != "" {
		user, err = a.userRepo.FindByPhone(ctx, req.Phone)
	} else {
		user, err = a.userRepo.FindByEmail(ctx, req.Email)
	}
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCode
	}
	if err := a.sessions.Ready(); err != nil {
		return nil, err
	}

	if err := a.otp.Verify(ctx, userSubject(user, a.userRepo), req.OTP); err != nil {
		log.Warn().Err(err).Str("userID", user.ID.Hex()).Msg("User otp verification failed")
		return nil, err
	}
	if req.Phone != "" {
		a.bindPendingEmail(ctx, user)
	}

	session, err := a.sessions.Issue(user.ID, user.Role, false)
	if err != nil {
		return nil, err
	}
	log.Info().Str("userID", user.ID.Hex()).Msg("User logged in")
	return &models.AuthResponse{Token: session.Token, User: user.Public()}, nil
}

func userSubject(user *models.User, store repositories.CredentialStore) OTPSubject {
	return OTPSubject{ID: user.ID, Kind: subjectKindUser, State: user.OTPState, Store: store}
}
