package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"interiorly/internal/metrics"
	"interiorly/internal/models"
	"interiorly/internal/repositories"
	"interiorly/internal/utils"
)

// AdminAuthService runs the admin password + OTP login.
type AdminAuthService interface {
	Login(ctx context.Context, req *models.AdminLoginRequest) (*models.AdminLoginResponse, error)
	VerifyOTP(ctx context.Context, req *models.AdminVerifyOTPRequest, meta models.RequestMeta) (*models.AdminAuthResponse, error)
	Logout(ctx context.Context, adminID primitive.ObjectID, meta models.RequestMeta) error
	GetProfile(ctx context.Context, adminID primitive.ObjectID) (*models.PublicAdmin, error)
}

type adminAuthService struct {
	adminRepo repositories.AdminRepository
	auditRepo repositories.AuditRepository
	otp       OTPService
	sessions  SessionService
	email     EmailService
	sms       SMSService
}

func NewAdminAuthService(
	adminRepo repositories.AdminRepository,
	auditRepo repositories.AuditRepository,
	otp OTPService,
	sessions SessionService,
	email EmailService,
	sms SMSService,
) AdminAuthService {
	return &adminAuthService{
		adminRepo: adminRepo,
		auditRepo: auditRepo,
		otp:       otp,
		sessions:  sessions,
		email:     email,
		sms:       sms,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// burnPasswordCheck spends the same bcrypt work as a real comparison so that
// unknown emails are not distinguishable by response time.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func (s *adminAuthService) Login(ctx context.Context, req *models.AdminLoginRequest) (*models.AdminLoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := utils.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	log.Debug().Str("email", req.Email).Msg("Attempting admin login")

	admin, err := s.adminRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			log.Error().Err(err).Str("email", req.Email).Msg("Error finding admin by email")
			return nil, err
		}
		burnPasswordCheck(req.Password)
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("email", req.Email).Msg("Admin login for unknown email")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil || !admin.IsActive {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("adminID", admin.ID.Hex()).Bool("active", admin.IsActive).Msg("Admin login rejected")
		return nil, ErrInvalidCredentials
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	channels := []DeliveryChannel{{
		Name: ChannelEmail,
		Send: func(ctx context.Context, code string) error {
			return s.email.SendEmail(ctx, admin.Email, "Your admin login code", otpEmailBody(code))
		},
	}}
	if admin.Phone != "" {
		channels = append(channels, DeliveryChannel{
			Name: ChannelMobile,
			Send: func(ctx context.Context, code string) error {
				return s.sms.SendSMS(ctx, admin.Phone, otpSMSBody(code))
			},
		})
	}

	delivered, err := s.otp.Issue(ctx, adminSubject(admin, s.adminRepo), channels)
	if err != nil {
		return nil, err
	}
	log.Info().Str("adminID", admin.ID.Hex()).Msg("Admin password accepted, otp sent")
	return &models.AdminLoginResponse{OTPRequired: true, DeliveredVia: delivered}, nil
}

func (s *adminAuthService) VerifyOTP(ctx context.Context, req *models.AdminVerifyOTPRequest, meta models.RequestMeta) (*models.AdminAuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.OTP = strings.TrimSpace(req.OTP)
	if err := utils.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	admin, err := s.adminRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrInvalidCode
	}
	if err := s.sessions.Ready(); err != nil {
		return nil, err
	}

	verifyErr := s.otp.Verify(ctx, adminSubject(admin, s.adminRepo), req.OTP)
	s.audit(ctx, admin.ID, models.AuditActionAdminLoginOTP, verifyErr == nil, meta)
	if verifyErr != nil {
		log.Warn().Err(verifyErr).Str("adminID", admin.ID.Hex()).Msg("Admin otp verification failed")
		return nil, verifyErr
	}

	session, err := s.sessions.Issue(admin.ID, admin.Role, true)
	if err != nil {
		return nil, err
	}
	log.Info().Str("adminID", admin.ID.Hex()).Msg("Admin logged in")
	return &models.AdminAuthResponse{Token: session.Token, Admin: admin.Public(), MaxAge: session.MaxAge}, nil
}

func (s *adminAuthService) Logout(ctx context.Context, adminID primitive.ObjectID, meta models.RequestMeta) error {
	s.audit(ctx, adminID, models.AuditActionAdminLogout, true, meta)
	return nil
}

func (s *adminAuthService) GetProfile(ctx context.Context, adminID primitive.ObjectID) (*models.PublicAdmin, error) {
	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: admin", ErrNotFound)
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, ErrForbidden
	}
	profile := admin.Public()
	return &profile, nil
}

// audit never fails the caller; a lost entry is logged.
func (s *adminAuthService) audit(ctx context.Context, actorID primitive.ObjectID, action string, success bool, meta models.RequestMeta) {
	entry := &models.AuditLog{
		ActorID:   &actorID,
		Action:    action,
		Success:   success,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: time.Now(),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", action).Str("adminID", actorID.Hex()).Msg("Failed to record audit entry")
	}
}

func adminSubject(admin *models.Admin, store repositories.CredentialStore) OTPSubject {
	return OTPSubject{ID: admin.ID, Kind: subjectKindAdmin, State: admin.OTPState, Store: store}
}
