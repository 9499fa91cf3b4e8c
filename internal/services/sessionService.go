package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"interiorly/internal/utils"
)

const (
	DefaultSessionTTL = 7 * 24 * time.Hour
	MinSessionTTL     = 15 * time.Minute
)

// ClampSessionTTL applies the default to an unset TTL and the floor to a short one.
func ClampSessionTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl <= 0:
		return DefaultSessionTTL
	case ttl < MinSessionTTL:
		return MinSessionTTL
	default:
		return ttl
	}
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	// MaxAge is the lifetime in whole seconds, for cookies.
	MaxAge int
}

type SessionService interface {
	Issue(id primitive.ObjectID, role string, admin bool) (*Session, error)
	// Parse accepts any unexpired session.
	Parse(token string) (*utils.Claims, error)
	// ParseAdmin rejects tokens without the admin marker before looking at expiry.
	ParseAdmin(token string) (*utils.Claims, error)
	TTL() time.Duration
	// Ready fails when sessions cannot be issued, so callers can refuse before
	// consuming a one-time code.
	Ready() error
}

type sessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(secret string, ttl time.Duration) SessionService {
	if secret == "" {
		log.Warn().Msg("JWT_SECRET is not set; every login will fail until it is configured")
	}
	return &sessionService{secret: []byte(secret), ttl: ClampSessionTTL(ttl), now: time.Now}
}

func (s *sessionService) TTL() time.Duration {
	return s.ttl
}

func (s *sessionService) Ready() error {
	if len(s.secret) == 0 {
		return ErrSigningSecretMissing
	}
	return nil
}

func (s *sessionService) Issue(id primitive.ObjectID, role string, admin bool) (*Session, error) {
	if len(s.secret) == 0 {
		log.Error().Str("id", id.Hex()).Msg("Refusing to issue session without a signing secret")
		return nil, ErrSigningSecretMissing
	}

	tokenType := ""
	if admin {
		tokenType = utils.TokenTypeAdmin
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	token, err := utils.GenerateJWT(s.secret, id.Hex(), role, tokenType, issuedAt, expiresAt)
	if err != nil {
		log.Error().Err(err).Str("id", id.Hex()).Msg("Error generating JWT")
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, MaxAge: int(s.ttl.Seconds())}, nil
}

func (s *sessionService) Parse(token string) (*utils.Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrSigningSecretMissing
	}
	claims, err := utils.ParseJWT(s.secret, token, true)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *sessionService) ParseAdmin(token string) (*utils.Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrSigningSecretMissing
	}
	claims, err := utils.ParseJWT(s.secret, token, false)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !claims.IsAdmin() {
		return nil, ErrForbidden
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrSessionExpired
	}
	return claims, nil
}
