package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

type SMSService interface {
	SendSMS(ctx context.Context, phone, message string) error
}

type SMSConfig struct {
	AccountSID  string
	AuthToken   string
	From        string
	CountryCode string
	DryRun      bool
}

type smsService struct {
	cfg    SMSConfig
	client *twilio.RestClient
}

func NewSMSService(cfg SMSConfig) SMSService {
	s := &smsService{cfg: cfg}
	if cfg.AccountSID != "" && cfg.AuthToken != "" {
		s.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}
	return s
}

// e164 prefixes a bare national number with the configured country code.
func (s *smsService) e164(phone string) string {
	if strings.HasPrefix(phone, "+") {
		return phone
	}
	return s.cfg.CountryCode + phone
}

func (s *smsService) SendSMS(ctx context.Context, phone, message string) error {
	to := s.e164(phone)
	if s.cfg.DryRun {
		log.Info().Str("to", to).Msg("SMS delivery dry run")
		return nil
	}
	if s.client == nil || s.cfg.From == "" {
		return errors.New("sms provider is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.cfg.From)
	params.SetTo(to)
	params.SetBody(message)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	if resp.Sid != nil {
		log.Debug().Str("sid", *resp.Sid).Msg("SMS accepted by provider")
	}
	return nil
}

func otpSMSBody(code string) string {
	return fmt.Sprintf("%s is your verification code. It expires in %d minutes.", code, int(OTPTTL.Minutes()))
}
