package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

type EmailService interface {
	SendEmail(ctx context.Context, to, subject, msg string) error
}

type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	DryRun   bool
}

type emailService struct {
	cfg    EmailConfig
	dialer *gomail.Dialer
}

func NewEmailService(cfg EmailConfig) EmailService {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &emailService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}
}

func (e *emailService) SendEmail(ctx context.Context, to, subject, msg string) error {
	if e.cfg.DryRun {
		log.Info().Str("to", to).Str("subject", subject).Msg("Email delivery dry run")
		return nil
	}
	if e.cfg.Username == "" || e.cfg.Password == "" {
		return errors.New("smtp credentials are not configured")
	}

	m := gomail.NewMessage()

	m.SetHeader("From", e.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", msg)

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func otpEmailBody(code string) string {
	return fmt.Sprintf(`<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes. Do not share it with anyone.</p>`,
		code, int(OTPTTL.Minutes()))
}
