package config

import (
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every setting the API reads from the environment (or a .env file).
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	MongoURI      string `envconfig:"MONGO_URI" required:"true"`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"interiorly"`

	// JWTSecret is intentionally optional at startup; session issuing fails when it is empty.
	JWTSecret  string        `envconfig:"JWT_SECRET"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS"`
	TrustProxy     bool   `envconfig:"TRUST_PROXY" default:"false"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"smtp.gmail.com"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM"`

	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `envconfig:"TWILIO_FROM"`
	SMSCountryCode   string `envconfig:"SMS_COUNTRY_CODE" default:"+91"`

	DeliveryDryRun  bool          `envconfig:"DELIVERY_DRY_RUN" default:"false"`
	DeliveryTimeout time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"12s"`

	OTPRateLimit       int           `envconfig:"OTP_RATE_LIMIT" default:"5"`
	OTPVerifyRateLimit int           `envconfig:"OTP_VERIFY_RATE_LIMIT" default:"20"`
	OTPRateWindow      time.Duration `envconfig:"OTP_RATE_WINDOW" default:"10m"`
	LoginRateLimit     int           `envconfig:"LOGIN_RATE_LIMIT" default:"10"`
	LoginRateWindow    time.Duration `envconfig:"LOGIN_RATE_WINDOW" default:"15m"`
	APIRatePerSec      float64       `envconfig:"API_RATE_PER_SECOND" default:"3"`
	APIRateBurst       int           `envconfig:"API_RATE_BURST" default:"5"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"interiorly.events"`
}

func Load() (Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	return c, err
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func (c Config) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
