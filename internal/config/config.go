package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvProduction = "production"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr           string
		Env            string
		PublicURL      string
		TrustedProxies []string
	}
	Log struct {
		Level string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret      string
		TokenTTLHours  int
		CookieSecure   bool
		ResetTTLMinute int
	}
	Security struct {
		MaxAttempts    int
		LockoutMinutes int
	}
	TwoFactor struct {
		CodeTTLMinutes int
		CodeDigits     int
		SessionDays    int
	}
	Notifications struct {
		RetentionDays int
	}
	Sweeper struct {
		IntervalMinutes int
	}
	Stripe struct {
		SecretKey     string
		WebhookSecret string
		SkipSignature bool
		Currency      string
	}
	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
	}
	Mail struct {
		Workers    int
		AdminEmail string
	}
	Storage struct {
		Bucket    string
		KeyPrefix string
		Region    string
		Endpoint  string
		PublicURL string
	}
	AWS struct {
		Profile string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("TECHANSWERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.publicurl", "http://localhost:3000")
	v.SetDefault("server.trustedproxies", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("database.path", "data/techanswers.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttlhours", 24*7)
	v.SetDefault("auth.cookiesecure", false)
	v.SetDefault("auth.resetttlminute", 60)
	v.SetDefault("security.maxattempts", 5)
	v.SetDefault("security.lockoutminutes", 15)
	v.SetDefault("twofactor.codettlminutes", 10)
	v.SetDefault("twofactor.codedigits", 6)
	v.SetDefault("twofactor.sessiondays", 30)
	v.SetDefault("notifications.retentiondays", 14)
	v.SetDefault("sweeper.intervalminutes", 60)
	v.SetDefault("stripe.secretkey", "")
	v.SetDefault("stripe.webhooksecret", "")
	v.SetDefault("stripe.skipsignature", false)
	v.SetDefault("stripe.currency", "eur")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "TechAnswers <no-reply@techanswers.fr>")
	v.SetDefault("mail.workers", 3)
	v.SetDefault("mail.adminemail", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.keyprefix", "techanswers")
	v.SetDefault("storage.region", "eu-west-3")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.publicurl", "")
	v.SetDefault("aws.profile", "")
}

// Validate reports settings the server cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth jwt secret is required")
	}
	if c.IsProduction() {
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth jwt secret must be at least 32 characters in production")
		}
		if c.Stripe.SkipSignature {
			return fmt.Errorf("stripe signature verification cannot be skipped in production")
		}
		if c.Stripe.SecretKey != "" && c.Stripe.WebhookSecret == "" {
			return fmt.Errorf("stripe webhook secret is required in production")
		}
	}
	if c.Security.MaxAttempts <= 0 {
		return fmt.Errorf("security max attempts must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Env, EnvProduction)
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

func (c Config) LockoutDuration() time.Duration {
	return time.Duration(c.Security.LockoutMinutes) * time.Minute
}

func (c Config) CodeTTL() time.Duration {
	return time.Duration(c.TwoFactor.CodeTTLMinutes) * time.Minute
}

func (c Config) DeviceSessionTTL() time.Duration {
	return time.Duration(c.TwoFactor.SessionDays) * 24 * time.Hour
}

func (c Config) ResetTTL() time.Duration {
	return time.Duration(c.Auth.ResetTTLMinute) * time.Minute
}

func (c Config) NotificationRetention() time.Duration {
	return time.Duration(c.Notifications.RetentionDays) * 24 * time.Hour
}

func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalMinutes) * time.Minute
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := parseEnvLine(scanner.Text())
		if !ok {
			continue
		}
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}

func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")

	idx := strings.Index(line, "=")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(line[:idx])
	value := strings.Trim(strings.TrimSpace(line[idx+1:]), `"'`)
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
