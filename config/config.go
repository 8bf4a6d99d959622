package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config is the application configuration root. go-config fills it from
// config files and environment overrides.
type Config struct {
	Server   Server   `json:"server" koanf:"server"`
	Database Database `json:"database" koanf:"database"`
	Auth     Auth     `json:"auth" koanf:"auth"`
	Storage  Storage  `json:"storage" koanf:"storage"`
}

// Server configures the HTTP listener
type Server struct {
	Address string `json:"address" koanf:"address"`
}

// Database selects the driver and DSN
type Database struct {
	Driver string `json:"driver" koanf:"driver"`
	DSN    string `json:"dsn" koanf:"dsn"`
}

// Auth configures the local identity provider
type Auth struct {
	SigningKey           string `json:"signing_key" koanf:"signing_key"`
	TokenExpirationHours int    `json:"token_expiration_hours" koanf:"token_expiration_hours"`
	Issuer               string `json:"issuer" koanf:"issuer"`
	Audience             string `json:"audience" koanf:"audience"`
	MaxLoginAttempts     int    `json:"max_login_attempts" koanf:"max_login_attempts"`
	CoolDownMinutes      int    `json:"cool_down_minutes" koanf:"cool_down_minutes"`
}

// Storage configures the object store for product images and documents
type Storage struct {
	Bucket        string `json:"bucket" koanf:"bucket"`
	PublicBaseURL string `json:"public_base_url" koanf:"public_base_url"`
	EmulatorHost  string `json:"emulator_host" koanf:"emulator_host"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.Database),
		validation.Field(&c.Auth),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
	)
}

func (d Database) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.In("", "sqlite", "postgres")),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(16, 0)),
	)
}

func (c Config) GetServer() Server     { return c.Server }
func (c Config) GetDatabase() Database { return c.Database }
func (c Config) GetAuth() Auth         { return c.Auth }
func (c Config) GetStorage() Storage   { return c.Storage }

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8080"
	}
	return s.Address
}

func (d Database) GetDriver() string {
	if d.Driver == "" {
		return "sqlite"
	}
	return d.Driver
}

func (d Database) GetDSN() string {
	if d.DSN == "" {
		return "file:storefront.db"
	}
	return d.DSN
}

func (a Auth) GetSigningKey() []byte { return []byte(a.SigningKey) }

func (a Auth) GetTokenExpiration() int {
	if a.TokenExpirationHours == 0 {
		return 72
	}
	return a.TokenExpirationHours
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "storefront"
	}
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	if a.Audience == "" {
		return []string{"storefront"}
	}
	return []string{a.Audience}
}

func (a Auth) GetMaxLoginAttempts() int {
	if a.MaxLoginAttempts == 0 {
		return 5
	}
	return a.MaxLoginAttempts
}

func (a Auth) GetCoolDownPeriod() time.Duration {
	if a.CoolDownMinutes == 0 {
		return 15 * time.Minute
	}
	return time.Duration(a.CoolDownMinutes) * time.Minute
}

func (s Storage) GetBucket() string        { return s.Bucket }
func (s Storage) GetPublicBaseURL() string { return s.PublicBaseURL }
func (s Storage) GetEmulatorHost() string  { return s.EmulatorHost }
