package config

import (
	"fmt"
	"time"
)

// BaseConfig is the root configuration document loaded by go-config. The
// zero value is usable; every getter falls back to a sane default.
type BaseConfig struct {
	Server      Server      `json:"server" yaml:"server"`
	Auth        Auth        `json:"auth" yaml:"auth"`
	Persistence Persistence `json:"persistence" yaml:"persistence"`
}

func (c *BaseConfig) Validate() error {
	if c.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if c.Auth.RefreshSigningKey == "" {
		return fmt.Errorf("auth.refresh_signing_key is required")
	}
	return nil
}

func (c *BaseConfig) GetServer() Server {
	return c.Server
}

func (c *BaseConfig) GetAuth() Auth {
	return c.Auth
}

func (c *BaseConfig) GetPersistence() Persistence {
	return c.Persistence
}

type Server struct {
	Address string `json:"address" yaml:"address"`
	Debug   bool   `json:"debug" yaml:"debug"`
}

func (s Server) GetAddress() string {
	if s.Address == "" {
		return ":8080"
	}
	return s.Address
}

func (s Server) GetDebug() bool {
	return s.Debug
}

// Auth holds the token and guard settings. TTLs are duration expressions
// ("15m", "720h"); an empty expression defers to the token service default.
// The refresh signing key is configured on its own, never derived from the
// access key.
type Auth struct {
	SigningKey                string   `json:"signing_key" yaml:"signing_key"`
	RefreshSigningKey         string   `json:"refresh_signing_key" yaml:"refresh_signing_key"`
	AccessTokenTTLExpression  string   `json:"access_token_ttl" yaml:"access_token_ttl"`
	RefreshTokenTTLExpression string   `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
	ResetTokenTTLExpression   string   `json:"reset_token_ttl" yaml:"reset_token_ttl"`
	ContextKey                string   `json:"context_key" yaml:"context_key"`
	TokenLookup               string   `json:"token_lookup" yaml:"token_lookup"`
	AuthScheme                string   `json:"auth_scheme" yaml:"auth_scheme"`
	Issuer                    string   `json:"issuer" yaml:"issuer"`
	Audience                  []string `json:"audience" yaml:"audience"`
	MinPasswordLength         int      `json:"min_password_length" yaml:"min_password_length"`
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetRefreshSigningKey() string {
	return a.RefreshSigningKey
}

func (a Auth) GetAccessTokenTTL() time.Duration {
	return parseDurationExpression("auth.access_token_ttl", a.AccessTokenTTLExpression)
}

func (a Auth) GetRefreshTokenTTL() time.Duration {
	return parseDurationExpression("auth.refresh_token_ttl", a.RefreshTokenTTLExpression)
}

func (a Auth) GetResetTokenTTL() time.Duration {
	return parseDurationExpression("auth.reset_token_ttl", a.ResetTokenTTLExpression)
}

func (a Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "user"
	}
	return a.ContextKey
}

func (a Auth) GetTokenLookup() string {
	return a.TokenLookup
}

func (a Auth) GetAuthScheme() string {
	return a.AuthScheme
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

func (a Auth) GetMinPasswordLength() int {
	return a.MinPasswordLength
}

type Persistence struct {
	Debug                 bool   `json:"debug" yaml:"debug"`
	Driver                string `json:"driver" yaml:"driver"`
	Server                string `json:"server" yaml:"server"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetServer() string {
	return p.Server
}

func (p Persistence) GetDSN() string {
	if p.Server == "" {
		return "file::memory:?cache=shared"
	}
	return p.Server
}

func (p Persistence) GetOtelIdentifier() string {
	return ""
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	return parseDurationExpression("persistence.ping_timeout", p.PingTimeoutExpression)
}

func parseDurationExpression(key, expression string) time.Duration {
	if expression == "" {
		return 0
	}
	dur, err := time.ParseDuration(expression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: %s expr %s", key, expression),
		)
	}
	return dur
}
