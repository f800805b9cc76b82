package config

import (
	"errors"
	"os"
	"strings"

	"dotmac/internal/common"
)

const (
	EnvDatabaseUrl       = "DATABASE_URL"
	EnvDotmacDatabaseUrl = "DOTMAC_DATABASE_URL"
	EnvAuthSecret        = "BETTER_AUTH_SECRET"
	EnvJwtSecret         = "JWT_SECRET"
	EnvAuthUrl           = "BETTER_AUTH_URL"
	EnvPublicApiUrl      = "NEXT_PUBLIC_API_URL"
	EnvNodeEnv           = "NODE_ENV"
	EnvAuthBypass        = "BETTER_AUTH_BYPASS"
	EnvSkipAuth          = "NEXT_PUBLIC_SKIP_BETTER_AUTH"
	EnvE2eAuthBypass     = "E2E_AUTH_BYPASS"

	DefaultBaseUrl = "http://localhost:3000"

	// MinimumSecretLength is the shortest signing secret accepted in
	// production
	MinimumSecretLength = 32
)

// bypassFlags are checked in order, the first truthy one wins
var bypassFlags = []string{
	EnvAuthBypass,
	EnvSkipAuth,
	EnvE2eAuthBypass,
}

// Auth is the environment driven configuration of the auth service
type Auth struct {
	DatabaseUrl string `json:"databaseUrl" yaml:"databaseUrl"`
	Secret      string `json:"-" yaml:"-"`
	BaseUrl     string `json:"baseUrl" yaml:"baseUrl"`
	Environment string `json:"environment" yaml:"environment"`
	Production  bool   `json:"production" yaml:"production"`

	// Bypass is set when any of the bypass flags is active, consumers
	// receive a deterministic mock instead of the real service
	Bypass bool `json:"bypass" yaml:"bypass"`

	// BypassReason names the variable that activated Bypass
	BypassReason string `json:"bypassReason,omitempty" yaml:"bypassReason,omitempty"`
}

// LoadAuth reads the auth configuration through getenv, passing nil
// uses os.Getenv
func LoadAuth(getenv func(string) string) Auth {
	if getenv == nil {
		getenv = os.Getenv
	}
	environment := strings.ToLower(strings.TrimSpace(getenv(EnvNodeEnv)))
	if environment == "" {
		environment = common.EnvironmentDevelopment
	}
	output := Auth{
		DatabaseUrl: firstOf(getenv, EnvDatabaseUrl, EnvDotmacDatabaseUrl),
		Secret:      firstOf(getenv, EnvAuthSecret, EnvJwtSecret),
		BaseUrl:     firstOf(getenv, EnvAuthUrl, EnvPublicApiUrl),
		Environment: environment,
		Production:  environment == common.EnvironmentProduction,
	}
	if output.BaseUrl == "" {
		output.BaseUrl = DefaultBaseUrl
	}
	if environment == common.EnvironmentTest {
		output.Bypass = true
		output.BypassReason = EnvNodeEnv
	}
	for _, flag := range bypassFlags {
		if output.Bypass {
			break
		}
		if IsTruthy(getenv(flag)) {
			output.Bypass = true
			output.BypassReason = flag
		}
	}
	return output
}

// Validate returns every configuration problem at once, nothing is
// required when Bypass is set
func (a Auth) Validate() error {
	if a.Bypass {
		return nil
	}
	errs := []error{}
	if a.Secret == "" {
		errs = append(errs, ErrorMissingSecret)
	} else if a.Production && len(a.Secret) < MinimumSecretLength {
		errs = append(errs, ErrorWeakSecret)
	}
	if a.DatabaseUrl == "" {
		errs = append(errs, ErrorMissingDatabaseUrl)
	}
	return errors.Join(errs...)
}

// IsTruthy accepts 1, true and yes in any case
func IsTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func firstOf(getenv func(string) string, keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
