package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultInstanceURL is the scratch org the duplicate review app was built against
	DefaultInstanceURL = "https://customer-nosoftware-7615-dev-ed.scratch.my.salesforce.com"

	DefaultPort         = 3001
	DefaultPortAttempts = 10

	DefaultUpstreamTimeout = 20 * time.Second
	DefaultTokenTimeout    = 15 * time.Second
	DefaultCLITimeout      = 15 * time.Second
)

// Salesforce holds the credential material the broker may use.
// Every field is optional; strategy eligibility is derived from which are set.
type Salesforce struct {
	InstanceURL   string `yaml:"instanceUrl"`
	ClientID      string `yaml:"clientId"`
	ClientSecret  string `yaml:"clientSecret"`
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	SecurityToken string `yaml:"securityToken"`

	// JWTPrivateKey is PEM material. JWTPrivateKeyFile is read into it at load time.
	JWTPrivateKey     string `yaml:"jwtPrivateKey"`
	JWTPrivateKeyFile string `yaml:"jwtPrivateKeyFile"`
	JWTAudience       string `yaml:"jwtAudience"`

	SessionToken string `yaml:"sessionToken"`

	CLIPath      string `yaml:"cliPath"`
	CLITargetOrg string `yaml:"cliTargetOrg"`
	CLIFallback  bool   `yaml:"cliFallback"`
}

// Server holds listener and timeout settings
type Server struct {
	Port               int           `yaml:"port"`
	PortAttempts       int           `yaml:"portAttempts"`
	CORSAllowedOrigins []string      `yaml:"corsAllowedOrigins"`
	UpstreamTimeout    time.Duration `yaml:"upstreamTimeout"`
	TokenTimeout       time.Duration `yaml:"tokenTimeout"`
	CLITimeout         time.Duration `yaml:"cliTimeout"`
}

// Config is loaded once at process start and treated as immutable afterwards
type Config struct {
	Env        string     `yaml:"env"`
	LogLevel   string     `yaml:"logLevel"`
	Salesforce Salesforce `yaml:"salesforce"`
	Server     Server     `yaml:"server"`
}

// Default returns the configuration used when nothing is set
func Default() Config {
	return Config{
		LogLevel: "info",
		Salesforce: Salesforce{
			InstanceURL: DefaultInstanceURL,
			CLIPath:     "sf",
			CLIFallback: true,
		},
		Server: Server{
			Port:               DefaultPort,
			PortAttempts:       DefaultPortAttempts,
			CORSAllowedOrigins: []string{"*"},
			UpstreamTimeout:    DefaultUpstreamTimeout,
			TokenTimeout:       DefaultTokenTimeout,
			CLITimeout:         DefaultCLITimeout,
		},
	}
}

// Lookup resolves a configuration key; os.LookupEnv in production
type Lookup func(key string) (string, bool)

// Load builds the configuration from defaults, an optional YAML file named by
// SFPROXY_CONFIG, and finally the process environment (env wins).
func Load() (Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom is Load with an injectable environment
func LoadFrom(lookup Lookup) (Config, error) {
	cfg := Default()

	if path, ok := lookup("SFPROXY_CONFIG"); ok && path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return Config{}, err
	}

	if cfg.Salesforce.JWTPrivateKey == "" && cfg.Salesforce.JWTPrivateKeyFile != "" {
		pem, err := os.ReadFile(cfg.Salesforce.JWTPrivateKeyFile)
		if err != nil {
			return Config{}, fmt.Errorf("read jwt private key file: %w", err)
		}
		cfg.Salesforce.JWTPrivateKey = string(pem)
	}

	cfg.Salesforce.InstanceURL = strings.TrimRight(cfg.Salesforce.InstanceURL, "/")

	if cfg.Server.PortAttempts < 1 {
		cfg.Server.PortAttempts = 1
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found: %w", path, err)
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup Lookup) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.LogLevel)

	sf := &c.Salesforce
	str("SF_INSTANCE_URL", &sf.InstanceURL)
	str("SF_CLIENT_ID", &sf.ClientID)
	str("SF_CLIENT_SECRET", &sf.ClientSecret)
	str("SF_USERNAME", &sf.Username)
	str("SF_PASSWORD", &sf.Password)
	str("SF_SECURITY_TOKEN", &sf.SecurityToken)
	str("SF_JWT_PRIVATE_KEY", &sf.JWTPrivateKey)
	str("SF_JWT_PRIVATE_KEY_FILE", &sf.JWTPrivateKeyFile)
	str("SF_JWT_AUDIENCE", &sf.JWTAudience)
	str("SF_SESSION_TOKEN", &sf.SessionToken)
	str("SF_CLI_PATH", &sf.CLIPath)
	str("SF_CLI_TARGET_ORG", &sf.CLITargetOrg)

	if v, ok := lookup("SF_CLI_FALLBACK"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid SF_CLI_FALLBACK %q: %w", v, err)
		}
		sf.CLIFallback = b
	}

	srv := &c.Server
	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &srv.Port},
		{"PORT_ATTEMPTS", &srv.PortAttempts},
	}
	for _, it := range ints {
		if v, ok := lookup(it.key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", it.key, v, err)
			}
			*it.dst = n
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"UPSTREAM_TIMEOUT", &srv.UpstreamTimeout},
		{"TOKEN_TIMEOUT", &srv.TokenTimeout},
		{"CLI_TIMEOUT", &srv.CLITimeout},
	}
	for _, it := range durations {
		if v, ok := lookup(it.key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", it.key, v, err)
			}
			*it.dst = d
		}
	}

	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		srv.CORSAllowedOrigins = origins
	}

	return nil
}

// IsDev reports whether ENV is explicitly "dev"
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// MissingPasswordFields lists the env keys the password flow still needs
func (s Salesforce) MissingPasswordFields() []string {
	var missing []string
	for _, f := range []struct {
		key, val string
	}{
		{"SF_INSTANCE_URL", s.InstanceURL},
		{"SF_CLIENT_ID", s.ClientID},
		{"SF_CLIENT_SECRET", s.ClientSecret},
		{"SF_USERNAME", s.Username},
		{"SF_PASSWORD", s.Password},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// MarshalZerologObject logs which credentials are present without their values
func (s Salesforce) MarshalZerologObject(e *zerolog.Event) {
	e.Str("instanceUrl", s.InstanceURL).
		Bool("clientId", s.ClientID != "").
		Bool("clientSecret", s.ClientSecret != "").
		Bool("username", s.Username != "").
		Bool("password", s.Password != "").
		Bool("securityToken", s.SecurityToken != "").
		Bool("jwtPrivateKey", s.JWTPrivateKey != "").
		Bool("sessionToken", s.SessionToken != "").
		Bool("cliFallback", s.CLIFallback)
}
