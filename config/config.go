package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/awantoch/n8n-mcp/constants"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	N8N     N8NConfig     `yaml:"n8n"`
	Limits  LimitsConfig  `yaml:"limits"`
	Session SessionConfig `yaml:"session"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
}

// N8NConfig locates the n8n instance. APIKey is the process-wide default
// credential and may be empty.
type N8NConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// LimitsConfig holds the default page sizes for list operations.
type LimitsConfig struct {
	Workflows   int `yaml:"workflows" validate:"min=1,max=250"`
	Executions  int `yaml:"executions" validate:"min=1,max=250"`
	Credentials int `yaml:"credentials" validate:"min=1,max=250"`
}

// SessionConfig bounds the session credential store. A zero TTL keeps
// entries until the session disconnects.
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl" validate:"gte=0"`
	MaxEntries int           `yaml:"max_entries" validate:"min=1"`
}

type HTTPConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port" validate:"min=1,max=65535"`
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

type TracingConfig struct {
	Exporter    string `yaml:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint    string `yaml:"endpoint" validate:"omitempty,url"`
	ServiceName string `yaml:"service_name"`
}

var validate = validator.New()

// LoadConfig reads path over the defaults, then overlays the environment and
// validates the result. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer f.Close()
	// JSON is valid YAML, so one decoder serves both formats.
	if err := yaml.NewDecoder(f).Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays values found through lookup, normally os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(constants.EnvBaseURL); ok && v != "" {
		c.N8N.BaseURL = v
	}
	if v, ok := lookup(constants.EnvAPIKey); ok && v != "" {
		c.N8N.APIKey = v
	} else if v, ok := lookup(constants.EnvAPIKeyAlt); ok && v != "" {
		c.N8N.APIKey = v
	}
	if v, ok := lookup(constants.EnvHTTPPort); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = port
		}
	}
	if v, ok := lookup(constants.EnvServiceURL); ok && v != "" {
		c.HTTP.BaseURL = v
	}
}

// Validate checks struct constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed '%s' (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// APIRoot returns the n8n public API root, e.g. http://localhost:5678/api/v1.
func (c *Config) APIRoot() string {
	base := strings.TrimRight(c.N8N.BaseURL, "/")
	if strings.HasSuffix(base, constants.DefaultAPIPath) {
		return base
	}
	return base + constants.DefaultAPIPath
}

// InstanceRoot returns the n8n base URL without the API path.
func (c *Config) InstanceRoot() string {
	return strings.TrimSuffix(strings.TrimRight(c.N8N.BaseURL, "/"), constants.DefaultAPIPath)
}

// ListenAddr is the host:port the HTTP transport binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

// PublicURL is the externally reachable URL advertised to SSE clients.
func (c *Config) PublicURL() string {
	if c.HTTP.BaseURL != "" {
		return strings.TrimRight(c.HTTP.BaseURL, "/")
	}
	host := c.HTTP.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.HTTP.Port)
}
