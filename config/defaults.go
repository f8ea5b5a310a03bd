package config

import (
	"time"

	"github.com/awantoch/n8n-mcp/constants"
)

// Default values for every recognized option.
const (
	// DefaultConfigPath is looked up in the working directory when --config is not given.
	DefaultConfigPath = constants.ConfigFileName
	// DefaultTimeout bounds every call to the n8n API.
	DefaultTimeout = 10 * time.Second
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 5 * time.Second
)

// Default returns a Config populated with the documented defaults.
func Default() *Config {
	return &Config{
		N8N: N8NConfig{
			BaseURL: constants.DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Limits: LimitsConfig{
			Workflows:   constants.DefaultWorkflowLimit,
			Executions:  constants.DefaultExecutionLimit,
			Credentials: constants.DefaultCredentialLimit,
		},
		Session: SessionConfig{
			TTL:        0,
			MaxEntries: constants.DefaultSessionEntries,
		},
		HTTP: HTTPConfig{
			Host: constants.DefaultHTTPHost,
			Port: constants.DefaultHTTPPort,
		},
		Log: LogConfig{
			Level: constants.LogLevelInfo,
		},
		Tracing: TracingConfig{
			Exporter:    constants.TracingExporterNone,
			ServiceName: constants.DefaultServiceName,
		},
	}
}
