package observability

import (
	"strings"

	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/spf13/viper"
)

// Config is the logging and tracing slice of the process environment.
// ORDERDESK_* keys take precedence over the generic LOG_* and OTEL_* ones.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	Log   LogConfig
	Trace TraceConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type TraceConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

var envBindings = map[string][]string{
	"log.level":      {"ORDERDESK_LOG_LEVEL", "LOG_LEVEL"},
	"log.format":     {"ORDERDESK_LOG_FORMAT", "LOG_FORMAT"},
	"trace.enabled":  {"ORDERDESK_TRACING_ENABLED", "OTEL_ENABLED"},
	"trace.disabled": {"OTEL_SDK_DISABLED"},
	"trace.endpoint": {"ORDERDESK_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
	"trace.protocol": {"ORDERDESK_OTLP_PROTOCOL", "OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL"},
	"trace.ratio":    {"ORDERDESK_TRACE_SAMPLE_RATIO", "OTEL_TRACES_SAMPLER_ARG"},
}

func LoadConfig(cfg config.Config) Config {
	v := viper.New()
	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}

	dev := isDevEnv(cfg.Environment)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("trace.endpoint", cfg.OTLPEndpoint)
	v.SetDefault("trace.protocol", "grpc")
	v.SetDefault("trace.ratio", 0.1)
	if dev {
		v.SetDefault("log.level", "debug")
		v.SetDefault("log.format", "console")
		v.SetDefault("trace.ratio", 1.0)
	}

	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "orderdesk"
	}

	return Config{
		ServiceName: serviceName,
		Environment: strings.TrimSpace(cfg.Environment),
		Version:     strings.TrimSpace(cfg.AppVersion),
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
		Trace: TraceConfig{
			Enabled:       v.GetBool("trace.enabled") && !v.GetBool("trace.disabled"),
			Endpoint:      strings.TrimSpace(v.GetString("trace.endpoint")),
			Protocol:      strings.ToLower(strings.TrimSpace(v.GetString("trace.protocol"))),
			SamplingRatio: clampRatio(v.GetFloat64("trace.ratio")),
		},
	}
}

// Debug enables stack traces on errors and gin debug mode.
func (c Config) Debug() bool {
	return c.Log.Level == "debug" || isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}
