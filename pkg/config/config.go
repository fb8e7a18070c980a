package config

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database DatabaseConfig    `mapstructure:"database"`
	Policy   PolicyConfig      `mapstructure:"policy"`
	Roster   []ResponderConfig `mapstructure:"roster"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	AllowedOrigins  string `mapstructure:"allowedOrigins"`
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
}

// DatabaseConfig holds the alert store connection configuration.
// An empty DSN selects the in-memory store.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// PolicyConfig holds the tunable numeric alerting policy
type PolicyConfig struct {
	// Escalation
	MaxEscalationTier       int   `mapstructure:"maxEscalationTier"`
	EscalationIntervalsMins []int `mapstructure:"escalationIntervalsMins"` // indexed by urgency 1..5
	WarningLeadSeconds      int   `mapstructure:"warningLeadSeconds"`
	EscalateRetryAttempts   int   `mapstructure:"escalateRetryAttempts"`
	EscalateRetryBackoffMS  int   `mapstructure:"escalateRetryBackoffMs"`

	// Assignment
	ResponderLoadCeiling int     `mapstructure:"responderLoadCeiling"`
	AutoAssignThreshold  float64 `mapstructure:"autoAssignThreshold"`
	CriticalThreshold    float64 `mapstructure:"criticalThreshold"` // doctors + team of two at or above

	// Priority weights per alert type; unknown types fall back to defaultWeight
	TypeWeights   map[string]float64 `mapstructure:"typeWeights"`
	DefaultWeight float64            `mapstructure:"defaultWeight"`

	// Validation
	MinDescriptionLength int `mapstructure:"minDescriptionLength"`
	MinOutcomeLength     int `mapstructure:"minOutcomeLength"`
}

// ResponderConfig seeds the static roster
type ResponderConfig struct {
	ID     string `mapstructure:"id"`
	Role   string `mapstructure:"role"`
	OnDuty bool   `mapstructure:"onDuty"`
}

// LoadConfig loads the application configuration from file or environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default values
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allowedOrigins", "*")
	viper.SetDefault("server.shutdownTimeout", 10)

	viper.SetDefault("database.dsn", "")

	viper.SetDefault("policy.maxEscalationTier", 3)
	viper.SetDefault("policy.escalationIntervalsMins", []int{5, 10, 15, 30, 60})
	viper.SetDefault("policy.warningLeadSeconds", 120)
	viper.SetDefault("policy.escalateRetryAttempts", 3)
	viper.SetDefault("policy.escalateRetryBackoffMs", 100)
	viper.SetDefault("policy.responderLoadCeiling", 5)
	viper.SetDefault("policy.autoAssignThreshold", 8.0)
	viper.SetDefault("policy.criticalThreshold", 9.0)
	viper.SetDefault("policy.defaultWeight", 5.0)
	viper.SetDefault("policy.typeWeights", map[string]float64{
		"cardiac_arrest":    10,
		"code_blue":         9,
		"fire":              8,
		"medical_emergency": 7,
		"security":          6,
		"medication_due":    5,
		"patient_request":   4,
	})
	viper.SetDefault("policy.minDescriptionLength", 10)
	viper.SetDefault("policy.minOutcomeLength", 10)

	// Allow environment variables to override config file
	viper.SetEnvPrefix("HOSPITAL_ALERT")
	viper.AutomaticEnv()

	// If config file is provided, read it
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	// Unmarshal config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
