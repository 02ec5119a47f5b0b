package cmd

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ETAS"

var validate = validator.New()

// newViper layers cmd's flags over ETAS_* environment variables over the
// optional --config file. Flag names map to variables with dashes replaced by
// underscores: --m-thr is ETAS_M_THR.
func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return v, nil
}

// SimulateConfig holds the settings of the simulate command.
type SimulateConfig struct {
	Calibration     string  `mapstructure:"calibration" validate:"required"`
	Output          string  `mapstructure:"output" validate:"required"`
	Sink            string  `mapstructure:"sink" validate:"oneof=csv sqlite"`
	Days            int     `mapstructure:"days" validate:"gte=1"`
	Simulations     int     `mapstructure:"simulations" validate:"gte=1"`
	Once            bool    `mapstructure:"once"`
	MThr            float64 `mapstructure:"m-thr"`
	HasMThr         bool    `mapstructure:"-"`
	Seed            int64   `mapstructure:"seed"`
	Parallel        int     `mapstructure:"parallel" validate:"gte=1"`
	GaussianScale   float64 `mapstructure:"gaussian-scale" validate:"gt=0"`
	NoFilterPolygon bool    `mapstructure:"no-filter-polygon"`
	EarthRadius     float64 `mapstructure:"earth-radius" validate:"gt=0"`
	MaxGenerations  int     `mapstructure:"max-generations" validate:"gte=0"`
	MaxRetries      int     `mapstructure:"max-retries" validate:"gte=0"`
	MaxEvents       int     `mapstructure:"max-events" validate:"gte=0"`
	MetricsFile     string  `mapstructure:"metrics-file"`
}

// GenerateConfig holds the settings of the generate command.
type GenerateConfig struct {
	Preset      string  `mapstructure:"preset" validate:"required_without=Params"`
	Params      string  `mapstructure:"params"`
	Region      string  `mapstructure:"region"`
	Start       string  `mapstructure:"start" validate:"required"`
	Days        int     `mapstructure:"days" validate:"gte=1"`
	Seed        int64   `mapstructure:"seed"`
	Output      string  `mapstructure:"output" validate:"required"`
	KeepOutside bool    `mapstructure:"keep-outside"`
	EarthRadius float64 `mapstructure:"earth-radius" validate:"gt=0"`
	MaxEvents   int     `mapstructure:"max-events" validate:"gte=0"`
}

func loadSimulateConfig(v *viper.Viper) (*SimulateConfig, error) {
	var cfg SimulateConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.HasMThr = v.IsSet("m-thr")
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid simulate settings: %w", err)
	}
	return &cfg, nil
}

func loadGenerateConfig(v *viper.Viper) (*GenerateConfig, error) {
	var cfg GenerateConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid generate settings: %w", err)
	}
	return &cfg, nil
}
