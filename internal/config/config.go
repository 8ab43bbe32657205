// Package config loads scuba2cal settings from an optional YAML file and
// command-line flags, and builds the zap logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/calerr"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/derive"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/epoch"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/render"
)

// Config holds the full run configuration.
type Config struct {
	Nominal    NominalConfig `yaml:"nominal" mapstructure:"nominal"`
	EpochsFile string        `yaml:"epochs_file" mapstructure:"epochs_file"`
	Output     OutputConfig  `yaml:"output" mapstructure:"output"`
	Render     RenderConfig  `yaml:"render" mapstructure:"render"`
	Log        LogConfig     `yaml:"log" mapstructure:"log"`
}

// NominalConfig holds the recommended FCF values.
type NominalConfig struct {
	FCFPeak450   float64 `yaml:"fcf_peak_450" mapstructure:"fcf_peak_450"`
	FCFPeak850   float64 `yaml:"fcf_peak_850" mapstructure:"fcf_peak_850"`
	FCFArcsec450 float64 `yaml:"fcf_arcsec_450" mapstructure:"fcf_arcsec_450"`
	FCFArcsec850 float64 `yaml:"fcf_arcsec_850" mapstructure:"fcf_arcsec_850"`
}

// OutputConfig configures where figures go.
type OutputConfig struct {
	BaseDir string   `yaml:"base_dir" mapstructure:"base_dir"`
	Formats []string `yaml:"formats" mapstructure:"formats"`
}

// RenderConfig picks the plotting backend.
type RenderConfig struct {
	Backend    string  `yaml:"backend" mapstructure:"backend"`
	SizeInches float64 `yaml:"size_inches" mapstructure:"size_inches"`
	Slide      bool    `yaml:"slide" mapstructure:"slide"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// New returns a viper instance with every default set. Callers bind their
// flags to it before Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetConfigName("scuba2cal")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	n := derive.DefaultNominal()
	v.SetDefault("nominal.fcf_peak_450", n.Peak450)
	v.SetDefault("nominal.fcf_peak_850", n.Peak850)
	v.SetDefault("nominal.fcf_arcsec_450", n.Arcsec450)
	v.SetDefault("nominal.fcf_arcsec_850", n.Arcsec850)
	v.SetDefault("epochs_file", "")
	v.SetDefault("output.base_dir", ".")
	v.SetDefault("output.formats", []string{"png"})
	v.SetDefault("render.backend", render.BackendGonum)
	v.SetDefault("render.size_inches", 10.0)
	v.SetDefault("render.slide", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	return v
}

// Load reads the config file into v and unmarshals the result. An empty file
// searches the working directory for scuba2cal.yaml, which may be absent; a
// named file must exist.
func Load(
	v *viper.Viper,
	file string,
) (
	*Config, error,
) {

	if file != "" {
		v.SetConfigFile(file)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var formats = map[string]bool{"png": true, "svg": true, "pdf": true}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Nominal.Values().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	switch strings.ToLower(c.Render.Backend) {
	case render.BackendGonum, render.BackendGnuplot:
	default:
		errs = append(errs, "render.backend must be gonum or gnuplot")
	}

	if len(c.Output.Formats) == 0 {
		errs = append(errs, "output.formats must not be empty")
	}
	for _, f := range c.Output.Formats {
		if !formats[strings.ToLower(f)] {
			errs = append(errs, "unsupported output format "+f)
		}
	}

	if c.Render.SizeInches < 0 {
		errs = append(errs, "render.size_inches must be >= 0")
	}

	if len(errs) > 0 {
		return calerr.Wrapf(calerr.ErrMalformedInput, nil, "config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Values converts the configured nominals.
func (n NominalConfig) Values() derive.Nominal {
	return derive.Nominal{
		Peak450:   n.FCFPeak450,
		Peak850:   n.FCFPeak850,
		Arcsec450: n.FCFArcsec450,
		Arcsec850: n.FCFArcsec850,
	}
}

// Epochs returns the configured epoch set, or the built-in one.
func (c *Config) Epochs() (epoch.Set, error) {
	if c.EpochsFile == "" {
		return epoch.Default(), nil
	}
	return epoch.LoadFile(c.EpochsFile)
}

// RenderOptions converts the render settings.
func (r RenderConfig) RenderOptions() render.Options {
	return render.Options{SizeInches: r.SizeInches, Slide: r.Slide}
}

// InitLogger builds the zap logger for cfg and installs it as the global one.
func InitLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return logger, nil
}
