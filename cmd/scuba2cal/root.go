package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/HamletTheHamster/scuba2-cal-ops/internal/config"
	"github.com/HamletTheHamster/scuba2-cal-ops/internal/render"
	"github.com/HamletTheHamster/scuba2-cal-ops/pipeline"
)

var (
	cfg     *config.Config
	cfgFile string
	v       *viper.Viper
)

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"fcf-peak-450":   "nominal.fcf_peak_450",
	"fcf-peak-850":   "nominal.fcf_peak_850",
	"fcf-arcsec-450": "nominal.fcf_arcsec_450",
	"fcf-arcsec-850": "nominal.fcf_arcsec_850",
	"epochs":         "epochs_file",
	"out":            "output.base_dir",
	"format":         "output.formats",
	"backend":        "render.backend",
	"size":           "render.size_inches",
	"slide":          "render.slide",
	"log-level":      "log.level",
}

var rootCmd = &cobra.Command{
	Use:   "scuba2cal <csv>",
	Short: "SCUBA-2 calibration summary plots for ops meetings",
	Long: "Reads an Archimedes CSV export of SCUBA-2 calibrator observations and writes FCF, " +
		"aspect ratio and beam plots, grouped by source and hardware epoch, into ops_meeting_plots_HH:MM:SS.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(v, cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if _, err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		epochs, err := cfg.Epochs()
		if err != nil {
			return err
		}
		r, err := render.New(cfg.Render.Backend, cfg.Render.RenderOptions())
		if err != nil {
			return err
		}

		res, err := pipeline.Run(args[0],
			pipeline.WithNominal(cfg.Nominal.Values()),
			pipeline.WithEpochs(epochs),
			pipeline.WithRenderer(r),
			pipeline.WithOutputBase(cfg.Output.BaseDir),
			pipeline.WithFormats(cfg.Output.Formats...),
			pipeline.WithLogger(zap.L()),
		)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%d figures written to %s (%d of %d rows kept)\n",
			len(res.Figures), res.Dir, res.Report.Kept(), res.Report.Rows)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	v = config.New()

	f := rootCmd.Flags()
	f.StringVar(&cfgFile, "config", "", "config file (default ./scuba2cal.yaml if present)")
	f.Float64("fcf-peak-450", 0, "nominal FCF peak at 450 microns")
	f.Float64("fcf-peak-850", 0, "nominal FCF peak at 850 microns")
	f.Float64("fcf-arcsec-450", 0, "nominal FCF arcsec at 450 microns")
	f.Float64("fcf-arcsec-850", 0, "nominal FCF arcsec at 850 microns")
	f.String("epochs", "", "YAML file replacing the built-in epoch list")
	f.String("out", "", "directory the run directory is created in")
	f.StringSlice("format", nil, "image formats: png, svg, pdf")
	f.String("backend", "", "plotting backend: gonum or gnuplot")
	f.Float64("size", 0, "image side in inches")
	f.Bool("slide", false, "large fonts for presentation slides")
	f.String("log-level", "", "debug, info, warn or error")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, f.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
