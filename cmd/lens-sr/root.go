package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var configFile string

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

var rootCmd = &cobra.Command{
	Use:   "lens-sr",
	Short: "Super-resolution pipeline for gravitational lensing images",
	Long: `lens-sr trains and evaluates a convolutional super-resolution model
that maps 64x64 lensing images to 128x128 reconstructions.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			return nil
		}
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %v", configFile, err)
		}
		return applyConfig(cmd.Flags())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file; explicit flags take precedence")
}

// applyConfig fills unset flags from the loaded config file. Flags
// given on the command line always win.
func applyConfig(flags *pflag.FlagSet) error {
	var applyErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if applyErr != nil || f.Changed || !viper.IsSet(f.Name) {
			return
		}
		if err := flags.Set(f.Name, viper.GetString(f.Name)); err != nil {
			applyErr = fmt.Errorf("invalid config value for %s: %v", f.Name, err)
		}
	})
	return applyErr
}
