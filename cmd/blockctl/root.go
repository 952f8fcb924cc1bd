package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freewebtopdf/block-engine/internal/cache"
	"github.com/freewebtopdf/block-engine/internal/conflict"
	"github.com/freewebtopdf/block-engine/internal/converter"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/interaction"
	"github.com/freewebtopdf/block-engine/internal/loader"
	"github.com/freewebtopdf/block-engine/internal/merger"
	"github.com/freewebtopdf/block-engine/internal/splitter"
)

// Persistent flags shared by every command.
var (
	outputFormat string
	dataDir      string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "blockctl",
	Short: "Run block transformations from the command line",
	Long: `blockctl runs merge, split, convert, rearrange, group and ungroup
interactions against block files, suggests splits and conversions, and
inspects or toggles the rule tables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

		if outputFormat != loader.FormatYAML && outputFormat != loader.FormatJSON {
			return fmt.Errorf("unsupported output format %q (yaml or json)", outputFormat)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", loader.FormatYAML, "Output format: yaml or json")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "Directory holding the disabled-rule file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log engine activity to stderr")
}

// loadDisabled reads the disabled-rule file of the data directory
func loadDisabled() (*conflict.DisabledRules, error) {
	disabled := conflict.NewDisabledRules(dataDir)
	if err := disabled.Load(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", disabled.Path(), err)
	}
	return disabled, nil
}

// newEngine builds an interaction manager over the default tables minus the
// disabled rules
func newEngine(disabled []string) *interaction.Manager {
	return interaction.NewManager(
		merger.NewMerger(domain.FilterRules(merger.DefaultRules(), disabled), cache.NewLRUCache(256), merger.Settings{}),
		splitter.NewSplitter(splitter.Settings{}),
		converter.NewConverter(domain.FilterRules(converter.DefaultRules(), disabled)),
		interaction.Settings{},
	)
}

func encode(cmd *cobra.Command, v any) error {
	return loader.Encode(cmd.OutOrStdout(), v, outputFormat)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
