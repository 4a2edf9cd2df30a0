package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/logcrate/logcrate"
)

var (
	crateDir       string
	segmentMaxSize uint64
	logger         zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "logcratectl",
	Short: "Create, append to, read from, and inspect a LogCrate directory",
}

// Execute runs the root command; main's sole job is to call this.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&crateDir, "dir", "", "crate directory")
	rootCmd.PersistentFlags().Uint64Var(&segmentMaxSize, "segment-max-size", logcrate.DefaultSegmentMaxSize, "soft cap on segment size, in bytes")
	_ = rootCmd.MarkPersistentFlagRequired("dir")

	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("segment-max-size", rootCmd.PersistentFlags().Lookup("segment-max-size"))

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	rootCmd.AddCommand(createCmd, appendCmd, readCmd, inspectCmd)
}

func initConfig() {
	viper.SetEnvPrefix("logcratectl")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if v := viper.GetString("dir"); v != "" {
		// Setting the flag (which also fills crateDir) marks it as given, so
		// the required-flag check passes when the value came from the
		// environment.
		_ = rootCmd.PersistentFlags().Set("dir", v)
	}
	if v := viper.GetUint64("segment-max-size"); v != 0 {
		segmentMaxSize = v
	}
}

func openOptions() []logcrate.Option {
	return []logcrate.Option{
		logcrate.WithSegmentMaxSize(segmentMaxSize),
		logcrate.WithLogger(logger),
	}
}
