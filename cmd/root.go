package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	logLevel   string // Log verbosity level
	seed       int64  // Master seed for every random stream
	configFile string // Optional YAML/TOML/JSON file with scenario settings
	outDir     string // Directory for traces and XML outputs

	// v layers the config file, NETSIM_* environment variables and flags.
	v = viper.New()
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "netsim",
	Short:         "Discrete-event simulator for wireless ad-hoc and mixed networks",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		level, err := logrus.ParseLevel(v.GetString("log"))
		if err != nil {
			return fmt.Errorf("invalid log level: %s", v.GetString("log"))
		}
		logrus.SetLevel(level)
		return nil
	},
}

// initConfig reads the config file, if any, and enables environment
// overrides. Keys are "<scenario>.<flag>", so NETSIM_GRID_NUMNODES sets
// --numNodes of the grid command.
func initConfig() error {
	v.SetEnvPrefix("NETSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", configFile, err)
	}
	logrus.Debugf("using config file %s", v.ConfigFileUsed())
	return nil
}

// bindFlags binds every flag of fs under prefix, so "numNodes" of the grid
// command is the key "grid.numNodes".
func bindFlags(prefix string, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if prefix != "" {
			key = prefix + "." + f.Name
		}
		if err := v.BindPFlag(key, f); err != nil {
			logrus.Fatalf("binding flag %s: %v", f.Name, err)
		}
	})
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", 1, "Seed for every random stream of the run")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file with scenario settings")
	rootCmd.PersistentFlags().StringVar(&outDir, "out-dir", ".", "Directory for trace and XML outputs")
	bindFlags("", rootCmd.PersistentFlags())

	rootCmd.AddCommand(gridCmd, mixedCmd)
}
