package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pable/s2-analytics/internal/config"
	"github.com/pable/s2-analytics/internal/logging"
)

var (
	cfgFile  string
	cfgViper = viper.New()
	settings *config.Settings
	logger   = zap.NewNop().Sugar()
)

var rootCmd = &cobra.Command{
	Use:   "s2stats",
	Short: "Match log analytics for S2 team-shooter games",
	Long: `Import S2 match logs, tag every team round with its main weapons and
report weapon usage trends and tag/win correlations.`,
	SilenceUsage:      true,
	PersistentPreRunE: initRuntime,
	PersistentPostRun: func(*cobra.Command, []string) { _ = logger.Sync() },
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.s2stats/config.yaml)")
	pf.String("db", "", "path to SQLite database (default $HOME/.s2stats/s2.db)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	bindFlag("db", pf.Lookup("db"))
	bindFlag("log.level", pf.Lookup("log-level"))
	bindFlag("log.format", pf.Lookup("log-format"))

	rootCmd.AddCommand(
		fetchCmd,
		importCmd,
		summaryCmd,
		listCmd,
		showCmd,
		roundsCmd,
		playerCmd,
		correlateCmd,
		tagsCmd,
		trendCmd,
		exportCmd,
		sessionsCmd,
		sqlCmd,
		shellCmd,
		dropCmd,
		serveCmd,
		analyzeCmd,
	)
}

// bindFlag ties a flag to a config key. A flag only overrides the config when
// it is set on the command line.
func bindFlag(key string, f *pflag.Flag) {
	if err := cfgViper.BindPFlag(key, f); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func initRuntime(cmd *cobra.Command, _ []string) error {
	config.LoadDotEnv(".env", filepath.Join(config.Dir(), ".env"))

	s, err := config.Load(cfgViper, cfgFile)
	if err != nil {
		return err
	}
	settings = s

	l, err := logging.New(s.Log.Level, s.Log.Format)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = l.Sugar().With("command", cmd.Name())
	logger.Debugw("config loaded", "db", s.DB, "config", cfgViper.ConfigFileUsed())
	return nil
}

func dbPath() string {
	return settings.DB
}
