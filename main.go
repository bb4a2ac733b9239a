// Package main provides the entry point for the pastelink CLI application.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/config"
	"github.com/pptlabs/pastelink/internal/engine"
	"github.com/pptlabs/pastelink/internal/scenario"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	jsonOutput bool
	debug      bool
	mode       string
	backend    string
	watch      bool

	rootCmd = &cobra.Command{
		Use:   "pastelink",
		Short: "Keep names and recordings attached across copy and paste",
		Long: paragraph(
			fmt.Sprintf("\nCorrelate pasted shapes and slides with what was copied, so they %s.", keyword("keep their names and recordings")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}

	replayCmd = &cobra.Command{
		Use:     "replay SCENARIO...",
		Short:   "Replay copy-paste sessions through the correlation engine",
		Long:    paragraph(fmt.Sprintf("\n%s recorded editing sessions and print the resulting slides.", keyword("Replay"))),
		Example: paragraph("pastelink replay testdata/roundtrip.yml\npastelink replay --json --mode move session.yml"),
		Args:    cobra.MinimumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	jsonOutput = viper.GetBool("json")
	debug = viper.GetBool("debug")
	if debug {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.DebugLevel)
	}

	// an explicit --config replaces whatever was found in the default places
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
		log.Debug("Using configuration file", "path", configFile)
	}
	return nil
}

func loadConfig() (config.Config, error) {
	if mode != "" {
		viper.Set("propagate.mode", mode)
	}
	if backend != "" {
		viper.Set("store.backend", backend)
	}

	cfg, err := config.LoadFromViper()
	if err != nil {
		return cfg, err
	}
	return cfg, withStoreDir(&cfg)
}

// withStoreDir points a disk store without a directory at the user data dir.
func withStoreDir(cfg *config.Config) error {
	if cfg.Store.Backend != bundle.BackendDisk || cfg.Store.Dir != "" {
		return nil
	}
	dir, err := defaultStoreDir()
	if err != nil {
		return err
	}
	cfg.Store.Dir = dir
	return nil
}

func defaultStoreDir() (string, error) {
	dirs, err := gap.NewScope(gap.User, "pastelink").DataDirs()
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	if len(dirs) == 0 {
		return "", errors.New("no data directory available")
	}
	return filepath.Join(dirs[0], "bundles"), nil
}

func execute(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := replay(cmd.OutOrStdout(), cfg, args); err != nil {
		return err
	}
	if !watch {
		return nil
	}
	return watchConfig(cmd, args)
}

// watchConfig replays args again every time the configuration file changes,
// until interrupted.
func watchConfig(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	changed := make(chan config.Config, 1)
	config.Watch(log.Default(), func(cfg config.Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	log.Info("Watching configuration", "path", viper.ConfigFileUsed())

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-changed:
			if err := withStoreDir(&cfg); err != nil {
				log.Error("Could not apply configuration", "err", err)
				continue
			}
			if err := replay(cmd.OutOrStdout(), cfg, args); err != nil {
				log.Error("Replay failed", "err", err)
			}
		}
	}
}

func replay(w io.Writer, cfg config.Config, args []string) error {
	logger := log.Default()
	store, err := bundle.Open(cfg.StoreOptions(), logger)
	if err != nil {
		return fmt.Errorf("unable to open bundle store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	var results []*scenario.Result
	for _, arg := range args {
		res, err := replayFile(arg, cfg, store, logger)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	return printResults(w, results, store.ClipStats())
}

func replayFile(path string, cfg config.Config, store *bundle.Store, logger *log.Logger) (*scenario.Result, error) {
	sc, err := scenario.Load(path)
	if err != nil {
		return nil, err
	}

	eo := cfg.EngineOptions()
	eo.Diagnostics = engine.NewDiagnostics(cfg.Diagnostics.Rate, cfg.Diagnostics.Burst, logger)

	log.Debug("Replaying scenario", "path", path, "name", sc.Name, "steps", len(sc.Steps))
	// bundles are scoped to the scenario file, so arguments sharing window
	// ids or slide ids never see each other's recordings
	ns, err := filepath.Abs(path)
	if err != nil {
		ns = path
	}
	res, err := scenario.Run(sc, scenario.Options{Engine: eo, Store: store, Logger: logger, Namespace: ns})
	if err != nil {
		return nil, fmt.Errorf("unable to replay %s: %w", path, err)
	}
	return res, nil
}

func printResults(w io.Writer, results []*scenario.Result, stats bundle.Stats) error {
	if jsonOutput {
		return writeJSON(w, results)
	}

	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd())) //nolint:gosec
	}

	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := writeResult(w, res, color); err != nil {
			return fmt.Errorf("unable to write to writer: %w", err)
		}
	}

	_, err := fmt.Fprintln(w, "\n"+clipSummary(stats))
	return err
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log to stderr at debug level")
	replayCmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "print results as JSON")
	replayCmd.Flags().StringVarP(&mode, "mode", "m", "", "bundle propagation mode (copy or move)")
	replayCmd.Flags().StringVarP(&backend, "store", "s", "", "bundle store backend (memory or disk)")
	replayCmd.Flags().BoolVarP(&watch, "watch", "w", false, "replay again whenever the config file changes")

	_ = viper.BindPFlag("json", replayCmd.Flags().Lookup("json"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	config.SetDefaults()

	rootCmd.AddCommand(replayCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "pastelink")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "pastelink")}, dirs...)
	}

	if c := os.Getenv("PASTELINK_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("pastelink")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("pastelink")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	configFile = filepath.Join(dirs[0], "pastelink.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
