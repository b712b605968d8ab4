package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	moodiary "github.com/unowned-ai/moodiary/pkg"
	"github.com/unowned-ai/moodiary/pkg/config"
	pkgdb "github.com/unowned-ai/moodiary/pkg/db"
	"github.com/unowned-ai/moodiary/pkg/diskstore"
	"github.com/unowned-ai/moodiary/pkg/logging"
	"github.com/unowned-ai/moodiary/pkg/moods"
	"github.com/unowned-ai/moodiary/pkg/printers"
	"github.com/unowned-ai/moodiary/pkg/service"
)

var (
	v      = config.New()
	cfg    *config.Config
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:           "moodiary",
	Short:         "A daily mood journal for the terminal, with statistics and an MCP server.",
	Version:       fmt.Sprintf("v%s", moodiary.Version),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(cfg.Log, nil)
		if used := v.ConfigFileUsed(); used != "" {
			logger.Debug("config file loaded", "path", used)
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for moodiary.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(moodiary completion bash)

  Zsh:
    $ moodiary completion zsh > "${fpath[1]}/_moodiary"

  Fish:
    $ moodiary completion fish > ~/.config/fish/completions/moodiary.fish

  PowerShell:
    PS> moodiary completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of moodiary",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), moodiary.Version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	Long: `Print the settings moodiary runs with after merging flags, MOODIARY_* environment
variables (also read from a .env file), .moodiary.yaml and defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := cfg.DataPath()
		if err != nil {
			return err
		}
		resolved := *cfg
		resolved.DB = path
		p := printers.New(true)
		p.Out = cmd.OutOrStdout()
		return p.Value(resolved)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the moodiary database",
	Long:  `Provides commands for managing the moodiary SQLite database, including schema upgrades.`,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the database schema to the latest version for the moodsdb component",
	Long: `Connects to the SQLite database (the --db flag or the default location) and applies any
necessary schema migrations to bring the moodsdb component up to the current schema version.
A missing or uninitialized database is created with the latest schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Backend != config.BackendSQLite {
			return fmt.Errorf("db upgrade only applies to the %s backend", config.BackendSQLite)
		}
		path, err := cfg.DataPath()
		if err != nil {
			return err
		}
		logger.Info("upgrading database", "path", path, "wal", cfg.WAL, "sync", cfg.Sync)

		conn, err := pkgdb.OpenDBConnection(path, cfg.WAL, cfg.Sync)
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := pkgdb.UpgradeDB(conn, path, pkgdb.TargetSchemaVersion); err != nil {
			return err
		}
		version, err := pkgdb.GetComponentSchemaVersion(conn, pkgdb.MoodsDBComponent)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", path, version)
		return nil
	},
}

// storage is an opened backend plus what the UI shows about it.
type storage struct {
	svc      *service.Service
	backend  string
	location string
	disk     *diskstore.Store
}

// openStorage opens the configured backend and wraps it in the entry
// service. The caller closes the service.
func openStorage() (*storage, error) {
	path, err := cfg.DataPath()
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case config.BackendDiskv:
		store, err := diskstore.Open(path, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("storage opened", "backend", cfg.Backend, "path", path)
		return &storage{svc: service.New(store, logger), backend: cfg.Backend, location: path, disk: store}, nil
	default:
		conn, err := pkgdb.Open(path, cfg.WAL, cfg.Sync)
		if err != nil {
			return nil, err
		}
		logger.Debug("storage opened", "backend", cfg.Backend, "path", path, "wal", cfg.WAL, "sync", cfg.Sync)
		return &storage{svc: service.New(moods.NewSQLiteStore(conn, logger), logger), backend: cfg.Backend, location: path}, nil
	}
}

// withService runs fn against an opened service and closes it afterwards.
func withService(ctx context.Context, fn func(ctx context.Context, svc *service.Service) error) error {
	st, err := openStorage()
	if err != nil {
		return err
	}
	defer st.svc.Close()
	return fn(ctx, st.svc)
}

func printer(cmd *cobra.Command) *printers.Printer {
	p := printers.New(cfg.JSON())
	if out := cmd.OutOrStdout(); out != os.Stdout {
		p.Out = out
	}
	return p
}

func bindFlags() {
	flags := rootCmd.PersistentFlags()
	flags.String("db", "", "Path to the database file, or the entries directory for the diskv backend (default: system data directory)")
	flags.String("backend", config.BackendSQLite, "Storage backend: sqlite or diskv")
	flags.Bool("wal", true, "Enable SQLite WAL (Write-Ahead Logging) mode")
	flags.String("sync", "FULL", "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.StringP("output", "o", config.OutputPretty, "Output format: pretty or json")

	for key, name := range map[string]string{
		config.KeyDB:        "db",
		config.KeyBackend:   "backend",
		config.KeyWAL:       "wal",
		config.KeySync:      "sync",
		config.KeyLogLevel:  "log-level",
		config.KeyLogFormat: "log-format",
		config.KeyOutput:    "output",
	} {
		must(v.BindPFlag(key, flags.Lookup(name)))
	}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func initCmd() {
	bindFlags()

	dbCmd.AddCommand(dbUpgradeCmd)

	initEntriesCmd()
	initStatsCmd()
	initTUICmd()
	rootCmd.AddCommand(completionCmd, versionCmd, configCmd, dbCmd,
		recordCmd, showCmd, listCmd, deleteCmd, moodsCmd,
		statsCmd, calendarCmd, mcpCmd, tuiCmd)
}

func main() {
	initCmd()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if cfg != nil && cfg.JSON() {
			_ = printers.New(true).Error(err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode separates bad input (2) from everything else (1).
func exitCode(err error) int {
	if errors.Is(err, moods.ErrInvalidMood) || errors.Is(err, moods.ErrInvalidDate) {
		return 2
	}
	return 1
}
