// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"

	"f0oster/ntdsinspect/activedirectory"
	"f0oster/ntdsinspect/config"
	"f0oster/ntdsinspect/esedb"
	"f0oster/ntdsinspect/output"
	"f0oster/ntdsinspect/ui"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app carries what the root command resolves before any subcommand runs.
type app struct {
	verbosity  int
	configPath string

	cfg     config.Config
	logger  *zap.Logger
	display *ui.DisplayContext
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "ntdsinspect",
		Short: "Inspect NTDS.dit directory databases",
		Long: `ntdsinspect reads a typed table dump of an NTDS.dit database and lists its
users, groups and computers, renders the directory tree, looks up and
searches entries and exports forensic timelines.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase logging verbosity (repeatable)")
	root.PersistentFlags().StringVar(&a.configPath, "config", config.DefaultFile, "Path to env config file")

	root.AddCommand(
		a.userCommand(),
		a.groupCommand(),
		a.computerCommand(),
		a.typesCommand(),
		a.treeCommand(),
		a.entryCommand(),
		a.searchCommand(),
		a.timelineCommand(),
		a.compareCommand(),
		a.exportCommand(),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

func (a *app) setup() error {
	cfg, err := config.LoadEnvConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	level, err := logLevel(a.verbosity, cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger, err = newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	a.display = ui.NewDisplayContext()
	return nil
}

// logLevel maps repeated -v flags onto zap levels: none is warn, one is
// info and two or more is debug. Without -v the configured level applies.
func logLevel(verbosity int, configured string) (zapcore.Level, error) {
	switch {
	case verbosity >= 2:
		return zapcore.DebugLevel, nil
	case verbosity == 1:
		return zapcore.InfoLevel, nil
	case configured != "":
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(configured)); err != nil {
			return level, fmt.Errorf("invalid log level %q: %w", configured, err)
		}
		return level, nil
	}
	return zapcore.WarnLevel, nil
}

func newLogger(level zapcore.Level) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// open loads the typed table dump at path and builds every index.
func (a *app) open(path string) (*activedirectory.Instance, func(), error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, nil, fmt.Errorf("unable to open '%s'", path)
	}
	db, err := esedb.OpenSQLite(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	in, err := activedirectory.Open(db, activedirectory.Options{SDCacheSize: a.cfg.SDCacheSize}, a.logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return in, func() { db.Close() }, nil
}

// outputFormat resolves the --format flag, falling back to the configured
// format when the flag was not given.
func (a *app) outputFormat(cmd *cobra.Command, flag output.Format) output.Format {
	if cmd.Flags().Changed("format") {
		return flag
	}
	if f, err := output.ParseFormat(a.cfg.Format); err == nil {
		return f
	}
	a.logger.Sugar().Warnw("ignoring invalid configured format", "format", a.cfg.Format)
	return output.FormatCSV
}

func formatFlag(flags *pflag.FlagSet, f *output.Format) {
	*f = output.FormatCSV
	flags.VarP(f, "format", "F", "Output format (csv, json, json-lines)")
}
