// cmd/briefmaestro/main.go
//
// This is the entry point for the Brief Maestro CLI.
//
// Flow:
// 1. Resolve the project directory (--dir, default cwd)
// 2. Start the operational logger under .brief/logs
// 3. Run the subcommand against the document store
// 4. Translate failures into exit codes

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/brief-maestro/internal/brief"
	"github.com/kingrea/brief-maestro/internal/config"
	"github.com/kingrea/brief-maestro/internal/logbook"
	"github.com/kingrea/brief-maestro/internal/logging"
	"github.com/kingrea/brief-maestro/internal/render"
	"github.com/kingrea/brief-maestro/internal/schema"
	"github.com/kingrea/brief-maestro/internal/store"
)

var (
	// Global flags
	projectDir string
	verbose    bool

	// Loaded lazily by the first command that needs them
	cfg *config.Config

	logger  *zap.Logger
	logFile *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "briefmaestro",
	Short: "Fill, validate and render client briefs",
	Long: `Brief Maestro keeps one brief per client, built from the agency's
briefing template. Fill fields one by one, validate, finalize and render the
brief as markdown or plain text.

Project state lives in .brief/ under the project directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if projectDir == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolve working directory: %w", err)
			}
			projectDir = cwd
		}
		l, err := logging.New(projectDir, verbose)
		if err != nil {
			return err
		}
		logFile = l
		logger = l.Logger
		logger.Debug("command started", zap.String("command", cmd.CommandPath()), zap.Strings("args", args))
		return nil
	},
}

// usageError marks bad arguments or flags.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func rangeArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.RangeArgs(lo, hi)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "d", "", "Project directory (default: current)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := execute(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// execute runs the CLI and closes the log file whether or not the command
// succeeded. Failures are recorded in the log first.
func execute(args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err != nil {
		currentLogger().Error("command failed", zap.Int("exit_code", exitCode(err)), zap.Error(err))
	}
	closeLog()
	return err
}

func closeLog() {
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile, logger = nil, nil
}

// exitCode maps a command failure to the process exit status.
func exitCode(err error) int {
	var usage usageError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &usage), strings.HasPrefix(err.Error(), "unknown command"):
		return 2
	case errors.Is(err, brief.ErrAlreadyExists):
		return 3
	case errors.Is(err, brief.ErrNotFound):
		return 4
	case errors.Is(err, brief.ErrUnknownField):
		return 5
	case errors.Is(err, brief.ErrFinalized):
		return 6
	case errors.Is(err, brief.ErrValidationIncomplete):
		return 7
	case errors.Is(err, brief.ErrArchived):
		return 8
	default:
		return 1
	}
}

func loadConfig() (*config.Config, error) {
	if cfg != nil {
		return cfg, nil
	}
	if projectDir == "" {
		projectDir = "."
	}
	c, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	cfg = c
	return cfg, nil
}

func loadSchema() (*schema.Schema, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := schema.Load(c.SchemaPath(), c.RequiredOverride())
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return s, nil
}

// openDocuments wires the configured backend, schema, logbook and render
// settings into a document store. Callers close it.
func openDocuments() (*store.Documents, error) {
	c, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	backend, err := store.Open(c)
	if err != nil {
		return nil, err
	}
	return store.New(backend, s,
		store.WithLogger(currentLogger()),
		store.WithHistory(logbook.NewShelf(c.HistoryDir())),
		store.WithRenderOptions(render.Options{
			Title:       c.Project.Render.Title,
			Placeholder: c.Project.Render.Placeholder,
		}),
	), nil
}

func currentLogger() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
