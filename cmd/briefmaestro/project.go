package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/brief-maestro/internal/config"
	"github.com/kingrea/brief-maestro/internal/server"
	"github.com/kingrea/brief-maestro/internal/tui"
)

var (
	initBackend string
	serveAddr   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .brief/ and a default config in the project directory",
	Args:  exactArgs(0),
	RunE:  runInit,
}

var editCmd = &cobra.Command{
	Use:   "edit <code>",
	Short: "Edit a brief interactively",
	Args:  exactArgs(1),
	RunE:  runEdit,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the brief API over HTTP. When SERVICE_TOKEN is set every route
except /health and /brief/keys requires "Authorization: Bearer <token>".`,
	Args: exactArgs(0),
	RunE: runServe,
}

func init() {
	initCmd.Flags().StringVar(&initBackend, "backend", "", "Storage backend: file or sqlite")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}

func runInit(cmd *cobra.Command, args []string) error {
	if projectDir == "" {
		projectDir = "."
	}
	if err := config.InitBriefDir(projectDir); err != nil {
		return fmt.Errorf("initialize %s: %w", config.BriefDir, err)
	}
	cfg = nil
	c, err := loadConfig()
	if err != nil {
		return err
	}
	if initBackend != "" {
		if err := c.SetBackend(initBackend); err != nil {
			return usageError{err}
		}
	}
	currentLogger().Info("project initialized", zap.String("dir", c.BriefProjectDir), zap.String("backend", c.Backend()))
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s (backend: %s)\n", c.BriefProjectDir, c.Backend())
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()
	return tui.Run(commandContext(cmd), docs, args[0])
}

func runServe(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	addr := serveAddr
	if addr == "" {
		addr = cfg.Project.Server.Addr
	}
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(docs, server.Options{
		Addr:   addr,
		Token:  cfg.Token,
		Logger: currentLogger(),
	})
	fmt.Fprintf(cmd.OutOrStdout(), "Serving briefs on http://%s\n", addr)
	if cfg.Token == "" {
		currentLogger().Warn("SERVICE_TOKEN is not set; the API accepts unauthenticated requests")
	}
	return srv.Run(ctx)
}
