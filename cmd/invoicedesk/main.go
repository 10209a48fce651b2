package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cottonstock/invoicedesk/config"
	"github.com/cottonstock/invoicedesk/internal/adminapi"
	"github.com/cottonstock/invoicedesk/internal/app"
	"github.com/cottonstock/invoicedesk/internal/webserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "invoicedesk",
	Short:         "Invoice management server for small retail businesses",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and background jobs",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		reset, _ := cmd.Flags().GetBool("reset")
		application, err := initApp()
		if err != nil {
			return err
		}
		defer application.Release()
		if reset {
			application.InitDb()
			return nil
		}
		track, _ := cmd.Flags().GetBool("debug")
		return application.MigrateDB(track)
	},
}

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Rewrite stored invoices saved under older schema revisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := initApp()
		if err != nil {
			return err
		}
		defer application.Release()
		res, err := application.RunNormalize(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("scanned=%d updated=%d failed=%d\n", res.Scanned, res.Updated, res.Failed)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("invoicedesk %s (built %s)\n", version, buildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	migrateCmd.Flags().Bool("reset", false, "drop and recreate all tables")
	migrateCmd.Flags().Bool("debug", false, "log migration sql")
	rootCmd.AddCommand(serveCmd, migrateCmd, normalizeCmd, versionCmd)
}

func initApp() (*app.Application, error) {
	cfg := config.LoadConfig(configFile)
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		return nil, err
	}
	return application, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	application, err := initApp()
	if err != nil {
		return err
	}
	defer application.Release()

	if err := application.StartBackgroundJobs(); err != nil {
		return err
	}

	adminapi.Init(application)
	server := webserver.NewServer(application.Config(), application.Auth().Tokens(), application.Registry())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Listen)
	g.Go(func() error {
		<-gctx.Done()
		zap.S().Info("shutting down web server")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})
	return g.Wait()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
