package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/service"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "servicedesk",
		Short: "IT service desk API",
	}
	rootCmd.AddCommand(newServeCommand(), newMigrateCommand(), newCreateUserCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func bootstrap() (*config.Config, *zap.Logger) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	return cfg, logger
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			app, err := newApplication(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			errCh := make(chan error, 1)
			go func() {
				errCh <- app.server.Listen(cfg.App.Addr())
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("fiber listen: %w", err)
			case sig := <-waitForSignal():
				logger.Info("shutting down", zap.String("signal", sig.String()))
			}
			return app.server.ShutdownWithTimeout(10 * time.Second)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck
			if cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required to migrate")
			}
			pg, err := persistence.NewPostgres(cmd.Context(), cfg.Postgres, logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			return persistence.RunMigrations(cmd.Context(), pg.PoolHandle(), logger)
		},
	}
}

func newCreateUserCommand() *cobra.Command {
	var (
		input service.RegisterInput
		role  string
	)
	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a verified account, typically the first admin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := bootstrap()
			defer logger.Sync() //nolint:errcheck

			app, err := newApplication(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			user, err := app.auth.CreateUser(cmd.Context(), input, domain.Role(role))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", user.EmployeeNo, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&input.EmployeeNo, "emp-no", "", "employee number")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleAdmin), "requester or admin")
	for _, f := range []string{"emp-no", "email", "password", "name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func waitForSignal() <-chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	return sigCh
}
