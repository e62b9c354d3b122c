package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenbite/cmd/config"
	migration "greenbite/cmd/database/migrate"
	"greenbite/domain"
	"greenbite/internal/utils"
	"greenbite/pkg/camera"
	"greenbite/pkg/jwt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/spf13/cobra"
)

var (
	configFlag string
	rootCmd    = &cobra.Command{
		Use:   "greenbite",
		Short: "GreenBite food inventory service",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return utils.LoadConfigFrom(configFlag)
		},
		SilenceUsage: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "config.yaml", "Path to the YAML config file")

	rootCmd.AddCommand(serveCmd(), migrateCmd(), scanCmd(), sweepAlertsCmd(), tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the change listener and the alert sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			services, err := config.NewServices(ctx, db)
			if err != nil {
				return err
			}
			defer services.Close()

			app, err := config.NewApp(services)
			if err != nil {
				return err
			}

			if services.Listener != nil {
				go func() {
					_ = services.Listener.Run(ctx)
				}()
			}
			if services.Sweeper != nil {
				interval := utils.GetDurationConfig("ALERT_INTERVAL", time.Hour)
				go services.Sweeper.Run(ctx, interval)
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := app.ShutdownWithContext(shutdownCtx); err != nil {
					log.Errorf("shutdown: %v", err)
				}
			}()

			return app.Listen(":" + utils.GetConfig("APP_PORT"))
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			return migration.Migrate(db)
		},
	}
}

func scanCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Capture one frame from the configured camera and add what it shows",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			devices, err := config.NewMediaDevices()
			if err != nil {
				return err
			}
			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			services, err := config.NewServices(ctx, db)
			if err != nil {
				return err
			}
			defer services.Close()

			session := camera.NewSession(devices)
			defer session.Close()
			if err := session.Open(ctx); err != nil {
				return err
			}

			res, err := services.FoodService.CaptureAndDetect(ctx, userID, session)
			if err != nil {
				return err
			}
			if !res.Detected {
				fmt.Fprintln(cmd.OutOrStdout(), domain.MessageNothingDetected)
				return nil
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Owner user ID (required)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func sweepAlertsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-alerts",
		Short: "Run one expiry alert sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := config.ConnectDB()
			if err != nil {
				return err
			}
			services, err := config.NewServices(cmd.Context(), db)
			if err != nil {
				return err
			}
			defer services.Close()

			if services.Sweeper == nil {
				return errors.New("SMTP settings are required to send alerts")
			}
			report, err := services.Sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mailed %d users about %d items (%d skipped, %d failed)\n",
				report.Mailed, report.Items, report.Skipped, report.Failed)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var identity domain.Identity
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed API token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), jwt.NewJWTService().GenerateTokenUser(identity))
			return nil
		},
	}
	cmd.Flags().StringVarP(&identity.UserID, "user", "u", "", "User ID (required)")
	cmd.Flags().StringVar(&identity.Email, "email", "", "E-mail claim")
	cmd.Flags().StringVar(&identity.Name, "name", "", "Name claim")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
