package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"municipality/internal/apperr"
	"municipality/internal/auth"
	"municipality/internal/cache"
	"municipality/internal/config"
	"municipality/internal/database"
	"municipality/internal/logging"
	"municipality/internal/models"
	"municipality/internal/repository"
	"municipality/internal/server"
	"municipality/internal/service"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "municipality",
		Short:         "Municipal citizen services backend",
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(bootstrapCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	logger, err := logging.New(cfg.Environment, cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and gRPC health servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("Configuration loaded",
				zap.String("environment", cfg.Environment),
				zap.Bool("debug", cfg.Debug),
				zap.String("database_driver", cfg.Database.Driver))

			srv := server.New(cfg, logger)
			if err := srv.Initialize(); err != nil {
				logger.Error("Failed to initialize server", zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(ctx); err != nil {
				logger.Error("Server stopped with error", zap.Error(err))
				return err
			}
			logger.Info("Municipality service stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			db, err := database.Open(cfg.Database, cfg.Debug, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.AutoMigrate(); err != nil {
				return err
			}
			logger.Info("Database schema is up to date")
			return nil
		},
	}
}

type bootstrapOptions struct {
	email      string
	password   string
	nationalID string
	firstName  string
	lastName   string
	birthDate  string
	department string
	position   string
	salary     float64
}

func bootstrapCmd() *cobra.Command {
	opts := bootstrapOptions{}
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the first department and an administrator employee",
		Long: `Create the first department and an administrator employee.

Employees can only be registered by other employees, so a fresh
installation needs one created out of band:

  municipality bootstrap --email admin@city.gov --password s3cretpass \
    --national-id ADM-0001 --department Administration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runBootstrap(cmd.Context(), cfg, logger, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.email, "email", "", "administrator email")
	flags.StringVar(&opts.password, "password", "", "administrator password")
	flags.StringVar(&opts.nationalID, "national-id", "", "administrator national id")
	flags.StringVar(&opts.firstName, "first-name", "System", "administrator first name")
	flags.StringVar(&opts.lastName, "last-name", "Administrator", "administrator last name")
	flags.StringVar(&opts.birthDate, "date-of-birth", "1980-01-01", "administrator date of birth (YYYY-MM-DD)")
	flags.StringVar(&opts.department, "department", "Administration", "name of the first department")
	flags.StringVar(&opts.position, "position", "Administrator", "administrator position")
	flags.Float64Var(&opts.salary, "salary", 1000, "administrator salary")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	cmd.MarkFlagRequired("national-id")
	return cmd
}

func runBootstrap(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts bootstrapOptions) error {
	if cfg.Database.Driver == "memory" {
		return errors.New("bootstrap requires a persistent database driver")
	}

	db, err := database.Open(cfg.Database, cfg.Debug, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.AutoMigrate(); err != nil {
		return err
	}

	deps := service.Deps{Store: repository.NewGormStore(db.DB), Logger: logger}
	identity := service.NewIdentityService(deps, auth.NewService(cfg.Auth, cache.NewLocal()), cfg.Auth)

	_, err = identity.RegisterCitizen(ctx, models.RegisterCitizenPayload{
		Email:       opts.email,
		Password:    opts.password,
		NationalID:  opts.nationalID,
		FirstName:   opts.firstName,
		LastName:    opts.lastName,
		DateOfBirth: opts.birthDate,
	})
	if err != nil && !apperr.Is(err, apperr.KindConflict) {
		return errors.Wrap(err, "failed to register administrator citizen")
	}

	department, err := identity.CreateDepartment(ctx, models.CreateDepartmentPayload{Name: opts.department})
	if err != nil {
		return errors.Wrap(err, "failed to create department")
	}

	employee, err := identity.RegisterEmployee(ctx, models.RegisterEmployeePayload{
		Email:           opts.email,
		Password:        opts.password,
		NationalID:      opts.nationalID,
		Position:        opts.position,
		EmploymentType:  models.EmploymentFullTime,
		AccessClearance: models.ClearanceAdministrator,
		DepartmentID:    department.ID,
		StartDate:       time.Now().UTC().Format("2006-01-02"),
		Salary:          opts.salary,
	})
	if err != nil {
		return errors.Wrap(err, "failed to register administrator employee")
	}

	logger.Info("Bootstrap completed",
		zap.Uint("department_id", department.ID),
		zap.Uint("employee_id", employee.ID),
		zap.String("email", opts.email))
	return nil
}
