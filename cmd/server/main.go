package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"clinic-booking-api/internal/config"
	"clinic-booking-api/internal/database"
	"clinic-booking-api/internal/logging"
	"clinic-booking-api/internal/model"
	"clinic-booking-api/internal/store"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "clinic-server",
		Short:         "Clinic appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), seedCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	withMigrator := func(fn func(*migrate.Migrate) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.StoreDriver != config.DriverPostgres {
			return fmt.Errorf("migrations only apply to the postgres store, STORE_DRIVER=%s", cfg.StoreDriver)
		}
		m, err := database.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer m.Close()
		return fn(m)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return err
				}
				fmt.Println("migrations applied")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
					return err
				}
				fmt.Println("migrations rolled back")
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *migrate.Migrate) error {
				v, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Println("no migrations applied")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty=%t)\n", v, dirty)
				return nil
			})
		},
	})
	return cmd
}

// catalog is the seed file layout.
type catalog struct {
	Services []model.Service `mapstructure:"services"`
	Doctors  []model.Doctor  `mapstructure:"doctors"`
}

func loadCatalog(path string) (catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return catalog{}, fmt.Errorf("read %s: %w", path, err)
	}
	var c catalog
	if err := v.Unmarshal(&c); err != nil {
		return catalog{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load services and doctors from a catalog file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, os.Stdout, cfg.IsDev())
			c, err := loadCatalog(file)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			st, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()

			for i := range c.Services {
				if err := st.UpsertService(ctx, &c.Services[i]); err != nil {
					return fmt.Errorf("seed service %q: %w", c.Services[i].Name, err)
				}
			}
			for i := range c.Doctors {
				err := st.CreateDoctor(ctx, &c.Doctors[i])
				if err != nil && !errors.Is(err, store.ErrDuplicate) {
					return fmt.Errorf("seed doctor %q: %w", c.Doctors[i].Email, err)
				}
			}
			log.Info().Int("services", len(c.Services)).Int("doctors", len(c.Doctors)).Msg("catalog seeded")
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "catalog.yaml", "catalog file (yaml, json or toml)")
	return cmd
}
