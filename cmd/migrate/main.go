package main

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marmoleria/backend/internal/infrastructure/config"
	"github.com/marmoleria/backend/internal/infrastructure/logger"
	"github.com/marmoleria/backend/internal/infrastructure/migration"
	"github.com/marmoleria/backend/internal/infrastructure/persistence"
	"github.com/marmoleria/backend/internal/infrastructure/persistence/models"
	"github.com/marmoleria/backend/migrations"
)

var (
	migrationsDir string
	logLevel      string
	log           *zap.Logger
)

func main() {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Marmoleria database migration tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(&logger.Config{
				Level:      logLevel,
				Format:     "console",
				Output:     "stdout",
				TimeFormat: "2006-01-02 15:04:05",
			})
			if err != nil {
				return err
			}
			log = l
			return nil
		},
	}
	root.PersistentFlags().StringVar(&migrationsDir, "dir", "",
		"read migrations from this directory instead of the embedded set")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	root.AddCommand(
		upCmd(),
		migratorCmd("down", "Roll back every migration", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error { return m.Down() }),
		migratorCmd("step <n>", "Apply n migrations, negative n rolls back", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid step count %q", args[0])
				}
				return m.Steps(n)
			}),
		migratorCmd("goto <version>", "Migrate to a specific version", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.ParseUint(args[0], 10, 32)
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.GoTo(uint(v))
			}),
		migratorCmd("version", "Show the applied version", cobra.NoArgs,
			func(m *migration.Migrator, _ []string) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
				return nil
			}),
		migratorCmd("force <version>", "Record a version without running it", cobra.ExactArgs(1),
			func(m *migration.Migrator, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return m.Force(v)
			}),
		createCmd(),
		listCmd(),
	)

	err := root.Execute()
	if log != nil {
		_ = log.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

// upCmd applies the schema. SQLite databases get gorm AutoMigrate since the
// SQL files target PostgreSQL.
func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == "sqlite" {
				db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: log})
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.DB.AutoMigrate(models.All()...); err != nil {
					return fmt.Errorf("auto-migrate sqlite: %w", err)
				}
				log.Info("SQLite schema migrated", zap.String("path", cfg.Database.SQLitePath))
				return nil
			}
			return withMigrator(cfg, func(m *migration.Migrator) error { return m.Up() })
		},
	}
}

func migratorCmd(use, short string, args cobra.PositionalArgs, run func(*migration.Migrator, []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, a []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("%s is only supported for postgres, sqlite schemas are managed by `migrate up`", cmd.Name())
			}
			return withMigrator(cfg, func(m *migration.Migrator) error { return run(m, a) })
		},
	}
}

func withMigrator(cfg *config.Config, fn func(*migration.Migrator) error) error {
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	m, err := migration.New(db, migration.Source{Dir: migrationsDir}, log)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name> [description]",
		Short: "Create an empty migration pair in --dir (default ./migrations)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := migrationsDir
			if dir == "" {
				dir = "migrations"
			}
			desc := ""
			if len(args) == 2 {
				desc = args[1]
			}
			mf, err := migration.CreateMigration(dir, args[0], desc)
			if err != nil {
				return err
			}
			log.Info("Migration created",
				zap.Uint("version", mf.Version),
				zap.String("up", mf.UpPath),
				zap.String("down", mf.DownPath),
			)
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src := migration.Source{Dir: migrationsDir}
			var (
				entries []migration.Entry
				err     error
			)
			if src.Dir == "" {
				entries, err = migration.ListMigrations(migrations.FS)
			} else {
				entries, err = migration.ListMigrations(os.DirFS(src.Dir))
			}
			if err != nil {
				return err
			}
			for _, e := range entries {
				down := ""
				if !e.HasDown {
					down = " (no down)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%06d  %s%s\n", e.Version, e.Name, down)
			}
			return nil
		},
	}
}
