package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/kupilikula/rocketshop-market-backend/pkg/config"
	"github.com/kupilikula/rocketshop-market-backend/pkg/db"
	"github.com/kupilikula/rocketshop-market-backend/pkg/logger"
	"github.com/kupilikula/rocketshop-market-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up               apply all pending migrations
  down             roll back the latest migration
  status           list migrations and whether they are applied
  to <version>     migrate up or down to YYYYMMDDHHMMSS
  create <name>    write a new empty migration into -dir
  validate         check embedded and on-disk migration files
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory for create/validate")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command, arg := flag.Arg(0), flag.Arg(1)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	// create and validate only touch files.
	switch command {
	case "create":
		if arg == "" {
			fail("create needs a migration name")
		}
		path, err := migrate.CreateSQLMigration(*dir, arg, time.Now())
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateEmbedded(); err != nil {
			fail("embedded migrations invalid:\n%v", err)
		}
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("%s invalid:\n%v", *dir, err)
		}
		fmt.Println("migrations valid")
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "command": command, "driver": cfg.DB.Driver})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql.DB", err)
		os.Exit(1)
	}
	migrator, err := migrate.New(sqlDB, cfg.DB.Driver)
	if err != nil {
		logg.Error(ctx, "failed to create migrator", err)
		os.Exit(1)
	}

	if err := run(ctx, migrator, command, arg); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migration complete")
}

func run(ctx context.Context, migrator *migrate.Migrator, command, arg string) error {
	switch command {
	case "up":
		_, err := migrator.Up(ctx)
		return err
	case "down":
		return migrator.Down(ctx)
	case "to":
		version, err := migrate.ParseVersion(arg)
		if err != nil {
			return err
		}
		return migrator.To(ctx, version)
	case "status":
		statuses, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "VERSION\tAPPLIED AT\tNAME")
		for _, s := range statuses {
			applied := "pending"
			if s.Applied {
				applied = s.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, applied, s.Name)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
