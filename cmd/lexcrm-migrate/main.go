package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"lexcrm/backend/internal/config"
	"lexcrm/backend/internal/store/postgres"
)

const usage = "usage: lexcrm-migrate [up|down|version|force <version>]"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With(slog.String("service", "lexcrm-migrate"))

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	m, err := postgres.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Error("migrator setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("migrator close failed", slog.Any("err", err))
		}
	}()

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := run(m, cmd, args); err != nil {
		log.Error("migration failed", slog.String("command", cmd), slog.Any("err", err))
		os.Exit(1)
	}
}

func run(m *postgres.Migrator, cmd string, args []string) error {
	switch cmd {
	case "up":
		if err := m.Up(); err != nil {
			return err
		}
		fmt.Println("migrations complete")
	case "down":
		if err := m.Down(); err != nil {
			return err
		}
		fmt.Println("rolled back one migration")
	case "force":
		if len(args) != 1 {
			return fmt.Errorf("force needs a version\n%s", usage)
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := m.Force(version); err != nil {
			return err
		}
		fmt.Printf("forced version to %d\n", version)
	case "version":
		version, dirty, ok, err := m.Version()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("no migrations applied")
			return nil
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
	return nil
}
