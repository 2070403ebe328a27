package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"lifedrop.org/internal/migrate"
	"lifedrop.org/internal/obs"
)

func main() {
	logger := obs.Logger()
	dsn := flag.String("dsn", os.Getenv("LIFEDROP_PG_DSN"), "PostgreSQL DSN")
	dir := flag.String("dir", "", "directory of SQL migrations (default: embedded)")
	flag.Parse()

	fail := func(msg string, args ...any) {
		logger.Error(msg, args...)
		os.Exit(1)
	}
	if *dsn == "" {
		fail("missing DSN: provide via -dsn or LIFEDROP_PG_DSN")
	}
	if len(flag.Args()) == 0 {
		fail("usage: migrate [up|down|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fail("open db", "error", err)
	}
	defer db.Close()

	files := migrate.Files()
	if *dir != "" {
		files = os.DirFS(*dir)
	}
	mgr := migrate.NewManager(db, files)

	switch flag.Arg(0) {
	case "up":
		var applied []string
		applied, err = mgr.Up(ctx)
		if err == nil {
			logger.Info("migrations_applied", "count", len(applied), "names", applied)
		}
	case "down":
		var last string
		last, err = mgr.Down(ctx)
		if err == nil {
			logger.Info("migration_rolled_back", "name", last)
		}
	case "status":
		var history []string
		history, err = mgr.Status(ctx)
		if err == nil {
			for _, item := range history {
				fmt.Println(item)
			}
		}
	default:
		fail("unknown command", "command", flag.Arg(0))
	}
	if err != nil {
		fail("migrate failed", "command", flag.Arg(0), "error", err)
	}
}
