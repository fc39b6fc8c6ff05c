// Command migrate manages the rentbot listings database schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"rentbot/migrations"
)

const usage = `migrate manages the rentbot listings database schema.

Usage:

  migrate [-db path] <command>

Commands:

  up       apply all pending migrations
  down     roll back the most recent migration
  redo     roll back and re-apply the most recent migration
  status   print the state of every known migration
  version  print the current schema version
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	dbPath := flag.String("db", envOrDefault("DATABASE_PATH", "./data/rentbot.db"), "sqlite database path")
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	cmd := flag.Arg(0)

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open %s: %v", *dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if err := run(db, cmd); err != nil {
		log.Fatalf("migrate %s: %v", cmd, err)
	}
}

func run(db *sql.DB, cmd string) error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	switch cmd {
	case "up":
		return goose.Up(db, ".")
	case "down":
		return goose.Down(db, ".")
	case "redo":
		return goose.Redo(db, ".")
	case "status":
		return goose.Status(db, ".")
	case "version":
		return goose.Version(db, ".")
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
