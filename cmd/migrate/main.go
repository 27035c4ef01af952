package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/samirrijal/questgeo/internal/pkg/config"
)

var upFiles = []string{
	"001_init_extensions.sql",
	"002_core_tables.sql",
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down> [dir]")
	}
	dir := "migrations"
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load("questgeo-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		err = apply(ctx, pool, dir, upFiles)
	case "down":
		err = apply(ctx, pool, dir, []string{"down.sql"})
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.Fatal(err)
	}
	log.Println("all migrations applied")
}

func apply(ctx context.Context, pool *pgxpool.Pool, dir string, files []string) error {
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", path, err)
		}
		fmt.Printf("OK  %s\n", path)
	}
	return nil
}
