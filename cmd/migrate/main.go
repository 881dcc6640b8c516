package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/wolfman30/botpe-relay/internal/app/bootstrap"
)

func main() {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := bootstrap.OpenSQL(ctx, databaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}

	m, err := bootstrap.NewMigrator(db)
	if err != nil {
		_ = db.Close()
		log.Fatalf("create migrator: %v", err)
	}
	defer func() { _, _ = m.Close() }()

	// Check for commands: /bin/migrate force <version> | down <steps> | version
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "force":
			if len(os.Args) < 3 {
				log.Fatal("usage: migrate force <version>")
			}
			version, err := strconv.Atoi(os.Args[2])
			if err != nil {
				log.Fatalf("invalid version: %v", err)
			}
			if err := m.Force(version); err != nil {
				log.Fatalf("force version: %v", err)
			}
			fmt.Printf("forced version to %d\n", version)
			return
		case "down":
			steps := 1
			if len(os.Args) >= 3 {
				if steps, err = strconv.Atoi(os.Args[2]); err != nil || steps < 1 {
					log.Fatalf("invalid steps: %q", os.Args[2])
				}
			}
			if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				log.Fatalf("migrate down: %v", err)
			}
			fmt.Printf("rolled back %d migration(s)\n", steps)
			return
		case "version":
			version, dirty, err := m.Version()
			if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
				log.Fatalf("read version: %v", err)
			}
			fmt.Printf("version %d (dirty=%t)\n", version, dirty)
			return
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migrate up: %v", err)
	}

	fmt.Println("migrations complete")
}
