package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	direction := flag.String("direction", "up", "up, down, version, or force")
	steps := flag.Int("steps", 0, "number of steps (0 = all); with force, the version to mark clean")
	dbURL := flag.String("db-url", "", "database URL (overrides env)")
	migrationsPath := flag.String("path", "migrations", "path to migrations directory")
	flag.Parse()

	m, err := migrate.New("file://"+*migrationsPath, resolveDSN(*dbURL))
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch *direction {
	case "up":
		if *steps > 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps > 0 {
			err = m.Steps(-*steps)
		} else {
			err = m.Down()
		}
	case "version":
	case "force":
		// Clears the dirty flag after a failed migration was fixed by hand.
		err = m.Force(*steps)
	default:
		log.Fatalf("invalid direction: %s (use up, down, version, or force)", *direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	v, dirty, verr := m.Version()
	if errors.Is(verr, migrate.ErrNilVersion) {
		fmt.Println("routing state schema: no migrations applied")
		return
	}
	fmt.Printf("routing state schema %s: version %d, dirty %v\n", *direction, v, dirty)
}

// resolveDSN prefers the flag, then DATABASE_URL, then AIREADER_DB_* parts.
func resolveDSN(flagURL string) string {
	if flagURL != "" {
		return flagURL
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}
	host := envOrDefault("AIREADER_DB_HOST", "localhost")
	port := envOrDefault("AIREADER_DB_PORT", "5432")
	user := envOrDefault("AIREADER_DB_USER", "aireader")
	pass := envOrDefault("AIREADER_DB_PASSWORD", "aireader-dev")
	name := envOrDefault("AIREADER_DB_NAME", "aireader")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
