package main

import (
	"errors"
	"flag"
	"log"

	"gamevault/internal/pkg/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	down := flag.Bool("down", false, "roll back the last migration")
	force := flag.Int("force", -1, "force a version after fixing a dirty database")
	source := flag.String("source", "file://migrations", "migration source url")
	flag.Parse()

	config.LoadConfig()

	m, err := migrate.New(*source, config.GlobalConfig.Database.URL())
	if err != nil {
		log.Fatal(err)
	}
	defer m.Close()

	if *force >= 0 {
		if err := m.Force(*force); err != nil {
			log.Fatal("Failed to force version:", err)
		}
		log.Printf("Forced version %d", *force)
		return
	}

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			log.Fatalf("Database is dirty at version %d. Fix it and rerun with -force", dirty.Version)
		}
		log.Fatal(err)
	}

	version, isDirty, _ := m.Version()
	log.Printf("Migration successful (version %d, dirty=%v)", version, isDirty)
}
