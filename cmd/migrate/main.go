package main

import (
	"os"

	config "github.com/avvvet/tap-services/configs"
	"github.com/avvvet/tap-services/internal/tapsvc/db"
	log "github.com/sirupsen/logrus"
)

const SERVICE_NAME = "migrate"

func init() {
	os.Setenv("LOG_STDOUT", "true")
	config.Logging(SERVICE_NAME)
	config.LoadEnv(SERVICE_NAME)
}

// usage: migrate [up|down|version]
func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		log.Fatal("POSTGRES_URL is required")
	}

	m, err := db.NewMigrator(dsn)
	if err != nil {
		log.Fatalf("Failed to init migrations: %v", err)
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warnf("close migrator: %v", err)
		}
	}()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
		if err == nil {
			log.Info("migrations rolled back")
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr == nil {
			log.Infof("schema version=%d dirty=%t", v, dirty)
		}
		err = verr
	default:
		log.Fatalf("unknown command %q, use up, down or version", cmd)
	}

	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}
