package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config contains server configuration.
type Config struct {
	DBPath string
	Addr   string
}

// Load reads configuration from environment variables and .env. A
// missing .env is fine; defaults cover everything else.
func Load() Config {
	_ = godotenv.Load()

	dbPath := os.Getenv("FIELDCAP_DB")
	if dbPath == "" {
		dbPath = "fieldcap.db"
	}

	addr := os.Getenv("FIELDCAP_ADDR")
	if addr == "" {
		addr = ":" + port()
	}

	return Config{DBPath: dbPath, Addr: addr}
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}
