package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	BotToken     string        // Telegram bot token; empty disables the bot front-end
	AdminID      int64         // user id allowed to mint access codes
	Addr         string        // HTTP bind address for the liveness/API server
	LogDir       string        // logs directory
	DBPath       string        // sqlite database file
	DatabaseURL  string        // postgres DSN; set to use postgres instead of sqlite
	ProbeTimeout time.Duration // per-probe HTTP timeout

	PublicAPIKeys []string // keys for read endpoints; empty allows all (dev)
	AdminAPIKeys  []string // keys for admin endpoints
	PublicRPM     int      // per-IP rate limit for the HTTP API
	PublicBurst   int
}

func FromEnv() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		if p := os.Getenv("PORT"); p != "" {
			// hosting platforms hand out just a port
			addr = ":" + p
		} else {
			addr = ":8080"
		}
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "uptimebot.db"
	}

	timeout := 10 * time.Second
	if v := os.Getenv("PROBE_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}

	var adminID int64
	if v := os.Getenv("ADMIN_ID"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			adminID = n
		}
	}

	publicRPM := 120
	if v := os.Getenv("PUBLIC_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			publicRPM = n
		}
	}
	publicBurst := 30
	if v := os.Getenv("PUBLIC_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			publicBurst = n
		}
	}

	return Config{
		BotToken:      os.Getenv("BOT_TOKEN"),
		AdminID:       adminID,
		Addr:          addr,
		LogDir:        logDir,
		DBPath:        dbPath,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		ProbeTimeout:  timeout,
		PublicAPIKeys: splitKeys(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:  splitKeys(os.Getenv("ADMIN_API_KEYS")),
		PublicRPM:     publicRPM,
		PublicBurst:   publicBurst,
	}
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
