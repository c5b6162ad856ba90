package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Deployment sanity checks, meant to run before the bot starts on the
// hosting platform.
func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	token := strings.TrimSpace(os.Getenv("BOT_TOKEN"))
	adminID := strings.TrimSpace(os.Getenv("ADMIN_ID"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))
	port := strings.TrimSpace(os.Getenv("PORT"))
	db := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	dbPath := strings.TrimSpace(os.Getenv("DB_PATH"))

	if token == "" {
		warn("BOT_TOKEN empty — the Telegram front-end will be disabled and alerts go to the log.")
	} else {
		ok("BOT_TOKEN present")
	}

	if adminID == "" {
		warn("ADMIN_ID empty — nobody will be able to mint access codes from the bot.")
	} else if _, err := strconv.ParseInt(adminID, 10, 64); err != nil {
		fail("ADMIN_ID is not a number: " + adminID)
	} else {
		ok("ADMIN_ID=" + adminID)
	}

	if addr == "" && port == "" {
		warn("ADDR and PORT both empty; default :8080 will be used.")
	} else if addr != "" {
		ok("ADDR=" + addr)
	} else {
		ok("PORT=" + port)
	}

	if db != "" {
		ok("DATABASE_URL present (postgres backend)")
	} else if dbPath != "" {
		ok("DB_PATH=" + dbPath + " (sqlite backend)")
	} else {
		warn("no DATABASE_URL or DB_PATH; sqlite file uptimebot.db in the working directory will be used.")
	}

	ok("preflight passed")
}
