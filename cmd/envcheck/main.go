// Command envcheck verifies the terminal's environment before first use:
// configuration presence, database reachability and schema state. It is a
// standalone diagnostic and not part of the interactive runtime.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/bankterm/atm-terminal/configs"
	"github.com/bankterm/atm-terminal/pkg"
	"github.com/bankterm/atm-terminal/pkg/database"
)

func main() {
	pkg.InitLogger()
	logger := pkg.Logger
	defer func() {
		_ = logger.Sync()
	}()

	ok := true

	cfg, err := configs.Load(logger)
	if err != nil {
		report(false, fmt.Sprintf("configuration: %v", err))
		fmt.Println("Set APP_DB_ADDR (user:pass@host:port/dbname) and re-run.")
		os.Exit(1)
	}
	report(true, fmt.Sprintf("configuration loaded (db=%s)", database.MaskDSN("postgres://"+cfg.DbAddr)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, disconnect, err := database.New(ctx, logger, database.Config{
		DSN:      cfg.DbAddr,
		MaxConns: 1,
		MinConns: 1,
	})
	if err != nil {
		report(false, fmt.Sprintf("database connection: %v", err))
		fmt.Println("Check that PostgreSQL is running and the credentials are correct.")
		os.Exit(1)
	}
	defer disconnect()
	report(true, "database reachable")

	if err := db.Ping(ctx); err != nil {
		report(false, fmt.Sprintf("database ping: %v", err))
		ok = false
	} else {
		report(true, "database ping succeeded")
	}

	if err := database.RunMigrations(logger, cfg.DbAddr); err != nil {
		report(false, fmt.Sprintf("migrations: %v", err))
		ok = false
	} else {
		report(true, "schema up to date")
	}

	if !ok {
		os.Exit(1)
	}
	fmt.Println("Environment OK.")
}

func report(ok bool, msg string) {
	if ok {
		fmt.Printf("[ OK ] %s\n", msg)
		return
	}
	fmt.Printf("[FAIL] %s\n", msg)
}
