// app is the operator console. With arguments it runs a single command and prints JSON;
// without arguments it starts the interactive console.
//
// Commands run as the system administrator: the console is for operators with direct
// database access, not for end users.
package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"order-engine/internal/adapters/cli"
	"order-engine/internal/adapters/repl"
	"order-engine/internal/app"
	"order-engine/internal/config"
	"order-engine/internal/core"
	"order-engine/internal/db"
	"order-engine/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	audit := core.NewPostgresAuditSink(pool, logger)
	svc := app.NewAppService(pool, app.NewServices(pool, audit), nil, cfg.CompanyCode)

	if len(os.Args) > 1 {
		if err := cli.Run(ctx, svc, app.SystemActor, os.Args[1:], os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := repl.Run(ctx, svc, app.SystemActor, bufio.NewReader(os.Stdin), os.Stdout); err != nil {
		log.Fatal(err)
	}
}
