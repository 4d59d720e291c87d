// Package main starts the currency gRPC service process lifecycle.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	currenciescmd "github.com/ithrek/syncadapter-currencies/internal/cmd/currencies"
	entrypoint "github.com/ithrek/syncadapter-currencies/internal/platform/cmd"
)

func main() {
	cfg, err := currenciescmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix(entrypoint.LogPrefix(entrypoint.ServiceCurrencies))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := currenciescmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
