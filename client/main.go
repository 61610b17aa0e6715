package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/phillip-england/hrconsole/internal/clientapp"
	"github.com/phillip-england/hrconsole/internal/envutil"
	"github.com/phillip-england/hrconsole/internal/logging"
)

func main() {
	if err := envutil.LoadDotEnv(".env"); err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(envutil.OrDefault("LOG_LEVEL", "info"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := clientapp.Run(ctx, clientapp.DefaultConfigFromEnv()); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}
