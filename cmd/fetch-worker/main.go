package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-fetch/internal/app"
	"content-fetch/internal/utils"
)

// Usage:
//
//	fetch-worker URL [REFERER]   fetch one locator to stdout
//	fetch-worker                 consume fetch requests from Kafka
func main() {
	os.Exit(run())
}

func run() int {
	fetcherApp := app.InitApp()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := 0
	if len(os.Args) > 1 {
		exitCode = runOnce(ctx, fetcherApp, os.Args[1:])
	} else {
		runService(ctx, fetcherApp)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := fetcherApp.StopApp(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("failed to stop fetcher gracefully: %v", err)
		exitCode = 1
	}

	return exitCode
}

func runOnce(ctx context.Context, fetcherApp *app.FetcherApp, args []string) int {
	var referer string
	if len(args) > 1 {
		referer = args[1]
	}

	status := fetcherApp.FetchOnce(ctx, utils.CorrectURLScheme(args[0]), referer, os.Stdout)
	if status.Err != nil {
		log.Printf("fetch failed: %v", status.Err)
		return 1
	}
	return 0
}

func runService(ctx context.Context, fetcherApp *app.FetcherApp) {
	if err := fetcherApp.StartApp(ctx); err != nil {
		log.Fatalf("failed to start fetcher: %v", err)
	}

	<-ctx.Done()

	log.Println("Shutting down the fetcher...")
}
