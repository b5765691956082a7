package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vaultrag/internal/app"
	"vaultrag/internal/config"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		path    string
		daily   bool
	)
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/vaultrag/config.yaml if not provided)")
	flag.StringVar(&path, "path", "", "Vault sub-path to ingest (default: whole vault)")
	flag.BoolVar(&daily, "daily", false, "Ingest today's daily notes (Daily/YYYY-MM-DD)")
	flag.Parse()

	if daily {
		if path != "" {
			log.Fatal("-daily and -path are mutually exclusive")
		}
		path = "Daily/" + time.Now().Format("2006-01-02")
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	svc, index, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}
	defer index.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := svc.Ingest(ctx, path)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}
	if report.NoOp() {
		fmt.Println("no documents found; nothing to do")
		return
	}

	fmt.Printf("loaded %d documents, stored %d chunks", report.Documents, report.Chunks)
	if report.Skipped > 0 {
		fmt.Printf(" (%d skipped)", report.Skipped)
	}
	fmt.Println()

	total, err := svc.Count(ctx)
	if err != nil {
		log.Fatalf("failed to read index: %v", err)
	}
	fmt.Printf("index now holds %d chunks\n", total)
}
