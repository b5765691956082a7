package main

import (
	"context"
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"vaultrag/internal/app"
	"vaultrag/internal/config"
	"vaultrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/vaultrag/config.yaml if not provided)")
	flag.Parse()

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

	count, err := svc.Count(context.Background())
	if err != nil {
		log.Fatalf("failed to read index: %v", err)
	}
	if count == 0 {
		log.Println("index is empty; run vaultrag-ingest first")
	}

	m := tui.New(svc, count)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
