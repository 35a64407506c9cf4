package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"promo_engine/internal/config"
)

func TestRunReturnsSetupErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	if err := os.WriteFile(blocker, nil, 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	cfg := &config.Config{DatabasePath: filepath.Join(blocker, "promo.db")}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := run(context.Background(), cfg, log); err == nil {
		t.Fatal("run() error = nil, want data directory error")
	}
}

func TestRunReturnsSeedErrorAfterOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "promo.db")
	cfg := &config.Config{DatabasePath: dbPath}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := run(ctx, cfg, log); err == nil {
		t.Fatal("run() error = nil, want seed error on cancelled context")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database not created: %v", err)
	}
}
