package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"lumia-router/internal/api"
	"lumia-router/internal/catalog"
	"lumia-router/internal/db"
	"lumia-router/internal/logger"
)

var version = "dev"

func main() {
	defaultPort, _ := strconv.Atoi(envOrDefault("ROUTER_PORT", "13380"))
	port := flag.Int("port", defaultPort, "HTTP server port")
	dbPath := flag.String("db", envOrDefault("ROUTER_DB", db.DefaultPath()), "SQLite database path")
	importPath := flag.String("import", "", "seed the catalog tables from a JSON snapshot before starting")
	flag.Parse()

	logger.Banner(version)

	// Open SQLite database
	database, err := db.Open(*dbPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	if *importPath != "" {
		if err := importSnapshot(database, *importPath); err != nil {
			logger.Error("Catalog", fmt.Sprintf("Import failed: %v", err))
			os.Exit(1)
		}
	}

	// Load config from SQLite
	cfg := database.LoadConfig()

	srv := api.NewServer(cfg, database)

	// Load catalog in background
	go func() {
		cat, err := database.LoadCatalog(context.Background())
		if err != nil {
			logger.Error("Catalog", fmt.Sprintf("Load failed: %v", err))
			return
		}
		if cat.Len() == 0 {
			logger.Warn("Catalog", "No items in database; run with -import <snapshot.json>")
			return
		}
		srv.SetCatalog(cat)
		logger.Section("Catalog")
		logger.Stats("Items", cat.Len())
		logger.Stats("Areas", len(cat.AreaCodes()))
		logger.Stats("Characters", len(cat.Characters()))
		logger.Success("Catalog", "Route search ready")
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", *port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}

func importSnapshot(database *db.DB, path string) error {
	snap, err := catalog.ReadSnapshotFile(path)
	if err != nil {
		return err
	}
	if err := database.SaveItems(snap.Items); err != nil {
		return err
	}
	if err := database.SaveCharacters(snap.Characters); err != nil {
		return err
	}
	logger.Success("Catalog", fmt.Sprintf("Imported %d items and %d characters from %s",
		len(snap.Items), len(snap.Characters), path))
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
