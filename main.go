package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opencandb/cansubmit/internal/api"
	"github.com/opencandb/cansubmit/internal/config"
	"github.com/opencandb/cansubmit/internal/db"
	"github.com/opencandb/cansubmit/internal/fsutil"
	"github.com/opencandb/cansubmit/internal/submit"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Run in dev mode")
	listen      = flag.String("listen", ":8080", "Listen address")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	// A .env file is optional; explicit environment always wins.
	if err := godotenv.Load(); err == nil {
		log.Print("loaded environment from .env")
	}
	cfg := config.FromEnv()

	// The catalog is provisioned out of band. Without it the service
	// still starts and serves the form, answering 503 on data routes,
	// so a misconfigured deploy is visible rather than silently making
	// an empty database.
	var (
		database *db.DB
		pipeline *submit.Pipeline
	)
	if cfg.DBAvailable() {
		var err error
		database, err = db.NewDB(cfg.DBPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		if err := database.Bootstrap(); err != nil {
			log.Fatalf("Failed to bootstrap database: %v", err)
		}

		exporter := submit.NewExporter(fsutil.OSFileSystem{}, cfg.ExportDir)
		pipeline = submit.NewPipeline(api.NewPipelineStore(database), exporter)
	} else {
		log.Printf("catalog database %s not found; data routes will answer 503", cfg.DBPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
	if database != nil {
		database.AttachAdminRoutes(mux)
	}

	mux.Handle("/api/", api.NewServer(cfg, database, pipeline).ServeMux())

	// read static files from the embedded filesystem in production or from
	// the local ./static in dev for easier iteration without restarting the
	// server
	var staticHandler http.Handler
	if *devMode {
		staticHandler = http.FileServer(http.Dir("./static"))
	} else {
		staticFS, err := fs.Sub(staticFiles, "static")
		if err != nil {
			log.Fatalf("failed to mount embedded static files: %v", err)
		}
		staticHandler = http.FileServer(http.FS(staticFS))
	}
	mux.Handle("/", staticHandler)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(api.CORSMiddleware(mux)),
	}

	go func() {
		log.Printf("listening on %s", *listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Printf("Graceful shutdown complete")
}
