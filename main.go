// main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"flavorchart/internal/board"
	"flavorchart/internal/cleanup"
	"flavorchart/internal/config"
	"flavorchart/internal/flavor"
	"flavorchart/internal/logger"
	"flavorchart/internal/metrics"
	"flavorchart/internal/middleware"
	"flavorchart/internal/store"
	"flavorchart/internal/web"
)

type App struct {
	addr        string
	handler     http.Handler
	connections sync.WaitGroup
}

func main() {
	// Step 1: configuration first
	config.LoadEnv()
	config.ConfigurePaths()

	// Step 2: logging
	if err := logger.Setup(config.LoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.LogInfo("Environment and paths loaded. Logger ready.")
	config.LogCurrentEnvironment()
	cleanup.StartLogRetention(config.LogsDirectory())

	// Step 3: persistence
	if err := os.MkdirAll(config.DataDirectory(), 0o775); err != nil {
		logger.LogFatal("Failed to create data directory: %v", err)
	}
	st, err := store.Open(config.StateDBPath())
	if err != nil {
		logger.LogFatal("Failed to open state store: %v", err)
	}
	defer st.Close()

	// Step 4: board engine, restored from persisted state
	attrNames := config.AttributeColumns()
	if len(attrNames) == 0 {
		attrNames = flavor.DefaultAttributeNames
	}
	engine := board.New(attrNames)
	engine.RestoreManualItems(st.LoadManualItems(attrNames))
	engine.SetSelected(st.LoadSelectedNames())
	engine.SetUIState(st.LoadUIState(flavor.UIState{ShopName: config.ShopName()}))
	logger.LogInfo("Restored persisted board state")

	// Step 5: HTTP server + async reference catalog load
	m := metrics.New()
	srv := web.NewServer(engine, st, m, web.Config{
		ShareBaseURL: config.ShareBaseURL(),
		CatalogURL:   config.ReferenceCatalogURL(),
		CatalogFile:  config.ReferenceCatalogFile(),
	})
	srv.StartCatalogLoad(context.Background())

	app := &App{
		addr:    config.ServerAddress(),
		handler: buildHandler(srv, m),
	}
	app.Run()
}

// buildHandler assembles the mux and the outer middleware chain.
func buildHandler(srv *web.Server, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/api/", http.StripPrefix("/api", srv.Routes()))

	var handler http.Handler = mux
	handler = m.Middleware(handler)
	handler = middleware.CORS(config.AllowedOrigin(), handler)
	handler = withTimeout(handler, 15*time.Second)
	return handler
}

func withTimeout(h http.Handler, timeout time.Duration) http.Handler {
	return http.TimeoutHandler(h, timeout, "Request timed out")
}

// Run starts the HTTP server and shuts it down gracefully on SIGTERM.
func (a *App) Run() {
	server := &http.Server{
		Addr:         a.addr,
		Handler:      a.trackConnections(a.handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.LogInfo("Starting server on %s", a.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogFatal("Server failed: %v", err)
		}
	}()

	<-stop
	logger.LogInfo("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.LogError("Server shutdown error: %v", err)
	}

	logger.LogInfo("Waiting for active connections to finish...")
	a.connections.Wait()
	logger.LogInfo("Server shut down gracefully")
}

func (a *App) trackConnections(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.connections.Add(1)
		defer a.connections.Done()
		h.ServeHTTP(w, r)
	})
}
