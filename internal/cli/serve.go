package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/themizzi/storecheck/internal/config"
	"github.com/themizzi/storecheck/internal/handlers"
	. "github.com/themizzi/storecheck/internal/logging"
)

// cartTTL is how long an idle Redis cart is kept
const cartTTL = 24 * time.Hour

// ServerDependencies holds all dependencies needed for the server
type ServerDependencies struct {
	ServerConfig config.ServerConfig
	Storefront   http.Handler
	// Closers are released after the server stops
	Closers []io.Closer
}

// BuildServerDependencies wires the storefront for cfg. Carts go to Redis when
// cfg.RedisURL is set and stay in memory otherwise.
func BuildServerDependencies(ctx context.Context, cfg config.ServerConfig) (ServerDependencies, error) {
	deps := ServerDependencies{ServerConfig: cfg}

	accounts, err := handlers.NewAccounts(cfg.Account)
	if err != nil {
		return deps, fmt.Errorf("failed to create accounts: %w", err)
	}

	var carts handlers.CartStore = handlers.NewMemoryCartStore()
	if cfg.RedisURL != "" {
		redisCarts, err := handlers.NewRedisCartStore(ctx, cfg.RedisURL, cartTTL)
		if err != nil {
			return deps, err
		}
		carts = redisCarts
		deps.Closers = append(deps.Closers, redisCarts)
		L_info("serve: carts stored in redis")
	}

	storefront, err := handlers.NewStorefront(handlers.Options{
		Banner:   cfg.Banner,
		Submit:   cfg.Submit,
		Catalog:  handlers.DefaultCatalog(),
		Carts:    carts,
		Accounts: accounts,
		Registry: prometheus.NewRegistry(),
	})
	if err != nil {
		deps.Close()
		return deps, fmt.Errorf("failed to create storefront: %w", err)
	}
	deps.Storefront = storefront

	return deps, nil
}

// Close releases everything in Closers
func (d ServerDependencies) Close() {
	for _, c := range d.Closers {
		if err := c.Close(); err != nil {
			L_warn("serve: close failed", "error", err)
		}
	}
}

// RunServe starts the demo storefront and blocks until a shutdown signal
func RunServe(deps ServerDependencies) error {
	listener, server, err := StartServer(deps)
	if err != nil {
		return err
	}
	defer listener.Close()
	defer deps.Close()

	return WaitForShutdown(server, nil)
}

// StartServer creates and starts the HTTP server, returning the listener and server
func StartServer(deps ServerDependencies) (net.Listener, *http.Server, error) {
	addr := fmt.Sprintf(":%s", deps.ServerConfig.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create listener: %w", err)
	}

	server := &http.Server{
		Handler:           deps.Storefront,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		L_info("serve: listening", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			L_error("serve: server error", "error", err)
		}
	}()

	return listener, server, nil
}

// WaitForShutdown waits for a shutdown signal and gracefully shuts down the server
// If shutdown channel is nil, a new channel will be created and registered with signal.Notify
func WaitForShutdown(server *http.Server, shutdown chan os.Signal) error {
	return WaitForShutdownWithTimeout(server, shutdown, 30*time.Second)
}

// WaitForShutdownWithTimeout allows specifying a custom shutdown timeout (primarily for testing)
func WaitForShutdownWithTimeout(server *http.Server, shutdown chan os.Signal, shutdownTimeout time.Duration) error {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(shutdown)
	}

	sig := <-shutdown
	L_info("serve: shutting down", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		// http.Server.Close does not surface listener close errors, so this rarely fails
		if err := server.Close(); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	L_info("serve: stopped")
	return nil
}
