// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/database"
	"github.com/luxfi/database/badgerdb"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"

	bvm "github.com/luxfi/btcbridge/vms/bridgevm"
	"github.com/luxfi/btcbridge/vms/bridgevm/feed"
)

const (
	bridgeEndpoint  = "/ext/bridge"
	metricsEndpoint = "/ext/metrics"
	healthEndpoint  = "/ext/health"

	anyOrigin = "*"

	readHeaderTimeout = 10 * time.Second
	feedTimeout       = 30 * time.Second
)

var ErrMissingAuthToken = errors.New("config must set authToken to serve the bridge API")

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "run",
		Short: "Runs the bridge ledger behind a JSON-RPC server",
		RunE:  runFunc,
	}
	flags := c.Flags()
	AddFlags(flags)
	return c
}

func runFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}

	logger := log.NewLogger("bridgevm")
	db, err := openDB(config.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	factory := &bvm.Factory{
		Log:        logger,
		Registerer: registry,
	}
	vm, err := factory.New(db, config.ConfigBytes)
	if err != nil {
		return fmt.Errorf("couldn't create bridge vm: %w", err)
	}
	if vm.Config().AuthToken == "" {
		return errors.Join(ErrMissingAuthToken, vm.Shutdown(c.Context()))
	}

	ctx := c.Context()
	handler, err := newHandler(ctx, vm, registry, config.AllowedOrigins)
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              config.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	syncDone := make(chan struct{})
	g.Go(func() error {
		defer close(syncDone)

		if config.FeedURL == "" {
			logger.Info("no confirmation feed configured, expecting recordConfirmations calls")
			return nil
		}
		logger.Info("syncing confirmations",
			log.String("feed", config.FeedURL),
		)
		f := feed.NewEsplora(config.FeedURL, &http.Client{Timeout: feedTimeout})
		return vm.RunConfirmationSync(ctx, f)
	})
	g.Go(func() error {
		logger.Info("serving bridge API",
			log.String("address", config.HTTPAddress),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		// If shutdown times out, make sure the server is still shutdown.
		_ = server.Close()
		<-syncDone
		return errors.Join(err, vm.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

func openDB(dataDir string) (database.Database, error) {
	if dataDir == "" {
		return memdb.New(), nil
	}
	db, err := badgerdb.New(dataDir, nil, "", nil)
	if err != nil {
		return nil, fmt.Errorf("couldn't open database at %q: %w", dataDir, err)
	}
	return db, nil
}

func newHandler(
	ctx context.Context,
	vm *bvm.VM,
	gatherer prometheus.Gatherer,
	allowedOrigins []string,
) (http.Handler, error) {
	handlers, err := vm.CreateHandlers(ctx)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	for extension, h := range handlers {
		router.Handle(bridgeEndpoint+extension, h)
	}
	router.Handle(metricsEndpoint, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.HandleFunc(healthEndpoint, healthHandler(vm)).Methods(http.MethodGet)

	var h http.Handler = router
	// An empty origin list makes rs/cors allow every origin.
	if len(allowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowCredentials: true,
		}).Handler(h)
	}
	return rejectForeignOrigins(allowedOrigins, h), nil
}

// rejectForeignOrigins refuses browser requests whose Origin is not allowed.
func rejectForeignOrigins(allowedOrigins []string, next http.Handler) http.Handler {
	allowAll := slices.Contains(allowedOrigins, anyOrigin)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && !allowAll && !slices.Contains(allowedOrigins, origin) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func healthHandler(vm *bvm.VM) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := vm.HealthCheck(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(healthReply{
			Healthy: err == nil,
			Details: report,
		})
	}
}

type healthReply struct {
	Healthy bool        `json:"healthy"`
	Details interface{} `json:"details,omitempty"`
}
