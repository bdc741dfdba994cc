package workers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"

	"gousdcbridge/config"
	"gousdcbridge/workers/handlers"
)

// Worker_HTTP serves the bridge API and doubles as the main worker
// thread; it returns after a clean shutdown and flips WorkerShutdown for
// the other workers.
func Worker_HTTP(logger *zap.Logger, h *handlers.Handler) {
	logger = logger.With(zap.String("component", "workers.HTTP"))
	logger.Info("starting HTTP service")

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Options("/*", CORSHeaders)

	r.Get("/state", h.State)
	r.Get("/health", h.HealthCheck)

	r.Get("/wallets", h.GetWallets)
	r.Post("/wallets", h.CreateWallet)
	r.Get("/wallets/{id}/balance", h.WalletBalance)

	r.Post("/transactions", h.SubmitTransfer)

	r.Post("/cctp/transfer", h.InitiateCCTPTransfer)
	r.Get("/cctp/runs/{id}", h.RunStatus)
	r.Post("/cctp/runs/{id}/cancel", h.CancelRun)
	r.Get("/cctp/attestation/{messageHash}", h.AttestationStatus)

	r.Get("/stats/failed", h.GetFailedRuns)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Config.Server.Port),
		Handler: r,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("error listening", zap.Error(err))
		}
	}()
	logger.Info("HTTP service started", zap.Int("port", config.Config.Server.Port))

	<-done
	logger.Info("HTTP service stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("HTTP service shutdown error", zap.Error(err))
	}
	logger.Info("HTTP service shutdown normal")

	// send signal to other threads/workers to exit
	WorkerShutdown = true
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
