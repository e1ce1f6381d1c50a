package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/tariff-radar/internal/rates"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tariff data over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initRadar()
		if err != nil {
			return err
		}
		defer env.Close()

		if !cmd.Flags().Changed("port") && cfg.Server.Port != 0 {
			servePort = cfg.Server.Port
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           newRouter(env),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return eris.Wrap(err, "serve: listen")
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "serve: shutdown")
		}
		zap.L().Info("http server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}

type impactRequest struct {
	Revenue   float64 `json:"revenue"`
	ExportPct float64 `json:"export_pct"`
	ChinaPct  float64 `json:"china_pct"`
	Headcount int     `json:"headcount"`
}

// newRouter wires the API surface. A mutex serializes overlapping refreshes
// so concurrent POSTs cannot race on the single cache slot.
func newRouter(env *radarEnv) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	var refreshMu sync.Mutex

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/api/refresh", func(w http.ResponseWriter, req *http.Request) {
		refreshMu.Lock()
		defer refreshMu.Unlock()

		res, err := env.Agg.Refresh(req.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	r.Get("/api/tariff", func(w http.ResponseWriter, req *http.Request) {
		rec := currentRecord(req.Context(), env)
		view, err := rates.View(rec)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	})

	r.Get("/api/tariff/hts", func(w http.ResponseWriter, req *http.Request) {
		rec := currentRecord(req.Context(), env)
		writeJSON(w, http.StatusOK, env.Calc.HTSBreakdown(rec))
	})

	r.Get("/api/scenarios", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, env.Calc.Scenarios())
	})

	r.Post("/api/impact", func(w http.ResponseWriter, req *http.Request) {
		var in impactRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "serve: decode impact request"))
			return
		}
		imp, err := rates.CompanyImpact(in.Revenue, in.ExportPct, in.ChinaPct, in.Headcount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeJSON(w, http.StatusOK, imp)
	})

	r.Get("/api/news", func(w http.ResponseWriter, req *http.Request) {
		items, err := env.Agg.News(req.Context())
		if err != nil {
			writeError(w, http.StatusBadGateway, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
