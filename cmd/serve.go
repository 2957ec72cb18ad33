package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/crisisgraph/fieldgeo/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv()
		if err != nil {
			return err
		}

		var running atomic.Bool

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/api/status", func(w http.ResponseWriter, req *http.Request) {
			counts := map[string]int{}
			for name, file := range map[string]interface{ Count() (int, error) }{
				"raw_reports":       env.Store.Raw,
				"processed_reports": env.Store.Reports,
				"extractions":       env.Store.Extractions,
				"associations":      env.Store.Associations,
				"enriched":          env.Store.Enriched,
			} {
				n, err := file.Count()
				if err != nil {
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
					return
				}
				counts[name] = n
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"counts":                 counts,
				"run_in_progress":        running.Load(),
				"knowledge_base_entries": env.KB.Len(),
				"rate_limits":            env.Pipeline.LimiterStats(),
			})
		})

		r.Post("/api/run", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				MaxReports int `json:"max_reports"`
			}
			if req.Body != nil {
				// An empty body means default options.
				_ = json.NewDecoder(req.Body).Decode(&body)
			}

			if !running.CompareAndSwap(false, true) {
				writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
				return
			}

			go func() {
				defer running.Store(false)
				summary, err := env.Pipeline.Run(ctx, pipeline.RunOptions{MaxReports: body.MaxReports})
				if err != nil {
					zap.L().Error("triggered run failed", zap.Error(err))
					return
				}
				zap.L().Info("triggered run finished",
					zap.String("run_id", summary.RunID),
					zap.Int("enriched", summary.Enrichment.Succeeded),
				)
			}()

			writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
