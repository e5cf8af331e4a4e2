package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/visita-intel/newsintel/internal/config"
	"github.com/visita-intel/newsintel/internal/pipeline"
)

var servePort int

// runFunc executes one pipeline run.
type runFunc func(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error)

// runRequest overrides the configured run settings for one triggered run.
type runRequest struct {
	Niche         *string `json:"niche"`
	Source        *string `json:"source"`
	CustomFeedURL *string `json:"custom_feed_url"`
	MaxArticles   *int    `json:"max_articles"`
	TimeLimit     *string `json:"time_limit"`
	ForceRefresh  *bool   `json:"force_refresh"`
}

// apply merges the request over base and validates the result.
func (r runRequest) apply(base config.Config) (config.RunConfig, error) {
	rc := base.Run
	if r.Niche != nil {
		rc.Niche = *r.Niche
	}
	if r.Source != nil {
		rc.Source = *r.Source
	}
	if r.CustomFeedURL != nil {
		rc.CustomFeedURL = *r.CustomFeedURL
	}
	if r.MaxArticles != nil {
		rc.MaxArticles = *r.MaxArticles
	}
	if r.TimeLimit != nil {
		rc.TimeLimit = *r.TimeLimit
	}
	if r.ForceRefresh != nil {
		rc.ForceRefresh = *r.ForceRefresh
	}
	base.Run = rc
	if err := base.Validate(); err != nil {
		return config.RunConfig{}, err
	}
	return base.Run, nil
}

// buildRouter wires the trigger endpoints. Runs execute in the background
// on ctx, one at a time.
func buildRouter(ctx context.Context, base *config.Config, run runFunc) http.Handler {
	var busy atomic.Bool

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "running": busy.Load()})
	})

	r.Post("/runs", func(w http.ResponseWriter, req *http.Request) {
		var body runRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		rc, err := body.apply(*base)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		if !busy.CompareAndSwap(false, true) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "a run is already in progress"})
			return
		}

		opts := runOptions(rc)
		opts.RunID = uuid.New().String()

		go func() {
			defer busy.Store(false)
			if run == nil {
				return
			}
			result, err := run(ctx, opts)
			if err != nil {
				zap.L().Error("triggered run failed", zap.String("run_id", opts.RunID), zap.Error(err))
				return
			}
			zap.L().Info("triggered run complete",
				zap.String("run_id", result.RunID),
				zap.Int("routed", result.Routed),
				zap.Int("failed", result.Failed),
			)
		}()

		writeJSON(w, http.StatusAccepted, map[string]any{
			"status": "accepted",
			"run_id": opts.RunID,
			"niche":  rc.Niche,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP trigger server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(ctx, cfg, env.Pipeline.Run),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
