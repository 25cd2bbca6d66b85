package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/handlers"
	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port    string
		dataDir string
		rf      resolverFlags
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the imgreader HTTP API on the specified port.

Runs are executed synchronously against tables in the data directory:

  POST /api/runs        read a table ({"input": "in.csv", "output": "out.parquet", "settings": {...}})
  GET  /api/runs        list runs
  GET  /api/runs/{id}   show a run
  DELETE /api/runs/{id} forget a run
  GET  /api/resolve?uri= resolve a single URI
  GET  /healthcheck`,
		Example: `  # Start server on default port 8888
  imgreader serve --data-dir ./tables

  # Start server on custom port
  imgreader serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := rf.service()
			if err != nil {
				return err
			}
			handler := handlers.New(svc, dataDir, location.CredentialsFromEnv())

			mux := http.NewServeMux()
			handler.Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				slog.Info("imgreader API available", "addr", addr, "url", "http://localhost"+addr, "data_dir", dataDir)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "Directory holding input and output tables")
	rf.register(cmd.Flags())

	return cmd
}
