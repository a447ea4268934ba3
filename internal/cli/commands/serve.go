package commands

import (
	"github.com/leapstack-labs/leapcalc/internal/server"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the evaluator over HTTP",
		Long: `Start an HTTP server exposing the evaluator as a JSON API.

Endpoints:
  POST /api/v1/eval          {"expression": "..."}
  POST /api/v1/tokenize      {"expression": "..."}
  POST /api/v1/batch         {"expressions": ["...", ...]}
  GET  /api/v1/history       recent evaluations (?limit=N&errors=true)
  GET  /api/v1/history/stats summary of recorded evaluations
  GET  /api/v1/history/{id}  a single evaluation
  GET  /healthz              liveness
  GET  /metrics              Prometheus metrics`,
		Example: `  leapcalc serve --addr :8787
  leapcalc serve --history --cache-size 0`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sc := cmdCtx.Cfg.Server
			srv, err := server.NewServer(server.Config{
				Engine:            cmdCtx.Engine,
				Addr:              sc.Addr,
				CacheSize:         sc.CacheSize,
				ReadHeaderTimeout: sc.ReadHeaderTimeout,
				RequestTimeout:    sc.RequestTimeout,
				ShutdownTimeout:   sc.ShutdownTimeout,
				Logger:            cmdCtx.Logger,
			})
			if err != nil {
				return err
			}

			return srv.Serve(cmd.Context())
		},
	}

	// Bound through config.flagKeys to server.addr and server.cache_size.
	cmd.Flags().String("addr", "", "Listen address (default :8787)")
	cmd.Flags().Int("cache-size", 0, "Result cache entries, 0 disables (default 1024)")

	return cmd
}
