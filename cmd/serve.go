package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tablescope/internal/server"
	"github.com/KaramelBytes/tablescope/internal/store"
)

var (
	serveAddr   string
	serveEngine engineFlags
	serveDecode decodeFlags
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Starts an HTTP server that accepts table uploads on POST /analyze, keeps the
results in memory and allows type overrides and insight requests per dataset.
Prometheus metrics are exposed on /metrics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		addr := serveAddr
		if addr == "" {
			addr = c.ServerAddr
		}
		factory, err := analyzerFactory(&serveEngine)
		if err != nil {
			return err
		}
		opt, err := serveDecode.options()
		if err != nil {
			return err
		}

		gen := newInsightGenerator()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		if !gen.Available(ctx) {
			logger.Warn("insight model not available; /insights requests will fail until it is pulled",
				zap.String("model", gen.Model()))
		}

		srv := server.New(store.New(c.CacheMaxDatasets, logger), factory,
			server.WithInsights(gen),
			server.WithMaxUpload(int64(c.MaxUploadMB)<<20),
			server.WithDecodeOptions(opt),
			server.WithLogger(logger))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Listening on %s\n", addr)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveEngine.policy, "policy", "", "identifier policy: semantic_only | name_aware_id (default from config)")
	serveCmd.Flags().BoolVar(&serveEngine.noCharts, "no-charts", false, "omit chart specifications")
	serveCmd.Flags().BoolVar(&serveEngine.noCorrelations, "no-correlations", false, "skip the numeric correlation matrix")
	serveDecode.register(serveCmd.Flags())
}
