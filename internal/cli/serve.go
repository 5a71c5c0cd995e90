package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/jiradraft/internal/server"
)

const defaultServeAddr = "127.0.0.1:8085"

// newServeCommand creates the "serve" command exposing the pipeline over HTTP.
func newServeCommand(opts *Options) *cobra.Command {
	var addr string
	var promptTemplate string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve draft requests for a page-side client over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			envVars := serveEnv{}
			if err := parseEnv(&envVars); err != nil {
				return err
			}
			if !cmd.Flags().Changed("addr") && envPresent("JIRADRAFT_ADDR") {
				addr = envVars.Addr
			}

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			tmpl, err := resolvePromptTemplate(cmd, promptTemplate)
			if err != nil {
				return err
			}
			p, err := buildPipeline(logger, store, tmpl)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := server.NewHandler(logger, p)
			return server.Serve(ctx, logger, addr, handler.Router())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultServeAddr, "Listen address")
	addPromptTemplateFlag(cmd, &promptTemplate)

	return cmd
}
