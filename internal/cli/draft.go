package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/jiradraft/internal/deliver"
	"github.com/codex-k8s/jiradraft/internal/drafterr"
	"github.com/codex-k8s/jiradraft/internal/page"
	"github.com/codex-k8s/jiradraft/internal/pipeline"
)

// newDraftCommand creates the "draft" command that runs the whole pipeline on a saved
// issue page and delivers the draft into the page's comment editor.
func newDraftCommand(opts *Options) *cobra.Command {
	var flags pageFlags
	var outPath string

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft a reply comment for a saved issue page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			settings, err := store.Load()
			if err != nil {
				return err
			}
			profile, err := page.LoadProfile(settings.LocatorsFile)
			if err != nil {
				return err
			}
			promptTemplate, err := resolvePromptTemplate(cmd, flags.promptTemplate)
			if err != nil {
				return err
			}
			p, err := buildPipeline(logger, store, promptTemplate)
			if err != nil {
				return err
			}

			doc, err := loadPage(cmd, flags.pagePath, flags.pageURL)
			if err != nil {
				return err
			}
			surface := deliver.NewHTMLSurface(doc, profile)

			notify := pipeline.NotifierFunc(func(kind drafterr.Kind, message string) {
				if kind == drafterr.KindDeliveryDegraded {
					logger.Warn(message)
					return
				}
				logger.Error("draft failed", "kind", kind, "error", message)
			})
			trigger := pipeline.NewTrigger(logger, notify, func(ctx context.Context) (pipeline.Result, error) {
				return p.Run(ctx, doc, surface)
			})

			res, err := trigger.Activate(cmd.Context())
			if err != nil {
				return reportedError{err: err}
			}
			logger.Info("draft ready", "issue", res.Context.Issue.Key, "delivered", res.Outcome)

			if outPath != "" {
				if err := writePage(doc, outPath); err != nil {
					return err
				}
				logger.Info("updated page written", "path", outPath)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Comment)
			return err
		},
	}

	addPageFlags(cmd, &flags)
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the page with the draft in its comment editor to this file")

	return cmd
}

func writePage(doc *page.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := doc.Render(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %q: %w", path, err)
	}
	return nil
}
