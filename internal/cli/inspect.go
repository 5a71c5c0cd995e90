package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/jiradraft/internal/config"
	"github.com/codex-k8s/jiradraft/internal/promptctx"
)

// inspectView is the JSON shape printed by "inspect --json".
type inspectView struct {
	Issue       promptctx.Issue  `json:"issue"`
	DisplayName string           `json:"displayName"`
	Question    string           `json:"question"`
	Thread      promptctx.Thread `json:"thread"`
	Model       string           `json:"model"`
	Prompt      string           `json:"prompt"`
}

// newInspectCommand creates the "inspect" command that runs only the read stages and
// prints what would be sent. No network call is made.
func newInspectCommand(opts *Options) *cobra.Command {
	var flags pageFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show the prompt that would be sent for a saved issue page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := LoggerFromContext(cmd.Context())

			store, err := openStore(opts)
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

			prepared, err := p.Prepare(cmd.Context(), doc)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), newInspectView(prepared.Settings, prepared.Context, prepared.Prompt))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prepared.Prompt)
			return err
		},
	}

	addPageFlags(cmd, &flags)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the extracted context and prompt as JSON")

	return cmd
}

func newInspectView(settings config.Settings, ctx promptctx.Context, prompt string) inspectView {
	thread := ctx.Thread
	if thread == nil {
		thread = promptctx.Thread{}
	}
	return inspectView{
		Issue:       ctx.Issue,
		DisplayName: ctx.DisplayName,
		Question:    ctx.Question,
		Thread:      thread,
		Model:       settings.Model,
		Prompt:      prompt,
	}
}
