package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codex-k8s/jiradraft/internal/config"
	"github.com/codex-k8s/jiradraft/internal/env"
)

// newConfigCommand creates the "config" group for reading and writing settings.
func newConfigCommand(opts *Options) *cobra.Command {
	return newGroupCommand(
		"config",
		"Read and write jiradraft settings",
		newConfigShowCommand(opts),
		newConfigSetCommand(opts),
		newConfigPathCommand(opts),
	)
}

// settingsView is the printed form of the effective settings; the key is masked.
type settingsView struct {
	Path         string `json:"path"`
	APIKey       string `json:"apiKey"`
	Model        string `json:"model"`
	DisplayName  string `json:"displayName"`
	BaseURL      string `json:"baseUrl,omitempty"`
	ThreadLimit  int    `json:"threadLimit"`
	LocatorsFile string `json:"locatorsFile,omitempty"`
}

func newConfigShowCommand(opts *Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			settings, err := store.Load()
			if err != nil {
				return err
			}
			view := settingsView{
				Path:         store.Path(),
				APIKey:       settings.MaskedAPIKey(),
				Model:        settings.Model,
				DisplayName:  settings.DisplayName,
				BaseURL:      settings.BaseURL,
				ThreadLimit:  settings.ThreadLimit,
				LocatorsFile: settings.LocatorsFile,
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}

			apiKey := view.APIKey
			if apiKey == "" {
				apiKey = "(not set)"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "path:          %s\n", view.Path)
			fmt.Fprintf(out, "%-14s %s\n", config.KeyAPIKey+":", apiKey)
			fmt.Fprintf(out, "%-14s %s\n", config.KeyModel+":", view.Model)
			fmt.Fprintf(out, "%-14s %s\n", config.KeyDisplayName+":", view.DisplayName)
			fmt.Fprintf(out, "%-14s %s\n", config.KeyBaseURL+":", view.BaseURL)
			fmt.Fprintf(out, "%-14s %d\n", config.KeyThreadLimit+":", view.ThreadLimit)
			_, err = fmt.Fprintf(out, "%-14s %s\n", config.KeyLocatorsFile+":", view.LocatorsFile)
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

// setFlag binds a setting key to a command flag.
type setFlag struct {
	key   string
	name  string
	usage string
	value string
}

func newConfigSetCommand(opts *Options) *cobra.Command {
	flags := []*setFlag{
		{key: config.KeyAPIKey, name: "api-key", usage: "Generation service API key"},
		{key: config.KeyModel, name: "model", usage: "Model name (default gpt-5)"},
		{key: config.KeyDisplayName, name: "display-name", usage: "Your name as it appears in Jira"},
		{key: config.KeyBaseURL, name: "base-url", usage: "OpenAI-compatible endpoint override"},
		{key: config.KeyThreadLimit, name: "thread-limit", usage: "Number of recent comments sent as context"},
		{key: config.KeyLocatorsFile, name: "locators", usage: "YAML locator profile path"},
	}

	cmd := &cobra.Command{
		Use:   "set [KEY=VALUE...]",
		Short: "Update settings; an empty value removes a key",
		Example: `  jiradraft config set --api-key sk-... --display-name "Alex Ivanov"
  jiradraft config set MODEL_NAME=gpt-5 THREAD_LIMIT=8`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := LoggerFromContext(cmd.Context())

			updates, err := env.ParseAssignments(args)
			if err != nil {
				return err
			}
			for _, f := range flags {
				if cmd.Flags().Changed(f.name) {
					updates[f.key] = f.value
				}
			}
			if len(updates) == 0 {
				return fmt.Errorf("nothing to set; pass KEY=VALUE arguments or flags (keys: %s)", strings.Join(config.Keys(), ", "))
			}

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			if _, err := store.Set(updates); err != nil {
				return err
			}

			changed := make([]string, 0, len(updates))
			for k := range updates {
				changed = append(changed, k)
			}
			sort.Strings(changed)
			logger.Info("settings saved", "path", store.Path(), "keys", strings.Join(changed, ","))
			return nil
		},
	}

	for _, f := range flags {
		cmd.Flags().StringVar(&f.value, f.name, "", f.usage)
	}
	return cmd
}

func newConfigPathCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), store.Path())
			return err
		},
	}
}
