package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/sprout/internal/ai"
	"github.com/hoanghai1803/sprout/internal/models"
)

func newModelCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the active LLM provider",
	}
	cmd.AddCommand(newModelSetCmd(opts), newModelShowCmd(opts))
	return cmd
}

func newModelSetCmd(opts *rootOptions) *cobra.Command {
	var (
		mc          models.ModelConfig
		temperature float64
		maxTokens   int
		params      string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Activate a provider configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch ai.AuthType(mc.AuthType) {
			case ai.AuthBearer, ai.AuthXAPIKey, ai.AuthAPIKey:
			default:
				return fmt.Errorf("invalid --auth %q: must be bearer, x-api-key or api-key", mc.AuthType)
			}
			if cmd.Flags().Changed("temperature") {
				mc.Temperature = &temperature
			}
			if cmd.Flags().Changed("max-tokens") {
				mc.MaxTokens = &maxTokens
			}
			if params != "" {
				if err := json.Unmarshal([]byte(params), &mc.AdditionalParams); err != nil {
					return fmt.Errorf("invalid --params: %w", err)
				}
			}

			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.ActivateModelConfig(cmd.Context(), &mc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "activated %s (%s protocol)\n", mc.ModelName, ai.ProtocolFor(mc.EndpointURL))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&mc.ModelName, "name", "", "model name")
	f.StringVar(&mc.EndpointURL, "endpoint", "", "provider endpoint URL")
	f.StringVar(&mc.AuthType, "auth", string(ai.AuthBearer), "auth header: bearer, x-api-key or api-key")
	f.StringVar(&mc.APIKeyEnv, "key-env", "", "environment variable holding the API key")
	f.Float64Var(&temperature, "temperature", 0, "sampling temperature")
	f.IntVar(&maxTokens, "max-tokens", 0, "output token budget")
	f.StringVar(&params, "params", "", "extra request parameters as a JSON object")
	for _, name := range []string{"name", "endpoint", "key-env"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newModelShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active provider configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			mc, err := a.store.ActiveModelConfig(cmd.Context())
			if err != nil {
				return err
			}
			if mc == nil {
				p := opts.cfg.Provider()
				fmt.Fprintf(cmd.OutOrStdout(), "no active model, using config default %s at %s\n", p.ModelName, p.EndpointURL)
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(mc)
		},
	}
}
