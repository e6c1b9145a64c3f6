package cli

import (
	"fmt"

	"mailassist/internal/config"
	"mailassist/internal/llm"
	"mailassist/internal/logger"
	"mailassist/internal/proxy"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the response-generation service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := config.ValidateAI(cfg); err != nil {
				return err
			}
			if err := resolveAPIKeys(&cfg); err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}

			log, err := logger.NewServer()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			provider, err := llm.NewProvider(cfg.AI)
			if err != nil {
				return err
			}
			if !providerKeyConfigured(provider.Name(), cfg.AI) {
				log.Warn("AI provider API key not configured; requests will fail",
					zap.String("provider", provider.Name()))
			}

			handler := proxy.NewHandler(provider, cfg.AI.SystemPrompt, cfg.Assistant.Signature, log)
			log.Info("Starting response service",
				zap.String("addr", cfg.Server.Addr),
				zap.String("provider", provider.Name()))
			return proxy.Serve(cmd.Context(), cfg.Server.Addr, proxy.NewRouter(handler, log), log)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (server.addr when unset)")

	return cmd
}

func providerKeyConfigured(name string, ai config.AIConfig) bool {
	if name == config.ProviderAnthropic {
		return ai.Anthropic.APIKey != ""
	}
	return ai.OpenAI.APIKey != ""
}
