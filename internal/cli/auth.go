package cli

import (
	"fmt"
	"strings"

	"mailassist/internal/config"
	"mailassist/internal/secrets"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authentication and config setup",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthSetKeyCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var (
		imapHost     string
		imapPort     int
		imapTLS      bool
		imapStartTLS bool
		imapInsecure bool

		username      string
		password      string
		storeInConfig bool
		draftsMailbox string
		sentMailbox   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store IMAP credentials and configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("imap-host") {
				cfg.IMAP.Host = imapHost
			}
			if cmd.Flags().Changed("imap-port") {
				cfg.IMAP.Port = imapPort
			}
			if cmd.Flags().Changed("imap-tls") {
				cfg.IMAP.TLS = imapTLS
			}
			if cmd.Flags().Changed("imap-starttls") {
				cfg.IMAP.StartTLS = imapStartTLS
			}
			if cmd.Flags().Changed("imap-insecure") {
				cfg.IMAP.InsecureSkipVerify = imapInsecure
			}
			if cmd.Flags().Changed("username") {
				cfg.Auth.Username = username
			}
			if cmd.Flags().Changed("drafts-mailbox") {
				cfg.Defaults.DraftsMailbox = draftsMailbox
			}
			if cmd.Flags().Changed("sent-mailbox") {
				cfg.Defaults.SentMailbox = sentMailbox
			}

			if password == "" {
				password, err = promptSecret(cmd.ErrOrStderr(), "Password")
				if err != nil {
					return err
				}
			}

			check := cfg
			check.Auth.Password = password
			if err := config.ValidateIMAP(check); err != nil {
				return err
			}

			if storeInConfig {
				cfg.Auth.Password = password
			} else {
				if err := secrets.SetPassword(cfg.Auth.Username, password); err != nil {
					return fmt.Errorf("store password: %w", err)
				}
				cfg.Auth.Password = ""
			}

			path, err := config.Save(cfg)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Config saved to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&imapHost, "imap-host", "", "IMAP host")
	cmd.Flags().IntVar(&imapPort, "imap-port", 0, "IMAP port")
	cmd.Flags().BoolVar(&imapTLS, "imap-tls", false, "Use IMAP TLS")
	cmd.Flags().BoolVar(&imapStartTLS, "imap-starttls", false, "Use IMAP STARTTLS")
	cmd.Flags().BoolVar(&imapInsecure, "imap-insecure", false, "Skip IMAP TLS verification")

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password or app password (prompted when empty)")
	cmd.Flags().BoolVar(&storeInConfig, "store-in-config", false, "Write the password to the config file instead of the keyring")
	cmd.Flags().StringVar(&draftsMailbox, "drafts-mailbox", "", "Drafts mailbox name")
	cmd.Flags().StringVar(&sentMailbox, "sent-mailbox", "", "Sent mailbox name")

	return cmd
}

func newAuthSetKeyCmd() *cobra.Command {
	var provider string
	var key string

	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store an AI provider API key in the keyring",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = strings.ToLower(strings.TrimSpace(provider))
			switch provider {
			case config.ProviderOpenAI, config.ProviderAnthropic:
			default:
				return fmt.Errorf("Invalid AI provider: %s", provider)
			}

			if key == "" {
				var err error
				key, err = promptSecret(cmd.ErrOrStderr(), "API key")
				if err != nil {
					return err
				}
			}
			if key == "" {
				return fmt.Errorf("api key is required")
			}

			if err := secrets.SetAPIKey(provider, key); err != nil {
				return fmt.Errorf("store api key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s stored in keyring.\n", provider)
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", config.ProviderOpenAI, "AI provider: openai or anthropic")
	cmd.Flags().StringVar(&key, "key", "", "API key (prompted when empty)")

	return cmd
}
