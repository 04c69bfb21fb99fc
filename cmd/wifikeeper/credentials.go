package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/bft-labs/wifikeeper/internal/adapters/credfile"
	httpAdapter "github.com/bft-labs/wifikeeper/internal/adapters/http"
	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/ports"
)

// remoteWriter adapts the portal client to ports.CredentialWriter.
type remoteWriter struct {
	ctx    context.Context
	client *httpAdapter.PortalClient
}

func (w remoteWriter) Save(creds domain.Credentials) error {
	return w.client.SaveCredentials(w.ctx, creds)
}

func (w remoteWriter) Clear() error {
	return w.client.ForgetCredentials(w.ctx)
}

// credentialWriter writes the local file, which a running keeper watches,
// or posts to a remote portal when remote is set.
func (c *cli) credentialWriter(ctx context.Context, remote string) ports.CredentialWriter {
	logger := logAdapter.NewZerologAdapterWithLogger(c.log)
	if remote != "" {
		return remoteWriter{
			ctx:    ctx,
			client: httpAdapter.NewPortalClient(&http.Client{Timeout: requestTimeout}, remote, logger),
		}
	}
	return credfile.NewStore(c.cfg.CredentialsFile, nil, logger)
}

func newCredentialsCommand(c *cli) *cobra.Command {
	var remote string

	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the stored network credentials",
	}
	cmd.PersistentFlags().StringVar(&remote, "remote", "", "portal base URL of a remote keeper (default: edit the local file)")

	var creds domain.Credentials
	set := &cobra.Command{
		Use:   "set",
		Short: "Save the network to join",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if err := c.credentialWriter(cmd.Context(), remote).Save(creds); err != nil {
				return fmt.Errorf("save credentials: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved credentials for %q\n", creds.Identifier)
			return nil
		},
	}
	set.Flags().StringVar(&creds.Identifier, "ssid", "", "network name")
	set.Flags().StringVar(&creds.Secret, "password", "", "network passphrase (empty for open networks)")
	_ = set.MarkFlagRequired("ssid")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget the stored network",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if err := c.credentialWriter(cmd.Context(), remote).Clear(); err != nil {
				return fmt.Errorf("clear credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cleared credentials")
			return nil
		},
	}

	cmd.AddCommand(set, clearCmd)
	return cmd
}
