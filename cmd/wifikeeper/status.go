package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	httpAdapter "github.com/bft-labs/wifikeeper/internal/adapters/http"
	logAdapter "github.com/bft-labs/wifikeeper/internal/adapters/log"
	"github.com/bft-labs/wifikeeper/internal/domain"
	"github.com/bft-labs/wifikeeper/internal/portal"
)

const requestTimeout = 5 * time.Second

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	stateColors = map[domain.ConnectivityState]lipgloss.Color{
		domain.StateConnected:    lipgloss.Color("42"),
		domain.StateConnecting:   lipgloss.Color("214"),
		domain.StateProvisioning: lipgloss.Color("39"),
		domain.StateDisconnected: lipgloss.Color("196"),
	}
)

func newStatusCommand(c *cli) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the connectivity status of a running keeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}
			if url == "" {
				url = portalURL(c.cfg.PortalListen)
			}

			client := httpAdapter.NewPortalClient(
				&http.Client{Timeout: requestTimeout},
				url,
				logAdapter.NewZerologAdapterWithLogger(c.log),
			)
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			status, err := client.Status(ctx)
			if err != nil {
				return fmt.Errorf("query %s: %w", url, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status, time.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "portal base URL (default: derived from --listen)")
	return cmd
}

// portalURL turns a listen address into a URL reachable from this host.
func portalURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	if port == "80" {
		return "http://" + host
	}
	return "http://" + net.JoinHostPort(host, port)
}

func renderStatus(s portal.StatusResponse, now time.Time) string {
	state := lipgloss.NewStyle().Bold(true)
	if color, ok := stateColors[s.State]; ok {
		state = state.Foreground(color)
	}

	rows := []string{row("state", state.Render(s.State.String()))}
	if !s.Since.IsZero() {
		rows = append(rows, row("since", fmt.Sprintf("%s (%s ago)",
			s.Since.Format(time.RFC3339), now.Sub(s.Since).Truncate(time.Second))))
	}
	if s.Identifier != "" {
		rows = append(rows, row("network", s.Identifier))
	}
	if s.Address != "" {
		rows = append(rows, row("address", s.Address))
	}
	if s.APIdentifier != "" {
		rows = append(rows, row("access point", s.APIdentifier))
	}
	if s.State == domain.StateConnected {
		rows = append(rows, row("signal", fmt.Sprintf("%d%%", s.SignalQuality)))
	}

	title := titleStyle.Render("wifikeeper")
	return lipgloss.JoinVertical(lipgloss.Left, title, infoStyle.Render(strings.Join(rows, "\n")))
}

func row(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-13s", label)) + value
}
