package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/wifikeeper"
	"github.com/bft-labs/wifikeeper/internal/cliconfig"
)

const helpDescription = `
Keep a headless device on its wireless network.

Highlights:
  - Joins the saved network on boot and rejoins with backoff when the link drops.
  - Falls back to a provisioning access point with a captive portal.
  - Credentials can be saved from the portal, the CLI, or by editing the file.
  - Configure via file, env (WIFIKEEPER_*), .env, or flags.
`

var exampleUsage = strings.TrimSpace(`
  wifikeeper --state-dir /var/lib/wifikeeper --ap-secret provision
  wifikeeper --config /etc/wifikeeper/config.toml --log-level debug
  wifikeeper status
  wifikeeper credentials set --ssid home --password hunter22
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// cli carries the configuration shared by every command.
type cli struct {
	cfg     cliconfig.Config
	cfgPath string
	log     zerolog.Logger
}

// load applies the config file, .env and environment beneath the flags the
// user set, then validates.
func (c *cli) load(cmd *cobra.Command) error {
	cfgFile := c.cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&c.cfg, fc, changed); err != nil {
			return err
		}
	}

	// .env values only fill variables not already in the environment.
	cliconfig.LoadDotEnv()
	if err := cliconfig.ApplyEnvConfig(&c.cfg, changed); err != nil {
		return err
	}

	if err := c.cfg.Validate(); err != nil {
		return err
	}
	c.log = cliconfig.Logger(c.cfg.LogLevel)
	return nil
}

func newRootCommand() *cobra.Command {
	c := &cli{cfg: cliconfig.DefaultConfig(), log: cliconfig.Logger("info")}

	root := &cobra.Command{
		Use:           "wifikeeper",
		Short:         "Keep a headless device on its wireless network",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.load(cmd); err != nil {
				return err
			}

			logCfg := c.cfg
			if logCfg.APSecret != "" {
				logCfg.APSecret = "*****"
			}
			logCfg.Networks = nil
			c.log.Info().Interface("config", logCfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := wifikeeper.Run(ctx, c.cfg, c.log)
			if ctx.Err() != nil {
				c.log.Info().Msg("received signal, stopped")
			}
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgPath, "config", "", "path to config file (default: $HOME/.wifikeeper/config.toml)")
	pf.StringVar(&c.cfg.StateDir, "state-dir", c.cfg.StateDir, "state directory holding credentials.toml")
	pf.StringVar(&c.cfg.CredentialsFile, "credentials", "", "credential file (defaults to <state-dir>/credentials.toml)")
	pf.StringVar(&c.cfg.LogLevel, "log-level", c.cfg.LogLevel, "log level: debug, info, warn, error")
	pf.StringVar(&c.cfg.PortalListen, "listen", c.cfg.PortalListen, "captive portal listen address")

	f := root.Flags()
	f.DurationVar(&c.cfg.TickInterval, "tick", c.cfg.TickInterval, "manager tick interval")
	f.DurationVar(&c.cfg.JoinTimeout, "join-timeout", c.cfg.JoinTimeout, "time allowed for one join attempt")
	f.DurationVar(&c.cfg.ReconnectInitial, "reconnect-initial", c.cfg.ReconnectInitial, "first delay before rejoining after link loss")
	f.DurationVar(&c.cfg.ReconnectMax, "reconnect-max", c.cfg.ReconnectMax, "maximum delay before rejoining")
	f.StringVar(&c.cfg.APPrefix, "ap-prefix", c.cfg.APPrefix, "provisioning access point name prefix")
	f.StringVar(&c.cfg.APSecret, "ap-secret", c.cfg.APSecret, "provisioning access point passphrase (empty for open)")
	f.StringVar(&c.cfg.APAddress, "ap-address", c.cfg.APAddress, "device address on the provisioning network")
	f.DurationVar(&c.cfg.ScanCooldown, "scan-cooldown", c.cfg.ScanCooldown, "minimum age of a scan before the portal rescans")
	f.IntVar(&c.cfg.DNSPort, "dns-port", c.cfg.DNSPort, "captive DNS port")
	f.StringVar(&c.cfg.HardwareAddr, "hw-addr", c.cfg.HardwareAddr, "hardware address of the simulated radio")
	f.DurationVar(&c.cfg.JoinLatency, "join-latency", c.cfg.JoinLatency, "simulated radio join latency")
	f.DurationVar(&c.cfg.LinkDrop, "link-drop", c.cfg.LinkDrop, "drop each simulated link after this long (0 keeps links up)")
	for _, name := range []string{"join-latency", "link-drop"} {
		if err := f.MarkHidden(name); err != nil {
			c.log.Info().Err(err).Str("flag", name).Msg("failed to hide flag")
		}
	}

	root.AddCommand(newStatusCommand(c), newCredentialsCommand(c))
	return root
}

func main() {
	gin.SetMode(gin.ReleaseMode)

	if err := newRootCommand().Execute(); err != nil {
		log := cliconfig.Logger("info")
		log.Error().Err(err).Msg("wifikeeper")
		os.Exit(1)
	}
}
