package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/LeJamon/goxrpl-remote/internal/config"
	"github.com/LeJamon/goxrpl-remote/internal/remote"
	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// pingCmd round-trips a ping through the best available node.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Round-trip a ping through the best available node",
	RunE:  runPing,
}

var pingTimeout time.Duration

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 15*time.Second, "time to wait for the response")
}

func runPing(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}

	rem, err := remote.New(*cfg, remote.WithLogger(log))
	if err != nil {
		return err
	}
	defer rem.Close()

	for _, srv := range cfg.Servers {
		wsCfg := transport.DefaultWSConfig(transport.Endpoint{
			Host:   srv.Host,
			Port:   srv.Port,
			Secure: srv.Secure,
		})
		wsCfg.Logger = log
		rem.AddServer(transport.NewWSConn(wsCfg, rem.InboundEvents()), srv.Primary)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
	defer cancel()

	go rem.Run(ctx)
	if err := rem.Connect(ctx); err != nil {
		return err
	}

	started := time.Now()
	if _, err := rem.Request("ping").Wait(ctx); err != nil {
		return err
	}
	fmt.Printf("pong in %s\n", time.Since(started).Round(time.Millisecond))
	return nil
}
