package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goxrpl-remote/internal/config"
	"github.com/LeJamon/goxrpl-remote/internal/remote"
	"github.com/LeJamon/goxrpl-remote/internal/storage/pending"
	pendingbbolt "github.com/LeJamon/goxrpl-remote/internal/storage/pending/bbolt"
	pendingpebble "github.com/LeJamon/goxrpl-remote/internal/storage/pending/pebble"
	"github.com/LeJamon/goxrpl-remote/internal/transport"
)

// monitorCmd connects to the configured nodes and streams coordinator events.
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Connect to the configured nodes and stream network events",
	Long: `Connect to every configured node, subscribe to the ledger and server
feeds and log ledger closes, server status changes and connection state
transitions until interrupted.`,
	RunE: runMonitor,
}

var monitorTransactions bool

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorTransactions, "transactions", false, "also stream the global transaction feed")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	log := newLogger()

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("no servers configured")
	}

	var store pending.Store
	if cfg.StoragePath != "" {
		store, err = openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	opts := []remote.Option{remote.WithLogger(log)}
	if store != nil {
		opts = append(opts, remote.WithStore(store))
	}
	rem, err := remote.New(*cfg, opts...)
	if err != nil {
		return err
	}

	for _, srv := range cfg.Servers {
		wsCfg := transport.DefaultWSConfig(transport.Endpoint{
			Host:   srv.Host,
			Port:   srv.Port,
			Secure: srv.Secure,
		})
		wsCfg.Logger = log
		wsCfg.Pool = srv.Pool
		if cfg.Ping > 0 {
			wsCfg.PingInterval = cfg.Ping
		}
		rem.AddServer(transport.NewWSConn(wsCfg, rem.InboundEvents()), srv.Primary)
	}

	watchEvents(rem, log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return rem.Run(gCtx) })
	g.Go(func() error {
		<-gCtx.Done()
		rem.Close()
		return nil
	})

	if err := rem.Connect(ctx); err != nil {
		return err
	}
	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// openStore opens the configured pending-store backend.
func openStore(cfg *config.Config) (pending.Store, error) {
	switch cfg.StorageBackend {
	case "pebble":
		return pendingpebble.Open(cfg.StoragePath)
	default:
		return pendingbbolt.Open(cfg.StoragePath)
	}
}

// watchEvents wires coordinator events to the logger.
func watchEvents(rem *remote.Remote, log *logrus.Entry) {
	rem.On(remote.EventState, func(evt remote.Event) {
		log.WithField("state", evt.State.String()).Info("connection state changed")
	})
	rem.On(remote.EventReady, func(evt remote.Event) {
		log.Info("all configured nodes connected")
	})
	rem.On(remote.EventLedgerClosed, func(evt remote.Event) {
		log.WithFields(logrus.Fields{
			"ledger_index": evt.Ledger.Index,
			"ledger_hash":  evt.Ledger.Hash,
			"txn_count":    evt.Ledger.TxnCount,
		}).Info("ledger closed")
	})
	rem.On(remote.EventServerStatus, func(evt remote.Event) {
		log.Debug("server status update")
	})
	rem.On(remote.EventError, func(evt remote.Event) {
		log.WithField("error", evt.Err).Warn("protocol error")
	})
	if monitorTransactions {
		rem.On(remote.EventTransactionAll, func(evt remote.Event) {
			log.WithField("size", len(evt.Message)).Info("transaction")
		})
	}
}
