package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/api"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/chainsync"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/feed"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/resync"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/app/review"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/infra/ledger"
	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/infra/sqlite"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the axiosd daemon",
	Long: `Run the axiosd daemon: the HTTP API, the chain-sync coordinator,
and the live event aggregator. Shuts down cleanly on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return err
	}
	store, err := sqlite.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()
	log.Printf("record store: %s", store.Path())

	lc := ledger.NewClient(cfg.Ledger.GatewayURL)
	lc.PollInterval = cfg.PollInterval()

	co := chainsync.New(chainsync.Config{ConfirmTimeout: cfg.ConfirmTimeout()}, store, lc)
	rs := review.New(store, co)

	feedCfg := feed.DefaultConfig()
	feedCfg.Capacity = cfg.Feed.Capacity
	fd := feed.New(feedCfg, lc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go fd.Run(ctx)

	// Repair chain linkage lost to a crash between ledger confirmation
	// and the local write-back, before serving traffic.
	if n, err := co.RecoverUnlinked(ctx); err != nil {
		log.Printf("linkage recovery: %v", err)
	} else if n > 0 {
		log.Printf("linkage recovery: relinked %d action(s)", n)
	}

	if cfg.Resync.Enabled {
		worker := resync.New(resync.Config{Interval: cfg.ResyncInterval()}, store, co)
		go worker.Run(ctx)
	}

	srv := api.NewServer(rs, co, store, fd)
	if cfg.API.Metrics {
		srv.EnableMetrics()
	}

	httpSrv := &http.Server{
		Addr:    cfg.API.Addr(),
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("axiosd listening on %s", cfg.API.Addr())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
