package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/commonfund/commonfund/engine/access/rest"
	"github.com/commonfund/commonfund/engine/escrow"
	"github.com/commonfund/commonfund/engine/settlement"
	"github.com/commonfund/commonfund/engine/treasury"
	"github.com/commonfund/commonfund/ledger"
	"github.com/commonfund/commonfund/module/metrics"
	storagebadger "github.com/commonfund/commonfund/storage/badger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the node until interrupted",
	Run:   run,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func run(*cobra.Command, []string) {

	datadir := viper.GetString("datadir")
	opts := badger.
		DefaultOptions(datadir).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal().Err(err).Str("datadir", datadir).Msg("could not open database")
	}
	defer db.Close()

	engineMetrics := metrics.NewEngineCollector()
	cacheMetrics := metrics.NewCacheCollector()
	clock := ledger.SystemClock{}

	settlementEngine := settlement.New(log, engineMetrics, db)
	treasuryEngine := treasury.New(log, engineMetrics, db)
	escrowEngine := escrow.New(log, engineMetrics, db, clock)

	handler := rest.NewHandler(
		log,
		settlementEngine,
		treasuryEngine,
		escrowEngine,
		storagebadger.NewGroups(db),
		storagebadger.NewProposals(db),
		storagebadger.NewCampaigns(cacheMetrics, db),
		ledger.NewBalances(db),
		clock,
	)
	restServer := rest.NewServer(handler, viper.GetString("rest-addr"), log)

	go func() {
		log.Info().Str("address", restServer.Addr).Msg("rest server started")
		err := restServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("rest server failed")
		}
	}()

	metricsServer := metrics.NewServer(log, viper.GetUint("metrics-port"))
	<-metricsServer.Ready()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = restServer.Shutdown(ctx)
	if err != nil {
		log.Err(err).Msg("could not shut down rest server")
	}
	<-metricsServer.Done()
}
