package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagDatadir     string
	flagRESTAddr    string
	flagMetricsPort uint
	flagLogLevel    string

	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fundnode",
	Short: "Run a shared fund node serving the settlement, treasury and escrow engines",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagDatadir, "datadir", "d", "data",
		"directory holding the node's database")
	rootCmd.PersistentFlags().StringVar(&flagRESTAddr, "rest-addr", "localhost:8080",
		"listen address of the REST API server")
	rootCmd.PersistentFlags().UintVar(&flagMetricsPort, "metrics-port", 9090,
		"port of the prometheus metrics server")
	rootCmd.PersistentFlags().StringVarP(&flagLogLevel, "loglevel", "l", "info",
		"log level of the node (debug, info, warn, error)")

	log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvPrefix("FUND")
	viper.AutomaticEnv()
	err := viper.BindPFlags(rootCmd.PersistentFlags())
	if err != nil {
		log.Fatal().Err(err).Msg("could not bind configuration flags")
	}

	level, err := zerolog.ParseLevel(viper.GetString("loglevel"))
	if err != nil {
		log.Fatal().Err(err).Msg("invalid log level")
	}
	log = log.Level(level)
}
