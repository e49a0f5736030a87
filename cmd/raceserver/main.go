// Command raceserver runs the race simulation engine.
//
// Architecture Overview:
// - The simulation advances in fixed 0.5s ticks, 3 ticks per broadcast
// - Race state is streamed as JSON over WebSocket to any number of observers
// - Observers are read-only; a slow client never stalls the simulation
// - Control (start with weather, reset) happens over a small HTTP API
package main

import (
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/apexsim/raceserver/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "raceserver",
		Short: "Real-time race simulation engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	cfg := loadConfig()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation over WebSocket with an HTTP control API",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Host, "host", cfg.Host, "listen address")
	cmd.Flags().IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	cmd.Flags().BoolVar(&cfg.EnableCORS, "cors", cfg.EnableCORS, "allow cross-origin observers")
	return cmd
}

func simulateCmd() *cobra.Command {
	opts := simulateOptions{
		cars: config.DefaultCars,
		laps: config.DefaultTotalLaps,
	}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a full race headless and print the classification",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runSimulate(opts)
		},
	}
	cmd.Flags().IntVar(&opts.cars, "cars", opts.cars, "number of cars on the grid")
	cmd.Flags().IntVar(&opts.laps, "laps", opts.laps, "race distance in laps")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "RNG seed (0 = random)")
	cmd.Flags().Float64Var(&opts.rain, "rain", 0.15, "rain intensity 0-1")
	cmd.Flags().BoolVar(&opts.enhanced, "enhanced", false, "use the enhanced physics model")
	return cmd
}

// loadConfig reads configuration from environment variables.
// Falls back to default values if environment variables are not set.
func loadConfig() *config.ServerConfig {
	cfg := config.DefaultServerConfig()

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	// CORS can be disabled for production behind a reverse proxy
	if cors := os.Getenv("ENABLE_CORS"); cors == "false" {
		cfg.EnableCORS = false
	}

	if os.Getenv("DEBUG") == "true" {
		log.SetLevel(log.DebugLevel)
	}

	return cfg
}
