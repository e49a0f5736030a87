package main

import (
	"fmt"
	"math/rand"
	"os"
	"text/tabwriter"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/apexsim/raceserver/config"
	"github.com/apexsim/raceserver/internal/race"
	"github.com/apexsim/raceserver/internal/track"
)

type simulateOptions struct {
	cars     int
	laps     int
	seed     int64
	rain     float64
	enhanced bool
}

// maxTicks bounds a headless run so a misconfigured race cannot spin
// forever; generous enough for a full wet race distance.
const maxTicks = 2_000_000

// runSimulate races the whole field to the checkered flag without any
// network and prints the final classification and pit-strategy outcomes.
func runSimulate(opts simulateOptions) error {
	trk, err := track.Build(track.GPLayout(), config.TrackResolution)
	if err != nil {
		return fmt.Errorf("building track: %w", err)
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	var physics race.Physics = race.NewBasicModel()
	if opts.enhanced {
		physics = race.NewEnhancedModel()
	}

	sim := race.New(trk, race.Options{
		Cars:      opts.cars,
		TotalLaps: opts.laps,
		Weather:   race.Weather{Rain: opts.rain, TrackTemp: 25.0},
		Physics:   physics,
		Rand:      rand.New(rand.NewSource(seed)),
	})
	sim.Start()

	log.WithFields(log.Fields{
		"cars":    opts.cars,
		"laps":    opts.laps,
		"seed":    seed,
		"physics": physics.Name(),
	}).Info("headless race underway")

	ticks := 0
	for !sim.Finished() && ticks < maxTicks {
		sim.Step()
		ticks++
	}
	if !sim.Finished() {
		return fmt.Errorf("race did not finish within %d ticks", maxTicks)
	}

	printClassification(sim)
	printUndercuts(sim)
	return nil
}

func printClassification(sim *race.Sim) {
	snap := sim.Snapshot()

	fmt.Printf("\nFinal classification after %d laps (%.1f simulated minutes)\n\n",
		snap.TotalLaps, snap.Time/60)

	tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POS\tDRIVER\tLAPS\tTYRE\tSTOPS\tINTERVAL")
	for pos := 1; pos <= len(snap.Cars); pos++ {
		for _, c := range snap.Cars {
			if c.Position != pos {
				continue
			}
			interval := "leader"
			if pos > 1 {
				interval = fmt.Sprintf("+%.2fs", c.TimeInterval)
			}
			fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\t%s\n",
				c.Position, c.Name, c.Laps, c.Tyre, c.PitstopCount, interval)
		}
	}
	tw.Flush()
}

func printUndercuts(sim *race.Sim) {
	summary := sim.UndercutSummary()
	if len(summary) == 0 {
		fmt.Println("\nNo significant undercuts this race.")
		return
	}

	fmt.Println("\nSignificant pit-strategy outcomes:")
	for _, stop := range summary {
		fmt.Printf("  %s (lap %d, %s -> %s, %.1fs stop):\n",
			stop.Car, stop.Lap, stop.OldTyre, stop.NewTyre, stop.PitTime)
		for _, u := range stop.Undercuts {
			verb := "gained"
			gain := u.TimeGain
			if gain < 0 {
				verb = "lost"
				gain = -gain
			}
			fmt.Printf("    %s %.2fs vs %s (%+d positions)\n", verb, gain, u.Versus, u.PositionChange)
		}
	}
}
