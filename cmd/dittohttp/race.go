package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/dittohttp/pkg/counter"
	"github.com/spf13/cobra"
)

func raceCmd() *cobra.Command {
	var (
		workers int
		pause   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "race",
		Short: "Show lost updates in an unsynchronized visit counter",
		Long: "Runs the same number of concurrent visits against the unsafe and the " +
			"locked counter and prints both totals. The unsafe total comes out short.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if workers < 1 {
				return fmt.Errorf("--workers must be >= 1")
			}

			racy := runVisits(workers, func(r *counter.Registry) {
				r.RecordVisitRacy("/race", pause)
			})
			safe := runVisits(workers, func(r *counter.Registry) {
				r.RecordVisit("/race")
			})

			fmt.Printf("visits:        %d\n", workers)
			fmt.Printf("unsafe total:  %d (lost %d)\n", racy, uint64(workers)-racy)
			fmt.Printf("locked total:  %d\n", safe)
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 50, "Concurrent visits")
	cmd.Flags().DurationVar(&pause, "pause", time.Millisecond, "Gap between read and write in the unsafe counter")
	return cmd
}

// runVisits calls visit from n goroutines at once and returns the final count.
func runVisits(n int, visit func(*counter.Registry)) uint64 {
	reg := counter.NewRegistry()
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			visit(reg)
		}()
	}
	close(start)
	wg.Wait()

	return reg.CurrentCount("/race")
}
