package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nonblocking/syncprim/aggregator"
	"github.com/nonblocking/syncprim/countdownlatch"
	"github.com/nonblocking/syncprim/joiner"
	"github.com/nonblocking/syncprim/rankingbarrier"
)

func newRankingBarrierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rankingbarrier",
		Short: "Runs two cycles of a ranking barrier across several goroutines",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			n := workerCount()
			if n < 2 {
				n = 2
			}
			b, err := rankingbarrier.New(n)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < n; i++ {
				i := i
				g.Go(func() error {
					for cycle := 0; cycle < 2; cycle++ {
						rank, err := b.Wait(gctx)
						if err != nil {
							return err
						}
						log.Info("participant released", zap.Int("goroutine", i), zap.Int("cycle", cycle), zap.Int("rank", rank))
					}
					return nil
				})
			}
			return g.Wait()
		},
	}
}

func newJoinerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "joiner",
		Short: "Collects one value per participant for two rounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			n := workerCount()
			j, err := joiner.New[int, int](n)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < n; i++ {
				i := i
				g.Go(func() error {
					for round := 0; round < 2; round++ {
						result, err := j.Supply(gctx, i, i*10+round)
						if err != nil {
							return err
						}
						log.Info("round published", zap.Int("goroutine", i), zap.Int("round", round), zap.Int("size", len(result)))
					}
					return nil
				})
			}
			return g.Wait()
		},
	}
}

func newCountDownLatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countdownlatch",
		Short: "Releases waiters once every worker reports done",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			n := workerCount()
			l, err := countdownlatch.New(n)
			if err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			for i := 0; i < n; i++ {
				i := i
				g.Go(func() error {
					time.Sleep(time.Duration(i+1) * 5 * time.Millisecond)
					log.Info("worker finished", zap.Int("worker", i))
					l.CountDown()
					return nil
				})
			}
			g.Go(func() error { return l.Await(gctx) })

			if err := g.Wait(); err != nil {
				return err
			}
			log.Info("latch released")
			return nil
		},
	}
}

func newAggregatorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "aggregator",
		Short: "Averages sensor readings over fixed windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := aggregator.New(200*time.Millisecond, aggregator.WithLogger(log))
			defer a.Close()

			g, gctx := errgroup.WithContext(cmd.Context())
			for s := 0; s < 3; s++ {
				s := s
				g.Go(func() error {
					for i := 0; i < 10; i++ {
						select {
						case <-gctx.Done():
							return gctx.Err()
						default:
						}
						a.AddMeasure(s, float64(i))
						time.Sleep(30 * time.Millisecond)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			time.Sleep(250 * time.Millisecond)
			for _, avg := range a.GetAverages() {
				log.Info("window average", zap.Int("sensor", avg.SensorID), zap.Float64("average", avg.AverageTemperature))
			}
			return nil
		},
	}
}
