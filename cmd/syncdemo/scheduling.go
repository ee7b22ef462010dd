package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nonblocking/syncprim/cache"
	"github.com/nonblocking/syncprim/delayedexecutor"
	"github.com/nonblocking/syncprim/delayedqueue"
	"github.com/nonblocking/syncprim/executionlimiter"
	"github.com/nonblocking/syncprim/tokenmanager"
)

func newDelayedQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delayedqueue",
		Short: "Offers items at staggered instants and drains them in time order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			q := delayedqueue.New[string]()
			now := time.Now()
			q.Offer("third", now.Add(150*time.Millisecond))
			q.Offer("first", now.Add(10*time.Millisecond))
			q.Offer("second", now.Add(75*time.Millisecond))

			for i := 0; i < 3; i++ {
				v, ok := q.Take(ctx)
				if !ok {
					return errors.New("delayedqueue: take returned no value")
				}
				log.Info("took item", zap.String("value", v))
			}
			return nil
		},
	}
}

func newDelayedExecutorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delayedexecutor",
		Short: "Schedules tasks at a delay and drains pending work on shutdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			e := delayedexecutor.New(delayedexecutor.WithLogger(log))

			for i := 0; i < 5; i++ {
				i := i
				e.Execute(func() {
					log.Info("delayed task ran", zap.Int("task", i))
				}, time.Duration(i)*20*time.Millisecond)
			}

			e.Close(false)
			e.Wait()
			return nil
		},
	}
}

func newTokenManagerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenmanager",
		Short: "Fetches a short-lived token, single-flighting concurrent acquisitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			var acquisitions int
			mgr := tokenmanager.New[string](func(ctx context.Context) (string, time.Time, error) {
				acquisitions++
				return "token", time.Now().Add(100 * time.Millisecond), nil
			})

			for i := 0; i < 3; i++ {
				tok, err := mgr.Get(ctx)
				if err != nil {
					return err
				}
				log.Info("fetched token", zap.String("token", tok), zap.Int("acquisitions", acquisitions))
			}

			time.Sleep(150 * time.Millisecond)
			tok, err := mgr.Get(ctx)
			if err != nil {
				return err
			}
			log.Info("fetched token after expiry", zap.String("token", tok), zap.Int("acquisitions", acquisitions))
			return nil
		},
	}
}

func newCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache",
		Short: "Computes and caches a value keyed by a small identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			c := cache.New[int, string]()
			var computations int
			compute := func(ctx context.Context, key int) (string, error) {
				computations++
				return "value-for-key", nil
			}

			for i := 0; i < 3; i++ {
				v, err := c.Get(ctx, 1, compute)
				if err != nil {
					return err
				}
				log.Info("cache hit", zap.String("value", v), zap.Int("computations", computations))
			}
			return nil
		},
	}
}

func newExecutionLimiterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "executionlimiter",
		Short: "Caps concurrent execution of a callback at a fixed capacity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			limiter, err := executionlimiter.New(2)
			if err != nil {
				return err
			}

			errs := make(chan error, workerCount())
			for i := 0; i < workerCount(); i++ {
				i := i
				go func() {
					errs <- limiter.Execute(ctx, func() {
						log.Info("inside limiter", zap.Int("worker", i))
						time.Sleep(20 * time.Millisecond)
					})
				}()
			}
			for i := 0; i < workerCount(); i++ {
				if err := <-errs; err != nil {
					return err
				}
			}
			return nil
		},
	}
}
