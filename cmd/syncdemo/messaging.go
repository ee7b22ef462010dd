package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nonblocking/syncprim/dispatcher"
	"github.com/nonblocking/syncprim/exchanger"
	"github.com/nonblocking/syncprim/looper"
	"github.com/nonblocking/syncprim/mpmcchannel"
	"github.com/nonblocking/syncprim/synchronizer"
)

type tick struct {
	n int
}

func (t tick) Clone() tick { return t }

func newDispatcherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatcher",
		Short: "Broadcasts a run of ticks to several subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			d := dispatcher.New[tick](dispatcher.WithLogger(log))
			defer d.Close()

			subs := make([]*dispatcher.Subscription[tick], workerCount())
			for i := range subs {
				subs[i] = d.Subscribe()
			}

			g, gctx := errgroup.WithContext(ctx)
			for i, sub := range subs {
				i, sub := i, sub
				g.Go(func() error {
					for {
						v, ok := sub.Read(gctx)
						if !ok {
							return nil
						}
						log.Info("subscriber received tick", zap.Int("subscriber", i), zap.Int("tick", v.n))
					}
				})
			}

			for i := 0; i < 10; i++ {
				if err := d.Dispatch(tick{n: i}); err != nil {
					return err
				}
			}
			d.Close()
			return g.Wait()
		},
	}
}

func newMpMcChannelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mpmcchannel",
		Short: "Runs several producers and consumers over a bounded channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			ch := mpmcchannel.New[int](workerCount())
			g, gctx := errgroup.WithContext(ctx)

			for p := 0; p < workerCount(); p++ {
				p := p
				g.Go(func() error {
					for i := 0; i < 5; i++ {
						if !ch.Send(gctx, p*100+i) {
							return nil
						}
					}
					return nil
				})
			}
			for c := 0; c < workerCount(); c++ {
				c := c
				g.Go(func() error {
					for {
						v, ok := ch.Recv(gctx)
						if !ok {
							return nil
						}
						log.Info("consumer received", zap.Int("consumer", c), zap.Int("value", v))
					}
				})
			}

			done := make(chan error, 1)
			go func() { done <- g.Wait() }()
			<-ctx.Done()
			ch.Shutdown()
			return <-done
		},
	}
}

func newLooperCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "looper",
		Short: "Feeds a single worker loop and tears it down cleanly",
		RunE: func(cmd *cobra.Command, args []string) error {
			l := looper.New[int](func(m int) {
				log.Info("looper processed message", zap.Int("message", m))
			}, func() {
				log.Info("looper cleanup ran")
			}, looper.WithLogger(log))

			for i := 0; i < 20; i++ {
				l.Send(i)
			}
			l.Close()
			return nil
		},
	}
}

func newExchangerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchanger",
		Short: "Pairs two goroutines that swap values",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			ex := exchanger.New[string]()
			defer ex.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				got, err := ex.Exchange(gctx, "left")
				if err != nil {
					return err
				}
				log.Info("left side received", zap.String("value", got))
				return nil
			})
			g.Go(func() error {
				got, err := ex.Exchange(gctx, "right")
				if err != nil {
					return err
				}
				log.Info("right side received", zap.String("value", got))
				return nil
			})
			return g.Wait()
		},
	}
}

func newSynchronizerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "synchronizer",
		Short: "Pairs values arriving on two independent ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), demoTimeout())
			defer cancel()

			s := synchronizer.New[int, int](func(a, b int) {
				log.Info("synchronizer paired values", zap.Int("first", a), zap.Int("second", b))
			}, synchronizer.WithLogger(log))
			defer s.Close()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				for i := 0; i < 5; i++ {
					if err := s.DataFromFirstPort(gctx, i); err != nil {
						return err
					}
				}
				return nil
			})
			g.Go(func() error {
				for i := 0; i < 5; i++ {
					if err := s.DataFromSecondPort(gctx, i+100); err != nil {
						return err
					}
				}
				return nil
			})
			return g.Wait()
		},
	}
}
