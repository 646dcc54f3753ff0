// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package commands holds the lfcstress command tree.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/spf13/cobra"
)

// stressOptions are the flags shared by every subcommand.
type stressOptions struct {
	producers int
	consumers int
	items     int // per producer
	timeout   time.Duration
}

func (o *stressOptions) validate() error {
	if o.producers < 1 || o.consumers < 1 {
		return errors.New("lfcstress: --producers and --consumers must be >= 1")
	}
	if o.items < 1 {
		return errors.New("lfcstress: --items must be >= 1")
	}
	return nil
}

func (o *stressOptions) total() int {
	return o.producers * o.items
}

// RootCmd builds the lfcstress command tree.
func RootCmd() *cobra.Command {
	opts := &stressOptions{}
	root := &cobra.Command{
		Use:   "lfcstress",
		Short: "Stress the lfc lock-free containers",
		Long: `lfcstress runs concurrent producers and consumers against one lfc
container, verifies that every value comes out exactly once (or, for the
pool and cache, that their invariants hold) and logs a summary.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
	}

	// Global flags
	root.PersistentFlags().IntVar(&opts.producers, "producers", 4, "Number of producer goroutines")
	root.PersistentFlags().IntVar(&opts.consumers, "consumers", 4, "Number of consumer goroutines")
	root.PersistentFlags().IntVar(&opts.items, "items", 100000, "Values produced by each producer")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Abort the run after this long")

	// Add subcommands
	root.AddCommand(stackCmd(opts))
	root.AddCommand(queueCmd(opts))
	root.AddCommand(priorityQueueCmd(opts))
	root.AddCommand(poolCmd(opts))
	root.AddCommand(cacheCmd(opts))
	return root
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
}

// transferStats summarizes one producer-consumer run.
type transferStats struct {
	consumed   int64
	emptyPolls int64
	elapsed    time.Duration
}

func (s transferStats) log(logger *slog.Logger, container string) {
	var rate int64
	if sec := s.elapsed.Seconds(); sec > 0 {
		rate = int64(float64(s.consumed) / sec)
	}
	logger.Info("stress run passed",
		"container", container,
		"consumed", s.consumed,
		"empty_polls", s.emptyPolls,
		"elapsed", s.elapsed,
		"ops_per_sec", rate,
	)
}

// transfer pushes producers*items distinct values through put and take and
// checks that each one is taken exactly once. Values are encoded as
// producerID*items + sequence.
func transfer(ctx context.Context, opts *stressOptions, put func(int), take func() (int, bool)) (transferStats, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	total := opts.total()
	seen := make([]atomix.Int32, total)
	var consumed, emptyPolls atomix.Int64
	start := time.Now()

	var wg sync.WaitGroup
	for p := range opts.producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range opts.items {
				put(p*opts.items + i)
			}
		}()
	}
	for range opts.consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(total) {
				if v, ok := take(); ok {
					seen[v].Add(1)
					consumed.Add(1)
					backoff.Reset()
					continue
				}
				emptyPolls.Add(1)
				if ctx.Err() != nil {
					return
				}
				backoff.Wait()
			}
		}()
	}
	wg.Wait()

	stats := transferStats{
		consumed:   consumed.Load(),
		emptyPolls: emptyPolls.Load(),
		elapsed:    time.Since(start),
	}
	if stats.consumed < int64(total) {
		return stats, fmt.Errorf("lfcstress: consumed %d of %d values: %w", stats.consumed, total, ctx.Err())
	}
	for v := range seen {
		if n := seen[v].Load(); n != 1 {
			return stats, fmt.Errorf("lfcstress: value %d consumed %d times", v, n)
		}
	}
	return stats, nil
}
