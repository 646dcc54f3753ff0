// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package commands

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/lfc"
	"github.com/spf13/cobra"
)

// stackCmd represents the stack command
func stackCmd(opts *stressOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stack",
		Short: "Push and pop concurrently on a Stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := lfc.NewStack[int]()
			stats, err := transfer(cmd.Context(), opts, s.Push, s.Pop)
			if err != nil {
				return err
			}
			if !s.IsEmpty() {
				return fmt.Errorf("lfcstress: stack not empty after run, Len %d", s.Len())
			}
			stats.log(newLogger(cmd), "stack")
			return nil
		},
	}
}

// queueCmd represents the queue command
func queueCmd(opts *stressOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Enqueue and dequeue concurrently on a Queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := lfc.NewQueue[int]()
			stats, err := transfer(cmd.Context(), opts, q.Enqueue, q.Dequeue)
			if err != nil {
				return err
			}
			if !q.IsEmpty() {
				return fmt.Errorf("lfcstress: queue not empty after run, Len %d", q.Len())
			}
			stats.log(newLogger(cmd), "queue")
			return nil
		},
	}
}

// priorityQueueCmd represents the pq command
func priorityQueueCmd(opts *stressOptions) *cobra.Command {
	var levels int
	cmd := &cobra.Command{
		Use:   "pq",
		Short: "Enqueue and dequeue concurrently on a PriorityQueue",
		Long: `pq spreads values over --levels priority levels. Empty results while
values are still pending are expected under contention and are counted in
empty_polls.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if levels < 1 || levels > lfc.MaxLevels {
				return fmt.Errorf("lfcstress: --levels must be in [1, %d]", lfc.MaxLevels)
			}
			pq := lfc.NewPriorityQueue[int](levels)
			put := func(v int) {
				// v%levels is always a valid priority.
				_ = pq.Enqueue(v, v%levels)
			}
			stats, err := transfer(cmd.Context(), opts, put, pq.Dequeue)
			if err != nil {
				return err
			}
			stats.log(newLogger(cmd).With("levels", levels), "pq")
			return nil
		},
	}
	cmd.Flags().IntVar(&levels, "levels", 8, "Number of priority levels")
	return cmd
}

// poolCmd represents the pool command
func poolCmd(opts *stressOptions) *cobra.Command {
	var (
		capacity int
		policy   string
	)
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Claim and release slots concurrently on a Pool",
		Long: `pool runs --producers goroutines that each add --items values and
remove every third one again. It checks that the pool never holds more
values than slots and that its count matches its contents afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePolicy(policy)
			if err != nil {
				return err
			}
			if capacity < 1 {
				return fmt.Errorf("lfcstress: --capacity must be >= 1")
			}
			return runPool(cmd, opts, capacity, p)
		},
	}
	cmd.Flags().IntVar(&capacity, "capacity", 64, "Initial number of slots")
	cmd.Flags().StringVar(&policy, "policy", lfc.EvictOldest.String(), "Full-pool policy ("+policyNames()+")")
	return cmd
}

func runPool(cmd *cobra.Command, opts *stressOptions, capacity int, policy lfc.EvictionPolicy) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	var claimed, released, failed atomix.Int64
	pool := lfc.NewPoolBuilder[int](capacity).
		Policy(policy).
		OnClaimed(func(lfc.SlotEvent[int]) { claimed.Add(1) }).
		OnReleased(func(lfc.SlotEvent[int]) { released.Add(1) }).
		OnClaimFailed(func(lfc.SlotEvent[int]) { failed.Add(1) }).
		Build()

	start := time.Now()
	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	for w := range opts.producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range opts.items {
				if ctx.Err() != nil {
					return
				}
				v := w*opts.items + i
				if err := pool.Add(v); err != nil && !lfc.IsWouldBlock(err) && !lfc.IsPoolFull(err) {
					errOnce.Do(func() { runErr = err })
					cancel()
					return
				}
				if i%3 == 0 {
					pool.Remove(v)
				}
			}
		}()
	}
	wg.Wait()
	if runErr != nil {
		return runErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("lfcstress: pool run aborted: %w", err)
	}

	values, err := pool.ToSlice()
	if err != nil {
		return err
	}
	if policy != lfc.Grow && len(values) > capacity {
		return fmt.Errorf("lfcstress: pool holds %d values in %d slots", len(values), capacity)
	}
	if pool.Len() != len(values) {
		return fmt.Errorf("lfcstress: pool Len %d, holds %d values", pool.Len(), len(values))
	}
	if int(claimed.Load()-released.Load()) != len(values) {
		return fmt.Errorf("lfcstress: %d claims and %d releases for %d values",
			claimed.Load(), released.Load(), len(values))
	}
	if err := pool.Close(); err != nil {
		return err
	}

	newLogger(cmd).Info("stress run passed",
		"container", "pool",
		"policy", policy,
		"cap", pool.Cap(),
		"claimed", claimed.Load(),
		"released", released.Load(),
		"claim_failed", failed.Load(),
		"elapsed", time.Since(start),
	)
	return nil
}

// cacheCmd represents the cache command
func cacheCmd(opts *stressOptions) *cobra.Command {
	var keys int
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Race GetOrAdd writers against readers on a Cache",
		Long: `cache runs --producers writers calling GetOrAdd on --keys keys and
--consumers readers enumerating snapshots. Every writer must observe the
same winning value per key, and every snapshot must be internally
consistent.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keys < 1 {
				return fmt.Errorf("lfcstress: --keys must be >= 1")
			}
			return runCache(cmd, opts, keys)
		},
	}
	cmd.Flags().IntVar(&keys, "keys", 1024, "Number of distinct keys")
	return cmd
}

func runCache(cmd *cobra.Command, opts *stressOptions, keys int) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	c := lfc.NewCache[int, int]()
	var mismatches, snapshots atomix.Int64
	var writers sync.WaitGroup
	start := time.Now()

	for w := range opts.producers {
		writers.Add(1)
		go func() {
			defer writers.Done()
			for i := range opts.items {
				if ctx.Err() != nil {
					return
				}
				k := (w + i) % keys
				got := c.GetOrAdd(k, w)
				if v, ok := c.Get(k); !ok || v != got {
					mismatches.Add(1)
				}
			}
		}()
	}

	done := make(chan struct{})
	var readers sync.WaitGroup
	for range opts.consumers {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				n := 0
				for k, v := range c.All() {
					if k < 0 || k >= keys || v < 0 || v >= opts.producers {
						mismatches.Add(1)
					}
					n++
				}
				if n > keys {
					mismatches.Add(1)
				}
				snapshots.Add(1)
			}
		}()
	}
	writers.Wait()
	close(done)
	readers.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("lfcstress: cache run aborted: %w", err)
	}
	if n := mismatches.Load(); n != 0 {
		return fmt.Errorf("lfcstress: %d inconsistent cache observations", n)
	}
	// GetOrAdd swaps once per key; every later call is a read.
	if c.Version() != uint64(c.Len()) {
		return fmt.Errorf("lfcstress: cache version %d for %d keys", c.Version(), c.Len())
	}

	newLogger(cmd).Info("stress run passed",
		"container", "cache",
		"keys", c.Len(),
		"snapshots", snapshots.Load(),
		"elapsed", time.Since(start),
	)
	return nil
}

var policies = []lfc.EvictionPolicy{lfc.EvictOldest, lfc.EvictNewest, lfc.Grow, lfc.IgnoreNew, lfc.Reject}

func parsePolicy(s string) (lfc.EvictionPolicy, error) {
	for _, p := range policies {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("lfcstress: unknown policy %q, want one of %s", s, policyNames())
}

func policyNames() string {
	names := make([]string, len(policies))
	for i, p := range policies {
		names[i] = p.String()
	}
	return strings.Join(names, ", ")
}
