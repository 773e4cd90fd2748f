package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/caffeineduck/hashcall/hostfunc"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Hash concurrently from many guest memories",
	Long: `Run the hash syscall from several workers at once, each with its own
guest memory, and report throughput.

Example:
  hashcall bench -a keccak-256 --workers 8 --calls 10000 --size 4096`,
	Args: cobra.NoArgs,
	RunE: runBench,
}

func init() {
	benchCmd.Flags().StringP("algo", "a", "sha2-256", "Algorithm name or multicodec code")
	benchCmd.Flags().Int("workers", 4, "Concurrent guests")
	benchCmd.Flags().Int("calls", 1000, "Calls per worker")
	benchCmd.Flags().Uint32("size", 1024, "Input size in bytes")
	rootCmd.AddCommand(benchCmd)
}

type benchResult struct {
	calls   int64
	bytes   int64
	elapsed time.Duration
}

func (r benchResult) String() string {
	secs := r.elapsed.Seconds()
	if secs == 0 {
		secs = 1e-9
	}
	return fmt.Sprintf("%d calls in %v (%.0f calls/s, %.2f MB/s)",
		r.calls, r.elapsed.Round(time.Millisecond), float64(r.calls)/secs, float64(r.bytes)/secs/1e6)
}

func runBench(cmd *cobra.Command, args []string) error {
	algo, _ := cmd.Flags().GetString("algo")
	workers, _ := cmd.Flags().GetInt("workers")
	calls, _ := cmd.Flags().GetInt("calls")
	size, _ := cmd.Flags().GetUint32("size")

	code, err := algorithmCode(algo)
	if err != nil {
		return err
	}

	res, err := bench(cmd.Context(), hostfunc.NewHasher(hostfunc.WithLogger(log.StandardLogger())), code, workers, calls, size)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res)
	return nil
}

// bench runs workers goroutines, each hashing its own random input calls times.
// The first failing call cancels the rest.
func bench(ctx context.Context, h *hostfunc.Hasher, code uint64, workers, calls int, size uint32) (benchResult, error) {
	if workers < 1 || calls < 1 {
		return benchResult{}, errors.New("workers and calls must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var done int64
	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			data := make([]byte, size)
			if _, err := rand.Read(data); err != nil {
				return errors.Wrap(err, "random input")
			}
			for i := 0; i < calls; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				if _, err := digestVia(h, code, data, 64, false); err != nil {
					return errors.Wrapf(err, "worker %d call %d", w, i)
				}
				atomic.AddInt64(&done, 1)
			}
			return nil
		})
	}
	err := g.Wait()
	n := atomic.LoadInt64(&done)
	return benchResult{calls: n, bytes: n * int64(size), elapsed: time.Since(start)}, err
}
