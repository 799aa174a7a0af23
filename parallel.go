package bdfs

import (
	"context"
	"crypto/cipher"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rjwvandenberg/bdfs/ice"
)

// DefaultChunkBlocks is the number of blocks handed to one worker at a time.
const DefaultChunkBlocks = 4096

type parallelConfig struct {
	workers     int
	chunkBlocks int
}

// ParallelOption configures ProcessBufferParallel.
type ParallelOption func(*parallelConfig)

// WithWorkers bounds the number of concurrent workers. n <= 0 means
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) ParallelOption {
	return func(c *parallelConfig) {
		c.workers = n
	}
}

// WithChunkBlocks sets how many blocks each worker processes before the
// context is checked again. n <= 0 means DefaultChunkBlocks.
func WithChunkBlocks(n int) ParallelOption {
	return func(c *parallelConfig) {
		c.chunkBlocks = n
	}
}

// ProcessBufferParallel is ProcessBuffer sharded across goroutines in chunks
// of disjoint blocks. The result is identical to ProcessBuffer.
//
// ctx is checked between chunks; if it is cancelled the call returns ctx.Err()
// and the contents of dst are undefined. When dst and src are the same slice
// a cancelled call leaves src partly processed as well.
func ProcessBufferParallel(ctx context.Context, b cipher.Block, dst, src []byte, blockCount int, dir Direction, opts ...ParallelOption) error {
	if err := validate(b, dst, src, blockCount); err != nil {
		return err
	}

	cfg := parallelConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	if cfg.chunkBlocks <= 0 {
		cfg.chunkBlocks = DefaultChunkBlocks
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	for start := 0; start < blockCount; start += cfg.chunkBlocks {
		if gctx.Err() != nil {
			break
		}
		lo := start * ice.BlockSize
		hi := min(start+cfg.chunkBlocks, blockCount) * ice.BlockSize
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			processRange(b, dst[lo:hi], src[lo:hi], dir)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
