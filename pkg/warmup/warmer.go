package warmup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/http-cache-store/pkg/cache"
	"github.com/rs/zerolog/log"
)

// Config holds warmer configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per URL fetch
	Timeout time.Duration
}

// DefaultConfig returns default warmer configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		Timeout:        15 * time.Second,
	}
}

// Fetcher fetches a URL through a cache and returns the captured response
// with its cache status. *client.Client implements it.
type Fetcher interface {
	Inspect(ctx context.Context, url string) (*cache.CachedResponse, string, error)
}

// Result describes the outcome of warming one URL
type Result struct {
	URL         string
	StatusCode  int
	CacheStatus string
	Fresh       bool
	TTL         time.Duration
	Err         error
}

// Warmer fetches URLs in parallel so that their responses are cached
type Warmer struct {
	fetcher Fetcher
	config  Config
}

// NewWarmer creates a new warmer
func NewWarmer(fetcher Fetcher, config Config) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 8
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Warmer{
		fetcher: fetcher,
		config:  config,
	}
}

// Warm fetches every URL and returns one Result per URL, in input order.
// A failed URL does not stop the others; its error is kept in the Result.
// If ctx is cancelled, unfetched URLs report the context error.
func (w *Warmer) Warm(ctx context.Context, urls []string) ([]Result, error) {
	start := time.Now()
	results := make([]Result, len(urls))
	if len(urls) == 0 {
		return results, nil
	}
	done := make([]bool, len(urls))

	queue := make(chan int, len(urls))
	for i := range urls {
		queue <- i
	}
	close(queue)

	workers := w.config.MaxConcurrency
	if workers > len(urls) {
		workers = len(urls)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go w.worker(ctx, urls, queue, results, done, &wg, i)
	}
	wg.Wait()

	failed := 0
	fresh := 0
	for i := range results {
		if !done[i] {
			// never picked up: cancelled before a worker reached it
			results[i] = Result{URL: urls[i], Err: ctx.Err()}
		}
		if results[i].Err != nil {
			failed++
		} else if results[i].Fresh {
			fresh++
		}
	}

	log.Info().
		Int("urls", len(urls)).
		Int("fresh", fresh).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Warmup complete")

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("warmup interrupted (%d/%d done): %w", len(urls)-failed, len(urls), err)
	}
	return results, nil
}

// worker processes URL indexes from the queue. Each index is written by
// exactly one worker, so results and done need no lock.
func (w *Warmer) worker(ctx context.Context, urls []string, queue <-chan int, results []Result, done []bool, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	processed := 0

	for i := range queue {
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("processed", processed).
				Msg("Worker stopping (context cancelled)")
			return
		default:
		}

		results[i] = w.warmOne(ctx, urls[i])
		done[i] = true
		if results[i].Err != nil {
			log.Warn().
				Err(results[i].Err).
				Int("worker_id", workerID).
				Str("url", urls[i]).
				Msg("Warmup fetch failed")
		}
		processed++
	}

	log.Debug().
		Int("worker_id", workerID).
		Int("processed", processed).
		Msg("Worker completed")
}

func (w *Warmer) warmOne(ctx context.Context, url string) Result {
	fetchCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	cached, status, err := w.fetcher.Inspect(fetchCtx, url)
	if err != nil {
		return Result{URL: url, Err: err}
	}

	f := cached.Evaluate()
	return Result{
		URL:         url,
		StatusCode:  cached.Status,
		CacheStatus: status,
		Fresh:       f.Fresh,
		TTL:         f.TTL,
	}
}
