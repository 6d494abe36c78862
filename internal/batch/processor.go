package batch

import (
	"context"
	"fmt"
	"image"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"holoquilt/internal/viewset"
)

// Capturer receives decoded views. *injector.Injector satisfies it.
type Capturer interface {
	CaptureRender(viewIndex int, src image.Image) error
}

// Config holds the shared resources of one capture pass.
type Config struct {
	Cache    *viewset.Cache
	Workers  int
	Progress io.Writer     // progress lines, nil for none
	Interval time.Duration // progress period, 0 means 2s
}

// Result holds the outcome for one view.
type Result struct {
	Index   int
	Path    string
	Success bool
	Error   string
}

// Run decodes every view with a worker pool, then hands the images to dst in
// index order from the calling goroutine. It returns per-view results and the
// number that failed.
func Run(ctx context.Context, cfg Config, views []viewset.View, dst Capturer) ([]Result, int, error) {
	images, results := decodeAll(ctx, cfg, views)
	if err := ctx.Err(); err != nil {
		return results, 0, err
	}

	failed := 0
	for i, v := range views {
		if !results[i].Success {
			failed++
			continue
		}
		if err := dst.CaptureRender(v.Index, images[i]); err != nil {
			results[i].Success = false
			results[i].Error = err.Error()
			failed++
		}
	}
	return results, failed, nil
}

func decodeAll(ctx context.Context, cfg Config, views []viewset.View) ([]*image.NRGBA, []Result) {
	total := len(views)
	images := make([]*image.NRGBA, total)
	results := make([]Result, total)

	cache := cfg.Cache
	if cache == nil {
		cache = viewset.NewCache()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	var processed atomic.Int64
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	var reporter sync.WaitGroup
	if cfg.Progress != nil {
		reporter.Add(1)
		go func() {
			defer reporter.Done()
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					p := processed.Load()
					if p > 0 {
						rate := float64(p) / time.Since(start).Seconds()
						fmt.Fprintf(cfg.Progress, "  [%d/%d] %.1f views/sec\n", p, total, rate)
					}
				}
			}
		}()
	}

	// Worker pool
	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				images[i], results[i] = decodeView(ctx, cache, views[i])
				processed.Add(1)
			}
		}()
	}

	for i := range views {
		work <- i
	}
	close(work)

	wg.Wait()
	close(done)
	reporter.Wait()

	return images, results
}

func decodeView(ctx context.Context, cache *viewset.Cache, v viewset.View) (*image.NRGBA, Result) {
	res := Result{Index: v.Index, Path: v.Path}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return nil, res
	}
	img, err := cache.Load(v.Path)
	if err != nil {
		res.Error = err.Error()
		return nil, res
	}
	res.Success = true
	return img, res
}
