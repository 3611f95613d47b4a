package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/Suhaibinator/SChangelog/internal/config"
	"github.com/Suhaibinator/SChangelog/internal/source"
)

// Schedule calls fn immediately and then every interval until ctx is done.
// A run that takes longer than interval delays the next one.
func Schedule(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) error {
	if interval <= 0 {
		return fmt.Errorf("schedule interval must be positive, got %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		fn(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// BuildJobs creates the jobs for the named sources, or for every configured source
// when names is empty.
func BuildJobs(cfg config.Config, names []string, opts source.Options) ([]Job, error) {
	selected := cfg.Sources
	if len(names) > 0 {
		selected = make([]config.SourceConfig, 0, len(names))
		for _, name := range names {
			sc, ok := cfg.Source(name)
			if !ok {
				return nil, fmt.Errorf("no source named %q is configured", name)
			}
			selected = append(selected, sc)
		}
	}

	jobs := make([]Job, 0, len(selected))
	for _, sc := range selected {
		src, err := source.New(sc, opts)
		if err != nil {
			return nil, err
		}
		if sc.BatchSize <= 0 {
			sc.BatchSize = cfg.EffectiveBatchSize(sc)
		}
		jobs = append(jobs, Job{Config: sc, Source: src})
	}
	return jobs, nil
}
