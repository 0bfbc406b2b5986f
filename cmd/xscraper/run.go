package main

import (
	"errors"
	"fmt"

	"xscraper/internal/batch"
	"xscraper/pkg/fetcher"
)

// runBatch fetches every target through the worker pool, saves each
// non-empty result as a JSON batch, and reports per-target outcomes.
// It returns an error when any target failed.
func runBatch(a *app, kind fetcher.Kind, targets []string, limit, workers int) error {
	pool := batch.NewPool(workers, a.fetcher, a.logger)
	pool.Start()

	go func() {
		for _, target := range targets {
			if err := pool.Submit(batch.Job{Request: fetcher.Request{
				Kind:   kind,
				Target: target,
				Limit:  limit,
			}}); err != nil {
				a.logger.WithError(err).Error("submitting fetch job")
			}
		}
		pool.Stop()
	}()

	var failures int
	for result := range pool.Results() {
		target := result.Job.Request.Target
		if result.Err != nil {
			failures++
			var exhausted *fetcher.ExhaustedError
			if errors.As(result.Err, &exhausted) {
				fmt.Printf("FAILED  %-30s  all sources exhausted (last: %v)\n", target, exhausted.LastErr)
			} else {
				fmt.Printf("FAILED  %-30s  %v\n", target, result.Err)
			}
			continue
		}

		if len(result.Records) == 0 {
			fmt.Printf("EMPTY   %-30s  no matching records\n", target)
			continue
		}

		path, err := a.storage.SaveBatch(string(kind), target, result.Records)
		if err != nil {
			failures++
			fmt.Printf("FAILED  %-30s  saving batch: %v\n", target, err)
			continue
		}
		fmt.Printf("OK      %-30s  %d records -> %s\n", target, len(result.Records), path)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d targets failed", failures, len(targets))
	}
	return nil
}
