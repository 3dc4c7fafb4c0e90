// Package ratelimit paces requests against the recipe platform.
//
// Interval enforces a minimum gap between events and is used for the delay
// between recipe page loads and between search queries. TokenBucket caps
// the number of search requests per period. Chain combines several
// limiters. Every Wait honors context cancellation so an interrupted run
// stops promptly.
//
//	pace := ratelimit.NewInterval(cfg.Timing.DownloadDelay)
//	if err := pace.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit
