// Package scraper orchestrates a recipe download run.
//
// The scraper package coordinates the session driver, the artifact storage
// and the scrape state for one invocation.
//
// Architecture:
//
// The Scraper struct is the main component that:
//   - Authenticates through a cookidoo.Driver and lists every recipe id
//   - Heals state entries whose artifact disappeared
//   - Plans the fetch set for the run mode (skip, update, redownload, continue)
//   - Fetches recipes one at a time with bounded retry
//   - Writes artifacts atomically and records each outcome in the state
//
// Usage:
//
//	driver, err := cookidoo.NewBrowserDriver(opts, log)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	s, err := scraper.New(cfg, scraper.Dependencies{Driver: driver, Logger: log})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	summary, err := s.Run(ctx)
//
// Run Modes:
//
// skip and continue leave recipes marked fetched alone. update fetches
// everything but does not rewrite an artifact whose content is unchanged.
// redownload fetches and rewrites everything.
//
// Failures:
//
// A recipe that still fails after the configured retries is marked failed
// and the run moves on. An authentication failure aborts the run. The state
// is saved after every recipe and again before Run returns.
package scraper
