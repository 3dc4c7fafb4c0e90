package scraper

import "recipescraper/pkg/recipe"

// Reporter receives run progress for display. Implementations must not
// block; the orchestrator calls them inline.
type Reporter interface {
	RunStarted(total int)
	FetchStarted(id recipe.ID)
	FetchRetrying(id recipe.ID, attempt int, err error)
	FetchCompleted(id recipe.ID, title string)
	FetchFailed(id recipe.ID, err error)
	RunFinished(summary Summary)
}

type nopReporter struct{}

func (nopReporter) RunStarted(int)                      {}
func (nopReporter) FetchStarted(recipe.ID)              {}
func (nopReporter) FetchRetrying(recipe.ID, int, error) {}
func (nopReporter) FetchCompleted(recipe.ID, string)    {}
func (nopReporter) FetchFailed(recipe.ID, error)        {}
func (nopReporter) RunFinished(Summary)                 {}
