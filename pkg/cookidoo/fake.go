package cookidoo

import (
	"context"
	"fmt"
	"sync"

	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/recipe"
)

// FakeDriver is an in-memory Driver for tests. Recipes are
// served from a fixed catalogue and failures can be scripted per id.
type FakeDriver struct {
	mu sync.Mutex

	// AuthErr is returned by Authenticate when set
	AuthErr error
	// ListErr is returned by ListRecipeIDs when set
	ListErr error

	ids      []recipe.ID
	recipes  map[recipe.ID]*recipe.Recipe
	failures map[recipe.ID][]error
	hooks    map[recipe.ID]func()
	calls    map[recipe.ID]int
	order    []recipe.ID
	closed   bool
}

// NewFakeDriver serves recipes in the given listing order
func NewFakeDriver(recipes ...*recipe.Recipe) *FakeDriver {
	f := &FakeDriver{
		recipes:  make(map[recipe.ID]*recipe.Recipe),
		failures: make(map[recipe.ID][]error),
		hooks:    make(map[recipe.ID]func()),
		calls:    make(map[recipe.ID]int),
	}
	for _, r := range recipes {
		f.ids = append(f.ids, r.ID)
		f.recipes[r.ID] = r
	}
	return f
}

// AddListing lists ids that have no recipe behind them
func (f *FakeDriver) AddListing(ids ...recipe.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, ids...)
}

// FailNext queues errors returned by the next fetches of id, one per call
func (f *FakeDriver) FailNext(id recipe.ID, errors ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id] = append(f.failures[id], errors...)
}

// FailTimes queues n retryable network failures for id
func (f *FakeDriver) FailTimes(id recipe.ID, n int) {
	for i := 0; i < n; i++ {
		f.FailNext(id, errs.Fetch(string(id), fmt.Sprintf("scripted failure %d", i+1),
			errs.New(errs.ErrorTypeNetwork, "connection reset")))
	}
}

// OnFetch runs hook before id is served
func (f *FakeDriver) OnFetch(id recipe.ID, hook func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[id] = hook
}

// Calls returns how often id was fetched
func (f *FakeDriver) Calls(id recipe.ID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// Fetched returns every fetch in call order, repeats included
func (f *FakeDriver) Fetched() []recipe.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recipe.ID(nil), f.order...)
}

// Closed reports whether Close was called
func (f *FakeDriver) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Authenticate implements Driver
func (f *FakeDriver) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.AuthErr != nil {
		return nil, f.AuthErr
	}
	return &Session{ID: "fake-session", Locale: creds.Locale}, nil
}

// ListRecipeIDs implements Driver
func (f *FakeDriver) ListRecipeIDs(ctx context.Context, s *Session) ([]recipe.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]recipe.ID(nil), f.ids...), nil
}

// FetchRecipe implements Driver
func (f *FakeDriver) FetchRecipe(ctx context.Context, s *Session, id recipe.ID) (*recipe.Recipe, error) {
	f.mu.Lock()
	f.calls[id]++
	f.order = append(f.order, id)
	hook := f.hooks[id]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if queued := f.failures[id]; len(queued) > 0 {
		f.failures[id] = queued[1:]
		return nil, queued[0]
	}

	r, ok := f.recipes[id]
	if !ok {
		return nil, &errs.Error{Type: errs.ErrorTypeNotFound, RecipeID: string(id), Code: 404, Message: "recipe not found"}
	}
	copied := *r
	if copied.SourceURL == "" {
		copied.SourceURL = RecipeURL(s.Locale, id)
	}
	return &copied, nil
}

// Close implements Driver
func (f *FakeDriver) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
