package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"recipescraper/pkg/config"
	"recipescraper/pkg/cookidoo"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/ratelimit"
	"recipescraper/pkg/recipe"
	"recipescraper/pkg/retry"
	"recipescraper/pkg/state"
	"recipescraper/pkg/storage"
)

// Summary describes the outcome of one run
type Summary struct {
	RunID       string
	Mode        config.RunMode
	Discovered  int
	Planned     int
	Fetched     int
	Unchanged   int
	Failed      int
	Skipped     int
	Healed      int
	Adopted     int
	Unknown     []string
	FailedIDs   []recipe.ID
	Interrupted bool
	Duration    time.Duration
}

// Remaining returns how many planned recipes were not processed
func (s Summary) Remaining() int {
	return s.Planned - s.Fetched - s.Unchanged - s.Failed
}

// Dependencies are the collaborators of a Scraper. Only Driver is
// required; the rest are built from the configuration when nil.
type Dependencies struct {
	Driver   cookidoo.Driver
	Storage  *storage.Manager
	State    state.Repository
	Limiter  ratelimit.Limiter
	Logger   logger.Logger
	Reporter Reporter
}

// Scraper orchestrates a recipe download run
type Scraper struct {
	driver   cookidoo.Driver
	storage  *storage.Manager
	repo     state.Repository
	limiter  ratelimit.Limiter
	config   *config.Config
	logger   logger.Logger
	reporter Reporter
	now      func() time.Time

	state *state.State
}

type outcome int

const (
	outcomeWritten outcome = iota
	outcomeUnchanged
)

// New creates a new Scraper instance
func New(cfg *config.Config, deps Dependencies) (*Scraper, error) {
	if deps.Driver == nil {
		return nil, fmt.Errorf("a session driver is required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	store := deps.Storage
	if store == nil {
		var err error
		store, err = storage.NewManager(cfg.Run.OutputDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage manager: %w", err)
		}
	}

	repo := deps.State
	if repo == nil {
		repo = state.NewFileRepository(cfg.StatePath(), log)
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.NewInterval(cfg.Timing.DownloadDelay)
	}

	reporter := deps.Reporter
	if reporter == nil {
		reporter = nopReporter{}
	}

	return &Scraper{
		driver:   deps.Driver,
		storage:  store,
		repo:     repo,
		limiter:  limiter,
		config:   cfg,
		logger:   log,
		reporter: reporter,
		now:      time.Now,
	}, nil
}

// SetReporter sets the progress reporter
func (s *Scraper) SetReporter(r Reporter) {
	if r == nil {
		r = nopReporter{}
	}
	s.reporter = r
}

// Close releases the session driver
func (s *Scraper) Close() error {
	return s.driver.Close()
}

// loadState reads the state once per Scraper
func (s *Scraper) loadState() error {
	if s.state != nil {
		return nil
	}
	st, err := s.repo.Load()
	if err != nil {
		return fmt.Errorf("failed to load scrape state: %w", err)
	}
	s.state = st
	return nil
}

func (s *Scraper) saveState() {
	if s.state == nil {
		return
	}
	if err := s.repo.Save(s.state); err != nil {
		s.logger.WithError(err).Error("Failed to save scrape state")
	}
}

// Run authenticates, lists every recipe, plans the fetch set for the
// configured mode and fetches it sequentially. Per recipe failures are
// recorded and do not stop the run; authentication failures do. State is
// saved before Run returns.
func (s *Scraper) Run(ctx context.Context) (Summary, error) {
	start := s.now()
	summary := Summary{RunID: uuid.NewString(), Mode: s.config.Run.Mode}

	baseLogger := s.logger
	s.logger = baseLogger.WithField("run_id", summary.RunID)
	defer func() { s.logger = baseLogger }()

	s.logger.InfoWithFields("Starting run", map[string]interface{}{
		"mode":       string(summary.Mode),
		"output_dir": s.storage.OutputDir(),
		"locale":     s.config.Cookidoo.Locale,
	})

	if err := s.storage.Lock(); err != nil {
		return summary, err
	}
	defer func() {
		if err := s.storage.Unlock(); err != nil {
			s.logger.WithError(err).Warn("Failed to release output lock")
		}
	}()

	if _, err := s.storage.CleanTemp(); err != nil {
		s.logger.WithError(err).Warn("Failed to clean temporary files")
	}

	if err := s.loadState(); err != nil {
		return summary, err
	}
	defer s.saveState()

	session, err := s.driver.Authenticate(ctx, cookidoo.Credentials{
		Username: s.config.Cookidoo.Username,
		Password: s.config.Cookidoo.Password,
		Locale:   s.config.Cookidoo.Locale,
	})
	if err != nil {
		s.logger.WithError(err).Error("Authentication failed")
		if !errs.IsAuth(err) && ctx.Err() == nil {
			err = errs.Auth("could not reach the platform", err)
		}
		return s.finish(summary, start), err
	}

	allIDs, err := s.driver.ListRecipeIDs(ctx, session)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list recipes")
		return s.finish(summary, start), fmt.Errorf("failed to list recipes: %w", err)
	}
	allIDs = recipe.Dedupe(allIDs)
	summary.Discovered = len(allIDs)
	s.logger.WithField("count", len(allIDs)).Info("Recipes discovered")

	summary.Healed = s.healState()
	summary.Adopted = s.adoptArtifacts()

	plan := PlanFetchSet(allIDs, s.state, s.config.Run.Mode, s.config.Run.RecipeIDs)
	summary.Planned = len(plan.IDs)
	summary.Skipped = plan.Skipped
	summary.Unknown = plan.Unknown
	for _, id := range plan.Unknown {
		s.logger.WithField("recipe_id", id).Warn("Requested recipe is not in the listing, ignoring it")
	}

	at := s.now()
	for _, id := range plan.IDs {
		if _, ok := s.state.Get(id); !ok {
			s.state.MarkPending(id, at)
		}
	}
	s.saveState()

	s.logger.InfoWithFields("Fetch plan ready", map[string]interface{}{
		"planned": summary.Planned,
		"skipped": summary.Skipped,
		"unknown": len(summary.Unknown),
	})
	s.reporter.RunStarted(summary.Planned)

	interval := s.config.Run.SaveInterval
	if interval <= 0 {
		interval = 1
	}

	for i, id := range plan.IDs {
		if ctx.Err() != nil {
			break
		}

		result, err := s.fetchAndPersist(ctx, session, id)
		switch {
		case err == nil && result == outcomeUnchanged:
			summary.Unchanged++
		case err == nil:
			summary.Fetched++
		case ctx.Err() != nil:
			// interrupted mid-fetch; the entry stays pending
		case errs.IsAuth(err):
			s.logger.WithError(err).Error("Session rejected, aborting run")
			return s.finish(summary, start), err
		default:
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, id)
		}

		if done := i + 1; done%interval == 0 || done == len(plan.IDs) {
			logger.LogRunProgress(s.logger, done, len(plan.IDs), summary.Failed)
		}
	}

	if err := ctx.Err(); err != nil {
		summary.Interrupted = true
		s.logger.WithField("remaining", summary.Remaining()).Warn("Run interrupted")
		return s.finish(summary, start), err
	}

	return s.finish(summary, start), nil
}

func (s *Scraper) finish(summary Summary, start time.Time) Summary {
	summary.Duration = s.now().Sub(start)
	s.logger.InfoWithFields("Run finished", map[string]interface{}{
		"discovered": summary.Discovered,
		"planned":    summary.Planned,
		"fetched":    summary.Fetched,
		"unchanged":  summary.Unchanged,
		"failed":     summary.Failed,
		"skipped":    summary.Skipped,
		"duration":   summary.Duration.String(),
	})
	s.reporter.RunFinished(summary)
	return summary
}

// healState moves fetched entries without a usable artifact back to pending
func (s *Scraper) healState() int {
	healed := 0
	at := s.now()
	for _, id := range s.state.IDs(state.StatusFetched) {
		if s.storage.Exists(id) {
			continue
		}
		err := errs.StateCorruption(string(id), "marked fetched but the artifact is missing")
		s.logger.WithError(err).WithField("recipe_id", string(id)).Warn("Corrupted state entry, recipe will be fetched again")
		s.state.MarkPending(id, at)
		healed++
	}
	return healed
}

// adoptArtifacts records artifacts on disk that the state does not know
// about, e.g. from a run whose state file was lost. Incomplete artifacts
// are recorded as pending so a continue run revisits them.
func (s *Scraper) adoptArtifacts() int {
	scan, err := s.storage.Scan()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to scan output directory")
		return 0
	}

	adopted := 0
	at := s.now()
	for _, id := range scan.Complete {
		if _, ok := s.state.Get(id); !ok {
			s.state.MarkFetched(id, at, 0)
			adopted++
		}
	}
	if adopted > 0 {
		s.logger.WithField("count", adopted).Info("Adopted existing artifacts into state")
	}

	for _, id := range scan.Incomplete {
		if entry, ok := s.state.Get(id); !ok || entry.Status == state.StatusFetched {
			s.logger.WithField("recipe_id", string(id)).Info("Artifact has no ingredients or steps, marking it pending")
			s.state.MarkPending(id, at)
		}
	}
	return adopted
}

// FetchAndPersist fetches one recipe with bounded retry, writes its
// artifact atomically and records the outcome in the state. A final
// failure is recorded as failed and returned.
func (s *Scraper) FetchAndPersist(ctx context.Context, session *cookidoo.Session, id recipe.ID) error {
	if err := s.loadState(); err != nil {
		return err
	}
	_, err := s.fetchAndPersist(ctx, session, id)
	return err
}

func (s *Scraper) fetchAndPersist(ctx context.Context, session *cookidoo.Session, id recipe.ID) (outcome, error) {
	log := s.logger.WithField("recipe_id", string(id))
	s.reporter.FetchStarted(id)

	maxAttempts := s.config.Timing.MaxRetries + 1
	attempts := 0

	rec, err := retry.DoWithResult(func(attempt int) (*recipe.Recipe, error) {
		attempts = attempt
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		r, err := s.driver.FetchRecipe(ctx, session, id)
		if err != nil {
			return nil, err
		}
		if !r.IsComplete() {
			if attempt < maxAttempts {
				return nil, errs.Fetch(string(id), "recipe has no ingredients or steps", nil)
			}
			log.Warn("Recipe has no ingredients or steps, saving it anyway")
		}
		return r, nil
	}, &retry.Config{
		MaxAttempts: maxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: s.config.Timing.RetryDelay},
		Context:     ctx,
		Logger:      log,
		OnRetry: func(attempt int, err error, _ time.Duration) {
			s.reporter.FetchRetrying(id, attempt, err)
		},
	})

	if err == nil {
		var result outcome
		result, err = s.persist(id, rec)
		if err == nil {
			s.state.MarkFetched(id, s.now(), attempts)
			s.saveState()
			logger.LogFetch(log, string(id), attempts, nil)
			s.reporter.FetchCompleted(id, rec.Title)
			return result, nil
		}
	}

	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return 0, err
	}
	if errs.IsAuth(err) {
		s.reporter.FetchFailed(id, err)
		return 0, err
	}

	s.state.MarkFailed(id, s.now(), attempts, err.Error())
	s.saveState()
	logger.LogFetch(log, string(id), attempts, err)
	s.reporter.FetchFailed(id, err)
	return 0, err
}

// persist writes the artifact. In update mode an artifact whose encoding
// did not change is left untouched.
func (s *Scraper) persist(id recipe.ID, r *recipe.Recipe) (outcome, error) {
	r.ID = id
	data, err := r.Marshal()
	if err != nil {
		return 0, err
	}
	if s.config.Run.Mode == config.ModeUpdate && s.storage.Matches(id, data) {
		return outcomeUnchanged, nil
	}
	if err := s.storage.Write(id, data); err != nil {
		return 0, fmt.Errorf("failed to save recipe %s: %w", id, err)
	}
	return outcomeWritten, nil
}

// State returns the state loaded by the last run, or nil
func (s *Scraper) State() *state.State {
	return s.state
}
