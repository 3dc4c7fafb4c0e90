package cookidoo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/logger"
	"recipescraper/pkg/ratelimit"
	"recipescraper/pkg/recipe"
)

var (
	emailSelectors = []string{
		`input[type="email"]`,
		`input[name="email"]`,
		`input[name="username"]`,
		`input[id*="email" i]`,
		`input[id*="user" i]`,
	}
	passwordSelectors = []string{
		`input[type="password"]`,
		`input[name="password"]`,
		`input[name*="pass" i]`,
		`input[id*="pass" i]`,
	}
)

const (
	profileSelector = "core-user-profile"
	cookieSelector  = ".accept-cookie-container"
	submitSelector  = `button[type="submit"], input[type="submit"]`
	contentSelector = "#ingredients li, .core-ingredient, [class*='ingredient'], script[type='application/ld+json']"
)

// BrowserOptions configures the headless browser driver
type BrowserOptions struct {
	Headless        bool
	ChromePath      string
	UserAgent       string
	PageLoadTimeout time.Duration
	RequestTimeout  time.Duration
	SearchDelay     time.Duration
	SearchPerMinute int
}

// BrowserDriver implements Driver with a headless Chrome controlled over
// the DevTools protocol. It is not safe for concurrent use; one tab serves
// every call.
type BrowserDriver struct {
	opts        BrowserOptions
	logger      logger.Logger
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	session     *Session
}

// NewBrowserDriver starts a browser process with opts
func NewBrowserDriver(opts BrowserOptions, log logger.Logger) (*BrowserDriver, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1280, 1024),
	)
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug(fmt.Sprintf(format, args...))
	}))

	// Start the browser eagerly so a missing Chrome is reported up front
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	logger.LogComponentStart(log, "browser", map[string]interface{}{
		"headless":    opts.Headless,
		"chrome_path": opts.ChromePath,
	})

	return &BrowserDriver{
		opts:        opts,
		logger:      log,
		allocCancel: allocCancel,
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// run executes actions on the tab, bounded by the request timeout and
// cancelled together with ctx
func (d *BrowserDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(d.tabCtx, d.opts.RequestTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// exists reports whether selector matches right now, without waiting
func (d *BrowserDriver) exists(ctx context.Context, selector string) bool {
	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	return err == nil && len(nodes) > 0
}

// firstExisting returns the first selector that currently matches
func (d *BrowserDriver) firstExisting(ctx context.Context, selectors []string) string {
	for _, sel := range selectors {
		if d.exists(ctx, sel) {
			return sel
		}
	}
	return ""
}

// navigate loads url and gives client side rendering time to settle
func (d *BrowserDriver) navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(d.opts.PageLoadTimeout),
	)
}

func (d *BrowserDriver) dismissCookieBanner(ctx context.Context) {
	if !d.exists(ctx, cookieSelector) {
		return
	}
	if err := d.run(ctx, chromedp.Click(cookieSelector, chromedp.ByQuery, chromedp.NodeVisible), chromedp.Sleep(300*time.Millisecond)); err != nil {
		d.logger.WithError(err).Debug("Cookie banner not dismissed")
	}
}

// Authenticate logs in with creds, trying the login page first and the
// home page second
func (d *BrowserDriver) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, errs.Auth("username and password are required", nil)
	}

	base := BaseURL(creds.Locale)
	var lastErr error
	for _, url := range []string{base + "profile/login", base} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := d.tryLogin(ctx, url, creds)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			d.logger.WithError(err).WithField("url", url).Debug("Login attempt failed")
			continue
		}
		if ok {
			d.session = &Session{ID: uuid.NewString(), Locale: creds.Locale}
			d.logger.WithField("session_id", d.session.ID).Info("Login successful")
			return d.session, nil
		}
	}

	return nil, errs.Auth("login failed, check credentials", lastErr)
}

func (d *BrowserDriver) tryLogin(ctx context.Context, url string, creds Credentials) (bool, error) {
	if err := d.navigate(ctx, url); err != nil {
		return false, err
	}
	d.dismissCookieBanner(ctx)

	if d.exists(ctx, profileSelector) {
		d.logger.Info("Already logged in")
		return true, nil
	}

	emailSel := d.firstExisting(ctx, emailSelectors)
	passSel := d.firstExisting(ctx, passwordSelectors)
	if emailSel == "" || passSel == "" {
		return false, fmt.Errorf("login form not found on %s", url)
	}

	if err := d.run(ctx,
		chromedp.SetValue(emailSel, "", chromedp.ByQuery),
		chromedp.SendKeys(emailSel, creds.Username, chromedp.ByQuery),
		chromedp.SetValue(passSel, "", chromedp.ByQuery),
		chromedp.SendKeys(passSel, creds.Password, chromedp.ByQuery),
	); err != nil {
		return false, fmt.Errorf("failed to fill login form: %w", err)
	}

	submit := chromedp.Action(chromedp.SendKeys(passSel, kb.Enter, chromedp.ByQuery))
	if d.exists(ctx, submitSelector) {
		submit = chromedp.Click(submitSelector, chromedp.ByQuery)
	}
	if err := d.run(ctx, submit, chromedp.Sleep(d.opts.PageLoadTimeout)); err != nil {
		return false, fmt.Errorf("failed to submit login form: %w", err)
	}

	return d.exists(ctx, profileSelector), nil
}

// ListRecipeIDs reads the search backend settings from the search page and
// enumerates every recipe id for the session language
func (d *BrowserDriver) ListRecipeIDs(ctx context.Context, s *Session) ([]recipe.ID, error) {
	var page string
	if err := d.run(ctx,
		chromedp.Navigate(s.BaseURL()+"search/"),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to load search page")
	}

	cfg, err := ParseSearchConfig(page, s.Locale)
	if err != nil {
		return nil, err
	}
	d.logger.InfoWithFields("Search backend found", map[string]interface{}{
		"index":  cfg.Index,
		"filter": "language:" + cfg.Language,
	})

	perMinute := d.opts.SearchPerMinute
	if perMinute <= 0 {
		perMinute = 600
	}
	limiter := ratelimit.Chain{
		ratelimit.NewInterval(d.opts.SearchDelay),
		ratelimit.NewTokenBucket(perMinute, time.Minute),
	}
	return NewSearchClient(cfg, d.opts.RequestTimeout, limiter, d.logger).Discover(ctx)
}

// FetchRecipe loads the detail page for id and parses it
func (d *BrowserDriver) FetchRecipe(ctx context.Context, s *Session, id recipe.ID) (*recipe.Recipe, error) {
	url := RecipeURL(s.Locale, id)

	if err := d.navigate(ctx, url); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Fetch(string(id), "page did not load", err)
	}

	// Content renders client side; a page without it is still parsed
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	_ = d.run(waitCtx, chromedp.WaitReady(contentSelector, chromedp.ByQuery))
	cancel()

	d.dismissCookieBanner(ctx)

	var page, location string
	if err := d.run(ctx,
		// A <base> tag rewrites relative links in the serialized page
		chromedp.Evaluate(`document.querySelectorAll("base").forEach(function (el) { el.remove(); })`, nil),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &page, chromedp.ByQuery),
	); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Fetch(string(id), "failed to read page", err)
	}

	if strings.Contains(location, "/profile/login") {
		return nil, errs.Auth("session expired while fetching "+string(id), nil)
	}

	return ParseRecipe(page, id, location)
}

// Close logs out when a session exists and stops the browser
func (d *BrowserDriver) Close() error {
	if d.session != nil {
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.RequestTimeout)
		if err := d.navigate(ctx, d.session.BaseURL()+"profile/logout"); err != nil {
			d.logger.WithError(err).Debug("Logout failed")
		}
		cancel()
		d.session = nil
	}

	d.tabCancel()
	d.allocCancel()
	return nil
}
