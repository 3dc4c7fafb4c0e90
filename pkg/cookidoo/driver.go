package cookidoo

import (
	"context"
	"fmt"
	"strings"

	"recipescraper/pkg/recipe"
)

// Credentials identify the account used for a session
type Credentials struct {
	Username string
	Password string
	Locale   string
}

// Session is an authenticated connection to the platform
type Session struct {
	// ID correlates log lines for one login
	ID     string
	Locale string
}

// BaseURL returns the platform root for the session locale
func (s *Session) BaseURL() string {
	return BaseURL(s.Locale)
}

// Driver is the contract the fetch orchestrator relies on
type Driver interface {
	// Authenticate logs in; rejection is reported as an auth error
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)
	// ListRecipeIDs returns every recipe id visible to the session in discovery order
	ListRecipeIDs(ctx context.Context, s *Session) ([]recipe.ID, error)
	// FetchRecipe loads and parses one recipe; failures are fetch errors
	FetchRecipe(ctx context.Context, s *Session, id recipe.ID) (*recipe.Recipe, error)
	// Close logs out and releases resources
	Close() error
}

// BaseURL returns "https://cookidoo.<locale>/"
func BaseURL(locale string) string {
	return fmt.Sprintf("https://cookidoo.%s/", locale)
}

// URLLocale turns a two letter locale into its "xx-XX" form
func URLLocale(locale string) string {
	lang := strings.SplitN(locale, "-", 2)[0]
	if len(lang) == 2 && lang == locale {
		return lang + "-" + strings.ToUpper(lang)
	}
	return locale
}

// Language returns the language part of the locale
func Language(locale string) string {
	return strings.ToLower(strings.SplitN(locale, "-", 2)[0])
}

// RecipeURL returns the detail page for id
func RecipeURL(locale string, id recipe.ID) string {
	return fmt.Sprintf("%srecipes/recipe/%s/%s", BaseURL(locale), URLLocale(locale), id)
}
