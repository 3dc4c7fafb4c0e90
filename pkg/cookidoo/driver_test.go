package cookidoo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/recipe"
)

func TestURLHelpers(t *testing.T) {
	tests := []struct {
		locale    string
		base      string
		urlLocale string
		lang      string
	}{
		{"de", "https://cookidoo.de/", "de-DE", "de"},
		{"fr", "https://cookidoo.fr/", "fr-FR", "fr"},
		{"de-CH", "https://cookidoo.de-CH/", "de-CH", "de"},
		{"co.uk", "https://cookidoo.co.uk/", "co.uk", "co.uk"},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.base, BaseURL(tt.locale))
			assert.Equal(t, tt.urlLocale, URLLocale(tt.locale))
			assert.Equal(t, tt.lang, Language(tt.locale))
		})
	}

	assert.Equal(t, "https://cookidoo.de/recipes/recipe/de-DE/r123", RecipeURL("de", "r123"))
	assert.Equal(t, "https://cookidoo.it/", (&Session{Locale: "it"}).BaseURL())
}

func TestFakeDriver(t *testing.T) {
	ctx := context.Background()
	f := NewFakeDriver(
		&recipe.Recipe{ID: "r1", Title: "One", Steps: []string{"a"}},
		&recipe.Recipe{ID: "r2", Title: "Two", Steps: []string{"b"}},
	)
	var _ Driver = f

	s, err := f.Authenticate(ctx, Credentials{Username: "u", Password: "p", Locale: "de"})
	require.NoError(t, err)

	ids, err := f.ListRecipeIDs(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, []recipe.ID{"r1", "r2"}, ids)

	f.FailTimes("r1", 1)
	_, err = f.FetchRecipe(ctx, s, "r1")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeFetch, errs.TypeOf(err))

	r, err := f.FetchRecipe(ctx, s, "r1")
	require.NoError(t, err)
	assert.Equal(t, "One", r.Title)
	assert.Equal(t, RecipeURL("de", "r1"), r.SourceURL)
	assert.Equal(t, 2, f.Calls("r1"))

	_, err = f.FetchRecipe(ctx, s, "r9")
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNotFound, errs.TypeOf(err))

	assert.Equal(t, []recipe.ID{"r1", "r1", "r9"}, f.Fetched())

	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
}

func TestFakeDriverAuthError(t *testing.T) {
	f := NewFakeDriver()
	f.AuthErr = errs.Auth("bad password", nil)

	_, err := f.Authenticate(context.Background(), Credentials{})
	assert.True(t, errs.IsAuth(err))
}
