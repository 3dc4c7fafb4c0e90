package cookidoo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonLDPage = `<html lang="de"><head>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
  {"@type":"WebPage","name":"ignored"},
  {"@type":"Recipe","name":"Brot &amp; Butter","inLanguage":"de-DE",
   "recipeIngredient":["500 g   Mehl","1 Würfel Hefe",""],
   "recipeInstructions":[{"@type":"HowToSection","itemListElement":[
     {"@type":"HowToStep","text":"Mehl sieben"},{"@type":"HowToStep","text":" Kneten "}]}],
   "nutrition":{"@type":"NutritionInformation","calories":"250 kcal","proteinContent":"8 g"},
   "keywords":"Brot, #Backen, brot","recipeCategory":"Hauptgericht",
   "aggregateRating":{"ratingValue":"4.5","ratingCount":120}}]}
</script></head>
<body>
<core-rating><span class="core-rating__counter">4.7</span><span class="core-rating__label">(1.234 Bewertungen)</span></core-rating>
<span class="rdp-tm-versions__name">TM6</span><span class="rdp-tm-versions__name">TM5</span>
</body></html>`

const htmlPage = `<html lang="fr"><head><title>Cookidoo</title></head><body>
<h1 class="recipe-card__title">  Tarte
   aux pommes </h1>
<ul id="ingredients"><li> 3 pommes </li><li>1 pâte</li><li>   </li></ul>
<ol id="preparation-steps"><li>Éplucher</li><li>Cuire</li></ol>
<div class="core-tags-wrapper__tags-container"><a>#Dessert</a><a>Été</a><a>dessert</a></div>
</body></html>`

func TestParseRecipeFromJSONLD(t *testing.T) {
	r, err := ParseRecipe(jsonLDPage, "r1", "https://cookidoo.de/recipes/recipe/de-DE/r1")
	require.NoError(t, err)

	assert.Equal(t, "r1", string(r.ID))
	assert.Equal(t, "https://cookidoo.de/recipes/recipe/de-DE/r1", r.SourceURL)
	assert.Equal(t, "de-DE", r.Language)
	assert.Equal(t, "Brot & Butter", r.Title)
	assert.Equal(t, []string{"500 g Mehl", "1 Würfel Hefe"}, r.Ingredients)
	assert.Equal(t, []string{"Mehl sieben", "Kneten"}, r.Steps)
	assert.Equal(t, map[string]string{"calories": "250 kcal", "proteincontent": "8 g"}, r.Nutritions)
	assert.Equal(t, []string{"brot", "backen", "hauptgericht"}, r.Tags)
	assert.Equal(t, []string{"TM5", "TM6"}, r.TMVersions)

	// The rendered rating widget wins over the structured aggregate
	require.NotNil(t, r.RatingScore)
	require.NotNil(t, r.RatingCount)
	assert.Equal(t, 4.7, *r.RatingScore)
	assert.Equal(t, 1234, *r.RatingCount)
}

func TestParseRecipeAggregateRatingFallback(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"@type":["Recipe"],"name":"Soup","recipeIngredient":["water"],
 "aggregateRating":{"ratingValue":4,"ratingCount":"17"}}</script></head><body></body></html>`

	r, err := ParseRecipe(page, "r2", "")
	require.NoError(t, err)
	require.NotNil(t, r.RatingScore)
	require.NotNil(t, r.RatingCount)
	assert.Equal(t, 4.0, *r.RatingScore)
	assert.Equal(t, 17, *r.RatingCount)
	assert.Equal(t, []string{"water"}, r.Ingredients)
}

func TestParseRecipeFromHTML(t *testing.T) {
	r, err := ParseRecipe(htmlPage, "r3", "https://cookidoo.fr/recipes/recipe/fr/r3")
	require.NoError(t, err)

	assert.Equal(t, "fr", r.Language)
	assert.Equal(t, "Tarte aux pommes", r.Title)
	assert.Equal(t, []string{"3 pommes", "1 pâte"}, r.Ingredients)
	assert.Equal(t, []string{"Éplucher", "Cuire"}, r.Steps)
	assert.Equal(t, []string{"dessert", "été"}, r.Tags)
	assert.Empty(t, r.TMVersions)
	assert.Nil(t, r.RatingScore)
	assert.Nil(t, r.RatingCount)
	assert.True(t, r.IsComplete())
}

func TestParseRecipeIncompleteJSONLDFallsBackToHTML(t *testing.T) {
	page := `<html lang="fr"><head><script type="application/ld+json">{"@type":"Recipe","name":"Empty"}</script></head>
<body><h1>Quiche</h1><ul id="ingredients"><li>oeufs</li></ul></body></html>`

	r, err := ParseRecipe(page, "r4", "")
	require.NoError(t, err)
	assert.Equal(t, "Quiche", r.Title)
	assert.Equal(t, []string{"oeufs"}, r.Ingredients)
}

func TestParseRecipeWithoutContent(t *testing.T) {
	r, err := ParseRecipe(`<html><head><title>Not found</title></head><body></body></html>`, "r5", "")
	require.NoError(t, err)
	assert.False(t, r.IsComplete())
	assert.Equal(t, "Not found", r.Title)
}

func TestParseRecipeSkipsBrokenJSONLD(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{not json</script>
<script type="application/ld+json">{"@type":"Recipe","name":"Ok","recipeInstructions":"Stir well"}</script>
</head></html>`

	r, err := ParseRecipe(page, "r6", "")
	require.NoError(t, err)
	assert.Equal(t, "Ok", r.Title)
	assert.Equal(t, []string{"Stir well"}, r.Steps)
}

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		lang string
		want []string
	}{
		{"dedupes after lowering", []string{"Vegan", "vegan", " VEGAN "}, "en", []string{"vegan"}},
		{"strips hashes", []string{"#quick", "##easy"}, "en", []string{"quick", "easy"}},
		{"drops empties", []string{"", "  ", "#"}, "en", nil},
		{"language specific casing", []string{"KIŞ"}, "tr", []string{"kış"}},
		{"unknown language", []string{"Abc"}, "", []string{"abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeTags(tt.tags, tt.lang))
		})
	}
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "a b c", cleanText("  a\n\tb   c "))
	assert.Equal(t, "", cleanText(" \n "))
}
