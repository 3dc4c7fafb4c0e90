package cookidoo

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	errs "recipescraper/pkg/errors"
	"recipescraper/pkg/recipe"
)

var (
	ingredientSelectors = []string{
		"#ingredients li",
		".core-ingredient",
		"[class*='ingredient-item']",
		".recipe-ingredients li",
		"[data-ingredient]",
		".rdp-ingredients li",
	}
	stepSelectors = []string{
		"#preparation-steps li",
		".core-step",
		"[class*='step-item']",
		".recipe-steps li",
		".rdp-steps li",
		"[data-step]",
	}
	tmVersions = []string{"TM5", "TM6", "TM7"}

	spaces = regexp.MustCompile(`\s+`)
	digits = regexp.MustCompile(`\d+`)
)

// jsonLDNesting lists the keys that may hold further JSON-LD objects
var jsonLDNesting = []string{"@graph", "mainEntity", "mainEntityOfPage", "itemListElement", "hasPart"}

// ParseRecipe extracts a recipe from a rendered detail page. Structured
// JSON-LD data is preferred; HTML selectors are the fallback when it is
// missing or yields neither ingredients nor steps.
func ParseRecipe(page string, id recipe.ID, sourceURL string) (*recipe.Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, errs.Fetch(string(id), "failed to parse page", err)
	}

	if r := parseJSONLD(doc, id, sourceURL); r != nil && r.IsComplete() {
		return r, nil
	}
	return parseHTML(doc, id, sourceURL), nil
}

func parseJSONLD(doc *goquery.Document, id recipe.ID, sourceURL string) *recipe.Recipe {
	var found *recipe.Recipe
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var data interface{}
		if err := json.Unmarshal([]byte(s.Text()), &data); err != nil {
			return true
		}
		for _, obj := range jsonLDObjects(data) {
			if isRecipeType(obj) {
				found = recipeFromJSONLD(obj, doc, id, sourceURL)
				return false
			}
		}
		return true
	})
	return found
}

// jsonLDObjects flattens nested JSON-LD nodes in document order
func jsonLDObjects(node interface{}) []map[string]interface{} {
	var out []map[string]interface{}
	switch v := node.(type) {
	case map[string]interface{}:
		out = append(out, v)
		for _, key := range jsonLDNesting {
			if child, ok := v[key]; ok {
				out = append(out, jsonLDObjects(child)...)
			}
		}
	case []interface{}:
		for _, item := range v {
			out = append(out, jsonLDObjects(item)...)
		}
	}
	return out
}

func isRecipeType(obj map[string]interface{}) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, "recipe")
	case []interface{}:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "recipe") {
				return true
			}
		}
	}
	return false
}

func recipeFromJSONLD(obj map[string]interface{}, doc *goquery.Document, id recipe.ID, sourceURL string) *recipe.Recipe {
	score, count := extractRating(doc)

	var ingredients []string
	for _, item := range asList(obj["recipeIngredient"]) {
		if s := cleanText(fmt.Sprint(item)); s != "" {
			ingredients = append(ingredients, html.UnescapeString(s))
		}
	}

	var steps []string
	for _, s := range flattenSteps(obj["recipeInstructions"]) {
		steps = append(steps, html.UnescapeString(s))
	}

	var nutritions map[string]string
	if n, ok := obj["nutrition"].(map[string]interface{}); ok {
		nutritions = make(map[string]string)
		for k, v := range n {
			if strings.HasPrefix(k, "@") || v == nil {
				continue
			}
			nutritions[strings.ToLower(k)] = fmt.Sprint(v)
		}
	}

	if score == nil {
		if ar, ok := obj["aggregateRating"].(map[string]interface{}); ok {
			score = asFloat(ar["ratingValue"])
			count = asInt(ar["ratingCount"])
		}
	}

	lang, _ := obj["inLanguage"].(string)
	if lang == "" {
		lang, _ = doc.Find("html").Attr("lang")
	}
	name, _ := obj["name"].(string)

	return &recipe.Recipe{
		ID:          id,
		SourceURL:   sourceURL,
		Language:    lang,
		Title:       html.UnescapeString(strings.TrimSpace(name)),
		RatingScore: score,
		RatingCount: count,
		TMVersions:  extractTMVersions(doc),
		Ingredients: ingredients,
		Nutritions:  nutritions,
		Steps:       steps,
		Tags:        normalizeTags(jsonLDTags(obj), lang),
	}
}

// flattenSteps collects instruction texts from strings, HowToStep and
// HowToSection nodes
func flattenSteps(node interface{}) []string {
	var steps []string
	switch v := node.(type) {
	case string:
		if s := strings.TrimSpace(v); s != "" {
			steps = append(steps, s)
		}
	case map[string]interface{}:
		if s, ok := v["text"].(string); ok && strings.TrimSpace(s) != "" {
			steps = append(steps, strings.TrimSpace(s))
		}
		for _, key := range []string{"itemListElement", "steps", "step", "elements"} {
			for _, child := range asList(v[key]) {
				steps = append(steps, flattenSteps(child)...)
			}
		}
	case []interface{}:
		for _, item := range v {
			steps = append(steps, flattenSteps(item)...)
		}
	}
	return steps
}

func jsonLDTags(obj map[string]interface{}) []string {
	var tags []string
	switch kw := obj["keywords"].(type) {
	case string:
		tags = append(tags, strings.Split(kw, ",")...)
	case []interface{}:
		for _, t := range kw {
			tags = append(tags, fmt.Sprint(t))
		}
	}
	for _, key := range []string{"recipeCategory", "recipeCuisine"} {
		for _, t := range asList(obj[key]) {
			if s, ok := t.(string); ok {
				tags = append(tags, strings.Split(s, ",")...)
			}
		}
	}
	return tags
}

// normalizeTags lower-cases with the page language's rules, trims and
// removes duplicates keeping the first occurrence
func normalizeTags(tags []string, lang string) []string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}
	lower := cases.Lower(tag)

	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = lower.String(strings.TrimSpace(strings.ReplaceAll(t, "#", "")))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func parseHTML(doc *goquery.Document, id recipe.ID, sourceURL string) *recipe.Recipe {
	score, count := extractRating(doc)
	lang, _ := doc.Find("html").Attr("lang")

	var tags []string
	doc.Find(".core-tags-wrapper__tags-container a").Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, s.Text())
	})

	title := firstNonEmpty(
		firstText(doc, ".recipe-card__title"),
		firstText(doc, "h1"),
		firstText(doc, "title"),
	)

	return &recipe.Recipe{
		ID:          id,
		SourceURL:   sourceURL,
		Language:    lang,
		Title:       html.UnescapeString(title),
		RatingScore: score,
		RatingCount: count,
		TMVersions:  extractTMVersions(doc),
		Ingredients: textsBySelectors(doc, ingredientSelectors),
		Steps:       textsBySelectors(doc, stepSelectors),
		Tags:        normalizeTags(tags, lang),
	}
}

// textsBySelectors returns the texts of the first selector that matches
// anything non-empty
func textsBySelectors(doc *goquery.Document, selectors []string) []string {
	for _, sel := range selectors {
		var out []string
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			if t := cleanText(s.Text()); t != "" {
				out = append(out, html.UnescapeString(t))
			}
		})
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func extractRating(doc *goquery.Document) (*float64, *int) {
	var score *float64
	var count *int

	container := doc.Find("core-rating").First()
	if container.Length() == 0 {
		return nil, nil
	}

	if f, err := strconv.ParseFloat(strings.TrimSpace(container.Find(".core-rating__counter").First().Text()), 64); err == nil {
		score = &f
	}

	label := container.Find(".core-rating__label").First().Text()
	label = strings.NewReplacer(".", "", ",", "").Replace(label)
	if m := digits.FindString(label); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			count = &n
		}
	}
	return score, count
}

func extractTMVersions(doc *goquery.Document) []string {
	found := make(map[string]bool)
	collect := func(text string) {
		for _, tm := range tmVersions {
			if strings.Contains(text, tm) {
				found[tm] = true
			}
		}
	}

	doc.Find(".rdp-tm-versions__name, [class*='tm-version']").Each(func(_ int, s *goquery.Selection) {
		collect(s.Text())
	})
	if len(found) == 0 {
		collect(doc.Find(".recipe-card__header, .rdp-header").First().Text())
	}

	versions := make([]string, 0, len(found))
	for tm := range found {
		versions = append(versions, tm)
	}
	sort.Strings(versions)
	return versions
}

func firstText(doc *goquery.Document, selector string) string {
	return cleanText(doc.Find(selector).First().Text())
}

// cleanText collapses whitespace runs into single spaces
func cleanText(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func asList(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	default:
		return []interface{}{t}
	}
}

func asFloat(v interface{}) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func asInt(v interface{}) *int {
	f := asFloat(v)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}
