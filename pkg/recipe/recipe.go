package recipe

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Recipe is the artifact persisted for one recipe
type Recipe struct {
	ID          ID                `json:"id"`
	SourceURL   string            `json:"source_url"`
	Language    string            `json:"language"`
	Title       string            `json:"title"`
	RatingCount *int              `json:"rating_count"`
	RatingScore *float64          `json:"rating_score"`
	TMVersions  []string          `json:"tm_versions"`
	Ingredients []string          `json:"ingredients"`
	Nutritions  map[string]string `json:"nutritions"`
	Steps       []string          `json:"steps"`
	Tags        []string          `json:"tags"`
}

// IsComplete reports whether the recipe has ingredients or steps
func (r *Recipe) IsComplete() bool {
	return len(r.Ingredients) > 0 || len(r.Steps) > 0
}

// Marshal encodes the recipe as indented JSON. Output is deterministic:
// fields keep declaration order, map keys are sorted, and empty
// collections are written as [] and {} rather than null.
func (r *Recipe) Marshal() ([]byte, error) {
	out := *r
	if out.TMVersions == nil {
		out.TMVersions = []string{}
	}
	if out.Ingredients == nil {
		out.Ingredients = []string{}
	}
	if out.Steps == nil {
		out.Steps = []string{}
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if out.Nutritions == nil {
		out.Nutritions = map[string]string{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("failed to encode recipe %s: %w", r.ID, err)
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes an artifact. The legacy "tm-versions" key is accepted.
func Unmarshal(data []byte) (*Recipe, error) {
	var aux struct {
		Recipe
		LegacyTMVersions []string `json:"tm-versions"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return nil, fmt.Errorf("failed to decode recipe: %w", err)
	}
	r := aux.Recipe
	if len(r.TMVersions) == 0 && len(aux.LegacyTMVersions) > 0 {
		r.TMVersions = aux.LegacyTMVersions
	}
	return &r, nil
}
