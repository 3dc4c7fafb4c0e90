package scraper

import (
	"recipescraper/pkg/config"
	"recipescraper/pkg/recipe"
	"recipescraper/pkg/state"
)

// Plan is the ordered set of recipes a run will fetch
type Plan struct {
	// IDs to fetch, in discovery order
	IDs []recipe.ID
	// Unknown holds filter values that are not in the listing or are not valid ids
	Unknown []string
	// Skipped counts ids excluded by the run mode
	Skipped int
}

// PlanFetchSet selects the ids to fetch from allIDs. Duplicates are
// collapsed keeping the first occurrence. A non-empty filter is normalized
// and intersected with allIDs. skip excludes fetched ids; update and
// redownload keep everything. continue resumes only the pending and
// failed entries of an earlier run and behaves like skip when there are none.
func PlanFetchSet(allIDs []recipe.ID, st *state.State, mode config.RunMode, filter []string) Plan {
	var plan Plan
	ids := recipe.Dedupe(allIDs)

	if len(filter) > 0 {
		wanted, invalid := recipe.NormalizeIDs(filter)
		plan.Unknown = append(plan.Unknown, invalid...)

		known := make(map[recipe.ID]bool, len(ids))
		for _, id := range ids {
			known[id] = true
		}
		keep := make(map[recipe.ID]bool, len(wanted))
		for _, id := range wanted {
			if !known[id] {
				plan.Unknown = append(plan.Unknown, string(id))
				continue
			}
			keep[id] = true
		}

		filtered := ids[:0]
		for _, id := range ids {
			if keep[id] {
				filtered = append(filtered, id)
			}
		}
		ids = filtered
	}

	if mode == config.ModeContinue {
		if resume := unfinished(ids, st); len(resume) > 0 {
			plan.IDs = resume
			plan.Skipped = len(ids) - len(resume)
			return plan
		}
	}

	excludeFetched := mode == config.ModeSkip || mode == config.ModeContinue
	plan.IDs = make([]recipe.ID, 0, len(ids))
	for _, id := range ids {
		if excludeFetched && st != nil && st.IsFetched(id) {
			plan.Skipped++
			continue
		}
		plan.IDs = append(plan.IDs, id)
	}
	return plan
}

// unfinished returns the ids whose entry is pending or failed, in order
func unfinished(ids []recipe.ID, st *state.State) []recipe.ID {
	if st == nil {
		return nil
	}
	var out []recipe.ID
	for _, id := range ids {
		switch st.StatusOf(id) {
		case state.StatusPending, state.StatusFailed:
			out = append(out, id)
		}
	}
	return out
}
