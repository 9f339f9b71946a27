package vhc

import "sort"

// ItemScore is the per-item scoring breakdown for one applicable item.
type ItemScore struct {
	ItemID    string  `json:"itemId"`
	SectionID string  `json:"sectionId"`
	Answered  bool    `json:"answered"`
	Scored    bool    `json:"scored"`
	Score     float64 `json:"score,omitempty"`
	Band      Band    `json:"band,omitempty"`
}

// Compute derives the score set and progress for a response's answers
// against its pinned template snapshot. It is a pure function of
// (template, answers, powertrain): every call recomputes from the full
// answer list, so derived state can never drift from the answers.
func Compute(t Template, answers []Answer, p Powertrain) (ScoreSet, Progress) {
	byItem := indexAnswers(answers)

	scores := make(ScoreSet)
	var prog Progress
	var totalNum, totalWeight float64

	for _, sec := range t.Sections {
		if !sec.Applies(p) {
			continue
		}
		var secNum, secWeight float64
		for _, it := range sec.Items {
			if !it.Applies(p) {
				continue
			}
			prog.Total++
			ans, ok := byItem[it.ID]
			if !ok || !answered(it, ans) {
				continue
			}
			prog.Answered++
			score, ok := resolveScore(it, ans)
			if !ok {
				continue // answered but unscoreable
			}
			secNum += score * it.Weight
			secWeight += it.Weight
		}
		if secWeight > 0 {
			secScore := secNum / secWeight
			scores[sec.ID] = secScore
			totalNum += secScore * sec.Weight
			totalWeight += sec.Weight
		}
	}

	if totalWeight > 0 {
		scores[TotalScoreKey] = totalNum / totalWeight
	}
	if len(scores) == 0 {
		scores = nil
	}
	return scores, prog
}

// Breakdown returns the per-item resolution for every applicable item in
// display order. Used for the traffic-light column and findings indexing;
// the weighted aggregation in Compute is unaffected by it.
func Breakdown(t Template, answers []Answer, p Powertrain) []ItemScore {
	byItem := indexAnswers(answers)

	var out []ItemScore
	for _, sec := range orderedSections(t) {
		if !sec.Applies(p) {
			continue
		}
		for _, it := range orderedItems(sec) {
			if !it.Applies(p) {
				continue
			}
			is := ItemScore{ItemID: it.ID, SectionID: sec.ID}
			if ans, ok := byItem[it.ID]; ok && answered(it, ans) {
				is.Answered = true
				if score, ok := resolveScore(it, ans); ok {
					is.Scored = true
					is.Score = score
					is.Band = BandForScore(score)
				}
			}
			out = append(out, is)
		}
	}
	return out
}

// BandForScore maps a resolved 1-5 score to its display band.
func BandForScore(score float64) Band {
	switch {
	case score <= 2:
		return BandRed
	case score <= 3.5:
		return BandAmber
	default:
		return BandGreen
	}
}

// answered reports whether an item counts as answered: a value must be
// present, and photo-required items additionally need at least one photo.
func answered(it ItemTemplate, a Answer) bool {
	if a.Value == nil {
		return false
	}
	if it.PhotoRequired && len(a.Photos) == 0 {
		return false
	}
	return true
}

// resolveScore turns an answer into its 1-5 score, trying in order: the
// item's score map, threshold banding for continuous measurements, then
// the raw value when it is already on the scale.
func resolveScore(it ItemTemplate, a Answer) (float64, bool) {
	v := *a.Value

	if len(it.ScoreMap) > 0 {
		if score, ok := it.ScoreMap[v.Key()]; ok {
			return score, true
		}
	}

	if (it.Type == ItemRange || it.Type == ItemTreadDepth) && it.Thresholds != nil {
		if n, ok := v.Number(); ok {
			bands := it.bands
			if bands == nil {
				// Template was never compiled; parse once here.
				parsed, err := ParseThresholds(*it.Thresholds)
				if err != nil {
					return 0, false
				}
				bands = parsed
			}
			if band, ok := bands.Classify(n); ok {
				return bandScores[band], true
			}
			return 0, false
		}
	}

	if n, ok := v.Number(); ok && n >= 1 && n <= 5 {
		return n, true
	}
	return 0, false
}

// indexAnswers keys answers by item id. Later entries win, matching the
// upsert-by-itemId merge rule.
func indexAnswers(answers []Answer) map[string]Answer {
	m := make(map[string]Answer, len(answers))
	for _, a := range answers {
		m[a.ItemID] = a
	}
	return m
}

func orderedSections(t Template) []SectionTemplate {
	secs := make([]SectionTemplate, len(t.Sections))
	copy(secs, t.Sections)
	sort.SliceStable(secs, func(i, j int) bool { return secs[i].Order < secs[j].Order })
	return secs
}

func orderedItems(sec SectionTemplate) []ItemTemplate {
	items := make([]ItemTemplate, len(sec.Items))
	copy(items, sec.Items)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}
