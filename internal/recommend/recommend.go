// Package recommend picks the next modules for a learner.
package recommend

import "github.com/p-n-ai/pai-learn/internal/catalog"

// MaxRecommendations caps the number of modules returned.
const MaxRecommendations = 3

// Modules returns up to MaxRecommendations modules of the course at the
// given level, preferring those tagged with a weak topic. When no module at
// the level shares a tag with weakTopics, every module at the level
// qualifies. Catalog order is preserved.
func Modules(course catalog.Course, level catalog.Level, weakTopics []string) []catalog.Module {
	level = level.OrDefault()

	weak := make(map[string]bool, len(weakTopics))
	for _, t := range weakTopics {
		if k := catalog.Key(t); k != "" {
			weak[k] = true
		}
	}

	var atLevel, targeted []catalog.Module
	for _, m := range course.Submodules {
		if m.Level() != level {
			continue
		}
		atLevel = append(atLevel, m)
		if sharesTag(m, weak) {
			targeted = append(targeted, m)
		}
	}

	picked := targeted
	if len(picked) == 0 {
		picked = atLevel
	}
	if len(picked) > MaxRecommendations {
		picked = picked[:MaxRecommendations]
	}
	if picked == nil {
		return []catalog.Module{}
	}
	return picked
}

func sharesTag(m catalog.Module, weak map[string]bool) bool {
	for _, tag := range m.Tags {
		if weak[catalog.Key(tag)] {
			return true
		}
	}
	return false
}
