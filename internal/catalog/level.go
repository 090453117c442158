package catalog

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Level is a learner proficiency tier, also used as question difficulty.
type Level string

const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// Levels lists every level from lowest to highest.
var Levels = []Level{Beginner, Intermediate, Advanced}

// ParseLevel accepts any casing of a level name.
func ParseLevel(s string) (Level, error) {
	switch Level(Key(s)) {
	case Beginner:
		return Beginner, nil
	case Intermediate:
		return Intermediate, nil
	case Advanced:
		return Advanced, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// OrDefault returns Beginner for the zero value.
func (l Level) OrDefault() Level {
	if l == "" {
		return Beginner
	}
	return l
}

// Title returns the display form, e.g. "Advanced".
func (l Level) Title() string {
	return cases.Title(language.English).String(string(l.OrDefault()))
}

// ModuleLevel classifies a module by its title: "advanced" wins over
// "intermediate", anything else is beginner.
func ModuleLevel(title string) Level {
	t := Key(title)
	switch {
	case strings.Contains(t, string(Advanced)):
		return Advanced
	case strings.Contains(t, string(Intermediate)):
		return Intermediate
	default:
		return Beginner
	}
}
