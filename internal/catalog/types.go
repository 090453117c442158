package catalog

// Question is a pre-assessment question from the question bank.
type Question struct {
	Text             string   `json:"question" yaml:"question"`
	Options          []string `json:"options" yaml:"options"`
	CorrectAnswer    string   `json:"correct_answer" yaml:"answer"`
	Difficulty       Level    `json:"difficulty" yaml:"difficulty"`
	Topic            string   `json:"topic" yaml:"topic"`
	RelatedSubmodule string   `json:"related_submodule,omitempty" yaml:"related_submodule"`
}

// ModuleQuestion is one entry of a module's fixed assessment.
type ModuleQuestion struct {
	Question string   `json:"question" yaml:"question"`
	Options  []string `json:"options" yaml:"options"`
	Answer   string   `json:"answer" yaml:"answer"`
}

// Module is a course submodule with its tags and embedded assessment.
type Module struct {
	Key         string           `json:"-" yaml:"-"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description,omitempty" yaml:"description"`
	Content     string           `json:"content,omitempty" yaml:"content"`
	Tags        []string         `json:"tags" yaml:"tags"`
	Assessment  []ModuleQuestion `json:"assessment,omitempty" yaml:"assessment"`
}

// Level derives the module's level from its title.
func (m Module) Level() Level {
	return ModuleLevel(m.Title)
}

// HasAssessment reports whether the module carries a non-empty quiz.
func (m Module) HasAssessment() bool {
	return len(m.Assessment) > 0
}

// Course groups submodules under a unique, case-insensitive name.
type Course struct {
	Key         string   `json:"-" yaml:"-"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Submodules  []Module `json:"submodules" yaml:"submodules"`
}

// Module looks up a submodule by title, ignoring case and surrounding space.
func (c Course) Module(title string) (Module, bool) {
	key := Key(title)
	for _, m := range c.Submodules {
		if m.Key == key {
			return m, true
		}
	}
	return Module{}, false
}

// Topic is one question bank entry: a topic name and its questions.
type Topic struct {
	Topic     string     `yaml:"topic"`
	Questions []Question `yaml:"questions"`
}

type coursesDocument struct {
	Courses []Course `yaml:"courses"`
}

type questionBankDocument struct {
	QuestionBank []Topic `yaml:"question_bank"`
}
