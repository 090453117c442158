package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/courses.schema.json
var coursesSchema string

//go:embed schema/question_bank.schema.json
var questionBankSchema string

// SchemaError lists every violation found in a catalog document.
type SchemaError struct {
	Document   string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %d schema violation(s): %s",
		e.Document, len(e.Violations), strings.Join(e.Violations, "; "))
}

// ValidateCourses checks a courses document (JSON or YAML) against the embedded schema.
func ValidateCourses(data []byte) error {
	return validate("courses", coursesSchema, data)
}

// ValidateQuestionBank checks a question bank document (JSON or YAML) against the embedded schema.
func ValidateQuestionBank(data []byte) error {
	return validate("question bank", questionBankSchema, data)
}

func validate(name, schema string, data []byte) error {
	// yaml.v3 reads JSON too; re-encode so the validator always sees JSON.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s document: %w", name, err)
	}
	if doc == nil {
		return &SchemaError{Document: name, Violations: []string{"document is empty"}}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s document: %w", name, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("validating %s document: %w", name, err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return &SchemaError{Document: name, Violations: violations}
}
