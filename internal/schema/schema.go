// Package schema validates question and answer payloads at the API
// boundary, before they are decoded into domain types.
package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	//go:embed question.json
	questionJSON string
	//go:embed answer.json
	answerJSON string

	questionSchema = mustLoad("question", questionJSON)
	answerSchema   = mustLoad("answer", answerJSON)
)

func mustLoad(name, src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return s
}

// Error lists every violation found in a payload.
type Error struct {
	Details []string
}

func (e *Error) Error() string {
	return "schema violation: " + strings.Join(e.Details, "; ")
}

// ValidateQuestion checks a question payload.
func ValidateQuestion(raw []byte) error { return validate(questionSchema, raw) }

// ValidateAnswer checks an answer document payload ({"question","answer"}).
func ValidateAnswer(raw []byte) error { return validate(answerSchema, raw) }

func validate(s *gojsonschema.Schema, raw []byte) error {
	res, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return &Error{Details: []string{"invalid JSON: " + err.Error()}}
	}
	if res.Valid() {
		return nil
	}
	details := make([]string, 0, len(res.Errors()))
	for _, re := range res.Errors() {
		details = append(details, fmt.Sprintf("%s: %s", re.Field(), re.Description()))
	}
	sort.Strings(details)
	return &Error{Details: details}
}
