package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-curriculum/internal/curriculum"
)

// XLSX columns, matched case-insensitively against the header row.
const (
	colType        = "type"
	colPrompt      = "prompt"
	colCorrect     = "correct"
	colBlanks      = "blanks"
	colExplanation = "explanation"
	colAnswer      = "answer" // descriptive, Markdown
	colTags        = "tags"
)

var optionCols = []string{"option_a", "option_b", "option_c", "option_d", "option_e", "option_f"}

// RowError describes a workbook row that could not be imported.
type RowError struct {
	Row int    `json:"row"` // 1-based, as shown in a spreadsheet
	Err string `json:"error"`
}

// XLSX reads questions for unitID from the first sheet of a workbook.
// Valid rows are returned even when others fail.
func XLSX(r io.Reader, unitID string) ([]curriculum.Question, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", sheets[0])
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, req := range []string{colType, colPrompt} {
		if _, ok := header[req]; !ok {
			return nil, nil, fmt.Errorf("header row is missing column %q", req)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := header[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		out  []curriculum.Question
		errs []RowError
	)
	for n, row := range rows[1:] {
		rowNum := n + 2
		if blank(row) {
			continue
		}
		q := curriculum.Question{
			UnitID:      unitID,
			Type:        curriculum.QuestionType(strings.ToLower(cell(row, colType))),
			Prompt:      cell(row, colPrompt),
			Explanation: cell(row, colExplanation),
			Tags:        splitList(cell(row, colTags), ","),
			Position:    len(out),
		}
		switch q.Type {
		case curriculum.TypeMCQ:
			for _, c := range optionCols {
				if v := cell(row, c); v != "" {
					q.Options = append(q.Options, v)
				}
			}
			idx, err := parseCorrect(cell(row, colCorrect), len(q.Options))
			if err != nil {
				errs = append(errs, RowError{Row: rowNum, Err: err.Error()})
				continue
			}
			q.CorrectIndex = &idx
		case curriculum.TypeFillBlank:
			q.Blanks = splitList(cell(row, colBlanks), "|")
		case curriculum.TypeDescriptive:
			if md := cell(row, colAnswer); md != "" {
				q.Answer = Markdown([]byte(md), q.Prompt).Blocks
			}
		}
		if err := q.Validate(); err != nil {
			errs = append(errs, RowError{Row: rowNum, Err: err.Error()})
			continue
		}
		out = append(out, q)
	}
	return out, errs, nil
}

// parseCorrect accepts an option letter (A-F) or a 1-based number.
func parseCorrect(v string, options int) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, fmt.Errorf("mcq row has no correct answer")
	}
	idx := -1
	if len(v) == 1 {
		c := strings.ToUpper(v)[0]
		if c >= 'A' && c <= 'F' {
			idx = int(c - 'A')
		}
	}
	if idx < 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("correct %q is neither a letter nor a number", v)
		}
		idx = n - 1
	}
	if idx < 0 || idx >= options {
		return 0, fmt.Errorf("correct %q does not name one of %d options", v, options)
	}
	return idx, nil
}

func splitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
