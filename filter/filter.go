package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/s0up4200/plex2letterboxd/plex"
)

// Filter is a compiled expression evaluated against each history record.
// A Filter is safe for concurrent use.
type Filter struct {
	expression string
	program    *vm.Program
}

// Compile compiles an expression. Unknown identifiers are rejected here
// rather than at evaluation time.
func Compile(expression string) (*Filter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(newEnv(plex.HistoryRecord{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	return &Filter{
		expression: expression,
		program:    program,
	}, nil
}

// Match reports whether the record satisfies the filter
func (f *Filter) Match(record plex.HistoryRecord) (bool, error) {
	result, err := expr.Run(f.program, newEnv(record))
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Title:      record.Title,
			Reason:     "evaluation failed",
			Err:        err,
		}
	}

	matched, ok := result.(bool)
	if !ok {
		return false, &EvaluationError{
			Expression: f.expression,
			Title:      record.Title,
			Reason:     fmt.Sprintf("expected bool, got %T", result),
		}
	}
	return matched, nil
}

// newEnv exposes a record and the helper functions to expressions
func newEnv(record plex.HistoryRecord) map[string]any {
	env := make(map[string]any, 16)
	addHelperFunctions(env)

	viewed := record.Viewed()
	env["Title"] = record.Title
	env["SectionID"] = record.LibrarySectionID
	env["ViewedAt"] = record.ViewedAt
	env["Viewed"] = viewed
	env["Year"] = viewed.Year()
	env["HasRatingKey"] = record.RatingKey != nil
	env["RatingKey"] = ""
	if record.RatingKey != nil {
		env["RatingKey"] = *record.RatingKey
	}

	return env
}

// addHelperFunctions adds all helper functions to the provided map
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["daysSince"] = func(t time.Time) int {
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	env["monthsAgo"] = func(months int) time.Time {
		return time.Now().AddDate(0, -months, 0)
	}
	env["yearsAgo"] = func(years int) time.Time {
		return time.Now().AddDate(-years, 0, 0)
	}
	env["parseDate"] = func(dateStr string) time.Time {
		t, _ := time.Parse(plex.DateLayout, dateStr)
		return t
	}
	// Case-insensitive string helpers
	env["icontains"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["iequals"] = strings.EqualFold
}
