// Command validate performs integrity checks on a felt-reports JSON file as
// written by the file store. It verifies that ids are sequential and unique,
// that every score is within range, that submission times are RFC 3339 UTC,
// and that each stored magnitude is reproduced by the strategy that made it.
//
// Usage:
//
//	go run ./cmd/validate -reports reports.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	reportsPath := flag.String("reports", "reports.json", "path to the felt-reports JSON file")
	trees := flag.Int("trees", estimator.DefaultTrees, "regression forest size the service ran with")
	seed := flag.Uint64("seed", estimator.DefaultSeed, "regression seed the service ran with")
	flag.Parse()

	if code := run(*reportsPath, *trees, *seed, os.Stdout); code != 0 {
		os.Exit(code)
	}
}

func run(path string, trees int, seed uint64, out io.Writer) int {
	fmt.Fprintln(out, "=== Felt Report Integrity Validation ===")
	fmt.Fprintln(out)

	reports, err := loadReports(path)
	if err != nil {
		fmt.Fprintf(out, "FATAL: load reports: %v\n", err)
		return 1
	}

	regression, err := estimator.NewRegression(trees, seed)
	if err != nil {
		fmt.Fprintf(out, "FATAL: fit regression: %v\n", err)
		return 1
	}
	estimators := estimator.NewSet(estimator.Formula{}, regression)

	phases := []*phase{
		validateIDs(reports),
		validateScores(reports),
		validateTimestamps(reports),
		validateMagnitudes(reports, estimators),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Reports: %d\n", len(reports))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

func loadReports(path string) ([]domain.FeltReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reports []domain.FeltReport
	if err := json.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return reports, nil
}

// validateIDs checks ids run 1..n in order with no gaps or repeats.
func validateIDs(reports []domain.FeltReport) *phase {
	p := &phase{name: "Sequential unique ids"}
	seen := make(map[int]int, len(reports))
	for i, r := range reports {
		if prev, dup := seen[r.ID]; dup {
			p.errorf("id %d at positions %d and %d", r.ID, prev, i)
		}
		seen[r.ID] = i
		if r.ID != i+1 {
			p.errorf("position %d: id %d, want %d", i, r.ID, i+1)
		}
	}
	return p
}

func validateScores(reports []domain.FeltReport) *phase {
	p := &phase{name: "Scores within 1..5"}
	for _, r := range reports {
		if err := r.Perception.Validate(); err != nil {
			p.errorf("id %d: %v", r.ID, err)
		}
	}
	return p
}

func validateTimestamps(reports []domain.FeltReport) *phase {
	p := &phase{name: "Submission times RFC 3339 UTC"}
	for _, r := range reports {
		ts, err := time.Parse(time.RFC3339, r.SubmissionTime)
		if err != nil {
			p.errorf("id %d: submission_time %q: %v", r.ID, r.SubmissionTime, err)
			continue
		}
		if _, offset := ts.Zone(); offset != 0 {
			p.errorf("id %d: submission_time %q is not UTC", r.ID, r.SubmissionTime)
		}
	}
	return p
}

// validateMagnitudes recomputes each stored magnitude with the strategy
// recorded on the report. Formula reports also pass if they match the
// clamped variant. Reports without a strategy are skipped.
func validateMagnitudes(reports []domain.FeltReport, estimators *estimator.Set) *phase {
	p := &phase{name: "Magnitudes reproducible"}
	for _, r := range reports {
		if r.Strategy == "" {
			continue
		}
		name, err := estimator.ParseStrategy(r.Strategy)
		if err != nil {
			p.errorf("id %d: %v", r.ID, err)
			continue
		}
		e, err := estimators.Get(name)
		if err != nil {
			p.errorf("id %d: %v", r.ID, err)
			continue
		}
		want, err := e.Estimate(r.Perception)
		if err != nil {
			p.errorf("id %d: %v", r.ID, err)
			continue
		}
		if sameMagnitude(want, r.PredictedMagnitude) {
			continue
		}
		if name == estimator.StrategyFormula {
			clamped, _ := estimator.Formula{Clamp: true}.Estimate(r.Perception)
			if sameMagnitude(clamped, r.PredictedMagnitude) {
				continue
			}
		}
		p.errorf("id %d: %s magnitude %.1f, recomputed %.1f", r.ID, name, r.PredictedMagnitude, want)
	}
	return p
}

func sameMagnitude(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
