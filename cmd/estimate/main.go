// Command estimate prints formula and regression magnitude estimates, either
// for one set of perception scores or for every row of the training table.
// It uses the same estimator package as the service, so its output matches
// what /estimate returns.
//
// Usage:
//
//	go run ./cmd/estimate -shaking 5 -duration 4 -objects 5 -reaction 5 -damage 5
//	go run ./cmd/estimate -table
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/couchcryptid/quake-felt-service/internal/domain"
	"github.com/couchcryptid/quake-felt-service/internal/estimator"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	table := fs.Bool("table", false, "estimate every training row and show the target")
	clamp := fs.Bool("clamp", false, "clamp formula output to [3.0, 10.0]")
	trees := fs.Int("trees", estimator.DefaultTrees, "regression forest size")
	seed := fs.Uint64("seed", estimator.DefaultSeed, "regression random seed")
	var p domain.Perception
	fs.IntVar(&p.Shaking, "shaking", 3, "shaking score (1-5)")
	fs.IntVar(&p.Duration, "duration", 3, "duration score (1-5)")
	fs.IntVar(&p.Objects, "objects", 3, "objects score (1-5)")
	fs.IntVar(&p.Reaction, "reaction", 3, "reaction score (1-5)")
	fs.IntVar(&p.Damage, "damage", 3, "damage score (1-5)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	formula := estimator.Formula{Clamp: *clamp}
	regression, err := estimator.NewRegression(*trees, *seed)
	if err != nil {
		return fmt.Errorf("fit regression: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if *table {
		fmt.Fprintln(tw, "SHAKING\tDURATION\tOBJECTS\tREACTION\tDAMAGE\tTARGET\tFORMULA\tREGRESSION")
		for _, s := range estimator.TrainingSet {
			if err := writeRow(tw, s.Perception, fmt.Sprintf("%.1f", s.Magnitude), formula, regression); err != nil {
				return err
			}
		}
		return tw.Flush()
	}

	if err := p.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(tw, "SHAKING\tDURATION\tOBJECTS\tREACTION\tDAMAGE\tTARGET\tFORMULA\tREGRESSION")
	if err := writeRow(tw, p, "-", formula, regression); err != nil {
		return err
	}
	return tw.Flush()
}

func writeRow(w io.Writer, p domain.Perception, target string, estimators ...estimator.Estimator) error {
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%s", p.Shaking, p.Duration, p.Objects, p.Reaction, p.Damage, target)
	for _, e := range estimators {
		m, err := e.Estimate(p)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		fmt.Fprintf(w, "\t%.1f", m)
	}
	fmt.Fprintln(w)
	return nil
}
