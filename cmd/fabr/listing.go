package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"fabr/internal/buildpipeline"
	"fabr/internal/include"
	"fabr/internal/symbols"
)

// listing is one informational dump requested with --show.
type listing string

const (
	listIncludes listing = "includes"
	listMetrics  listing = "metrics"
	listMacros   listing = "macros"
	listApplied  listing = "applied"
	listSymbols  listing = "symbols"
)

var allListings = []listing{listIncludes, listMetrics, listMacros, listApplied, listSymbols}

// parseListings validates --show values; "all" expands to every listing.
// Order follows allListings regardless of the order given.
func parseListings(values []string) ([]listing, error) {
	var picked []listing
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		switch {
		case v == "":
			continue
		case v == "all":
			picked = append(picked, allListings...)
		case lo.Contains(allListings, listing(v)):
			picked = append(picked, listing(v))
		default:
			names := lo.Map(allListings, func(l listing, _ int) string { return string(l) })
			return nil, fmt.Errorf("unknown --show value %q (expected %s or all)", v, strings.Join(names, "|"))
		}
	}
	return lo.Filter(allListings, func(l listing, _ int) bool { return lo.Contains(picked, l) }), nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}

// printListings writes the requested listings of one run. Stages that did
// not run (the build failed earlier) are skipped.
func printListings(w io.Writer, res *buildpipeline.Result, which []listing) {
	if res == nil {
		return
	}
	for _, l := range which {
		switch l {
		case listIncludes:
			if res.Included != nil {
				listIncluded(w, res.Included.Files)
			}
		case listMetrics:
			if res.Included != nil {
				listMetricsOf(w, res.Metrics())
			}
		case listMacros:
			if res.Macros != nil {
				imms, macros := res.Macros.Immediates(), res.Macros.Macros()
				fmt.Fprintf(w, "Found %s and %s:\n", plural(len(imms), "imacro", "imacros"), plural(len(macros), "macro", "macros"))
				for _, im := range imms {
					fmt.Fprintf(w, "\tIMacro: %s = %s\n", im.Name, im.Text)
				}
				for _, m := range macros {
					fmt.Fprintf(w, "\tMacro: %s(%s)\n", m.Name, strings.Join(m.Params, ", "))
				}
			}
		case listApplied:
			if res.Macros != nil {
				imm, block := res.Macros.RefTotals()
				fmt.Fprintf(w, "Applied %s and %s:\n", plural(imm, "imacro", "imacros"), plural(block, "macro", "macros"))
				for _, im := range res.Macros.Immediates() {
					fmt.Fprintf(w, "\tIMacro: %s (%d)\n", im.Name, im.Refs)
				}
				for _, m := range res.Macros.Macros() {
					fmt.Fprintf(w, "\tMacro: %s (%d)\n", m.Name, m.Refs)
				}
			}
		case listSymbols:
			if res.Symbols != nil {
				listSymbolsOf(w, res.Symbols)
			}
		}
	}
}

func listIncluded(w io.Writer, files []string) {
	fmt.Fprintf(w, "Included %s:\n", plural(len(files), "file", "files"))
	for _, f := range files {
		fmt.Fprintf(w, "\t%s\n", f)
	}
}

func listMetricsOf(w io.Writer, ms []include.Metrics) {
	fmt.Fprintf(w, "Source metrics for %s:\n", plural(len(ms), "file", "files"))
	width := lo.Max(lo.Map(ms, func(m include.Metrics, _ int) int { return len(m.Path) }))
	width = max(width, len("total"))
	row := func(m include.Metrics) {
		fmt.Fprintf(w, "\t%-*s %5d lines: %d code, %d directives, %d comments, %d blank\n",
			width, m.Path, m.Lines, m.Code, m.Directive, m.Comment, m.Blank)
	}
	for _, m := range ms {
		row(m)
	}
	if len(ms) > 1 {
		row(include.Total(ms))
	}
}

func listSymbolsOf(w io.Writer, table *symbols.Table) {
	fns, poisoned := table.Functions(), table.Poisoned()
	fmt.Fprintf(w, "Found %s and poisoned %s:\n", plural(len(fns), "function", "functions"), plural(len(poisoned), "symbol", "symbols"))
	for _, fn := range fns {
		if fn.Hint == symbols.HintAuto {
			fmt.Fprintf(w, "\tFunction %s (%d)\n", fn.Name, fn.Arity)
			continue
		}
		fmt.Fprintf(w, "\tFunction %s (%d) %s\n", fn.Name, fn.Arity, fn.Hint)
	}
	for _, sym := range poisoned {
		fmt.Fprintf(w, "\tPoisoned symbol %s\n", sym)
	}
}
