package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/zero-day-ai/binxgraph/analysis"
	"github.com/zero-day-ai/binxgraph/ingest"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// emit writes v as JSON in json mode, otherwise runs text.
func (a *app) emit(v any, text func(w io.Writer)) error {
	if a.jsonOutput() {
		return writeJSON(a.stdout, v)
	}
	text(a.stdout)
	return nil
}

func table(w io.Writer, header string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}

func printStatistics(w io.Writer, s ingest.Statistics, total int) {
	fmt.Fprintf(w, "  Binaries:           %d\n", s.Binaries)
	fmt.Fprintf(w, "  Functions:          %d\n", s.Functions)
	fmt.Fprintf(w, "  Imported functions: %d\n", s.ImportedFunctions)
	fmt.Fprintf(w, "  Exported functions: %d\n", s.ExportedFunctions)
	fmt.Fprintf(w, "  Strings:            %d\n", s.Strings)
	fmt.Fprintf(w, "  Libraries:          %d\n", s.Libraries)
	fmt.Fprintf(w, "  Call relationships: %d\n", s.CallsRelationships)
	fmt.Fprintf(w, "  Total nodes:        %d\n", total)
}

func printErrors(w io.Writer, errs []string, total int) {
	if total == 0 {
		return
	}
	fmt.Fprintf(w, "Errors (%d):\n", total)
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s\n", e)
	}
	if total > len(errs) {
		fmt.Fprintf(w, "  ... and %d more\n", total-len(errs))
	}
}

func printResult(w io.Writer, res ingest.Result) {
	if res.Success {
		fmt.Fprintf(w, "Imported %s (%s)\n", res.Source, res.BinaryHash)
	} else {
		fmt.Fprintf(w, "Import of %s completed with errors\n", res.Source)
	}
	printStatistics(w, res.Statistics, res.TotalNodes)
	if res.SkippedCalls > 0 {
		fmt.Fprintf(w, "  Skipped calls:      %d\n", res.SkippedCalls)
	}
	printErrors(w, res.TopErrors(ingest.DefaultTopErrors), len(res.Errors))
}

func printPaths(w io.Writer, paths []analysis.CallPath) {
	for _, p := range paths {
		hops := make([]string, 0, len(p.Nodes))
		for _, n := range p.Nodes {
			hop := n.Name
			if n.Address != "" {
				hop += "@" + n.Address
			}
			hops = append(hops, hop)
		}
		fmt.Fprintf(w, "%s (%d): %s\n", p.ID, p.Length, strings.Join(hops, " -> "))
	}
}

func functionRows(fns []analysis.FunctionInfo) [][]string {
	rows := make([][]string, 0, len(fns))
	for _, f := range fns {
		rows = append(rows, []string{f.Name, f.Address, f.UID})
	}
	return rows
}
