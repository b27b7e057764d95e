package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/binxgraph/analysis"
)

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the binary graph",
	}
	cmd.AddCommand(
		newFunctionsQueryCmd(a),
		newBinaryQueryCmd(a),
		newCallGraphQueryCmd(a),
		newXrefsQueryCmd(a),
		newStringsQueryCmd(a),
		newCallPathQueryCmd(a),
		newSequencesQueryCmd(a),
		newCallersQueryCmd(a),
		newRecursionQueryCmd(a),
		newContextQueryCmd(a),
	)
	return cmd
}

// withAnalyzer opens the store for the duration of fn.
func (a *app) withAnalyzer(ctx context.Context, fn func(*analysis.Analyzer) error) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}
	defer a.closeClient(ctx, client)
	return fn(client.Analyzer())
}

func newFunctionsQueryCmd(a *app) *cobra.Command {
	var (
		binary string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "functions PATTERN",
		Short: "Find functions whose name or key contains PATTERN",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				fns, err := an.FindFunctions(cmd.Context(), analysis.FunctionQuery{
					Pattern: args[0], Binary: binary, Limit: limit,
				})
				if err != nil {
					return err
				}
				return a.emit(fns, func(w io.Writer) {
					rows := make([][]string, 0, len(fns))
					for _, f := range fns {
						rows = append(rows, []string{f.Name, f.Address, string(f.Type), f.UID})
					}
					table(w, "NAME\tADDRESS\tTYPE\tUID", rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "Restrict to binaries matching hash or filename")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default 100)")
	return cmd
}

func newBinaryQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "binary NAME",
		Short: "Show the binary matching NAME by hash or filename",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				b, err := an.FindBinary(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(b, func(w io.Writer) {
					fmt.Fprintf(w, "Hash:     %s\n", b.Hash)
					fmt.Fprintf(w, "Filename: %s\n", b.Filename)
					fmt.Fprintf(w, "Path:     %s\n", b.FilePath)
					fmt.Fprintf(w, "Size:     %d\n", b.FileSize)
					fmt.Fprintf(w, "Format:   %s\n", b.Format)
					fmt.Fprintf(w, "Arch:     %s\n", b.Arch)
				})
			})
		},
	}
}

func newCallGraphQueryCmd(a *app) *cobra.Command {
	var (
		depth    int
		binary   string
		enhanced bool
	)
	cmd := &cobra.Command{
		Use:   "callgraph FUNCTION",
		Short: "List the callers and callees of FUNCTION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withAnalyzer(ctx, func(an *analysis.Analyzer) error {
				if enhanced {
					g, err := an.EnhancedCallGraph(ctx, args[0], depth)
					if err != nil {
						return err
					}
					return a.emit(g, func(w io.Writer) {
						fmt.Fprintf(w, "Callees of %s:\n", args[0])
						table(w, "NAME\tADDRESS\tUID", functionRows(g.Callees))
						fmt.Fprintln(w, "\nCall paths:")
						printPaths(w, g.CallPaths)
						fmt.Fprintln(w, "\nDirect call frequencies:")
						names := make([]string, 0, len(g.CallFrequencies))
						for n := range g.CallFrequencies {
							names = append(names, n)
						}
						sort.Strings(names)
						rows := make([][]string, 0, len(names))
						for _, n := range names {
							rows = append(rows, []string{n, strconv.FormatInt(g.CallFrequencies[n], 10)})
						}
						table(w, "CALLEE\tCOUNT", rows)
					})
				}
				g, err := an.CallGraph(ctx, args[0], binary, depth)
				if err != nil {
					return err
				}
				return a.emit(g, func(w io.Writer) {
					fmt.Fprintf(w, "Callees of %s:\n", args[0])
					table(w, "NAME\tADDRESS\tUID", functionRows(g.Callees))
					fmt.Fprintf(w, "\nCallers of %s:\n", args[0])
					table(w, "NAME\tADDRESS\tUID", functionRows(g.Callers))
				})
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum edges to follow (1-10, default 3)")
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "Restrict to binaries matching hash or filename")
	cmd.Flags().BoolVar(&enhanced, "enhanced", false, "Include call paths and direct call frequencies")
	return cmd
}

func newXrefsQueryCmd(a *app) *cobra.Command {
	var binary string
	cmd := &cobra.Command{
		Use:   "xrefs ADDRESS",
		Short: "List call edges touching ADDRESS",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				xrefs, err := an.Xrefs(cmd.Context(), args[0], binary)
				if err != nil {
					return err
				}
				return a.emit(xrefs, func(w io.Writer) {
					rows := make([][]string, 0, len(xrefs))
					for _, x := range xrefs {
						rows = append(rows, []string{
							x.FromFunction, x.FromAddress, x.ToFunction, x.ToAddress, x.Offset, string(x.CallType),
						})
					}
					table(w, "FROM\tFROM_ADDR\tTO\tTO_ADDR\tOFFSET\tTYPE", rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "Restrict to binaries matching hash or filename")
	return cmd
}

func newStringsQueryCmd(a *app) *cobra.Command {
	var (
		binary string
		raw    bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "strings TEXT",
		Short: "Search string literals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				matches, err := an.SearchStrings(cmd.Context(), analysis.StringQuery{
					Text: args[0], BinaryHash: binary, Raw: raw, Limit: limit,
				})
				if err != nil {
					return err
				}
				return a.emit(matches, func(w io.Writer) {
					rows := make([][]string, 0, len(matches))
					for _, m := range matches {
						rows = append(rows, []string{strconv.FormatFloat(m.Score, 'f', 2, 64), m.Address, strconv.Quote(m.Value)})
					}
					table(w, "SCORE\tADDRESS\tVALUE", rows)
				})
			})
		},
	}
	cmd.Flags().StringVarP(&binary, "binary", "b", "", "Restrict to the binary with this hash")
	cmd.Flags().BoolVar(&raw, "raw", false, "Pass TEXT to the index as a Lucene query")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum results (default 100)")
	return cmd
}

func newCallPathQueryCmd(a *app) *cobra.Command {
	var (
		depth  int
		where  string
		upward bool
	)
	cmd := &cobra.Command{
		Use:   "callpath FUNCTION",
		Short: "Enumerate call paths from FUNCTION, or to it with --upward",
		Long: `Enumerates the call paths starting at FUNCTION. With --upward the
paths ending at FUNCTION are listed instead. --where keeps only paths for
which the CEL expression holds, for example:

  binxgraph query callpath main --where 'length > 2 && "free" in names'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *analysis.PathFilter
			if where != "" {
				f, err := analysis.CompileFilter(where)
				if err != nil {
					return err
				}
				filter = f
			}
			ctx := cmd.Context()
			return a.withAnalyzer(ctx, func(an *analysis.Analyzer) error {
				run := an.CallPaths
				if upward {
					run = an.UpwardChains
				}
				paths, err := run(ctx, args[0], depth)
				if err != nil {
					return err
				}
				if paths, err = filter.Filter(paths); err != nil {
					return err
				}
				return a.emit(paths, func(w io.Writer) {
					if len(paths) == 0 {
						fmt.Fprintf(w, "No call paths for %s\n", args[0])
						return
					}
					printPaths(w, paths)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum path length (1-10, default 3)")
	cmd.Flags().StringVarP(&where, "where", "w", "", "CEL expression over length, names, addresses and call_sites")
	cmd.Flags().BoolVarP(&upward, "upward", "u", false, "List the chains leading to FUNCTION")
	return cmd
}

func newSequencesQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sequences FUNCTION",
		Short: "List the direct calls made by FUNCTION in call-site order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				seqs, err := an.CallSequences(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(seqs, func(w io.Writer) {
					rows := make([][]string, 0, len(seqs))
					for _, s := range seqs {
						rows = append(rows, []string{strconv.Itoa(s.Order), s.CallSite, s.Callee, string(s.CallType)})
					}
					table(w, "ORDER\tCALL_SITE\tCALLEE\tTYPE", rows)
				})
			})
		},
	}
}

func newCallersQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "callers FUNCTION",
		Short: "List the direct calls into FUNCTION in call-site order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				seqs, err := an.CallerSequences(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(seqs, func(w io.Writer) {
					rows := make([][]string, 0, len(seqs))
					for _, s := range seqs {
						rows = append(rows, []string{strconv.Itoa(s.Order), s.CallSite, s.CallerName, s.CallerAddress})
					}
					table(w, "ORDER\tCALL_SITE\tCALLER\tCALLER_ADDR", rows)
				})
			})
		},
	}
}

func newRecursionQueryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recursion FUNCTION",
		Short: "Report direct and indirect recursion through FUNCTION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				calls, err := an.RecursiveCalls(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.emit(calls, func(w io.Writer) {
					if len(calls) == 0 {
						fmt.Fprintf(w, "%s is not recursive\n", args[0])
						return
					}
					for _, c := range calls {
						fmt.Fprintf(w, "%s depth %d: %v\n", c.Kind, c.Depth, c.Cycle)
					}
				})
			})
		},
	}
}

func newContextQueryCmd(a *app) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "context FUNCTION",
		Short: "Summarize the callers and callees of FUNCTION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withAnalyzer(cmd.Context(), func(an *analysis.Analyzer) error {
				res, err := an.AnalyzeContext(cmd.Context(), args[0], depth)
				if err != nil {
					return err
				}
				return a.emit(res, func(w io.Writer) {
					fmt.Fprintf(w, "Context of %s\n", res.FunctionName)
					fmt.Fprintf(w, "  Upward chains:    %d\n", len(res.UpwardChains))
					fmt.Fprintf(w, "  Downward paths:   %d\n", len(res.DownwardPaths))
					fmt.Fprintf(w, "  Direct callers:   %d\n", len(res.CallerSequences))
					for _, in := range res.Insights {
						fmt.Fprintf(w, "  - %s\n", in)
					}
				})
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "Maximum path length (1-10, default 3)")
	return cmd
}
