package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/binxgraph"
	"github.com/zero-day-ai/binxgraph/store"
)

func newDatabaseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "database",
		Aliases: []string{"db"},
		Short:   "Maintain the graph database",
	}
	cmd.AddCommand(
		newDatabaseInitCmd(a),
		newDatabaseClearCmd(a),
		newDatabaseStatsCmd(a),
		newDatabaseExportCmd(a),
	)
	return cmd
}

func newDatabaseInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create constraints and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeClient(cmd.Context(), client)

			report := client.InitSchema(cmd.Context())
			return a.emit(report, func(w io.Writer) {
				fmt.Fprintf(w, "Applied %d schema statements\n", len(report.Applied))
				names := make([]string, 0, len(report.Failed))
				for n := range report.Failed {
					names = append(names, n)
				}
				sort.Strings(names)
				for _, n := range names {
					fmt.Fprintf(w, "  failed %s: %s\n", n, report.Failed[n])
				}
			})
		},
	}
}

func newDatabaseClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every node and relationship",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return &binxgraph.Error{
					Op:   "database clear",
					Kind: binxgraph.KindValidation,
					Err:  fmt.Errorf("refusing to clear %s without --yes", a.cfg.Neo4j.URI),
				}
			}
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeClient(cmd.Context(), client)

			if err := client.Clear(cmd.Context()); err != nil {
				return err
			}
			return a.emit(map[string]bool{"cleared": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Database cleared")
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

type databaseStats struct {
	Graph    store.GraphStatistics    `json:"graph"`
	Database store.DatabaseStatistics `json:"database"`
}

func newDatabaseStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show node and relationship counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer a.closeClient(ctx, client)

			var out databaseStats
			if out.Graph, err = client.GraphStatistics(ctx); err != nil {
				return err
			}
			if out.Database, err = client.DatabaseStatistics(ctx); err != nil {
				return err
			}
			return a.emit(out, func(w io.Writer) { printDatabaseStats(w, out) })
		},
	}
}

func printDatabaseStats(w io.Writer, s databaseStats) {
	fmt.Fprintf(w, "Binaries:      %d\n", s.Graph.Binaries)
	fmt.Fprintf(w, "Functions:     %d\n", s.Graph.Functions)
	fmt.Fprintf(w, "Strings:       %d\n", s.Graph.Strings)
	fmt.Fprintf(w, "Libraries:     %d\n", s.Graph.Libraries)
	fmt.Fprintf(w, "Calls:         %d\n", s.Graph.Calls)
	fmt.Fprintf(w, "Nodes:         %d\n", s.Database.Nodes)
	fmt.Fprintf(w, "Relationships: %d\n", s.Database.Relationships)
	if len(s.Database.Labels) == 0 {
		return
	}
	labels := make([]string, 0, len(s.Database.Labels))
	for l := range s.Database.Labels {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l, strconv.FormatInt(s.Database.Labels[l], 10)})
	}
	fmt.Fprintln(w)
	table(w, "LABEL\tCOUNT", rows)
}

func newDatabaseExportCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every node and relationship as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.client(ctx)
			if err != nil {
				return err
			}
			defer a.closeClient(ctx, client)

			w := a.stdout
			if file != "" && file != "-" {
				f, err := os.Create(file)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer binxgraph.CloseWithLog(f, a.logger, "export file")
				w = f
			}
			if err := client.Export(ctx, w); err != nil {
				return err
			}
			if w != a.stdout {
				a.logger.Info("graph exported", "file", file)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Output file (default stdout)")
	return cmd
}
