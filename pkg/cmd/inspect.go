// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package cmd

import (
	"fmt"
	"os"

	"github.com/consensys/go-nfemu/pkg/bdd"
	"github.com/consensys/go-nfemu/pkg/trace"
	"github.com/consensys/go-nfemu/pkg/util/termio"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [flags] graph_file [trace_file]",
	Short: "summarise a behavior graph (and optionally a trace).",
	Long: `Summarise the shape of a given behavior graph, such as the number of
	nodes of each kind and the operations called.  When a trace is also given,
	the first few packets are summarised as well.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 || len(args) > 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		//
		var (
			escapes = termio.IsTerminal(os.Stdout)
			graph   = readGraphFile(args[0])
		)
		//
		printGraphSummary(graph, escapes)
		//
		if GetFlag(cmd, "nodes") {
			printGraphNodes(graph, GetUint(cmd, "width"), escapes)
		}
		//
		if len(args) == 2 {
			printTraceSummary(readTraceFile(args[1]), GetUint(cmd, "packets"), escapes)
		}
	},
}

func printGraphSummary(graph *bdd.Graph, escapes bool) {
	var (
		stats = bdd.Stats(graph)
		tp    = termio.NewTablePrinter(2)
		ops   = make([]string, 0, len(stats.Operations))
	)
	//
	tp.AnsiEscapes(escapes)
	tp.SetLeftAligned(0, true)
	tp.SetRowEscape(tp.AddRow("nodes", "count"), termio.BoldAnsiEscape())
	tp.AddRow("init", fmt.Sprintf("%d", len(graph.Init())))
	tp.AddRow("calls", fmt.Sprintf("%d", stats.Calls))
	tp.AddRow("branches", fmt.Sprintf("%d", stats.Branches))
	tp.AddRow("routes", fmt.Sprintf("%d", stats.Routes))
	tp.AddRow("depth", fmt.Sprintf("%d", stats.Depth))
	//
	for op := range stats.Operations {
		ops = append(ops, op)
	}
	//
	slices.Sort(ops)
	//
	for _, op := range ops {
		row := tp.AddRow(op, fmt.Sprintf("%d", stats.Operations[op]))
		tp.SetEscape(0, row, termio.AnsiEscape{}.FgColour(termio.TERM_CYAN))
	}
	//
	printTable(tp)
}

func printGraphNodes(graph *bdd.Graph, width uint, escapes bool) {
	var tp = termio.NewTablePrinter(3)
	//
	tp.AnsiEscapes(escapes)
	tp.SetLeftAligned(1, true)
	tp.SetLeftAligned(2, true)
	tp.SetRowEscape(tp.AddRow("id", "kind", "node"), termio.BoldAnsiEscape())
	//
	for _, n := range graph.Nodes() {
		var kind string
		//
		switch n.(type) {
		case *bdd.Call:
			kind = "call"
		case *bdd.Branch:
			kind = "branch"
		case *bdd.Route:
			kind = "route"
		}
		//
		tp.AddRow(fmt.Sprintf("#%d", n.ID()), kind, n.String())
	}
	//
	tp.SetMaxWidth(2, width)
	printTable(tp)
}

func printTraceSummary(tr *trace.Slice, n uint, escapes bool) {
	var (
		records = tr.Records()
		tp      = termio.NewTablePrinter(4)
	)
	//
	tp.AnsiEscapes(escapes)
	tp.SetLeftAligned(3, true)
	tp.SetRowEscape(tp.AddRow("#", "time", "length", "layers"), termio.BoldAnsiEscape())
	//
	for i, r := range records[:min(uint(len(records)), n)] {
		tp.AddRow(fmt.Sprintf("%d", i), fmt.Sprintf("%d", r.Timestamp), fmt.Sprintf("%d", r.Length),
			trace.Describe(r.Data))
	}
	//
	fmt.Printf("%d packets\n", len(records))
	printTable(tp)
}

func printTable(tp *termio.TablePrinter) {
	if err := tp.Print(os.Stdout); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("nodes", false, "list every node of the graph")
	inspectCmd.Flags().Uint("width", 120, "maximum width of node descriptions")
	inspectCmd.Flags().Uint("packets", 10, "number of packets to summarise")
}
