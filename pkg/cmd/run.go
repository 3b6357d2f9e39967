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
	"github.com/consensys/go-nfemu/pkg/emulator"
	"github.com/consensys/go-nfemu/pkg/report"
	"github.com/consensys/go-nfemu/pkg/trace"
	"github.com/consensys/go-nfemu/pkg/util"
	"github.com/consensys/go-nfemu/pkg/util/termio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] graph_file trace_file",
	Short: "replay a packet trace through a behavior graph.",
	Long: `Replay every packet of a given trace through the network function
	described by a given behavior graph, and report how often each node was
	visited.  Graphs can be given as yaml or json files, whilst traces are
	given as pcap or pcapng files.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 2 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		//
		config := emulator.Config{
			Device: uint64(GetUint(cmd, "device")),
			Loops:  GetInt(cmd, "loops"),
			Warmup: GetFlag(cmd, "warmup"),
			Rate:   GetFloat(cmd, "rate"),
			Report: GetFlag(cmd, "report"),
		}
		metrics := GetString(cmd, "metrics")
		//
		if config.Rate < 0 {
			fmt.Printf("invalid rate %f\n", config.Rate)
			os.Exit(2)
		}
		// Read inputs
		graph := readGraphFile(args[0])
		tr := readTraceFile(args[1])
		// Go!
		stats := runEmulator(graph, tr, config)
		//
		if err := report.PrintStatistics(os.Stdout, stats, termio.IsTerminal(os.Stdout)); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		if metrics != "" {
			if err := report.WriteMetrics(metrics, stats); err != nil {
				log.Errorf("writing metrics: %s", err)
				os.Exit(1)
			}
		}
	},
}

func runEmulator(graph *bdd.Graph, tr trace.Trace, config emulator.Config) report.Statistics {
	var (
		perf     = util.NewPerfStats()
		emu      = emulator.NewEmulator(graph, config)
		reporter = report.NewConsole(os.Stdout, termio.IsTerminal(os.Stdout), config.Warmup)
	)
	//
	if err := emu.Init(); err != nil {
		log.Errorf("initialisation failed: %s", err)
		os.Exit(1)
	}
	//
	if err := emulator.NewDriver(emu).Run(tr, reporter); err != nil {
		log.Errorf("run failed: %s", err)
		os.Exit(1)
	}
	//
	perf.Log("emulation")
	//
	return emu.Meta().Statistics(graph)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint("device", 0, "ingress device of every packet")
	runCmd.Flags().Int("loops", 1, "number of passes over the trace")
	runCmd.Flags().Bool("warmup", false, "precede the passes with a warm-up pass whose statistics are discarded")
	runCmd.Flags().Float64("rate", 0, "link rate (in Gbps) used to time packets, instead of their timestamps")
	runCmd.Flags().Bool("report", false, "report progress during the run")
	runCmd.Flags().String("metrics", "", "write run statistics to a file in the Prometheus text format")
	runCmd.Flags().Bool("trace-nodes", false, "log every node visited")
}
