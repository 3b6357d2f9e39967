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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] graph_file...",
	Short: "check one or more behavior graphs are well-formed.",
	Long: `Check that one or more behavior graphs are well-formed.  That is, every
	node is reachable from the root through existing successors without cycles,
	and every operation called has a handler.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		// Configure log level
		configureLogging(cmd)
		//
		var (
			registry = emulator.DefaultRegistry()
			failed   = false
		)
		//
		for _, filename := range args {
			errs := checkGraphFile(filename, registry)
			//
			for _, err := range errs {
				fmt.Printf("%s: %s\n", filename, err)
			}
			//
			if len(errs) == 0 {
				log.Debugf("%s: ok", filename)
			}
			//
			failed = failed || len(errs) > 0
		}
		//
		if failed {
			os.Exit(2)
		}
	},
}

// Check a given graph file is readable and well-formed, and that every
// operation it calls is known to a given registry.
func checkGraphFile(filename string, registry *emulator.Registry) []error {
	graph, err := bdd.Read(filename)
	if err != nil {
		return []error{err}
	}
	//
	errs := bdd.Validate(graph)
	calls := graph.Init()
	//
	for _, n := range graph.Nodes() {
		if c, ok := n.(*bdd.Call); ok {
			calls = append(calls, c)
		}
	}
	//
	for _, c := range calls {
		if c == nil {
			continue
		} else if _, err := registry.Lookup(c.Call.Function); err != nil {
			errs = append(errs, fmt.Errorf("node #%d: %w", c.ID(), err))
		}
	}
	//
	return errs
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
