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
	"github.com/consensys/go-nfemu/pkg/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or exits if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetInt gets an expected signed integer, or exits if an error arises.
func GetInt(cmd *cobra.Command, flag string) int {
	r, err := cmd.Flags().GetInt(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetUint gets an expected unsigned integer, or exits if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetFloat gets an expected floating point number, or exits if an error
// arises.
func GetFloat(cmd *cobra.Command, flag string) float64 {
	r, err := cmd.Flags().GetFloat64(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// GetString gets an expected string, or exits if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	return r
}

// configureLogging sets the log level according to the verbosity flags.
func configureLogging(cmd *cobra.Command) {
	if cmd.Flags().Lookup("trace-nodes") != nil && GetFlag(cmd, "trace-nodes") {
		log.SetLevel(log.TraceLevel)
	} else if GetFlag(cmd, "verbose") {
		log.SetLevel(log.DebugLevel)
	}
}

// Read a graph file, exiting if it cannot be read or is malformed.
func readGraphFile(filename string) *bdd.Graph {
	stats := util.NewPerfStats()
	//
	graph, err := bdd.Read(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	if errs := bdd.Validate(graph); len(errs) > 0 {
		for _, err := range errs {
			fmt.Printf("%s: %s\n", filename, err)
		}
		//
		os.Exit(2)
	}
	//
	stats.Log("reading graph")
	//
	return graph
}

// Read a pcap (or pcapng) trace file, exiting if it cannot be read.
func readTraceFile(filename string) *trace.Slice {
	stats := util.NewPerfStats()
	//
	tr, err := trace.ReadPcap(filename)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}
	//
	stats.Log("reading trace")
	//
	return tr
}
