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
package main

import (
	"fmt"
	"os"

	util "github.com/consensys/go-nfemu/pkg/cmd"
	"github.com/consensys/go-nfemu/pkg/trace"
	"github.com/iti/rngstream"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().Uint("packets", 1000, "Number of packets")
	rootCmd.Flags().Uint("flows", 16, "Number of distinct flows")
	rootCmd.Flags().Uint("min-size", 64, "Minimum frame size (in bytes)")
	rootCmd.Flags().Uint("max-size", 1500, "Maximum frame size (in bytes)")
	rootCmd.Flags().Float64("gap", 1000, "Mean inter-arrival time (in nanoseconds)")
	rootCmd.Flags().Int64("start", 0, "Timestamp of the first packet (in nanoseconds)")
	rootCmd.Flags().String("seed", "tracegen", "Name of the random stream")
	rootCmd.Flags().BoolP("verbose", "v", false, "increase logging verbosity")
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tracegen [flags] pcap_file",
	Short: "Synthetic packet trace generator for nfemu.",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			fmt.Println(cmd.UsageString())
			os.Exit(1)
		}
		//
		if util.GetFlag(cmd, "verbose") {
			log.SetLevel(log.DebugLevel)
		}
		//
		start, err := cmd.Flags().GetInt64("start")
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		//
		profile := trace.Profile{
			Packets: util.GetUint(cmd, "packets"),
			Flows:   util.GetUint(cmd, "flows"),
			MinSize: util.GetUint(cmd, "min-size"),
			MaxSize: util.GetUint(cmd, "max-size"),
			MeanGap: util.GetFloat(cmd, "gap"),
			Start:   start,
		}
		// Generate
		records, err := trace.Generate(profile, rngstream.New(util.GetString(cmd, "seed")))
		if err != nil {
			fmt.Println(err)
			os.Exit(2)
		}
		// Write out
		if err := trace.WritePcap(args[0], records); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		//
		log.WithFields(log.Fields{"packets": len(records), "flows": profile.Flows}).Debugf("wrote %s", args[0])
	},
}
