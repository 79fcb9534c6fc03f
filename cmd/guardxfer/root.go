// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/guardxfer/cmd/guardxfer/commands"
	"github.com/walteh/guardxfer/cmd/guardxfer/opts"
	"github.com/walteh/guardxfer/cmd/guardxfer/pkg/ui"
)

// newRootCmd creates the command tree sharing one set of root options
func newRootCmd(ctx context.Context) (*cobra.Command, *opts.RootOpts) {
	o := &opts.RootOpts{
		UserLogger: ui.NewUserLogger(ctx),
	}

	rootCmd := &cobra.Command{
		Use:   "guardxfer",
		Short: "Package approved products and transfer them through an ISSE guard",
		Long: `guardxfer moves pre-approved document packages to a cross-domain guard.

moveapproved packages approved products from the dissem directory into the
review directory. process sends reviewed files to the guard for one network.
Only one run per (action, network) pair executes at a time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if o.Debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}

	addRootFlags(rootCmd, o)

	rootCmd.AddCommand(
		commands.NewMoveApprovedCmd(o),
		commands.NewProcessCmd(o),
		commands.NewSendCmd(o),
		commands.NewHistoryCmd(o),
		newVersionCmd(),
	)

	return rootCmd, o
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", "guardxfer.yaml", "config file path")
	cmd.PersistentFlags().StringVarP(&o.Network, "network", "N", "", "target network (SIPR, CW or BICES)")
	cmd.PersistentFlags().StringVarP(&o.SessionConfig, "session-config", "s", "", "session credentials file, overrides session.config")
	cmd.PersistentFlags().BoolVar(&o.Debug, "debug", false, "enable debug logging")
}
