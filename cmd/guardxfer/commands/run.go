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

package commands

import (
	"github.com/spf13/cobra"
	"github.com/walteh/guardxfer/cmd/guardxfer/opts"
	"github.com/walteh/guardxfer/pkg/config"
)

// NewMoveApprovedCmd creates the packaging command
func NewMoveApprovedCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "moveapproved",
		Short: "Package approved products into the review directory",
		Long: `Moveapproved scans the dissem directory for approved products. For each one it:
1. Reads the companion XML metadata
2. Checks the product line and dissemination level
3. Zips the product with its images and attachments into the review directory
4. Removes the staged inputs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), o, pipeline{action: config.ActionMoveApproved})
		},
	}
}

// NewProcessCmd creates the batch transfer command
func NewProcessCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Transfer reviewed files to the guard",
		Long: `Process sends every review directory file matching the network's filters,
plus its ad-hoc files, to the guard. Files can be hashed and base64 encoded
first. Each transferred file is archived or deleted and recorded in the job
log, which is sent last.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), o, pipeline{action: config.ActionProcess})
		},
	}
}

// NewSendCmd creates the debugging send command
func NewSendCmd(o *opts.RootOpts) *cobra.Command {
	var (
		files []string
		keep  bool
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send specific files to the guard (debugging)",
		Long: `Send transfers the given files to the guard with their own job log.
It is meant for debugging a guard connection, not for production runs.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), o, pipeline{action: config.ActionSend, files: files, keep: keep})
		},
	}

	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "file to send, repeat for more")
	cmd.Flags().BoolVarP(&keep, "keep", "k", false, "archive sent files instead of deleting them")
	return cmd
}
