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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/walteh/guardxfer/cmd/guardxfer/opts"
	"github.com/walteh/guardxfer/cmd/guardxfer/pkg/ui"
	"github.com/walteh/guardxfer/pkg/config"
	"github.com/walteh/guardxfer/pkg/ledger"
	"gitlab.com/tozd/go/errors"
)

// NewHistoryCmd creates the ledger inspection command
func NewHistoryCmd(o *opts.RootOpts) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs, or the transfers of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Context(), o.ConfigFile)
			if err != nil {
				return errors.Errorf("loading config: %w", err)
			}
			path := cfg.LedgerPath()
			if path == "" {
				return errors.New("no ledger configured")
			}

			store, err := ledger.NewBoltStore(path)
			if err != nil {
				return err
			}
			defer store.Close()

			var out string
			if len(args) == 1 {
				recs, err := store.ListTransfers(args[0])
				if err != nil {
					return err
				}
				out, err = ui.TransfersTable(recs)
				if err != nil {
					return err
				}
			} else {
				runs, err := store.ListRuns(limit)
				if err != nil {
					return err
				}
				out, err = ui.RunsTable(runs)
				if err != nil {
					return err
				}
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show, 0 for all")
	return cmd
}
