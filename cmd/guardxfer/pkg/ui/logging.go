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

// Package ui holds the operator-facing console output of the CLI.
package ui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/guardxfer/pkg/ledger"
)

// 📢 UserLogger gives the operator short feedback about what the CLI did
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
}

// 🎯 NewUserLogger creates a new user logger
func NewUserLogger(ctx context.Context) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
	}
}

// 📊 LogStateChange logs a step of the CLI
func (u *UserLogger) LogStateChange(description string) {
	printer := pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"})
	printer.Println(description)
	u.log.Info().Msg(description)
}

// 📝 LogNote prints an operator note that is not a problem
func (u *UserLogger) LogNote(description string) {
	pterm.Warning.WithPrefix(pterm.Prefix{Text: "NOTE"}).Println(description)
	u.log.Warn().Msg(description)
}

// 🔍 LogValidation logs validation results
func (u *UserLogger) LogValidation(valid bool, description string, err error) {
	if valid {
		pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).Println(description)
		u.log.Info().Msg(description)
		return
	}
	if err != nil {
		pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Println(description)
		pterm.Error.Println(err)
		u.log.Error().Err(err).Msg(description)
		return
	}
	pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).Println(description)
	u.log.Warn().Msg(description)
}

// 🔒 LogLockOperation logs process lock operations
func (u *UserLogger) LogLockOperation(acquired bool, path string, err error) {
	switch {
	case acquired:
		pterm.Debug.WithPrefix(pterm.Prefix{Text: "🔒"}).Printf("Acquired lock on %s\n", path)
		u.log.Debug().Msgf("Acquired lock on %s", path)
	case err != nil:
		pterm.Warning.WithPrefix(pterm.Prefix{Text: "🔓"}).Println("Another run holds the lock, nothing to do")
		pterm.Warning.Println(err)
		u.log.Warn().Err(err).Msg("lock held by another run")
	default:
		pterm.Debug.WithPrefix(pterm.Prefix{Text: "🔓"}).Printf("Released lock on %s\n", path)
		u.log.Debug().Msgf("Released lock on %s", path)
	}
}

// 📋 RunsTable renders ledger runs as a table
func RunsTable(runs []*ledger.RunRecord) (string, error) {
	data := pterm.TableData{{"RUN", "NETWORK", "ACTION", "STARTED", "DURATION", "SENT"}}
	for _, r := range runs {
		duration := "running"
		if !r.Finished.IsZero() {
			duration = r.Finished.Sub(r.Started).Round(time.Second).String()
		}
		data = append(data, []string{
			r.ID,
			r.Network,
			r.Action,
			r.Started.UTC().Format(time.RFC3339),
			duration,
			strconv.Itoa(r.Transferred),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}

// 📋 TransfersTable renders the put attempts of one run as a table
func TransfersTable(recs []*ledger.TransferRecord) (string, error) {
	data := pterm.TableData{{"#", "FILE", "REMOTE", "SIZE", "RESULT", "LOCAL COPY"}}
	for _, r := range recs {
		result := "ok"
		if !r.OK {
			result = "failed: " + r.Error
		}
		data = append(data, []string{
			strconv.FormatUint(r.Seq, 10),
			r.Name,
			r.Remote,
			fmt.Sprintf("%d", r.Size),
			result,
			string(r.Disposition),
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
}
