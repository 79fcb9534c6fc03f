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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	itemIndent   = 4  // spaces to indent item entries
	nameWidth    = 35 // Base width for file name
	actionWidth  = 12 // Width for action text
	programTitle = "guardxfer"
)

// 🎯 Action is what happened to one item in a run
type Action string

const (
	ActionPackaged    Action = "packaged"
	ActionTransferred Action = "transferred"
	ActionArchived    Action = "archived"
	ActionDeleted     Action = "deleted"
	ActionSkipped     Action = "skipped"
	ActionFailed      Action = "failed"
)

// 🎯 ItemOperation represents the outcome of one item for logging
type ItemOperation struct {
	Name   string // file base name
	Action Action // what happened
	Detail string // optional short reason or destination
}

// 📦 RunOperation represents one pipeline run for logging
type RunOperation struct {
	Network string // target network
	Mode    string // moveapproved, process, send
	RunID   string // unique id of the run
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	mu         sync.Mutex
	currentRun *RunOperation
	items      []ItemOperation
}

// 🏭 New creates a new logger writing item lines to console and structured
// events to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔇 Nop returns a logger that discards everything
func Nop() *Logger {
	return New(io.Discard, zerolog.Nop())
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context, or a discarding logger when
// none was attached
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		return Nop()
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatItemOperation formats an item outcome for display
func (l *Logger) formatItemOperation(op ItemOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Action {
	case ActionTransferred, ActionPackaged:
		symbol = '✓'
		symbolColor = color.FgGreen
	case ActionArchived:
		symbol = '⟳'
		symbolColor = color.FgBlue
	case ActionDeleted:
		symbol = '-'
		symbolColor = color.FgYellow
	case ActionFailed:
		symbol = '✗'
		symbolColor = color.FgRed
	default:
		symbol = '•'
		symbolColor = color.FgCyan
	}

	return fmt.Sprintf("%s%s %s %s %s",
		fmt.Sprintf("%*s", itemIndent, ""),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Name),
		color.New(symbolColor).Sprint(fmt.Sprintf("%-*s", actionWidth, op.Action)),
		op.Detail)
}

// 📝 LogItem logs the outcome of one item
func (l *Logger) LogItem(ctx context.Context, op ItemOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, op)

	fmt.Fprintln(l.console, l.formatItemOperation(op))

	ev := l.zlog.Info()
	if op.Action == ActionFailed {
		ev = l.zlog.Warn()
	}
	ev.Str("file", op.Name).
		Str("action", string(op.Action)).
		Str("detail", op.Detail).
		Msg("item")
}

// 📝 StartRun starts a new pipeline run
func (l *Logger) StartRun(ctx context.Context, op RunOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentRun = &op
	l.items = nil

	fmt.Fprintf(l.console, "[%s %s]\n",
		op.Mode,
		color.New(color.FgCyan).Sprint(op.Network))

	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint("run"),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprint(op.RunID))

	l.zlog.Info().
		Str("network", op.Network).
		Str("mode", op.Mode).
		Str("run_id", op.RunID).
		Msg("starting run")
}

// 📝 EndRun ends the current run and returns the number of items per action
func (l *Logger) EndRun(ctx context.Context) map[Action]int {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := map[Action]int{}
	for _, it := range l.items {
		counts[it.Action]++
	}

	if l.currentRun == nil {
		return counts
	}

	l.zlog.Info().
		Str("run_id", l.currentRun.RunID).
		Int("items", len(l.items)).
		Int("transferred", counts[ActionTransferred]).
		Int("packaged", counts[ActionPackaged]).
		Int("failed", counts[ActionFailed]).
		Msg("run complete")

	l.currentRun = nil
	l.items = nil
	return counts
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	title := color.New(color.Bold, color.FgCyan).Sprint(programTitle)
	fmt.Fprintf(l.console, "\n%s %s\n\n", title, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
