// Package output provides functions to print messages with optional color formatting
package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/dockhand-cd/dockhand/domain"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

const (
	Plain   = color.FgWhite
	Success = color.FgGreen
	Warning = color.FgYellow
	Error   = color.FgRed
)

var maybeColorize func(kind color.Attribute, tmpl string, a ...any) string

// InitColors sets up color functions based on environment
func InitColors(isColorDisabled bool) {
	if color.NoColor || isColorDisabled {
		// Fallback to plain formatting if colors are not supported
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return fmt.Sprintf(tmpl, a...)
		}
	} else {
		maybeColorize = func(kind color.Attribute, tmpl string, a ...any) string {
			return color.New(kind).SprintfFunc()(tmpl, a...)
		}
	}
}

// PrintMessage formats a message with color (if enabled) and prints it
func PrintMessage(kind color.Attribute, tmpl string, a ...any) string {
	if maybeColorize == nil || kind == Plain {
		return fmt.Sprintf(tmpl+"\n", a...)
	} else {
		return fmt.Sprintln(maybeColorize(kind, tmpl, a...))
	}
}

// Fprint helpers write through the command's output stream so tests can
// capture what a command prints.

func fprint(cmd *cobra.Command, kind color.Attribute, tmpl string, a ...any) error {
	_, err := fmt.Fprint(cmd.OutOrStdout(), PrintMessage(kind, tmpl, a...))
	return err
}

func FprintPlain(cmd *cobra.Command, tmpl string, a ...any) error {
	return fprint(cmd, Plain, tmpl, a...)
}

func FprintSuccess(cmd *cobra.Command, tmpl string, a ...any) error {
	return fprint(cmd, Success, tmpl, a...)
}

func FprintWarning(cmd *cobra.Command, tmpl string, a ...any) error {
	return fprint(cmd, Warning, tmpl, a...)
}

func FprintError(cmd *cobra.Command, tmpl string, a ...any) error {
	return fprint(cmd, Error, tmpl, a...)
}

// FprintOutcome prints a one-line outcome summary in the outcome's color
func FprintOutcome(cmd *cobra.Command, kind domain.OutcomeKind, tmpl string, a ...any) error {
	return fprint(cmd, OutcomeColor(kind), tmpl, a...)
}

// OutcomeColor maps a deployment outcome to its display color
func OutcomeColor(kind domain.OutcomeKind) color.Attribute {
	switch kind {
	case domain.OutcomeDeploySucceeded:
		return Success
	case domain.OutcomeSkippedLocked, domain.OutcomeSkippedNoChange:
		return Warning
	case domain.OutcomeDeployFailed, domain.OutcomeSyncFailed:
		return Error
	default:
		return Plain
	}
}

func PrintTable(header []string, data [][]string) (string, error) {
	buf := strings.Builder{}

	table := tablewriter.NewTable(
		&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines: tw.Lines{
					ShowHeaderLine: tw.Off,
				},
				Separators: tw.Separators{
					BetweenColumns: tw.Off,
				},
			},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{PerColumn: []tw.Align{tw.AlignRight, tw.AlignLeft}},
			},
		}))

	if len(header) > 0 {
		table.Header(header)
	}

	if err := table.Bulk(data); err != nil {
		return "", fmt.Errorf("bulk adding data to table: %w", err)
	}

	if err := table.Render(); err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}

	return buf.String(), nil
}

// PrintOutcomeDetails renders a single deployment outcome as a two-column table
func PrintOutcomeDetails(outcome *domain.Outcome) (string, error) {
	data := [][]string{
		{"ID", outcome.ID.String()},
		{"Outcome", outcome.Kind.String()},
		{"Reason", outcome.Reason},
		{"Revision", formatRevisionChange(outcome.PreviousRevision, outcome.NewRevision)},
		{"Started At", outcome.StartedAt.Format("2006-01-02 15:04:05")},
		{"Duration", outcome.FinishedAt.Sub(outcome.StartedAt).Round(10 * time.Millisecond).String()},
	}

	table, err := PrintTable([]string{}, data)
	if err != nil {
		return "", fmt.Errorf("printing outcome details table: %w", err)
	}
	return table, nil
}

// PrintOutcomeList renders deployment history, newest first
func PrintOutcomeList(outcomes []*domain.Outcome) (string, error) {
	if len(outcomes) == 0 {
		return PrintMessage(Plain, "No deployments recorded."), nil
	}

	header := []string{
		"Started At",
		"Outcome",
		"Revision",
		"Reason",
	}
	var data [][]string
	for _, outcome := range outcomes {
		data = append(data, []string{
			outcome.StartedAt.Format("2006-01-02 15:04:05"),
			outcome.Kind.String(),
			formatRevisionChange(outcome.PreviousRevision, outcome.NewRevision),
			outcome.Reason,
		})
	}

	table, err := PrintTable(header, data)
	if err != nil {
		return "", fmt.Errorf("printing deployment history table: %w", err)
	}

	return table, nil
}

func formatRevisionChange(previous, next string) string {
	if next == "" {
		return "-"
	}
	if previous == "" || previous == next {
		return shortRevision(next)
	}
	return shortRevision(previous) + " -> " + shortRevision(next)
}

func shortRevision(revision string) string {
	if len(revision) > 8 {
		return revision[:8]
	}
	return revision
}

// MaskSecret obscures a sensitive value for display, keeping just enough of
// the edges to recognize it
func MaskSecret(value string) string {
	switch n := len(value); {
	case n == 0:
		return "(not set)"
	case n <= 2:
		return strings.Repeat("*", n)
	case n <= 8:
		return value[:1] + strings.Repeat("*", n-2) + value[n-1:]
	default:
		return value[:2] + strings.Repeat("*", 4) + value[n-2:]
	}
}

// CLI flag for disabling color output

// NoColor is a flag that can be used to disable colored output in the CLI.
var NoColor = &noColorFlag{set: false}

type noColorFlag struct {
	set bool
}

func (f *noColorFlag) Set(value string) error {
	// Boolean flag, the value is ignored
	f.set = true
	return nil
}

func (f *noColorFlag) String() string {
	if f.set {
		return "true"
	}
	return "false"
}

func (f *noColorFlag) Type() string {
	return "bool"
}

// IsSet returns true if the --no-color flag was explicitly set
func (f *noColorFlag) IsSet() bool {
	return f.set
}

// IsBoolFlag tells pflag this is a boolean flag (no argument required)
func (f *noColorFlag) IsBoolFlag() bool {
	return true
}
