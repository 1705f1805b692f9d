package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/brief-maestro/internal/render"
	"github.com/kingrea/brief-maestro/internal/validator"
)

var (
	setClear     bool
	renderFormat string
	renderPretty bool
	renderOut    string
	listAll      bool
	historyLines int
)

var (
	reportTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	reportOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	reportMissing = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	reportDetail  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

var createCmd = &cobra.Command{
	Use:   "create <code>",
	Short: "Create an empty draft brief for a client",
	Args:  exactArgs(1),
	RunE:  runCreate,
}

var getCmd = &cobra.Command{
	Use:   "get <code>",
	Short: "Print a brief as YAML",
	Args:  exactArgs(1),
	RunE:  runGet,
}

var setCmd = &cobra.Command{
	Use:   "set <code> <section> <field> [value]",
	Short: "Set one field (value - reads stdin)",
	Long: `Set one field of a draft brief. Section and field accept the exact
name or its slug. Lists take one item per line or ";"-separated items; tables
take one row per line with cells separated by "|".

Pass - as the value to read it from stdin, or --clear to unset the field.`,
	Args: rangeArgs(3, 4),
	RunE: runSet,
}

var fillCmd = &cobra.Command{
	Use:   "fill <code> <data.yaml|data.json>",
	Short: "Set many fields from a key/value file",
	Long: `Set many fields at once. The file maps field keys (see "keys") to
values: strings, lists of strings, or lists of rows for tables. Nothing is
written if any key is unknown or any value is rejected.`,
	Args: exactArgs(2),
	RunE: runFill,
}

var validateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Report required fields that are still empty",
	Args:  exactArgs(1),
	RunE:  runValidate,
}

var finalizeCmd = &cobra.Command{
	Use:   "finalize <code>",
	Short: "Mark a complete brief as final",
	Args:  exactArgs(1),
	RunE:  runFinalize,
}

var renderCmd = &cobra.Command{
	Use:   "render <code>",
	Short: "Render a brief as markdown or plain text",
	Args:  exactArgs(1),
	RunE:  runRender,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored briefs",
	Args:  exactArgs(0),
	RunE:  runList,
}

var archiveCmd = &cobra.Command{
	Use:   "archive <code>",
	Short: "Hide a brief from the default listing and lock it",
	Args:  exactArgs(1),
	RunE:  runArchive,
}

var historyCmd = &cobra.Command{
	Use:   "history <code>",
	Short: "Show the change history of a brief",
	Args:  exactArgs(1),
	RunE:  runHistory,
}

func init() {
	setCmd.Flags().BoolVar(&setClear, "clear", false, "Unset the field")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "markdown", "Output format: markdown or text")
	renderCmd.Flags().BoolVar(&renderPretty, "pretty", false, "Style markdown for the terminal")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Write to a file instead of stdout")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include archived briefs")
	historyCmd.Flags().IntVarP(&historyLines, "lines", "n", 20, "Number of entries to show (0 for all)")
}

func runCreate(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	b, err := docs.Create(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	_, _, _, required := b.Progress()
	fmt.Fprintf(cmd.OutOrStdout(), "Created draft brief %s (%d required fields)\n", b.Code, required)
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	b, err := docs.Get(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(b.Snapshot()); err != nil {
		return fmt.Errorf("encode brief %s: %w", b.Code, err)
	}
	return enc.Close()
}

func runSet(cmd *cobra.Command, args []string) error {
	code, section, field := args[0], args[1], args[2]
	if setClear && len(args) == 4 {
		return usageError{fmt.Errorf("--clear takes no value")}
	}
	if !setClear && len(args) != 4 {
		return usageError{fmt.Errorf("missing value for %s.%s (use --clear to unset)", section, field)}
	}

	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()
	ctx := commandContext(cmd)

	if setClear {
		path, err := docs.ClearField(ctx, code, section, field)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: cleared %s\n", code, path)
		return nil
	}

	raw := args[3]
	if raw == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read value from stdin: %w", err)
		}
		raw = string(data)
	}
	path, err := docs.SetField(ctx, code, section, field, raw)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: set %s\n", code, path)
	return nil
}

func runFill(cmd *cobra.Command, args []string) error {
	code, file := args[0], args[1]
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read fill data: %w", err)
	}
	// JSON documents are valid YAML, so one decoder covers both.
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse fill data %s: %w", file, err)
	}
	if len(values) == 0 {
		return fmt.Errorf("fill data %s has no fields", file)
	}

	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	written, err := docs.Fill(commandContext(cmd), code, values)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: filled %d fields\n", code, len(written))
	for _, path := range written {
		fmt.Fprintf(out, "  %s\n", path)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	report, err := docs.Validate(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), formatReport(report))
	if !report.IsValid() {
		return fmt.Errorf("brief %q: %d required fields missing", report.Code, len(report.Missing))
	}
	return nil
}

func formatReport(r *validator.Report) string {
	var b strings.Builder
	b.WriteString(reportTitle.Render(fmt.Sprintf("Brief %s", r.Code)))
	b.WriteString(" ")
	b.WriteString(reportDetail.Render(fmt.Sprintf("(%s, %d/%d fields, %d/%d required)",
		r.Status, r.Filled, r.Total, r.RequiredFilled, r.RequiredTotal)))
	b.WriteString("\n")
	if r.IsValid() {
		b.WriteString(reportOK.Render("✓ Ready to finalize"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(reportMissing.Render("Missing required fields:"))
	b.WriteString("\n")
	for _, path := range r.Missing {
		fmt.Fprintf(&b, "  - %s\n", path)
	}
	return b.String()
}

func runFinalize(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	b, err := docs.Finalize(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Brief %s is final\n", b.Code)
	return nil
}

func runRender(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(renderFormat)
	if err != nil {
		return usageError{err}
	}
	if renderPretty && format != render.FormatMarkdown {
		return usageError{fmt.Errorf("--pretty needs markdown output")}
	}

	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	out, err := docs.Render(commandContext(cmd), args[0], format)
	if err != nil {
		return err
	}
	if renderPretty {
		out, err = render.Terminal(out, cfg.Project.Render.Width)
		if err != nil {
			return err
		}
	}
	if renderOut == "" {
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(renderOut, []byte(out), 0o644); err != nil {
		return fmt.Errorf("write rendering: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", renderOut)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	summaries, err := docs.List(commandContext(cmd), listAll)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(summaries) == 0 {
		fmt.Fprintln(out, "No briefs yet. Create one with: briefmaestro create <code>")
		return nil
	}
	for _, s := range summaries {
		status := string(s.Status)
		if s.Archived {
			status += ", archived"
		}
		fmt.Fprintf(out, "%-20s %-16s %s\n", s.Code, status, s.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	b, err := docs.Archive(commandContext(cmd), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Archived brief %s\n", b.Code)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	docs, err := openDocuments()
	if err != nil {
		return err
	}
	defer docs.Close()

	lines, total, err := docs.History(commandContext(cmd), args[0], historyLines)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if total == 0 {
		fmt.Fprintf(out, "No history recorded for %s\n", args[0])
		return nil
	}
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	if len(lines) < total {
		fmt.Fprintln(out, reportDetail.Render(fmt.Sprintf("(showing %d of %d entries)", len(lines), total)))
	}
	return nil
}
