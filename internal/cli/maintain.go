package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lazypower/keepsake/internal/config"
	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/llm"
	"github.com/lazypower/keepsake/internal/memory"
)

func init() {
	briefCmd.Flags().StringVarP(&briefProject, "project", "p", "", "Include one project's records beside global ones")

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	auditCmd.Flags().IntVar(&auditDays, "days", 7, "Only consider session activity from the last N days")
	auditCmd.Flags().StringVar(&auditModel, "model", "", "Override the configured LLM model")
	auditCmd.Flags().BoolVar(&auditDryRun, "dry-run", false, "Print the prompt without calling the provider")
	auditCmd.Flags().BoolVar(&auditApply, "apply", false, "Apply accepted findings instead of just printing them")
	auditCmd.Flags().StringVarP(&auditProject, "project", "p", "", "Audit one project's records beside global ones")
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store health and decay posture",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	st, err := eng.Status()
	if err != nil {
		return err
	}

	fmt.Printf("Database: %s (%s, schema v%d)\n",
		st.DBPath, humanize.Bytes(uint64(st.DBBytes)), st.SchemaVersion)
	fmt.Printf("Records:  %d total, average recall %.0f%%\n", st.Total, st.AvgRecall*100)
	for _, cat := range memory.Categories {
		fmt.Printf("  %-14s %d\n", cat, st.ByCategory[string(cat)])
	}
	fmt.Printf("States:   %d clear, %d fuzzy, %d blank\n",
		st.ByState["clear"], st.ByState["fuzzy"], st.ByState["blank"])
	fmt.Printf("Decay:    %d records pending, %d prunable\n", st.PendingDecay, st.Prunable)
	fmt.Printf("Sessions: %d stored (%s)\n", st.Sessions, humanize.Bytes(uint64(st.SessionBytes)))
	return nil
}

// --- decay command ---

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Apply pending weekly decay to all records",
	Long: `Apply pending decay to every record. Decay is computed in whole
weeks and is idempotent: running this twice in the same week changes
nothing the second time.`,
	RunE: runDecay,
}

func runDecay(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	updated, err := eng.RunDecay()
	if err != nil {
		return err
	}
	if updated == 0 {
		fmt.Println("Nothing to decay yet.")
		return nil
	}
	fmt.Printf("Decay pass complete: %d records updated.\n", updated)
	return nil
}

// --- prune command ---

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove records that have faded to blank",
	Long: `Run a decay pass, then delete every decay-eligible record whose
recall has dropped below the blank threshold. Knowledge and current
state records are never pruned.`,
	RunE: runPrune,
}

func runPrune(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := eng.Prune()
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}
	fmt.Printf("Pruned %d faded records.\n", removed)
	return nil
}

// --- brief command ---

var briefProject string

var briefCmd = &cobra.Command{
	Use:   "brief",
	Short: "Print and persist the memory brief",
	Long: `Render the bounded markdown digest of everything still vivid:
grouped by category, ranked by significance and recall, with recent
session activity appended. This is what new sessions receive. The
document is also written to ~/.keepsake/brief.md, plus .keepsake-brief.md
in the current directory when scoped with --project.`,
	RunE: runBrief,
}

func runBrief(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	brief, err := eng.CompileBrief(engine.BriefScope{Project: briefProject})
	if err != nil {
		return err
	}
	fmt.Print(brief)

	if err := writeBriefFiles(brief, briefProject); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not persist brief: %v\n", err)
	}
	return nil
}

// writeBriefFiles persists the rendered brief beside the store, and in
// the working directory when the brief is project-scoped.
func writeBriefFiles(brief, project string) error {
	dir, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "brief.md"), []byte(brief), 0o644); err != nil {
		return err
	}
	if project == "" {
		return nil
	}
	return os.WriteFile(".keepsake-brief.md", []byte(brief), 0o644)
}

// --- export command ---

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Dump all records and sessions as JSON",
	Long: `Write every record and saved session as indented JSON in stable
order. Suitable for backups and for diffing two stores.`,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	w := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := eng.Export(w); err != nil {
		return err
	}
	if exportOutput != "" {
		fmt.Printf("Exported to %s\n", exportOutput)
	}
	return nil
}

// --- migrate command ---

var migrateCmd = &cobra.Command{
	Use:   "migrate [source.db]",
	Short: "Merge another keepsake database into this one",
	Long: `Merge records and sessions from another keepsake database. The
source is never modified, identical records are skipped, and title
conflicts keep both copies. Running the same migration twice changes
nothing the second time.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	rep, err := eng.Migrate(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Migrated from %s:\n", rep.Source)
	fmt.Printf("  records:  %d scanned, %d merged, %d skipped, %d renamed\n",
		rep.Scanned, rep.Merged, rep.Skipped, rep.Renamed)
	fmt.Printf("  sessions: %d scanned, %d merged\n", rep.SessionsScanned, rep.SessionsMerged)
	for _, w := range rep.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	return nil
}

// --- audit command ---

var (
	auditDays    int
	auditModel   string
	auditDryRun  bool
	auditApply   bool
	auditProject string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Ask an LLM to review the memory set",
	Long: `Send the current memory inventory and recent session activity to
the configured LLM provider and collect suggestions: facts worth adding,
records worth updating, stale state worth pruning. Findings are printed
as keepsake commands and written to a report file; nothing is applied
unless --apply is set.`,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	db, eng, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	scope := engine.AuditScope{Project: auditProject, Days: auditDays}

	if auditDryRun {
		prompt, err := eng.BuildAuditPrompt(scope)
		if err != nil {
			return err
		}
		fmt.Println(prompt)
		return nil
	}

	if auditModel != "" {
		cfg.LLM.Model = auditModel
	}
	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("llm not configured: %w", err)
	}
	eng.SetLLM(client)

	report, err := eng.Audit(cmd.Context(), scope)
	if err != nil {
		return err
	}

	if len(report.Findings) == 0 {
		fmt.Println("Audit found nothing to change.")
		return nil
	}

	if path, err := writeAuditReport(report); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not write report: %v\n", err)
	} else {
		fmt.Printf("Report written to %s\n\n", path)
	}

	fmt.Printf("Suggestions (%s):\n", report.Provider)
	for _, f := range report.Findings {
		fmt.Printf("  %s\n", findingCommand(f))
	}

	if !auditApply {
		fmt.Println("\nRe-run with --apply to execute them.")
		return nil
	}

	applied := 0
	for _, f := range report.Findings {
		if err := eng.ApplyFinding(f, auditProject); err != nil {
			fmt.Fprintf(os.Stderr, "warning: apply %s %q: %v\n", f.Action, f.Title, err)
			continue
		}
		applied++
	}
	fmt.Printf("\nApplied %d of %d findings.\n", applied, len(report.Findings))
	return nil
}

// findingCommand renders a finding as the keepsake invocation that would
// apply it.
func findingCommand(f engine.AuditFinding) string {
	switch f.Action {
	case "add":
		return fmt.Sprintf("keepsake add %q %q -c %s -s %d", f.Title, f.Content, f.Category, f.Significance)
	case "update":
		parts := []string{fmt.Sprintf("keepsake touch %d", f.ID)}
		if f.Significance != 0 {
			parts = append(parts, fmt.Sprintf("-s %d", f.Significance))
		}
		if f.Content != "" {
			parts = append(parts, fmt.Sprintf("--content %q", f.Content))
		}
		return strings.Join(parts, " ")
	case "prune":
		return fmt.Sprintf("keepsake forget %d", f.ID)
	}
	return ""
}

func writeAuditReport(report *engine.AuditReport) (string, error) {
	dir, err := config.DataDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("audit_%s.md", time.Now().UTC().Format("20060102-150405")))

	var b strings.Builder
	fmt.Fprintf(&b, "# Memory Audit\n\n")
	fmt.Fprintf(&b, "Provider: %s\n", report.Provider)
	if report.Tokens > 0 {
		fmt.Fprintf(&b, "Tokens: %d\n", report.Tokens)
	}
	fmt.Fprintf(&b, "Findings: %d\n", len(report.Findings))

	for _, f := range report.Findings {
		fmt.Fprintf(&b, "\n## %s", f.Action)
		if f.Title != "" {
			fmt.Fprintf(&b, ": %s", f.Title)
		} else if f.ID > 0 {
			fmt.Fprintf(&b, ": #%d", f.ID)
		}
		b.WriteString("\n")
		if f.Reason != "" {
			fmt.Fprintf(&b, "Reason: %s\n", f.Reason)
		}
		fmt.Fprintf(&b, "\n    %s\n", findingCommand(f))
	}

	return path, os.WriteFile(path, []byte(b.String()), 0o644)
}
