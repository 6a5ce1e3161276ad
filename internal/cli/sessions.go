package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lazypower/keepsake/internal/store"
)

func init() {
	saveSessionCmd.Flags().StringSliceVarP(&saveSessionFiles, "files", "f", nil, "Files touched during the session")
	saveSessionCmd.Flags().StringVarP(&saveSessionProject, "project", "p", "", "Project the session belongs to")
	saveSessionCmd.Flags().StringVar(&saveSessionID, "id", "", "Session id (default: random UUID)")

	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 10, "Maximum number of sessions to list")
}

// --- save-session command ---

var (
	saveSessionFiles   []string
	saveSessionProject string
	saveSessionID      string
)

var saveSessionCmd = &cobra.Command{
	Use:   "save-session [summary]",
	Short: "Record a session summary by hand",
	Long: `Record a session summary without going through the hook pipeline.
Useful for sessions that ended before the hook could run, or for tools
that have no hooks at all.`,
	Args: cobra.ExactArgs(1),
	RunE: runSaveSession,
}

func runSaveSession(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	id := saveSessionID
	if id == "" {
		id = uuid.NewString()
	}

	sess := &store.SavedSession{
		SessionID:    id,
		Project:      saveSessionProject,
		Summary:      args[0],
		FilesChanged: saveSessionFiles,
	}
	if err := eng.SaveSession(sess); err != nil {
		return err
	}
	fmt.Printf("Saved session %s\n", id)
	return nil
}

// --- sessions command ---

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent session summaries",
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	db, _, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := db.RecentSessions(sessionsLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		return nil
	}

	for _, s := range sessions {
		when := humanize.Time(time.UnixMilli(s.CreatedAt))
		if s.Project != "" {
			fmt.Printf("%s  [%s]  %s\n", s.SessionID, s.Project, when)
		} else {
			fmt.Printf("%s  %s\n", s.SessionID, when)
		}

		summary := strings.Join(strings.Fields(s.Summary), " ")
		if len(summary) > 200 {
			summary = summary[:200] + "..."
		}
		fmt.Printf("  %s\n", summary)
		if n := len(s.FilesChanged); n > 0 {
			fmt.Printf("  %d files changed\n", n)
		}
		fmt.Println()
	}
	return nil
}
