package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lazypower/keepsake/internal/hooks"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Handle Claude Code hook events",
	Long: `Handle a Claude Code hook event. Hook JSON arrives on stdin;
SessionStart answers with the memory brief as additional context,
SessionEnd condenses the transcript into a saved session. Hook commands
always exit 0 so a broken store never blocks the assistant.`,
}

var hookStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Handle SessionStart hook",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("start", os.Stdin, os.Stdout)
	},
}

var hookEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Handle SessionEnd hook",
	Run: func(cmd *cobra.Command, args []string) {
		hooks.Handle("end", os.Stdin, os.Stdout)
	},
}

func init() {
	hookCmd.AddCommand(hookStartCmd)
	hookCmd.AddCommand(hookEndCmd)
}
