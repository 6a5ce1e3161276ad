package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lazypower/keepsake/internal/engine"
	"github.com/lazypower/keepsake/internal/memory"
)

func init() {
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "knowledge",
		"Category: knowledge, current_state, decision, session")
	addCmd.Flags().IntVarP(&addSignificance, "significance", "s", 5,
		"Significance 1-10; 10 never fades, 1 fades within weeks")
	addCmd.Flags().StringSliceVarP(&addTags, "tags", "t", nil, "Comma-separated tags")
	addCmd.Flags().StringVarP(&addProject, "project", "p", "", "Project the memory belongs to")

	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")

	touchCmd.Flags().IntVarP(&touchSignificance, "significance", "s", 0, "New significance 1-10")
	touchCmd.Flags().StringVar(&touchTitle, "title", "", "New title")
	touchCmd.Flags().StringVar(&touchContent, "content", "", "New content")
	touchCmd.Flags().StringSliceVarP(&touchTags, "tags", "t", nil, "Replacement tag list")
	touchCmd.Flags().StringVarP(&touchProject, "project", "p", "", "New project")
}

// --- add command ---

var (
	addCategory     string
	addSignificance int
	addTags         []string
	addProject      string
)

var addCmd = &cobra.Command{
	Use:   "add [title] [content]",
	Short: "Store a new memory",
	Long: `Store a new memory with full recall. Duplicate additions (same
category, title, and content) return the existing record unchanged.`,
	Args: cobra.ExactArgs(2),
	RunE: runAdd,
}

func runAdd(cmd *cobra.Command, args []string) error {
	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	rec, created, err := eng.Add(engine.AddParams{
		Category:     addCategory,
		Significance: addSignificance,
		Title:        args[0],
		Content:      args[1],
		Tags:         addTags,
		Project:      addProject,
	})
	if err != nil {
		return err
	}

	if !created {
		fmt.Printf("Already stored as #%d.\n", rec.ID)
		return nil
	}
	fmt.Printf("Stored #%d [%s] sig %d: %s\n", rec.ID, rec.Category, rec.Significance, rec.Title)
	return nil
}

// --- search command ---

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query...]",
	Short: "Search memories",
	Long: `Search memories by title, content, and tags. Faded records stay
findable, and every hit gets a recall boost: using a memory keeps it alive.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := eng.Search(query, engine.SearchOpts{Limit: searchLimit})
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	for i, r := range results {
		rec := r.Record
		fmt.Printf("%d. [%.1f] #%d %s\n", i+1, r.Score, rec.ID, rec.Title)
		fmt.Printf("   %s · sig %d · recall %.0f%% · %s\n",
			rec.Category, rec.Significance, rec.Recall*100, rec.State())

		content := strings.Join(strings.Fields(rec.Content), " ")
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("   %s\n", content)
		if len(rec.Tags) > 0 {
			fmt.Printf("   tags: %s\n", strings.Join(rec.Tags, ", "))
		}
		fmt.Println()
	}
	return nil
}

// --- touch command ---

var (
	touchSignificance int
	touchTitle        string
	touchContent      string
	touchTags         []string
	touchProject      string
)

var touchCmd = &cobra.Command{
	Use:   "touch [id]",
	Short: "Update fields on an existing memory",
	Long: `Update significance, title, content, tags, or project on an existing
memory. Only the flags you pass change; everything else stays.`,
	Args: cobra.ExactArgs(1),
	RunE: runTouch,
}

func runTouch(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	params := engine.UpdateParams{ID: id}
	if cmd.Flags().Changed("significance") {
		params.Significance = &touchSignificance
	}
	if cmd.Flags().Changed("title") {
		params.Title = &touchTitle
	}
	if cmd.Flags().Changed("content") {
		params.Content = &touchContent
	}
	if cmd.Flags().Changed("tags") {
		params.Tags = touchTags
	}
	if cmd.Flags().Changed("project") {
		params.Project = &touchProject
	}

	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := eng.Update(params)
	if err != nil {
		return err
	}
	fmt.Printf("Updated #%d [%s] sig %d: %s\n", rec.ID, rec.Category, rec.Significance, rec.Title)
	return nil
}

// --- forget command ---

var forgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Delete a memory",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

func runForget(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	db, eng, err := openEngine(loadConfig())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := eng.Delete(id); err != nil {
		return err
	}
	fmt.Printf("Forgot #%d.\n", id)
	return nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive number, got %q", memory.ErrInvalidInput, arg)
	}
	return id, nil
}
