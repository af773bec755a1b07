package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

var (
	listsDisplay   []string
	showAll        bool
	addDescription string
	editDesc       string
	mvTarget       string
)

var (
	listHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var listsCmd = &cobra.Command{
	Use:   "lists",
	Short: "Show the eight lists and which one is active",
	Long: `Show the eight lists with their identifiers. The active list is marked
with "*". Use --display to choose which lists "tl show --all" and the board
display; the choice is remembered between runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("display") {
			displayed := make([]models.ListID, 0, len(listsDisplay))
			for _, s := range listsDisplay {
				list, err := parseList(s)
				if err != nil {
					return err
				}
				displayed = append(displayed, list)
			}
			Bookmark.Displayed = displayed
		}

		active := models.ListPersonal
		if Session != nil {
			active = Session.ActiveList()
		}
		shown := make(map[models.ListID]bool)
		for _, id := range displayedLists() {
			shown[id] = true
		}

		out := cmd.OutOrStdout()
		for _, id := range models.AllLists() {
			marker := " "
			if id == active {
				marker = "*"
			}
			line := fmt.Sprintf("%s %-6s %s", marker, id, id.DisplayName())
			if !shown[id] {
				line += mutedStyle.Render(" (hidden)")
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the tasks of the active list",
	Long: `Load the task file and show the tasks of the active list, numbered from 1.
With --all, every displayed list is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		mode := Session.Mode()
		if showAll {
			mode = models.SyncAll
		}
		snap, err := Session.Load(commandContext(cmd), mode)
		if err != nil {
			return statusError(err)
		}

		out := cmd.OutOrStdout()
		if !showAll {
			renderList(out, snap, Session.ActiveList())
			return nil
		}
		for i, id := range displayedLists() {
			if i > 0 {
				fmt.Fprintln(out)
			}
			renderList(out, snap, id)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add NAME...",
	Short: "Append a task to the active list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		name := strings.TrimSpace(strings.Join(args, " "))
		if name == "" {
			return fmt.Errorf("task name is required")
		}
		list := Session.ActiveList()
		snap, err := syncedMutation(cmd, func(s *core.Session) (core.Snapshot, error) {
			return s.AddTask(list, name, addDescription)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added task %d to %s: %s\n", snap.Len(list), list.DisplayName(), name)
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit NUMBER NAME...",
	Short: "Replace the name and description of a task",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		indices, err := parseNumbers(args[:1])
		if err != nil {
			return err
		}
		name := strings.TrimSpace(strings.Join(args[1:], " "))
		if name == "" {
			return fmt.Errorf("task name is required")
		}
		list := Session.ActiveList()
		if _, err := syncedMutation(cmd, func(s *core.Session) (core.Snapshot, error) {
			return s.EditTask(list, indices[0], name, editDesc)
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s in %s\n", args[0], list.DisplayName())
		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm NUMBER...",
	Aliases: []string{"delete"},
	Short:   "Delete tasks from the active list",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		indices, err := parseNumbers(args)
		if err != nil {
			return err
		}
		list := Session.ActiveList()
		snap, err := syncedMutation(cmd, func(s *core.Session) (core.Snapshot, error) {
			return s.DeleteTasks(list, indices)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d task(s) from %s, %d left\n", len(dedupe(indices)), list.DisplayName(), snap.Len(list))
		return nil
	},
}

var mvCmd = &cobra.Command{
	Use:   "mv NUMBER... --to LIST",
	Short: "Move tasks from the active list to the end of another list",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		target, err := parseList(mvTarget)
		if err != nil {
			return err
		}
		indices, err := parseNumbers(args)
		if err != nil {
			return err
		}
		source := Session.ActiveList()
		snap, err := syncedMutation(cmd, func(s *core.Session) (core.Snapshot, error) {
			return s.MoveTasks(source, target, indices)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved %d task(s) to %s (%d tasks)\n", len(dedupe(indices)), target.DisplayName(), snap.Len(target))
		return nil
	},
}

var upCmd = &cobra.Command{
	Use:   "up NUMBER",
	Short: "Move a task one position up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return swap(cmd, args[0], models.Up)
	},
}

var downCmd = &cobra.Command{
	Use:   "down NUMBER",
	Short: "Move a task one position down",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return swap(cmd, args[0], models.Down)
	},
}

func swap(cmd *cobra.Command, arg string, dir models.Direction) error {
	if err := requireSession(); err != nil {
		return err
	}
	indices, err := parseNumbers([]string{arg})
	if err != nil {
		return err
	}
	list := Session.ActiveList()
	snap, err := syncedMutation(cmd, func(s *core.Session) (core.Snapshot, error) {
		return s.SwapAdjacent(list, indices[0], dir)
	})
	if err != nil {
		return err
	}
	renderList(cmd.OutOrStdout(), snap, list)
	return nil
}

// syncedMutation reads the whole remote file, applies mutate and writes the
// whole file back. A file that does not exist yet starts out empty. Nothing
// is written when mutate leaves the tasks unchanged.
func syncedMutation(cmd *cobra.Command, mutate func(*core.Session) (core.Snapshot, error)) (core.Snapshot, error) {
	ctx := commandContext(cmd)
	if _, err := Session.Load(ctx, models.SyncAll); err != nil && !isMissingFile(err) {
		return core.Snapshot{}, statusError(err)
	}
	before := Session.Snapshot()
	snap, err := mutate(Session)
	if err != nil {
		return snap, statusError(err)
	}
	if snap.Same(before) {
		return snap, nil
	}
	if err := Session.Save(ctx, models.SyncAll); err != nil {
		return snap, statusError(err)
	}
	return snap, nil
}

func isMissingFile(err error) bool {
	var readErr *core.RemoteReadError
	return errors.As(err, &readErr) && readErr.Status == http.StatusNotFound
}

// parseNumbers converts 1-based task numbers to indices.
func parseNumbers(args []string) ([]int, error) {
	indices := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid task number %q", a)
		}
		indices = append(indices, n-1)
	}
	return indices, nil
}

func dedupe(indices []int) []int {
	seen := make(map[int]bool, len(indices))
	out := indices[:0:0]
	for _, i := range indices {
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	return out
}

func displayedLists() []models.ListID {
	if len(Bookmark.Displayed) > 0 {
		return Bookmark.Displayed
	}
	return models.AllLists()
}

func renderList(w io.Writer, snap core.Snapshot, list models.ListID) {
	tasks := snap.Tasks(list)
	fmt.Fprintln(w, listHeaderStyle.Render(fmt.Sprintf("%s (%d)", list.DisplayName(), len(tasks))))
	if len(tasks) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no tasks"))
		return
	}
	for i, t := range tasks {
		line := fmt.Sprintf("  %2d. %s", i+1, t.Name)
		if t.Description != "" {
			line += mutedStyle.Render(": " + t.Description)
		}
		fmt.Fprintln(w, line)
	}
}

func init() {
	listsCmd.Flags().StringSliceVar(&listsDisplay, "display", nil, "lists to display, e.g. list1,work,3")
	showCmd.Flags().BoolVarP(&showAll, "all", "a", false, "show every displayed list")
	addCmd.Flags().StringVarP(&addDescription, "description", "d", "", "task description")
	editCmd.Flags().StringVarP(&editDesc, "description", "d", "", "new task description")
	mvCmd.Flags().StringVar(&mvTarget, "to", "", "destination list")
	_ = mvCmd.MarkFlagRequired("to")
	_ = mvCmd.RegisterFlagCompletionFunc("to", completeLists)
	_ = listsCmd.RegisterFlagCompletionFunc("display", completeListSlice)
	for _, cmd := range []*cobra.Command{addCmd, editCmd, rmCmd, mvCmd, upCmd, downCmd} {
		cmd.ValidArgsFunction = noFileArgs
	}

	rootCmd.AddCommand(listsCmd, showCmd, addCmd, editCmd, rmCmd, mvCmd, upCmd, downCmd)
}
