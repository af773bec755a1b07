package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// completeLists completes a single list id, with its display name as the
// description.
func completeLists(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, id := range models.AllLists() {
		if strings.HasPrefix(string(id), toComplete) {
			out = append(out, string(id)+"\t"+id.DisplayName())
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeListSlice completes the last element of a comma-separated list of
// ids, skipping ids already given.
func completeListSlice(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	last := toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		prefix, last = toComplete[:i+1], toComplete[i+1:]
	}
	given := make(map[models.ListID]bool)
	for _, s := range strings.Split(prefix, ",") {
		if id, ok := models.ParseListID(s); ok {
			given[id] = true
		}
	}

	candidates, directive := completeLists(cmd, args, last)
	var out []string
	for _, c := range candidates {
		id := models.ListID(c[:strings.Index(c, "\t")])
		if !given[id] {
			out = append(out, prefix+c)
		}
	}
	return out, directive | cobra.ShellCompDirectiveNoSpace
}

func completeFormats(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.FormatText) + "\tSection headers and dashed tasks",
		string(models.FormatJSON) + "\tVersioned JSON document",
		string(models.FormatYAML) + "\tVersioned YAML document",
	}, cobra.ShellCompDirectiveNoFileComp
}

func completeModes(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{
		string(models.SyncAll) + "\tEvery list",
		string(models.SyncActive) + "\tOnly the active list",
	}, cobra.ShellCompDirectiveNoFileComp
}

// noFileArgs stops the shell from offering file names for task numbers.
func noFileArgs(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveNoFileComp
}
