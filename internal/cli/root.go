package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasklists/internal/codec"
	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Persistent flags, applied to the session before every command.
var (
	flagToken  string
	flagRepo   string
	flagPath   string
	flagFormat string
	flagMode   string
	flagList   string
	flagDebug  bool
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "tasklists - eight task lists kept in a GitHub repository",
	Long: `tasklists (tl) manages eight fixed task lists (Personal Tasks, Work Tasks,
Shopping List, Project Ideas, Books to Read, Movies to Watch, Goals and
Miscellaneous) and keeps them in a single file in a GitHub repository.

Task numbers are 1-based, as shown by "tl show". Commands that change a list
read the remote file, apply the change and write the file back.`,
	SilenceUsage:      true,
	PersistentPreRunE: applyFlags,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return saveBookmark()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tl %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagToken, "token", "", "GitHub token (default $TL_GITHUB_TOKEN or $GITHUB_TOKEN)")
	pf.StringVar(&flagRepo, "repo", "", "repository holding the task file, as owner/name")
	pf.StringVar(&flagPath, "path", "", "path of the task file inside the repository")
	pf.StringVar(&flagFormat, "format", "", "file format: text, json or yaml")
	pf.StringVar(&flagMode, "mode", "", "sync mode: all or active")
	pf.StringVarP(&flagList, "list", "l", "", "list to work on: list1-list8, 1-8 or a list name")
	pf.BoolVar(&flagDebug, "debug", false, "log diagnostics at debug level")
	_ = rootCmd.RegisterFlagCompletionFunc("list", completeLists)
	_ = rootCmd.RegisterFlagCompletionFunc("format", completeFormats)
	_ = rootCmd.RegisterFlagCompletionFunc("mode", completeModes)

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// applyFlags merges the persistent flags into the session. Flags win over
// the bookmark, which wins over the config file.
func applyFlags(cmd *cobra.Command, _ []string) error {
	if flagDebug && LogLevel != nil {
		LogLevel.Set(slog.LevelDebug)
	}
	if Session == nil {
		return nil
	}

	creds := Session.Credentials()
	if flagToken != "" {
		creds.Token = flagToken
	}
	if flagRepo != "" {
		creds.Repo = flagRepo
	}
	if flagPath != "" {
		creds.Path = flagPath
	}
	Session.SetCredentials(creds)

	if flagMode != "" {
		mode := models.SyncMode(strings.ToLower(flagMode))
		if !mode.Valid() {
			return fmt.Errorf("invalid --mode %q: must be all or active", flagMode)
		}
		Session.SetMode(mode)
	}

	format := models.Format(strings.ToLower(flagFormat))
	if format == "" && flagPath != "" {
		format = models.FormatForPath(flagPath)
	}
	if format != "" {
		c, err := codec.For(format)
		if err != nil {
			return fmt.Errorf("invalid --format: %w", err)
		}
		if syncer := Session.Syncer(); syncer != nil {
			Session.SetSyncer(syncer.WithCodec(c))
		}
	}

	if flagList != "" {
		list, err := parseList(flagList)
		if err != nil {
			return err
		}
		if err := Session.SetActiveList(list); err != nil {
			return statusError(err)
		}
	}
	return nil
}

// saveBookmark remembers the repository, file and list choices for the next
// run. The token is never written.
func saveBookmark() error {
	if Session == nil || Bookmarks == nil {
		return nil
	}
	creds := Session.Credentials()
	Bookmark.Repo = creds.Repo
	Bookmark.Path = creds.Path
	Bookmark.Mode = Session.Mode()
	Bookmark.ActiveList = Session.ActiveList()
	if syncer := Session.Syncer(); syncer != nil {
		Bookmark.Format = syncer.Codec().Format()
	}
	if err := Bookmarks.Save(Bookmark); err != nil {
		slog.Warn("could not save session bookmark", "path", Bookmarks.Path(), "error", err)
	}
	return nil
}

// commandContext returns the command's context, or a background context when
// the command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func parseList(s string) (models.ListID, error) {
	list, ok := models.ParseListID(s)
	if !ok {
		return "", fmt.Errorf("unknown list %q: use list1-list8, 1-8 or a list name", s)
	}
	return list, nil
}

// statusErr presents a core error as its status line while keeping the
// original error reachable through errors.Is and errors.As.
type statusErr struct {
	err error
}

func (e *statusErr) Error() string {
	return strings.TrimPrefix(core.StatusMessage(e.err), "Error: ")
}

func (e *statusErr) Unwrap() error { return e.err }

func statusError(err error) error {
	if err == nil {
		return nil
	}
	return &statusErr{err: err}
}

func requireSession() error {
	if Session == nil {
		return fmt.Errorf("session not initialized")
	}
	return nil
}
