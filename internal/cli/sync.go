package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasklists/internal/codec"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// FS is the filesystem pull and push read and write local files on.
var FS afero.Fs = afero.NewOsFs()

var (
	pullOut        string
	pushFile       string
	pushFileFormat string
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Load the task file and print it",
	Long: `Load the task file from GitHub and print it in the configured format.
In active mode only the active list is loaded and printed. With --out the
result is written to a local file instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		mode := Session.Mode()
		snap, err := Session.Load(commandContext(cmd), mode)
		if err != nil {
			return statusError(err)
		}

		c := Session.Syncer().Codec()
		var data []byte
		if mode == models.SyncActive {
			active := Session.ActiveList()
			data, err = c.EncodeList(active, snap.Tasks(active))
		} else {
			data, err = c.Encode(snap.Lists())
		}
		if err != nil {
			return fmt.Errorf("encoding tasks: %w", err)
		}

		if pullOut == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := FS.MkdirAll(filepath.Dir(pullOut), 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
		if err := afero.WriteFile(FS, pullOut, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", pullOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tasks loaded successfully from GitHub, %d task(s) written to %s\n", snap.Total(), pullOut)
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push --file PATH",
	Short: "Replace the task file with a local file",
	Long: `Read a local file in any supported format and save it as the task file.
The local format is taken from --file-format or the file extension; the
remote file is written in the configured format, so push also converts
between formats. In active mode only the active list is written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		format := models.Format(strings.ToLower(pushFileFormat))
		if format == "" {
			format = models.FormatForPath(pushFile)
		}
		c, err := codec.For(format)
		if err != nil {
			return fmt.Errorf("invalid --file-format: %w", err)
		}

		data, err := afero.ReadFile(FS, pushFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", pushFile, err)
		}
		doc, err := c.Decode(data)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", pushFile, err)
		}
		if doc.Dropped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %d entries for unknown lists were skipped\n", doc.Dropped)
		}

		snap, err := Session.ReplaceAll(doc.Lists)
		if err != nil {
			return statusError(err)
		}
		if err := Session.Save(commandContext(cmd), Session.Mode()); err != nil {
			return statusError(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tasks saved successfully to GitHub (%d task(s))\n", snap.Total())
		return nil
	},
}

func init() {
	pullCmd.Flags().StringVarP(&pullOut, "out", "o", "", "write to a local file instead of stdout")
	pushCmd.Flags().StringVarP(&pushFile, "file", "f", "", "local file to upload")
	pushCmd.Flags().StringVar(&pushFileFormat, "file-format", "", "format of the local file: text, json or yaml")
	_ = pushCmd.MarkFlagRequired("file")
	_ = pushCmd.RegisterFlagCompletionFunc("file-format", completeFormats)

	rootCmd.AddCommand(pullCmd, pushCmd)
}
