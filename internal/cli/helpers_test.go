package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasklists/internal/codec"
	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// fakeRemote is an in-memory remote file.
type fakeRemote struct {
	mu        sync.Mutex
	content   []byte
	sha       string
	getStatus int
	putStatus int
	puts      int
}

func (f *fakeRemote) seed(text string) {
	f.content = []byte(text)
	f.sha = "s1"
}

func (f *fakeRemote) text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.content)
}

func (f *fakeRemote) GetFile(_ context.Context, _ models.Credentials) (int, core.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getStatus != 0 {
		return f.getStatus, core.RemoteFile{}, nil
	}
	if f.sha == "" {
		return http.StatusNotFound, core.RemoteFile{}, nil
	}
	return http.StatusOK, core.RemoteFile{Content: base64.StdEncoding.EncodeToString(f.content), SHA: f.sha}, nil
}

func (f *fakeRemote) PutFile(_ context.Context, _ models.Credentials, req core.PutRequest) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.putStatus != 0 {
		return f.putStatus, nil
	}
	data, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		return http.StatusUnprocessableEntity, nil
	}
	f.content = data
	f.sha += "x"
	return http.StatusOK, nil
}

var testCreds = models.Credentials{Token: "t", Repo: "octo/notes", Path: "tasks.txt"}

// setupSession installs a fresh session over remote and restores the
// package state when the test ends.
func setupSession(t *testing.T, remote *fakeRemote) *core.Session {
	t.Helper()
	origSession, origBookmark, origBookmarks := Session, Bookmark, Bookmarks

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := core.NewSyncer(remote, codec.Text{}, core.WithLogger(logger))
	Session = core.NewSession(core.NewStore(), syncer, core.SessionOptions{Credentials: testCreds})
	Bookmark = models.Bookmark{}
	Bookmarks = nil

	t.Cleanup(func() {
		Session, Bookmark, Bookmarks = origSession, origBookmark, origBookmarks
		resetFlags()
	})
	return Session
}

func resetFlags() {
	flagToken, flagRepo, flagPath, flagFormat, flagMode, flagList = "", "", "", "", "", ""
	flagDebug = false
	listsDisplay = nil
	showAll = false
	addDescription, editDesc, mvTarget = "", "", ""
	pullOut, pushFile, pushFileFormat = "", "", ""
}

// runCmd calls cmd's RunE directly and captures what it prints.
func runCmd(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetErr(nil)
	})
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func taskNames(snap core.Snapshot, list models.ListID) []string {
	names := []string{}
	for _, t := range snap.Tasks(list) {
		names = append(names, t.Name)
	}
	return names
}
