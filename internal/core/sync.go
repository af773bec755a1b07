package core

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/valter-silva-au/tasklists/internal/codec"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// DefaultCommitMessage is used for every save unless configured otherwise.
const DefaultCommitMessage = "Update task lists"

// RemoteFile is a file as returned by the remote contents endpoint. Content
// is base64 and may contain line breaks.
type RemoteFile struct {
	Content string
	SHA     string
}

// PutRequest is the body of a create-or-update call. SHA is the precondition
// token and is omitted when empty.
type PutRequest struct {
	Message string
	Content string
	SHA     string
}

// RemoteFiles is the transport the syncer talks to. Implementations return
// the HTTP status they received; err is reserved for transport failures.
// Defining it here keeps core independent of the integration package.
type RemoteFiles interface {
	GetFile(ctx context.Context, creds models.Credentials) (status int, file RemoteFile, err error)
	PutFile(ctx context.Context, creds models.Credentials, req PutRequest) (status int, err error)
}

// Syncer saves snapshots to, and loads them from, a single remote file.
// Every call is one linear attempt; nothing is retried.
type Syncer struct {
	remote   RemoteFiles
	codec    codec.Codec
	message  string
	events   EventLogger
	logger   *slog.Logger
	validate *validator.Validate
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithCommitMessage overrides DefaultCommitMessage.
func WithCommitMessage(msg string) SyncerOption {
	return func(s *Syncer) {
		if strings.TrimSpace(msg) != "" {
			s.message = msg
		}
	}
}

// WithEventLogger records every sync outcome to events.
func WithEventLogger(events EventLogger) SyncerOption {
	return func(s *Syncer) { s.events = events }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSyncer creates a Syncer that encodes blobs with c.
func NewSyncer(remote RemoteFiles, c codec.Codec, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		remote:   remote,
		codec:    c,
		message:  DefaultCommitMessage,
		logger:   slog.Default(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithCodec returns a copy of s that uses c.
func (s *Syncer) WithCodec(c codec.Codec) *Syncer {
	cp := *s
	cp.codec = c
	return &cp
}

// Codec returns the codec used for payloads.
func (s *Syncer) Codec() codec.Codec { return s.codec }

// CheckCredentials reports ErrMissingCredentials, naming the blank fields,
// unless token, repository and path are all non-blank.
func (s *Syncer) CheckCredentials(creds models.Credentials) (models.Credentials, error) {
	creds = creds.Trimmed()
	if err := s.validate.Struct(creds); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = strings.ToLower(fe.Field())
			}
			return creds, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(fields, ", "))
		}
		return creds, fmt.Errorf("validating credentials: %w", err)
	}
	return creds, nil
}

// Save writes snap to the remote file. In SyncActive mode only active is
// written. The current file's sha is sent as a precondition when the file
// can be read; otherwise the write is attempted without one.
func (s *Syncer) Save(ctx context.Context, creds models.Credentials, snap Snapshot, mode models.SyncMode, active models.ListID) error {
	opID := uuid.NewString()
	log := s.logger.With("op", opID, "mode", string(mode), "format", string(s.codec.Format()))

	creds, err := s.CheckCredentials(creds)
	if err != nil {
		return s.fail(opID, "save", FailureCredentials, err)
	}

	var payload []byte
	switch mode {
	case models.SyncActive:
		if err := checkList(active); err != nil {
			return s.fail(opID, "save", FailureList, err)
		}
		payload, err = s.codec.EncodeList(active, snap.Tasks(active))
	default:
		payload, err = s.codec.Encode(snap.Lists())
	}
	if err != nil {
		return s.fail(opID, "save", FailureCodec, newSyncError(err))
	}

	var sha string
	status, existing, err := s.remote.GetFile(ctx, creds)
	switch {
	case err != nil:
		log.Debug("existence check failed, saving without precondition", "error", err)
	case status == http.StatusOK:
		sha = existing.SHA
	default:
		log.Debug("file not readable, saving without precondition", "status", status)
	}

	status, err = s.remote.PutFile(ctx, creds, PutRequest{
		Message: s.message,
		Content: base64.StdEncoding.EncodeToString(payload),
		SHA:     sha,
	})
	if err != nil {
		return s.fail(opID, "save", FailureTransport, newSyncError(err))
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return s.fail(opID, "save", FailureStatus, &RemoteWriteError{Status: status})
	}

	log.Info("saved task lists", "repo", creds.Repo, "path", creds.Path, "bytes", len(payload), "precondition", sha != "")
	s.record("sync.save", map[string]any{
		"op":     opID,
		"mode":   string(mode),
		"format": string(s.codec.Format()),
		"status": status,
		"tasks":  snap.Total(),
	})
	return nil
}

// Load reads the remote file and returns current with the decoded lists
// installed: every list in SyncAll mode, only active in SyncActive mode.
// On any failure current is returned unchanged alongside the error.
func (s *Syncer) Load(ctx context.Context, creds models.Credentials, current Snapshot, mode models.SyncMode, active models.ListID) (Snapshot, error) {
	opID := uuid.NewString()
	log := s.logger.With("op", opID, "mode", string(mode), "format", string(s.codec.Format()))

	creds, err := s.CheckCredentials(creds)
	if err != nil {
		return current, s.fail(opID, "load", FailureCredentials, err)
	}
	if mode == models.SyncActive {
		if err := checkList(active); err != nil {
			return current, s.fail(opID, "load", FailureList, err)
		}
	}

	status, file, err := s.remote.GetFile(ctx, creds)
	if err != nil {
		return current, s.fail(opID, "load", FailureTransport, newSyncError(err))
	}
	if status != http.StatusOK {
		return current, s.fail(opID, "load", FailureStatus, &RemoteReadError{Status: status})
	}

	raw, err := decodeContent(file.Content)
	if err != nil {
		return current, s.fail(opID, "load", FailureCodec, newSyncError(err))
	}
	doc, err := s.codec.Decode(raw)
	if err != nil {
		return current, s.fail(opID, "load", FailureCodec, newSyncError(err))
	}
	if doc.Dropped > 0 {
		log.Warn("remote file references unknown lists; their tasks were skipped", "dropped", doc.Dropped)
	}

	var next Snapshot
	switch mode {
	case models.SyncActive:
		tasks, ok := doc.Lists[active]
		if !ok {
			err := fmt.Errorf("remote file has no %q list", active.DisplayName())
			return current, s.fail(opID, "load", FailureList, newSyncError(err))
		}
		next, err = current.ReplaceList(active, tasks)
		if err != nil {
			return current, s.fail(opID, "load", FailureList, err)
		}
	default:
		next = current.ReplaceAll(doc.Lists)
	}

	log.Info("loaded task lists", "repo", creds.Repo, "path", creds.Path, "tasks", next.Total())
	s.record("sync.load", map[string]any{
		"op":      opID,
		"mode":    string(mode),
		"format":  string(s.codec.Format()),
		"tasks":   next.Total(),
		"dropped": doc.Dropped,
	})
	return next, nil
}

// decodeContent decodes the base64 content field, which the contents API
// wraps at 60 columns.
func decodeContent(content string) ([]byte, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(content)
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("decoding file content: %w", err)
	}
	return data, nil
}

// Failure kinds recorded with sync.failed events.
const (
	FailureCredentials = "credentials"
	FailureList        = "list"
	FailureStatus      = "status"
	FailureTransport   = "transport"
	FailureCodec       = "codec"
)

func (s *Syncer) fail(opID, action, kind string, err error) error {
	s.logger.Warn("sync failed", "op", opID, "action", action, "kind", kind, "error", err)
	data := map[string]any{
		"op":     opID,
		"action": action,
		"kind":   kind,
		"error":  err.Error(),
	}
	var readErr *RemoteReadError
	var writeErr *RemoteWriteError
	switch {
	case errors.As(err, &readErr):
		data["status"] = readErr.Status
	case errors.As(err, &writeErr):
		data["status"] = writeErr.Status
	}
	s.record("sync.failed", data)
	return err
}

func (s *Syncer) record(eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.LogEvent(eventType, data); err != nil {
		s.logger.Debug("recording event failed", "type", eventType, "error", err)
	}
}
