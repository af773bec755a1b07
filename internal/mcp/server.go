// Package mcp provides an MCP (Model Context Protocol) server that exposes a
// task list session as MCP tools for AI assistants.
package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/internal/observability"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// Server wraps a session and exposes it as MCP tools. Task numbers are
// 1-based, as displayed.
type Server struct {
	server      *gomcp.Server
	session     *core.Session
	metricsCalc observability.MetricsCalculator
}

// NewServer creates a new MCP server over session. metricsCalc may be nil if
// the event log is disabled.
func NewServer(session *core.Session, metricsCalc observability.MetricsCalculator, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		session:     session,
		metricsCalc: metricsCalc,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "tl", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type taskOutput struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Selected    bool   `json:"selected,omitempty"`
}

type listOutput struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Tasks []taskOutput `json:"tasks"`
}

type listTasksInput struct {
	List string `json:"list,omitempty" jsonschema:"list id (list1-list8), number (1-8) or display name; omit for every list"`
}

type listTasksOutput struct {
	ActiveList string       `json:"active_list"`
	Lists      []listOutput `json:"lists"`
	Count      int          `json:"count"`
}

type addTaskInput struct {
	List        string `json:"list,omitempty" jsonschema:"target list; defaults to the active list"`
	Name        string `json:"name" jsonschema:"the task name"`
	Description string `json:"description,omitempty" jsonschema:"optional free-text description"`
}

type editTaskInput struct {
	List        string `json:"list,omitempty" jsonschema:"list holding the task; defaults to the active list"`
	Number      int    `json:"number,omitempty" jsonschema:"1-based task number; omit to edit the single selected task"`
	Name        string `json:"name" jsonschema:"the new task name"`
	Description string `json:"description,omitempty" jsonschema:"the new description"`
}

type deleteTasksInput struct {
	List    string `json:"list,omitempty" jsonschema:"list holding the tasks; defaults to the active list"`
	Numbers []int  `json:"numbers,omitempty" jsonschema:"1-based task numbers; omit to delete the selected tasks"`
}

type moveTasksInput struct {
	Source  string `json:"source,omitempty" jsonschema:"source list; defaults to the active list"`
	Target  string `json:"target" jsonschema:"destination list"`
	Numbers []int  `json:"numbers,omitempty" jsonschema:"1-based task numbers in the source list; omit to move the selected tasks"`
}

type swapTaskInput struct {
	List      string `json:"list,omitempty" jsonschema:"list holding the task; defaults to the active list"`
	Number    int    `json:"number" jsonschema:"1-based task number"`
	Direction string `json:"direction" jsonschema:"up or down"`
}

type selectTasksInput struct {
	Numbers []int `json:"numbers" jsonschema:"1-based task numbers of the active list to check; empty clears the selection"`
}

type setActiveListInput struct {
	List string `json:"list" jsonschema:"list id (list1-list8), number (1-8) or display name"`
}

type syncInput struct {
	Mode string `json:"mode,omitempty" jsonschema:"all or active; defaults to the session mode"`
}

type mutationOutput struct {
	Message    string `json:"message"`
	List       string `json:"list"`
	TaskCount  int    `json:"task_count"`
	TotalTasks int    `json:"total_tasks"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	Saves            int            `json:"saves"`
	Loads            int            `json:"loads"`
	SaveFailures     int            `json:"save_failures"`
	LoadFailures     int            `json:"load_failures"`
	FailuresByStatus map[string]int `json:"failures_by_status"`
	SyncsByFormat    map[string]int `json:"syncs_by_format"`
	StoreChanges     int            `json:"store_changes"`
	EventCount       int            `json:"event_count"`
	LastSave         string         `json:"last_save,omitempty"`
	LastLoad         string         `json:"last_load,omitempty"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List the tasks of one list or of every list, with 1-based numbers and selection marks.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "add_task",
		Description: "Append a task to a list. A blank name is ignored.",
	}, s.handleAddTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "edit_task",
		Description: "Replace the name and description of one task.",
	}, s.handleEditTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_tasks",
		Description: "Delete tasks by number, or the selected tasks of the active list.",
	}, s.handleDeleteTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "move_tasks",
		Description: "Move tasks to the end of another list, keeping their relative order.",
	}, s.handleMoveTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "swap_task",
		Description: "Swap a task with its neighbour above or below. Swapping past either end does nothing.",
	}, s.handleSwapTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "select_tasks",
		Description: "Replace the selection of the active list.",
	}, s.handleSelectTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "set_active_list",
		Description: "Switch the active list. Clears the selection.",
	}, s.handleSetActiveList)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "save",
		Description: "Save the task lists to the configured GitHub file.",
	}, s.handleSave)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "load",
		Description: "Replace the task lists with the contents of the configured GitHub file.",
	}, s.handleLoad)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get sync metrics from the event log: saves, loads, failures by status and store changes.",
	}, s.handleGetMetrics)
}

// --- Tool handlers ---

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	lists := models.AllLists()
	if input.List != "" {
		id, err := s.resolveList(input.List)
		if err != nil {
			return errorResult(err.Error()), listTasksOutput{Lists: []listOutput{}}, nil
		}
		lists = []models.ListID{id}
	}

	snap := s.session.Snapshot()
	active := s.session.ActiveList()
	out := listTasksOutput{
		ActiveList: string(active),
		Lists:      make([]listOutput, 0, len(lists)),
	}
	for _, id := range lists {
		lo := listOutput{ID: string(id), Name: id.DisplayName(), Tasks: []taskOutput{}}
		for i, t := range snap.Tasks(id) {
			lo.Tasks = append(lo.Tasks, taskOutput{
				Number:      i + 1,
				Name:        t.Name,
				Description: t.Description,
				Selected:    id == active && s.session.IsSelected(i),
			})
		}
		out.Count += len(lo.Tasks)
		out.Lists = append(out.Lists, lo)
	}
	return nil, out, nil
}

func (s *Server) handleAddTask(_ context.Context, _ *gomcp.CallToolRequest, input addTaskInput) (*gomcp.CallToolResult, mutationOutput, error) {
	list, err := s.listOrActive(input.List)
	if err != nil {
		return errorResult(err.Error()), mutationOutput{}, nil
	}
	if strings.TrimSpace(input.Name) == "" {
		return errorResult("name is required"), mutationOutput{}, nil
	}
	snap, err := s.session.AddTask(list, input.Name, input.Description)
	if err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(snap, list, fmt.Sprintf("added task %d to %s", snap.Len(list), list.DisplayName())), nil
}

func (s *Server) handleEditTask(_ context.Context, _ *gomcp.CallToolRequest, input editTaskInput) (*gomcp.CallToolResult, mutationOutput, error) {
	if strings.TrimSpace(input.Name) == "" {
		return errorResult("name is required"), mutationOutput{}, nil
	}

	var snap core.Snapshot
	var list models.ListID
	var err error
	if input.Number == 0 {
		list = s.session.ActiveList()
		snap, err = s.session.EditSelected(input.Name, input.Description)
	} else {
		list, err = s.listOrActive(input.List)
		if err != nil {
			return errorResult(err.Error()), mutationOutput{}, nil
		}
		snap, err = s.session.EditTask(list, input.Number-1, input.Name, input.Description)
	}
	if err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(snap, list, "task updated"), nil
}

func (s *Server) handleDeleteTasks(_ context.Context, _ *gomcp.CallToolRequest, input deleteTasksInput) (*gomcp.CallToolResult, mutationOutput, error) {
	var snap core.Snapshot
	var list models.ListID
	var err error
	var n int
	if len(input.Numbers) == 0 {
		list = s.session.ActiveList()
		n = len(s.session.Selected())
		snap, err = s.session.DeleteSelected()
	} else {
		list, err = s.listOrActive(input.List)
		if err != nil {
			return errorResult(err.Error()), mutationOutput{}, nil
		}
		n = len(input.Numbers)
		snap, err = s.session.DeleteTasks(list, toIndices(input.Numbers))
	}
	if err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(snap, list, fmt.Sprintf("deleted %d task(s) from %s", n, list.DisplayName())), nil
}

func (s *Server) handleMoveTasks(_ context.Context, _ *gomcp.CallToolRequest, input moveTasksInput) (*gomcp.CallToolResult, mutationOutput, error) {
	target, err := s.resolveList(input.Target)
	if err != nil {
		return errorResult(err.Error()), mutationOutput{}, nil
	}

	var snap core.Snapshot
	if len(input.Numbers) == 0 {
		if input.Source != "" {
			return errorResult("numbers are required when source is given"), mutationOutput{}, nil
		}
		snap, err = s.session.MoveSelected(target)
	} else {
		source, lerr := s.listOrActive(input.Source)
		if lerr != nil {
			return errorResult(lerr.Error()), mutationOutput{}, nil
		}
		snap, err = s.session.MoveTasks(source, target, toIndices(input.Numbers))
	}
	if err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(snap, target, fmt.Sprintf("moved task(s) to %s", target.DisplayName())), nil
}

func (s *Server) handleSwapTask(_ context.Context, _ *gomcp.CallToolRequest, input swapTaskInput) (*gomcp.CallToolResult, mutationOutput, error) {
	list, err := s.listOrActive(input.List)
	if err != nil {
		return errorResult(err.Error()), mutationOutput{}, nil
	}
	dir := models.Direction(strings.ToLower(input.Direction))
	if dir != models.Up && dir != models.Down {
		return errorResult(fmt.Sprintf("invalid direction %q: must be up or down", input.Direction)), mutationOutput{}, nil
	}
	snap, err := s.session.SwapAdjacent(list, input.Number-1, dir)
	if err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(snap, list, fmt.Sprintf("moved task %d %s", input.Number, dir)), nil
}

func (s *Server) handleSelectTasks(_ context.Context, _ *gomcp.CallToolRequest, input selectTasksInput) (*gomcp.CallToolResult, mutationOutput, error) {
	if err := s.session.Select(toIndices(input.Numbers)); err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	list := s.session.ActiveList()
	return nil, mutation(s.session.Snapshot(), list, fmt.Sprintf("%d task(s) selected in %s", len(s.session.Selected()), list.DisplayName())), nil
}

func (s *Server) handleSetActiveList(_ context.Context, _ *gomcp.CallToolRequest, input setActiveListInput) (*gomcp.CallToolResult, mutationOutput, error) {
	list, err := s.resolveList(input.List)
	if err != nil {
		return errorResult(err.Error()), mutationOutput{}, nil
	}
	if err := s.session.SetActiveList(list); err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(s.session.Snapshot(), list, "active list is now "+list.DisplayName()), nil
}

func (s *Server) handleSave(ctx context.Context, _ *gomcp.CallToolRequest, input syncInput) (*gomcp.CallToolResult, mutationOutput, error) {
	mode, err := parseMode(input.Mode)
	if err != nil {
		return errorResult(err.Error()), mutationOutput{}, nil
	}
	if err := s.session.Save(ctx, mode); err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	list := s.session.ActiveList()
	return nil, mutation(s.session.Snapshot(), list, "Tasks saved successfully to GitHub"), nil
}

func (s *Server) handleLoad(ctx context.Context, _ *gomcp.CallToolRequest, input syncInput) (*gomcp.CallToolResult, mutationOutput, error) {
	mode, err := parseMode(input.Mode)
	if err != nil {
		return errorResult(err.Error()), mutationOutput{}, nil
	}
	snap, err := s.session.Load(ctx, mode)
	if err != nil {
		return errorResult(core.StatusMessage(err)), mutationOutput{}, nil
	}
	return nil, mutation(snap, s.session.ActiveList(), "Tasks loaded successfully from GitHub"), nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (event log disabled)"), emptyMetricsOutput(), nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}

	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyMetricsOutput(), nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		Saves:            metrics.Saves,
		Loads:            metrics.Loads,
		SaveFailures:     metrics.SaveFailures,
		LoadFailures:     metrics.LoadFailures,
		FailuresByStatus: metrics.FailuresByStatus,
		SyncsByFormat:    metrics.SyncsByFormat,
		StoreChanges:     metrics.StoreChanges,
		EventCount:       metrics.EventCount,
	}
	if metrics.LastSave != nil {
		out.LastSave = metrics.LastSave.Format(time.RFC3339)
	}
	if metrics.LastLoad != nil {
		out.LastLoad = metrics.LastLoad.Format(time.RFC3339)
	}

	return nil, out, nil
}

// --- Helpers ---

func (s *Server) resolveList(name string) (models.ListID, error) {
	id, ok := models.ParseListID(name)
	if !ok {
		return "", fmt.Errorf("unknown list %q: use list1-list8, 1-8 or a list name", name)
	}
	return id, nil
}

func (s *Server) listOrActive(name string) (models.ListID, error) {
	if strings.TrimSpace(name) == "" {
		return s.session.ActiveList(), nil
	}
	return s.resolveList(name)
}

func mutation(snap core.Snapshot, list models.ListID, msg string) mutationOutput {
	return mutationOutput{
		Message:    msg,
		List:       string(list),
		TaskCount:  snap.Len(list),
		TotalTasks: snap.Total(),
	}
}

// toIndices converts 1-based task numbers to 0-based indices.
func toIndices(numbers []int) []int {
	out := make([]int, len(numbers))
	for i, n := range numbers {
		out[i] = n - 1
	}
	return out
}

func parseMode(s string) (models.SyncMode, error) {
	if s == "" {
		return "", nil
	}
	mode := models.SyncMode(strings.ToLower(s))
	if !mode.Valid() {
		return "", fmt.Errorf("invalid mode %q: must be all or active", s)
	}
	return mode, nil
}

func emptyMetricsOutput() metricsOutput {
	return metricsOutput{
		FailuresByStatus: make(map[string]int),
		SyncsByFormat:    make(map[string]int),
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// parseSince parses a human-friendly duration string like "7d", "30d", or "24h"
// into the corresponding time in the past.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}
