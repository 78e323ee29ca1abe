// Package jsonrpc implements the timer gateway against a timesheet
// server's JSON-RPC call_kw endpoint.
package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"timerbar/internal/core/model"
	"timerbar/internal/core/timer"
)

const (
	timesheetModel = "account.analytic.line"
	favoriteModel  = "hr.timesheet.favorite"

	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 4 << 20
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the server root, e.g. "https://erp.example.com".
	BaseURL string

	// SessionID is sent as the session_id cookie.
	SessionID string

	// HTTPClient is used for all requests. Defaults to a client with a
	// 30 second timeout.
	HTTPClient *http.Client

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a timer.Gateway and timer.Catalog backed by JSON-RPC.
type Client struct {
	endpoint   string
	sessionID  string
	httpClient *http.Client
	logger     *slog.Logger
	nextID     atomic.Int64
}

// NewClient validates config and creates a Client.
func NewClient(config Config) (*Client, error) {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("jsonrpc: base URL is required")
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("jsonrpc: base URL must be http or https (got %q)", baseURL)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:   baseURL + "/web/dataset/call_kw",
		sessionID:  config.SessionID,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// GetRunningTimer implements timer.Gateway.
func (client *Client) GetRunningTimer(ctx context.Context) (*model.TimerRecord, error) {
	var raw json.RawMessage
	if err := client.call(ctx, timesheetModel, "get_running_timer", nil, nil, &raw); err != nil {
		return nil, err
	}
	if isFalsy(raw) {
		return nil, nil
	}
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("get running timer: %w", err)
	}
	return &record, nil
}

// StartTimer implements timer.Gateway.
func (client *Client) StartTimer(ctx context.Context, request model.StartRequest) (model.TimerRecord, error) {
	args := []any{request.Description, request.ProjectID, falseIfZero(request.TaskID), falseIfEmpty(request.TagIDs)}
	var raw json.RawMessage
	if err := client.call(ctx, timesheetModel, "start_timer", args, nil, &raw); err != nil {
		return model.TimerRecord{}, err
	}
	if isFalsy(raw) {
		return model.TimerRecord{}, fmt.Errorf("start timer: server refused (no employee for user)")
	}
	record, err := decodeRecord(raw)
	if err != nil {
		return model.TimerRecord{}, fmt.Errorf("start timer: %w", err)
	}
	return record, nil
}

// StopRunningTimer implements timer.Gateway.
func (client *Client) StopRunningTimer(ctx context.Context) (model.StopResult, error) {
	var raw json.RawMessage
	if err := client.call(ctx, timesheetModel, "stop_running_timer", nil, nil, &raw); err != nil {
		return model.StopResult{}, err
	}
	if isFalsy(raw) {
		return model.StopResult{}, timer.ErrNoRunningTimer
	}
	var result stopResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return model.StopResult{}, fmt.Errorf("stop running timer: decode result: %w", err)
	}
	return model.StopResult{TimerID: int64(result.ID), DurationHours: result.Duration}, nil
}

// AdjustDuration implements timer.Gateway.
func (client *Client) AdjustDuration(ctx context.Context, timerID int64, hours float64) error {
	args := []any{[]int64{timerID}, map[string]any{"unit_amount": hours}}
	var ok bool
	if err := client.call(ctx, timesheetModel, "write", args, nil, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("adjust duration of %d: server returned false", timerID)
	}
	return nil
}

// GetTimerStartTimestamp implements timer.Gateway.
func (client *Client) GetTimerStartTimestamp(ctx context.Context, timerID int64) (time.Time, error) {
	args := []any{[]any{[]any{"id", "=", timerID}}, []string{"date_time"}}
	var rows []startRow
	if err := client.call(ctx, timesheetModel, "search_read", args, map[string]any{"limit": 1}, &rows); err != nil {
		return time.Time{}, err
	}
	if len(rows) == 0 {
		return time.Time{}, fmt.Errorf("get timer start: timer %d not found", timerID)
	}
	return parseServerTime(string(rows[0].DateTime))
}

// UpdateRunningTimer implements timer.Gateway.
func (client *Client) UpdateRunningTimer(ctx context.Context, update model.TimerUpdate) (*model.TimerRecord, error) {
	var raw json.RawMessage
	if err := client.call(ctx, timesheetModel, "update_running_timer", []any{updateValues(update)}, nil, &raw); err != nil {
		return nil, err
	}
	if isFalsy(raw) {
		return nil, timer.ErrNoRunningTimer
	}
	record, err := decodeRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("update running timer: %w", err)
	}
	return &record, nil
}

// IncrementFavoriteUse implements timer.Gateway.
func (client *Client) IncrementFavoriteUse(ctx context.Context, favoriteID int64) error {
	return client.call(ctx, favoriteModel, "increment_use", []any{[]int64{favoriteID}}, nil, nil)
}

// ListProjects implements timer.Catalog.
func (client *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var rows []namedRow
	if err := client.call(ctx, timesheetModel, "get_timer_projects", nil, nil, &rows); err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, model.Project{ID: int64(row.ID), Name: string(row.Name)})
	}
	return projects, nil
}

// ListTasks implements timer.Catalog.
func (client *Client) ListTasks(ctx context.Context, projectID int64) ([]model.Task, error) {
	var rows []namedRow
	if err := client.call(ctx, timesheetModel, "get_timer_tasks", []any{projectID}, nil, &rows); err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, model.Task{ID: int64(row.ID), ProjectID: projectID, Name: string(row.Name)})
	}
	return tasks, nil
}

// ListTags implements timer.Catalog.
func (client *Client) ListTags(ctx context.Context) ([]model.Tag, error) {
	var rows []namedRow
	if err := client.call(ctx, timesheetModel, "get_timer_tags", nil, nil, &rows); err != nil {
		return nil, err
	}
	tags := make([]model.Tag, 0, len(rows))
	for _, row := range rows {
		tags = append(tags, model.Tag{ID: int64(row.ID), Name: string(row.Name), Color: row.Color})
	}
	return tags, nil
}

// ListFavorites implements timer.Catalog.
func (client *Client) ListFavorites(ctx context.Context) ([]model.Favorite, error) {
	var rows []favoriteRow
	if err := client.call(ctx, favoriteModel, "get_my_favorites", nil, nil, &rows); err != nil {
		return nil, err
	}
	favorites := make([]model.Favorite, 0, len(rows))
	for _, row := range rows {
		favorites = append(favorites, model.Favorite{
			ID:          int64(row.ID),
			Description: string(row.Name),
			ProjectID:   int64(row.ProjectID),
			ProjectName: string(row.ProjectName),
			TaskID:      int64(row.TaskID),
			TaskName:    string(row.TaskName),
			TagIDs:      row.TagIDs,
			TagNames:    row.TagNames,
			UseCount:    row.UseCount,
		})
	}
	return favorites, nil
}

// call posts one call_kw request and decodes its result into out. A nil
// out discards the result.
func (client *Client) call(ctx context.Context, modelName, method string, args []any, kwargs map[string]any, out any) error {
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	envelope := request{
		JSONRPC: "2.0",
		Method:  "call",
		ID:      client.nextID.Add(1),
		Params:  requestParams{Model: modelName, Method: method, Args: args, Kwargs: kwargs},
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("%s.%s: encode request: %w", modelName, method, err)
	}

	// Each method gets its own path so server logs show what was called.
	url := client.endpoint + "/" + modelName + "/" + method
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s.%s: build request: %w", modelName, method, err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	if client.sessionID != "" {
		httpRequest.AddCookie(&http.Cookie{Name: "session_id", Value: client.sessionID})
	}

	started := time.Now()
	httpResponse, err := client.httpClient.Do(httpRequest)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", modelName, method, err)
	}
	defer httpResponse.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s.%s: read response: %w", modelName, method, err)
	}
	client.logger.Debug("rpc call",
		"model", modelName,
		"method", method,
		"status", httpResponse.StatusCode,
		"duration", time.Since(started),
	)
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return fmt.Errorf("%s.%s: unexpected status %d", modelName, method, httpResponse.StatusCode)
	}

	var decoded response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return fmt.Errorf("%s.%s: decode response: %w", modelName, method, err)
	}
	if decoded.Error != nil {
		return fmt.Errorf("%s.%s: %w", modelName, method, decoded.Error)
	}
	if out == nil || len(decoded.Result) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = decoded.Result
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return fmt.Errorf("%s.%s: decode result: %w", modelName, method, err)
	}
	return nil
}

func decodeRecord(raw json.RawMessage) (model.TimerRecord, error) {
	var record timerRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return model.TimerRecord{}, fmt.Errorf("decode timer: %w", err)
	}
	return record.model()
}
