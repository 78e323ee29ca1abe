package jsonrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timerbar/internal/core/model"
	"timerbar/internal/core/timer"
)

type call struct {
	path   string
	model  string
	method string
	args   []any
	kwargs map[string]any
	cookie string
}

// fakeServer answers call_kw requests from a method → result table.
type fakeServer struct {
	mu      sync.Mutex
	results map[string]string
	errors  map[string]string
	calls   []call
}

func newFakeServer(t *testing.T) (*fakeServer, *Client) {
	t.Helper()
	fake := &fakeServer{results: map[string]string{}, errors: map[string]string{}}
	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{BaseURL: server.URL + "/", SessionID: "abc123"})
	require.NoError(t, err)
	return fake, client
}

func (fake *fakeServer) serve(writer http.ResponseWriter, request *http.Request) {
	var envelope struct {
		ID     int64 `json:"id"`
		Params struct {
			Model  string         `json:"model"`
			Method string         `json:"method"`
			Args   []any          `json:"args"`
			Kwargs map[string]any `json:"kwargs"`
		} `json:"params"`
	}
	if err := json.NewDecoder(request.Body).Decode(&envelope); err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}
	cookie := ""
	if session, err := request.Cookie("session_id"); err == nil {
		cookie = session.Value
	}

	fake.mu.Lock()
	fake.calls = append(fake.calls, call{
		path:   request.URL.Path,
		model:  envelope.Params.Model,
		method: envelope.Params.Method,
		args:   envelope.Params.Args,
		kwargs: envelope.Params.Kwargs,
		cookie: cookie,
	})
	result, hasResult := fake.results[envelope.Params.Method]
	message, hasError := fake.errors[envelope.Params.Method]
	fake.mu.Unlock()

	writer.Header().Set("Content-Type", "application/json")
	switch {
	case hasError:
		writer.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":200,"message":"Odoo Server Error","data":{"name":"odoo.exceptions.UserError","message":"` + message + `"}}}`))
	case hasResult:
		writer.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	default:
		writer.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":false}`))
	}
}

func (fake *fakeServer) last(t *testing.T) call {
	t.Helper()
	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.calls)
	return fake.calls[len(fake.calls)-1]
}

const runningJSON = `{"id":42,"name":"Review","project_id":7,"project_name":"Internal","task_id":false,"task_name":"","date_time":"2026-03-02 09:00:00","tag_ids":[1],"tag_names":["billable"]}`

func TestNewClientValidatesBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	_, err = NewClient(Config{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestGetRunningTimer(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["get_running_timer"] = runningJSON

	record, err := client.GetRunningTimer(context.Background())

	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, int64(42), record.ID)
	require.Equal(t, "Internal", record.ProjectName)
	require.Zero(t, record.TaskID)
	require.Equal(t, []string{"billable"}, record.TagNames)
	require.Equal(t, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), record.StartedAt)

	sent := fake.last(t)
	require.Equal(t, "/web/dataset/call_kw/account.analytic.line/get_running_timer", sent.path)
	require.Equal(t, "account.analytic.line", sent.model)
	require.Equal(t, "abc123", sent.cookie)
}

func TestGetRunningTimerNone(t *testing.T) {
	_, client := newFakeServer(t)

	record, err := client.GetRunningTimer(context.Background())

	require.NoError(t, err)
	require.Nil(t, record)
}

func TestStartTimerSendsFalseForMissingOptionals(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["start_timer"] = runningJSON

	record, err := client.StartTimer(context.Background(), model.StartRequest{Description: "Review", ProjectID: 7})

	require.NoError(t, err)
	require.Equal(t, int64(42), record.ID)
	sent := fake.last(t)
	require.Equal(t, []any{"Review", float64(7), false, false}, sent.args)
}

func TestStopRunningTimer(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["stop_running_timer"] = `{"id":42,"duration":1.25}`

	result, err := client.StopRunningTimer(context.Background())

	require.NoError(t, err)
	require.Equal(t, model.StopResult{TimerID: 42, DurationHours: 1.25}, result)
}

func TestStopRunningTimerNothingRunning(t *testing.T) {
	_, client := newFakeServer(t)

	_, err := client.StopRunningTimer(context.Background())

	require.ErrorIs(t, err, timer.ErrNoRunningTimer)
}

func TestAdjustDurationWritesUnitAmount(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["write"] = "true"

	require.NoError(t, client.AdjustDuration(context.Background(), 42, 0.5))

	sent := fake.last(t)
	require.Equal(t, "write", sent.method)
	require.Equal(t, []any{[]any{float64(42)}, map[string]any{"unit_amount": 0.5}}, sent.args)
}

func TestGetTimerStartTimestamp(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["search_read"] = `[{"id":42,"date_time":"2026-03-02 08:30:00"}]`

	startedAt, err := client.GetTimerStartTimestamp(context.Background(), 42)

	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC), startedAt)
	sent := fake.last(t)
	require.Equal(t, map[string]any{"limit": float64(1)}, sent.kwargs)
}

func TestGetTimerStartTimestampMissing(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["search_read"] = `[]`

	_, err := client.GetTimerStartTimestamp(context.Background(), 42)

	require.Error(t, err)
}

func TestUpdateRunningTimerSendsOnlySetFields(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["update_running_timer"] = runningJSON
	description := "Review"
	var noTask int64

	record, err := client.UpdateRunningTimer(context.Background(), model.TimerUpdate{Description: &description, TaskID: &noTask})

	require.NoError(t, err)
	require.Equal(t, int64(42), record.ID)
	sent := fake.last(t)
	require.Equal(t, []any{map[string]any{"name": "Review", "task_id": false}}, sent.args)
}

func TestServerErrorIsWrapped(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.errors["start_timer"] = "Cannot stop timer 3 because it is not running."

	_, err := client.StartTimer(context.Background(), model.StartRequest{ProjectID: 7})

	require.Error(t, err)
	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	require.True(t, strings.Contains(err.Error(), "not running"))
}

func TestHTTPStatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		http.Error(writer, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	client, err := NewClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.GetRunningTimer(context.Background())

	require.ErrorContains(t, err, "unexpected status 502")
}

func TestCatalog(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["get_timer_projects"] = `[{"id":7,"name":"Internal"}]`
	fake.results["get_timer_tasks"] = `[{"id":70,"name":"Planning"}]`
	fake.results["get_timer_tags"] = `[{"id":1,"name":"billable","color":3}]`
	fake.results["get_my_favorites"] = `[{"id":5,"name":"Standup","project_id":7,"project_name":"Internal","task_id":false,"task_name":"","tag_ids":[],"tag_names":[],"use_count":4}]`

	projects, err := client.ListProjects(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Project{{ID: 7, Name: "Internal"}}, projects)

	tasks, err := client.ListTasks(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []model.Task{{ID: 70, ProjectID: 7, Name: "Planning"}}, tasks)

	tags, err := client.ListTags(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, tags[0].Color)

	favorites, err := client.ListFavorites(context.Background())
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	require.Equal(t, "Standup", favorites[0].Description)
	require.Equal(t, 4, favorites[0].UseCount)
	require.Equal(t, "hr.timesheet.favorite", fake.last(t).model)
}

func TestClientDrivesStore(t *testing.T) {
	fake, client := newFakeServer(t)
	fake.results["start_timer"] = runningJSON
	fake.results["stop_running_timer"] = `{"id":42,"duration":0.1}`
	store := timer.NewStore(timer.StoreConfig{Gateway: client})
	t.Cleanup(store.Close)

	_, err := store.Start(context.Background(), model.StartRequest{ProjectID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(42), store.State().RunningTimerID)

	require.NoError(t, store.Stop(context.Background()))
	require.False(t, store.State().IsRunning)
}
