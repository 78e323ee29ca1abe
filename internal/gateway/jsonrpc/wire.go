package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"timerbar/internal/core/model"
)

// serverTimeLayout is the server's naive UTC datetime format.
const serverTimeLayout = "2006-01-02 15:04:05"

// request is a JSON-RPC 2.0 call envelope.
type request struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	ID      int64         `json:"id"`
	Params  requestParams `json:"params"`
}

type requestParams struct {
	Model  string         `json:"model"`
	Method string         `json:"method"`
	Args   []any          `json:"args"`
	Kwargs map[string]any `json:"kwargs"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *ServerError    `json:"error"`
}

// ServerError is an error object returned by the server.
type ServerError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"data"`
}

func (err *ServerError) Error() string {
	if err.Data.Message != "" {
		return fmt.Sprintf("server error %d: %s: %s", err.Code, err.Data.Name, err.Data.Message)
	}
	return fmt.Sprintf("server error %d: %s", err.Code, err.Message)
}

// id decodes a many2one id the server sends as a number or false.
type id int64

func (value *id) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*value = 0
		return nil
	}
	var number int64
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*value = id(number)
	return nil
}

// text decodes a string the server may send as false.
type text string

func (value *text) UnmarshalJSON(data []byte) error {
	if isFalsy(data) {
		*value = ""
		return nil
	}
	var decoded string
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("decode text: %w", err)
	}
	*value = text(decoded)
	return nil
}

func isFalsy(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 ||
		bytes.Equal(trimmed, []byte("false")) || bytes.Equal(trimmed, []byte("null"))
}

type timerRecord struct {
	ID          id       `json:"id"`
	Name        text     `json:"name"`
	ProjectID   id       `json:"project_id"`
	ProjectName text     `json:"project_name"`
	TaskID      id       `json:"task_id"`
	TaskName    text     `json:"task_name"`
	DateTime    text     `json:"date_time"`
	TagIDs      []int64  `json:"tag_ids"`
	TagNames    []string `json:"tag_names"`
}

func (record timerRecord) model() (model.TimerRecord, error) {
	startedAt, err := parseServerTime(string(record.DateTime))
	if err != nil {
		return model.TimerRecord{}, err
	}
	return model.TimerRecord{
		ID:          int64(record.ID),
		Description: string(record.Name),
		ProjectID:   int64(record.ProjectID),
		ProjectName: string(record.ProjectName),
		TaskID:      int64(record.TaskID),
		TaskName:    string(record.TaskName),
		TagIDs:      record.TagIDs,
		TagNames:    record.TagNames,
		StartedAt:   startedAt,
	}, nil
}

type stopResult struct {
	ID       id      `json:"id"`
	Duration float64 `json:"duration"`
}

type startRow struct {
	ID       id   `json:"id"`
	DateTime text `json:"date_time"`
}

type namedRow struct {
	ID    id   `json:"id"`
	Name  text `json:"name"`
	Color int  `json:"color"`
}

type favoriteRow struct {
	ID          id       `json:"id"`
	Name        text     `json:"name"`
	ProjectID   id       `json:"project_id"`
	ProjectName text     `json:"project_name"`
	TaskID      id       `json:"task_id"`
	TaskName    text     `json:"task_name"`
	TagIDs      []int64  `json:"tag_ids"`
	TagNames    []string `json:"tag_names"`
	UseCount    int      `json:"use_count"`
}

func parseServerTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("parse server time: empty value")
	}
	parsed, err := time.ParseInLocation(serverTimeLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse server time %q: %w", value, err)
	}
	return parsed, nil
}

// updateValues converts a partial edit into the server's vals dict.
func updateValues(update model.TimerUpdate) map[string]any {
	values := make(map[string]any)
	if update.Description != nil {
		values["name"] = *update.Description
	}
	if update.ProjectID != nil {
		values["project_id"] = *update.ProjectID
	}
	if update.TaskID != nil {
		if *update.TaskID == 0 {
			values["task_id"] = false
		} else {
			values["task_id"] = *update.TaskID
		}
	}
	if update.SetTags {
		tagIDs := update.TagIDs
		if tagIDs == nil {
			tagIDs = []int64{}
		}
		values["tag_ids"] = tagIDs
	}
	return values
}

func falseIfZero(value int64) any {
	if value == 0 {
		return false
	}
	return value
}

func falseIfEmpty(values []int64) any {
	if len(values) == 0 {
		return false
	}
	return values
}
