package models

import (
	"encoding/json"
)

// LogEntry is one backend-defined log record, kept as raw JSON.
type LogEntry json.RawMessage

// MarshalJSON implements json.Marshaler.
func (e LogEntry) MarshalJSON() ([]byte, error) {
	if len(e) == 0 {
		return []byte("null"), nil
	}
	return e, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *LogEntry) UnmarshalJSON(data []byte) error {
	*e = append((*e)[0:0], data...)
	return nil
}

// Text returns the entry as display text: the string itself for JSON strings,
// the raw JSON otherwise.
func (e LogEntry) Text() string {
	var line string
	if err := json.Unmarshal(e, &line); err == nil {
		return line
	}
	return string(e)
}

// TextLogEntry builds an entry holding a single log line.
func TextLogEntry(line string) LogEntry {
	data, _ := json.Marshal(line)
	return LogEntry(data)
}

// LogsResponse is the wrapper the backend puts around log entries.
type LogsResponse struct {
	Logs []LogEntry `json:"logs"`
}
