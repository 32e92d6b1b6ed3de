// Package telemetry records one structured LogEvent per tool call and per
// dispatch into an append-only Sink.
package telemetry

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// EventType distinguishes tool events from agent (dispatch) events.
type EventType string

const (
	// EventTool is emitted once per bound tool invocation.
	EventTool EventType = "tool"
	// EventAgent is emitted once per dispatch that passes the field guard.
	EventAgent EventType = "agent"
)

// LogEvent is one telemetry record. Payloads are expected to be JSON-safe
// (see JSONSafe).
type LogEvent struct {
	Type            EventType
	Name            string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds float64
	Message         string
	Context         map[string]any
	Request         any
	Response        any
}

// NewEvent builds a LogEvent with the duration derived from the timestamps
// and payloads coerced via JSONSafe.
func NewEvent(typ EventType, name string, start, end time.Time, request, response any) LogEvent {
	return LogEvent{
		Type:            typ,
		Name:            name,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: end.Sub(start).Seconds(),
		Request:         JSONSafe(request),
		Response:        JSONSafe(response),
	}
}

// MarshalJSON renders the JSONL record. Tool events carry tool_name with
// top-level request/response; agent events carry agent_name, message,
// context and an output object holding request and response.
func (e LogEvent) MarshalJSON() ([]byte, error) {
	rec := map[string]any{
		"type":             e.Type,
		"start_time":       e.StartTime.UTC().Format(time.RFC3339Nano),
		"end_time":         e.EndTime.UTC().Format(time.RFC3339Nano),
		"duration_seconds": e.DurationSeconds,
	}

	switch e.Type {
	case EventAgent:
		rec["agent_name"] = e.Name
		rec["message"] = e.Message
		rec["context"] = e.Context
		rec["output"] = map[string]any{"request": e.Request, "response": e.Response}
	default:
		rec["tool_name"] = e.Name
		rec["request"] = e.Request
		rec["response"] = e.Response
	}

	return json.Marshal(rec)
}

// JSONSafe returns a value that json.Marshal always accepts. Values that
// marshal cleanly are round-tripped into plain maps, slices and scalars;
// values that do not are rendered as their fmt display text, recursively for
// maps and slices.
func JSONSafe(v any) any {
	if v == nil {
		return nil
	}

	if data, err := json.Marshal(v); err == nil {
		var out any
		if err := json.Unmarshal(data, &out); err == nil {
			return out
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprintf("%v", iter.Key().Interface())] = JSONSafe(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = JSONSafe(rv.Index(i).Interface())
		}
		return out
	default:
		return fmt.Sprintf("%v", v)
	}
}

// JSONSafeMap is JSONSafe for string keyed maps.
func JSONSafeMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	if out, ok := JSONSafe(m).(map[string]any); ok {
		return out
	}
	return map[string]any{}
}
