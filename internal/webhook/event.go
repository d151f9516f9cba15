// Package webhook parses and classifies App Store Connect CI webhook
// deliveries. Apple has shipped two payload shapes for the same events (the
// raw CI webhook and a JSON:API-style envelope); extraction tolerates both
// by trying an ordered list of field paths, first match wins.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Class is the lifecycle bucket an event falls into.
type Class int

const (
	ClassIgnored Class = iota
	ClassStarted
	ClassFinished
)

func (c Class) String() string {
	switch c {
	case ClassStarted:
		return "started"
	case ClassFinished:
		return "finished"
	default:
		return "ignored"
	}
}

// Event is the normalized form of a CI webhook payload.
type Event struct {
	Type       string
	BuildID    string
	AppID      string
	WorkflowID string
}

type fieldPath []string

var (
	eventTypePaths = []fieldPath{
		{"metadata", "attributes", "eventType"},
		{"data", "type"},
	}
	buildIDPaths = []fieldPath{
		{"ciBuildRun", "id"},
		{"data", "id"},
	}
	appIDPaths = []fieldPath{
		{"app", "id"},
		{"data", "relationships", "app", "data", "id"},
	}
	workflowIDPaths = []fieldPath{
		{"ciWorkflow", "id"},
		{"data", "relationships", "ciWorkflow", "data", "id"},
	}
)

// Parse decodes a raw webhook body and extracts the normalized event fields.
// It only fails on malformed JSON; missing fields are left empty and checked
// by Complete so the caller can distinguish 400 from 422.
func Parse(rawBody []byte) (*Event, error) {
	var tree map[string]any
	if err := json.Unmarshal(rawBody, &tree); err != nil {
		return nil, fmt.Errorf("invalid json payload: %w", err)
	}
	if len(tree) == 0 {
		return nil, fmt.Errorf("invalid json payload: empty object")
	}

	return &Event{
		Type:       strings.ToUpper(firstMatch(tree, eventTypePaths)),
		BuildID:    firstMatch(tree, buildIDPaths),
		AppID:      firstMatch(tree, appIDPaths),
		WorkflowID: firstMatch(tree, workflowIDPaths),
	}, nil
}

// Complete reports whether the fields required for classification are present.
func (e *Event) Complete() bool {
	return e.Type != "" && e.BuildID != "" && e.AppID != ""
}

// Classify maps the event type onto a lifecycle transition. Unknown event
// types are ignored rather than rejected; Apple adds event types over time.
func (e *Event) Classify() Class {
	switch e.Type {
	case "BUILD_CREATED", "BUILD_STARTED":
		return ClassStarted
	case "BUILD_COMPLETED", "BUILD_FAILED", "BUILD_CANCELED":
		return ClassFinished
	default:
		return ClassIgnored
	}
}

// firstMatch returns the first non-empty scalar found at any of the paths.
func firstMatch(tree map[string]any, paths []fieldPath) string {
	for _, p := range paths {
		if v, ok := valueAt(tree, p); ok {
			return v
		}
	}
	return ""
}

// valueAt walks nested objects along path and returns the scalar at the end,
// trimmed. Arrays, objects and empty strings count as absent.
func valueAt(tree map[string]any, path fieldPath) (string, bool) {
	var cursor any = tree
	for _, segment := range path {
		node, ok := cursor.(map[string]any)
		if !ok {
			return "", false
		}
		cursor, ok = node[segment]
		if !ok {
			return "", false
		}
	}

	var value string
	switch v := cursor.(type) {
	case string:
		value = v
	case float64:
		value = fmt.Sprintf("%v", v)
	case bool:
		value = fmt.Sprintf("%t", v)
	default:
		return "", false
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}
