package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// AnswerKind tags an AnswerValue
type AnswerKind string

const (
	AnswerSimple AnswerKind = "simple"
	AnswerCustom AnswerKind = "custom"
)

// UploadedMarker is the value a custom flow stores for a file field once the
// file itself has been uploaded separately
const UploadedMarker = "uploaded"

// AnswerValue is the decoded form of a stored answer.
// Simple answers carry Text, Options or FileURL; custom answers carry Fields
// keyed by custom question id (internal keys start with an underscore).
type AnswerValue struct {
	Kind    AnswerKind        `json:"kind"`
	Text    string            `json:"text,omitempty"`
	Options []string          `json:"options,omitempty"`
	FileURL string            `json:"file_url,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ClassifiedAnswer holds the storage columns for one answer
type ClassifiedAnswer struct {
	Text    *string
	Options []byte
	FileURL *string
}

// ClassifyAnswer maps a raw JSON answer onto storage columns: arrays and
// objects become an options payload, URL-like strings a file url, anything
// else free text. Strings are stored trimmed.
func ClassifyAnswer(raw json.RawMessage) (ClassifiedAnswer, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		empty := ""
		return ClassifiedAnswer{Text: &empty}, nil
	}

	switch trimmed[0] {
	case '[', '{':
		if !json.Valid(trimmed) {
			return ClassifiedAnswer{}, fmt.Errorf("answer is not valid json")
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return ClassifiedAnswer{}, fmt.Errorf("compact answer: %w", err)
		}
		return ClassifiedAnswer{Options: compact.Bytes()}, nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return ClassifiedAnswer{}, fmt.Errorf("decode answer string: %w", err)
		}
		s = strings.TrimSpace(s)
		if IsURLLike(s) {
			return ClassifiedAnswer{FileURL: &s}, nil
		}
		return ClassifiedAnswer{Text: &s}, nil
	default:
		var v interface{}
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return ClassifiedAnswer{}, fmt.Errorf("decode answer: %w", err)
		}
		s := scalarString(v)
		return ClassifiedAnswer{Text: &s}, nil
	}
}

// Equal reports whether two classified answers store the same value
func (c ClassifiedAnswer) Equal(entry *AnswerHistoryEntry) bool {
	if entry == nil {
		return false
	}
	return ptrEqual(c.Text, entry.AnswerText) &&
		ptrEqual(c.FileURL, entry.AnswerFileURL) &&
		jsonEqual(c.Options, entry.AnswerOptions)
}

// DecodeAnswer is the single decoder for stored answers. Legacy rows that
// smuggled a JSON object through the text column decode as custom answers.
func DecodeAnswer(entry *AnswerHistoryEntry) AnswerValue {
	if entry == nil {
		return AnswerValue{Kind: AnswerSimple}
	}
	if entry.AnswerFileURL != nil && *entry.AnswerFileURL != "" {
		return AnswerValue{Kind: AnswerSimple, FileURL: *entry.AnswerFileURL}
	}
	if len(bytes.TrimSpace(entry.AnswerOptions)) > 0 {
		if v, ok := decodeStructured(entry.AnswerOptions); ok {
			return v
		}
	}
	if entry.AnswerText != nil {
		text := *entry.AnswerText
		if t := strings.TrimSpace(text); strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
			if v, ok := decodeStructured([]byte(t)); ok {
				return v
			}
		}
		return AnswerValue{Kind: AnswerSimple, Text: text}
	}
	return AnswerValue{Kind: AnswerSimple}
}

// DecodeRawAnswer decodes an answer as submitted by a client, before storage
func DecodeRawAnswer(raw json.RawMessage) (AnswerValue, error) {
	c, err := ClassifyAnswer(raw)
	if err != nil {
		return AnswerValue{}, err
	}
	return DecodeAnswer(&AnswerHistoryEntry{AnswerText: c.Text, AnswerOptions: c.Options, AnswerFileURL: c.FileURL}), nil
}

func decodeStructured(data []byte) (AnswerValue, bool) {
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return AnswerValue{}, false
	}
	switch v := generic.(type) {
	case []interface{}:
		opts := make([]string, 0, len(v))
		for _, item := range v {
			if s := scalarString(item); s != "" {
				opts = append(opts, s)
			}
		}
		return AnswerValue{Kind: AnswerSimple, Options: opts}, true
	case map[string]interface{}:
		fields := make(map[string]string, len(v))
		for k, item := range v {
			fields[k] = fieldString(item)
		}
		return AnswerValue{Kind: AnswerCustom, Fields: fields}, true
	}
	return AnswerValue{}, false
}

// IsEmpty reports whether the answer carries no user content
func (a AnswerValue) IsEmpty() bool {
	switch a.Kind {
	case AnswerCustom:
		for k, v := range a.Fields {
			if !IsInternalField(k) && strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	default:
		return strings.TrimSpace(a.Text) == "" && len(a.Options) == 0 && a.FileURL == ""
	}
}

// CustomFlowComplete applies the completion check for custom sub-flows: at
// least one non-empty, non-placeholder text value, or an uploaded file.
func (a AnswerValue) CustomFlowComplete() bool {
	if a.Kind != AnswerCustom {
		return false
	}
	for k, v := range a.Fields {
		if IsInternalField(k) {
			continue
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if v == UploadedMarker || IsURLLike(v) {
			return true
		}
		if !isPlaceholderValue(v) {
			return true
		}
	}
	return false
}

// PickedID returns the chosen option id for single-choice answers
func (a AnswerValue) PickedID() string {
	if a.Kind != AnswerSimple {
		return ""
	}
	if len(a.Options) > 0 {
		return a.Options[0]
	}
	return strings.TrimSpace(a.Text)
}

// LabeledValue is one line of a human-readable custom answer
type LabeledValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SummarizeFields expands a custom answer into labeled lines ordered by
// label, skipping internal markers, empty values and the upload placeholder.
// labels maps field keys to question text; unknown keys use the key itself.
func (a AnswerValue) SummarizeFields(labels map[string]string) []LabeledValue {
	if a.Kind != AnswerCustom {
		return nil
	}
	out := make([]LabeledValue, 0, len(a.Fields))
	for k, v := range a.Fields {
		v = strings.TrimSpace(v)
		if IsInternalField(k) || v == "" || v == UploadedMarker {
			continue
		}
		label := labels[k]
		if label == "" {
			label = k
		}
		if IsURLLike(v) {
			v = "Image uploaded: " + v
		}
		out = append(out, LabeledValue{Label: label, Value: v})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label == out[j].Label {
			return out[i].Value < out[j].Value
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// Interface returns the answer in the shape clients submit it
func (a AnswerValue) Interface() interface{} {
	switch {
	case a.Kind == AnswerCustom:
		return a.Fields
	case a.FileURL != "":
		return a.FileURL
	case a.Options != nil:
		return a.Options
	default:
		return a.Text
	}
}

// IsInternalField reports whether a custom-answer key is a bookkeeping marker
func IsInternalField(key string) bool {
	return strings.HasPrefix(key, "_")
}

// IsURLLike reports whether s looks like an uploaded file location
func IsURLLike(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "http://")
}

func isPlaceholderValue(v string) bool {
	switch strings.ToLower(v) {
	case UploadedMarker, "null", "undefined":
		return true
	}
	return false
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func fieldString(v interface{}) string {
	if arr, ok := v.([]interface{}); ok {
		parts := make([]string, 0, len(arr))
		for _, item := range arr {
			if s := scalarString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return scalarString(v)
}

// jsonEqual compares documents semantically; jsonb does not preserve formatting
func jsonEqual(a, b []byte) bool {
	a, b = bytes.TrimSpace(a), bytes.TrimSpace(b)
	if len(a) == 0 || len(b) == 0 {
		return len(a) == 0 && len(b) == 0
	}
	var va, vb interface{}
	if json.Unmarshal(a, &va) != nil || json.Unmarshal(b, &vb) != nil {
		return bytes.Equal(a, b)
	}
	return reflect.DeepEqual(va, vb)
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
