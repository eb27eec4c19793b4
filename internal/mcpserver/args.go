package mcpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/danielolaszy/glue-mcp/internal/errors"
	"github.com/danielolaszy/glue-mcp/pkg/models"
)

// arguments is the decoded JSON object passed to a tool.
type arguments map[string]any

// decodeArguments accepts an absent body, null or a JSON object.
func decodeArguments(raw json.RawMessage) (arguments, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return arguments{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(trimmed, &args); err != nil {
		return nil, apperrors.Validation("arguments", "arguments must be a JSON object")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// present reports whether name was supplied with a non-null value.
func (a arguments) present(name string) bool {
	v, ok := a[name]
	return ok && v != nil
}

func (a arguments) requiredString(name string) (string, error) {
	if !a.present(name) {
		return "", apperrors.MissingField(name)
	}
	s, ok := a[name].(string)
	if !ok {
		return "", apperrors.Validation(name, name+" must be a string")
	}
	if strings.TrimSpace(s) == "" {
		return "", apperrors.MissingField(name)
	}
	return s, nil
}

func (a arguments) optionalString(name string) (*string, error) {
	if !a.present(name) {
		return nil, nil
	}
	s, ok := a[name].(string)
	if !ok {
		return nil, apperrors.Validation(name, name+" must be a string")
	}
	return &s, nil
}

func (a arguments) optionalStrings(name string) ([]string, error) {
	if !a.present(name) {
		return nil, nil
	}
	items, ok := a[name].([]any)
	if !ok {
		return nil, apperrors.Validation(name, name+" must be an array of strings")
	}
	values := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, apperrors.Validation(name, fmt.Sprintf("%s[%d] must be a string", name, i))
		}
		values = append(values, s)
	}
	return values, nil
}

func (a arguments) optionalNumber(name string) (*float64, error) {
	if !a.present(name) {
		return nil, nil
	}
	n, ok := a[name].(float64)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, apperrors.Validation(name, name+" must be a number")
	}
	return &n, nil
}

func (a arguments) optionalObject(name string) (map[string]any, error) {
	if !a.present(name) {
		return nil, nil
	}
	obj, ok := a[name].(map[string]any)
	if !ok {
		return nil, apperrors.Validation(name, name+" must be an object")
	}
	return obj, nil
}

func (a arguments) optionalPriority(name string) (*models.Priority, error) {
	s, err := a.optionalString(name)
	if err != nil || s == nil {
		return nil, err
	}
	p := models.ParsePriority(*s)
	return &p, nil
}

func (a arguments) optionalState(name string) (*models.StateType, error) {
	s, err := a.optionalString(name)
	if err != nil || s == nil {
		return nil, err
	}
	if strings.TrimSpace(*s) == "" {
		return nil, apperrors.Validation(name, name+" cannot be empty")
	}
	st := models.ParseStateType(*s)
	return &st, nil
}

// optionalDate accepts a calendar date or a full RFC 3339 timestamp.
func (a arguments) optionalDate(name string) (*time.Time, error) {
	s, err := a.optionalString(name)
	if err != nil || s == nil {
		return nil, err
	}
	if t, err := time.Parse(time.DateOnly, *s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, apperrors.Validation(name, name+" must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	return &t, nil
}
