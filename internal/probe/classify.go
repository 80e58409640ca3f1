package probe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Classifier judges an HTTP health response. It returns nil if the store
// is available and a descriptive error otherwise.
type Classifier func(body []byte, statusCode int) error

// ErrUnhealthy is wrapped by classifier errors for responses that were
// received but report the store as unhealthy.
var ErrUnhealthy = errors.New("store reported unhealthy")

// StatusCodeClassifier accepts any 2xx status code.
func StatusCodeClassifier(body []byte, statusCode int) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return fmt.Errorf("%w: http status %d", ErrUnhealthy, statusCode)
}

// JSONFieldClassifier returns a [Classifier] that requires a 2xx response
// whose JSON field at path (dot notation, e.g. "data.health.status") holds a
// healthy value: "ok", "healthy", "up", "pass", "true", "1" and similar.
//
// Example:
//
//	// For response: {"ok": 1}  (MongoDB-style ping)
//	c := probe.JSONFieldClassifier("ok")
func JSONFieldClassifier(path string) Classifier {
	parts := strings.Split(path, ".")

	return func(body []byte, statusCode int) error {
		if err := StatusCodeClassifier(body, statusCode); err != nil {
			return err
		}

		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return fmt.Errorf("%w: invalid json: %v", ErrUnhealthy, err)
		}

		value, ok := extractJSONPath(data, parts)
		if !ok {
			return fmt.Errorf("%w: field %q missing", ErrUnhealthy, path)
		}
		if !isHealthyValue(strings.ToLower(value)) {
			return fmt.Errorf("%w: %s=%q", ErrUnhealthy, path, value)
		}
		return nil
	}
}

// ContainsClassifier returns a [Classifier] that requires a 2xx response
// whose body contains text (case-insensitive).
func ContainsClassifier(text string) Classifier {
	lower := strings.ToLower(text)
	return func(body []byte, statusCode int) error {
		if err := StatusCodeClassifier(body, statusCode); err != nil {
			return err
		}
		if !strings.Contains(strings.ToLower(string(body)), lower) {
			return fmt.Errorf("%w: body does not contain %q", ErrUnhealthy, text)
		}
		return nil
	}
}

// extractJSONPath walks a JSON structure using dot notation parts.
func extractJSONPath(data interface{}, parts []string) (string, bool) {
	current := data

	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current, ok = obj[part]
		if !ok {
			return "", false
		}
	}

	switch v := current.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func isHealthyValue(s string) bool {
	switch s {
	case "ok", "healthy", "up", "active", "running", "pass", "passed", "true", "1", "green", "operational":
		return true
	default:
		return false
	}
}
