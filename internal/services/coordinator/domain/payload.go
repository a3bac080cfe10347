package domain

import (
	"encoding/json"
	"fmt"
	"time"

	verrs "github.com/volunteerhub/eventms/internal/errors"
)

// decodePayload parses an action data payload into a typed input. Absent
// payloads decode as empty objects so read-only actions can omit data.
func decodePayload(data json.RawMessage, target any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, target); err != nil {
		return verrs.Wrap(verrs.CodeValidation, fmt.Sprintf("invalid payload: %v", err), err)
	}
	return nil
}

// decodeFields parses an action data payload into a loose field map for
// partial-update actions.
func decodeFields(data json.RawMessage) (map[string]any, error) {
	fields := map[string]any{}
	if err := decodePayload(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// filterUpdateFields keeps only the allowed keys of a partial update,
// parsing time-valued keys from their wire form. Unknown keys are ignored,
// matching the permissive update contract of the original API.
func filterUpdateFields(raw map[string]any, allowed map[string]bool, timeKeys map[string]bool) (map[string]any, error) {
	filtered := make(map[string]any, len(raw))
	for key, value := range raw {
		if !allowed[key] {
			continue
		}
		if timeKeys[key] {
			parsed, err := parseWireTime(key, value)
			if err != nil {
				return nil, err
			}
			filtered[key] = parsed
			continue
		}
		filtered[key] = value
	}
	return filtered, nil
}

// parseWireTime converts an ISO-8601 string payload value to time.Time.
func parseWireTime(key string, value any) (time.Time, error) {
	text, ok := value.(string)
	if !ok {
		return time.Time{}, verrs.New(verrs.CodeValidation,
			fmt.Sprintf("field %q must be an ISO-8601 string", key))
	}
	parsed, err := time.Parse(time.RFC3339, text)
	if err != nil {
		return time.Time{}, verrs.Wrap(verrs.CodeValidation,
			fmt.Sprintf("field %q is not a valid ISO-8601 timestamp: %v", key, err), err)
	}
	return parsed.UTC(), nil
}
