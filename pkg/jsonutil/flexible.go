// Package jsonutil handles loosely-typed JSON values coming from imported
// property data, where scraped sources return numbers as strings, booleans
// as numbers, and so on.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling
// sources that return numbers or booleans where strings are expected.
// Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	return string(raw)
}

// FlexibleFloat converts an arbitrary decoded JSON value to a float64.
// Accepts numbers, numeric strings ("250000", "$250,000"), and booleans
// (true=1). The second return is false when no numeric reading exists.
func FlexibleFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		cleaned := strings.TrimSpace(val)
		cleaned = strings.ReplaceAll(cleaned, ",", "")
		cleaned = strings.TrimPrefix(cleaned, "$")
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FlexibleString converts an arbitrary decoded JSON value to a string.
// The second return is false for nil and composite values.
func FlexibleString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), true
		}
		return strconv.FormatFloat(val, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}
