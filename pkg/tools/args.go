// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// normalizeArgs turns the many shapes a model or caller may hand a tool into
// an argument map. A non-JSON string becomes the value of fallbackKey.
func normalizeArgs(input any, fallbackKey string) (map[string]any, error) {
	switch value := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return value, nil
	case json.RawMessage:
		return decodeArgs(value)
	case []byte:
		return decodeArgs(value)
	case string:
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			return map[string]any{}, nil
		}
		if strings.HasPrefix(trimmed, "{") {
			if decoded, err := decodeArgs([]byte(trimmed)); err == nil {
				return decoded, nil
			}
		}
		if fallbackKey == "" {
			return nil, invalidArgs("tool args: expected a JSON object")
		}
		return map[string]any{fallbackKey: value}, nil
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, invalidArgs(fmt.Sprintf("tool args: unsupported type %T", input))
		}
		return decodeArgs(encoded)
	}
}

func decodeArgs(raw []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]any{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.New(errors.CodeInvalidArguments, "tool args: invalid JSON", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return decoded, nil
}

func requiredString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", invalidArgs(fmt.Sprintf("tool args: missing required field %q", key))
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", invalidArgs(fmt.Sprintf("tool args: field %q must be a non-empty string", key))
	}
	return s, nil
}

// optionalNumber reads a number that models sometimes send as a string.
func optionalNumber(args map[string]any, key string) (*float64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case float64:
		return &v, nil
	case int:
		f := float64(v)
		return &f, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, invalidArgs(fmt.Sprintf("tool args: field %q must be a number", key))
		}
		return &f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, invalidArgs(fmt.Sprintf("tool args: field %q must be a number", key))
		}
		return &f, nil
	default:
		return nil, invalidArgs(fmt.Sprintf("tool args: field %q must be a number", key))
	}
}

func invalidArgs(msg string) error {
	return errors.New(errors.CodeInvalidArguments, msg, nil)
}
