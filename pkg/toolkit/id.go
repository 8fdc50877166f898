// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID identifies an agent or an action call. The platform sends numeric IDs
// but strings are accepted too; numeric IDs are written back as numbers.
type ID string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a number or string: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

// MarshalJSON writes numeric IDs as numbers, others as strings and the empty
// ID as null.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if id.IsNumeric() {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// IsNumeric reports whether the ID is an unsigned integer in canonical
// form, so that writing it unquoted is valid JSON. "007" is not numeric.
func (id ID) IsNumeric() bool {
	if id == "" {
		return false
	}
	n, err := strconv.ParseUint(string(id), 10, 64)
	return err == nil && strconv.FormatUint(n, 10) == string(id)
}

// String returns the ID as text.
func (id ID) String() string {
	return string(id)
}
