// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkit

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/unifai-network/unifai-sdk-go/pkg/errors"
)

// Definition is what the platform shows agents about an action.
type Definition struct {
	Name        string `json:"-"`
	Description string `json:"description"`
	// Payload describes the expected arguments. It is free-form (text or a
	// JSON object) and is not enforced as a schema.
	Payload any `json:"payload,omitempty"`
	// Payment describes pricing. It is passed through unchanged.
	Payment any `json:"payment,omitempty"`
}

// MarshalJSON includes the name so a Definition can be listed on its own.
func (d Definition) MarshalJSON() ([]byte, error) {
	type alias Definition
	return json.Marshal(struct {
		Name string `json:"name,omitempty"`
		alias
	}{Name: d.Name, alias: alias(d)})
}

// Result is what an action returns on success.
type Result struct {
	Output  any
	Payment *float64
}

// Action is a named operation a toolkit exposes. Implementations must be
// safe for concurrent use.
type Action interface {
	Name() string
	Definition() Definition
	// Invoke runs the action. Errors carrying errors.CodeInvalidArguments are
	// reported as invalid arguments; any other error is a handler error.
	Invoke(ctx context.Context, actx *Context, payload json.RawMessage) (*Result, error)
}

// Params carries the decoded arguments of a call.
type Params[A any] struct {
	Payload A
	Payment *float64
}

// Output is what a typed handler returns.
type Output[O any] struct {
	Payload O
	Payment *float64
}

// Handler is the calling convention for typed actions.
type Handler[A, O any] func(ctx context.Context, actx *Context, params Params[A]) (Output[O], error)

// Validator may be implemented by argument types to check decoded values.
type Validator interface {
	Validate() error
}

type typedAction[A, O any] struct {
	def     Definition
	handler Handler[A, O]
}

// NewAction builds an Action from a typed handler. Arguments are decoded from
// the call payload into A and checked with `validate` struct tags and, when A
// implements Validator, its Validate method, before the handler runs.
func NewAction[A, O any](def Definition, handler Handler[A, O]) Action {
	return &typedAction[A, O]{def: def, handler: handler}
}

func (a *typedAction[A, O]) Name() string {
	return a.def.Name
}

func (a *typedAction[A, O]) Definition() Definition {
	return a.def
}

func (a *typedAction[A, O]) Invoke(ctx context.Context, actx *Context, payload json.RawMessage) (*Result, error) {
	var args A
	if err := DecodeArguments(payload, &args); err != nil {
		return nil, errors.New(errors.CodeInvalidArguments, err.Error(), err).
			WithContext("action", a.def.Name)
	}

	params := Params[A]{Payload: args}
	if actx != nil {
		params.Payment = actx.Payment
	}
	out, err := a.handler(ctx, actx, params)
	if err != nil {
		return nil, errors.New(errors.CodeHandlerError, err.Error(), err).
			WithContext("action", a.def.Name)
	}
	return &Result{Output: out.Payload, Payment: out.Payment}, nil
}

// DecodeArguments decodes a call payload into v and validates it. The
// payload may be a JSON value or a JSON string holding the encoded value; a
// missing payload decodes as an empty object.
func DecodeArguments(payload json.RawMessage, v any) error {
	raw := bytes.TrimSpace(payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	decoded, err := decodeJSON(raw, v)
	if err != nil {
		return err
	}
	return validateArguments(v, presentFields(decoded))
}

// decodeJSON decodes raw into v and returns the JSON document v was read
// from, which differs from raw when raw is a string holding encoded JSON.
func decodeJSON(raw []byte, v any) ([]byte, error) {
	if raw[0] != '"' {
		if err := json.Unmarshal(raw, v); err != nil {
			return nil, fmt.Errorf("invalid payload: %w", err)
		}
		return raw, nil
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	innerErr := json.Unmarshal([]byte(inner), v)
	if innerErr == nil {
		return []byte(inner), nil
	}
	// Plain string arguments.
	if err := json.Unmarshal(raw, v); err == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("invalid payload: %w", innerErr)
}

// presentFields lists the non-null fields of a JSON document, keyed the way
// the validator names them: "a.b" for nested objects and "a[0].b" for array
// elements.
func presentFields(doc []byte) map[string]bool {
	var root any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil
	}
	present := make(map[string]bool)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch val := v.(type) {
		case map[string]any:
			for key, child := range val {
				if child == nil {
					continue
				}
				path := key
				if prefix != "" {
					path = prefix + "." + key
				}
				present[path] = true
				walk(path, child)
			}
		case []any:
			for i, child := range val {
				if child == nil {
					continue
				}
				path := fmt.Sprintf("%s[%d]", prefix, i)
				present[path] = true
				walk(path, child)
			}
		}
	}
	walk("", root)
	return present
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func argsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	})
	return validate
}

// validateArguments runs struct tag validation and Validate methods. A
// `required` field only fails when its key is absent or null in the
// payload, so zero values that were sent explicitly are accepted.
func validateArguments(v any, present map[string]bool) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if rv.Elem().Kind() != reflect.Pointer {
			break
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Elem().Kind() == reflect.Struct {
		if err := argsValidator().Struct(rv.Interface()); err != nil {
			if err := describeValidation(err, present); err != nil {
				return err
			}
		}
	}
	if custom, ok := v.(Validator); ok {
		return custom.Validate()
	}
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		if custom, ok := rv.Elem().Interface().(Validator); ok {
			return custom.Validate()
		}
	}
	return nil
}

func describeValidation(err error, present map[string]bool) error {
	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		if fe.Tag() == "required" && present[field] {
			continue
		}
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("missing required field %q", field))
		default:
			msgs = append(msgs, fmt.Sprintf("field %q failed %q validation", field, fe.Tag()))
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return stderrors.New(strings.Join(msgs, "; "))
}
