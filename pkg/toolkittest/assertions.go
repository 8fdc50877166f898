// Copyright 2026 © The Unifai SDK Authors
// SPDX-License-Identifier: Apache-2.0

package toolkittest

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/unifai-network/unifai-sdk-go/pkg/toolkit"
)

// ResultAssertions provides fluent checks on a call result.
type ResultAssertions struct {
	t      testing.TB
	result toolkit.CallResult
}

// AssertResult starts assertions on result.
func AssertResult(t testing.TB, result toolkit.CallResult) *ResultAssertions {
	return &ResultAssertions{t: t, result: result}
}

// Succeeded asserts the call produced an output.
func (r *ResultAssertions) Succeeded() *ResultAssertions {
	r.t.Helper()
	if r.result.Error != nil {
		r.t.Errorf("expected call to succeed, got %s", r.result.Error)
	}
	return r
}

// FailedWith asserts the call failed with kind.
func (r *ResultAssertions) FailedWith(kind toolkit.ErrorKind) *ResultAssertions {
	r.t.Helper()
	switch {
	case r.result.Error == nil:
		r.t.Errorf("expected %s, call succeeded with %s", kind, r.result.Output)
	case r.result.Error.Kind != kind:
		r.t.Errorf("expected %s, got %s", kind, r.result.Error)
	}
	return r
}

// OutputEquals asserts the output decodes to a value deeply equal to want.
func (r *ResultAssertions) OutputEquals(want any) *ResultAssertions {
	r.t.Helper()
	if r.result.Error != nil {
		r.t.Errorf("expected output %v, got %s", want, r.result.Error)
		return r
	}
	wantRaw, err := json.Marshal(want)
	if err != nil {
		r.t.Errorf("encode expected output: %v", err)
		return r
	}
	var got, expected any
	if err := json.Unmarshal(r.result.Output, &got); err != nil {
		r.t.Errorf("output is not JSON: %v (%s)", err, r.result.Output)
		return r
	}
	_ = json.Unmarshal(wantRaw, &expected)
	if !reflect.DeepEqual(got, expected) {
		r.t.Errorf("expected output %s, got %s", wantRaw, r.result.Output)
	}
	return r
}

// MessageContains asserts the failure message contains substr.
func (r *ResultAssertions) MessageContains(substr string) *ResultAssertions {
	r.t.Helper()
	if r.result.Error == nil {
		r.t.Errorf("expected failure containing %q, call succeeded", substr)
		return r
	}
	if !strings.Contains(r.result.Error.Message, substr) {
		r.t.Errorf("expected failure message containing %q, got %q", substr, r.result.Error.Message)
	}
	return r
}

// HasPayment asserts the result carries amount.
func (r *ResultAssertions) HasPayment(amount float64) *ResultAssertions {
	r.t.Helper()
	if r.result.Payment == nil || *r.result.Payment != amount {
		r.t.Errorf("expected payment %v, got %v", amount, r.result.Payment)
	}
	return r
}

// AssertOutput is shorthand for AssertResult(t, result).Succeeded().OutputEquals(want).
func AssertOutput(t testing.TB, result toolkit.CallResult, want any) {
	t.Helper()
	AssertResult(t, result).Succeeded().OutputEquals(want)
}

// AssertErrorKind is shorthand for AssertResult(t, result).FailedWith(kind).
func AssertErrorKind(t testing.TB, result toolkit.CallResult, kind toolkit.ErrorKind) {
	t.Helper()
	AssertResult(t, result).FailedWith(kind)
}
