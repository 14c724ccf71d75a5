// Copyright (C) 2022-2026  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"fmt"
)

// A SyntaxError reports a manifest that is not parseable TOML; the wrapped
// decoder error carries the line/column position.
type SyntaxError struct {
	Filename string
	Err      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %v", e.Filename, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// A SchemaError reports a field whose shape or value violates the manifest
// schema.  Path identifies the offending field ("project.dependencies[3]").
// Multiple schema errors are aggregated into one derror.MultiError so a user
// sees every problem at once.
type SchemaError struct {
	Path string
	Msg  string
	Err  error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Msg)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

func schemaErrorf(path string, format string, args ...interface{}) *SchemaError {
	return &SchemaError{Path: path, Msg: fmt.Sprintf(format, args...)}
}
