// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package update

import (
	"fmt"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
)

// ParseError is returned by Parse for a malformed update specification.
//
// It is always returned before any document is touched.
type ParseError struct {
	code     handlererrors.ErrorCode
	msg      string
	operator string
}

// newParseError creates a new ParseError for the given operator (may be empty).
func newParseError(code handlererrors.ErrorCode, operator, msg string) error {
	return &ParseError{
		code:     code,
		msg:      msg,
		operator: operator,
	}
}

// Error implements error interface.
func (e *ParseError) Error() string {
	return e.msg
}

// Code returns client-visible error code.
func (e *ParseError) Code() handlererrors.ErrorCode {
	return e.code
}

// Operator returns update operator that caused the error, or empty string.
func (e *ParseError) Operator() string {
	return e.operator
}

// ApplyError is returned when a parsed update can't be applied to the document.
//
// The document passed to Driver.Update is left unmodified.
type ApplyError struct {
	err  error
	code handlererrors.ErrorCode
	path types.Path
}

// newApplyError creates a new ApplyError for the given path.
func newApplyError(code handlererrors.ErrorCode, path types.Path, err error) error {
	return &ApplyError{
		err:  err,
		code: code,
		path: path,
	}
}

// Error implements error interface.
func (e *ApplyError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error, typically *types.PathError.
func (e *ApplyError) Unwrap() error {
	return e.err
}

// Code returns client-visible error code.
func (e *ApplyError) Code() handlererrors.ErrorCode {
	return e.code
}

// Path returns the path of the modifier that failed.
func (e *ApplyError) Path() types.Path {
	return e.path
}

// ShardKeyError is returned when an update alters a shard key field.
//
// Old and New are nil when the field is absent in the pre-image or post-image.
type ShardKeyError struct {
	Path types.Path
	Old  any
	New  any
}

// Error implements error interface.
func (e *ShardKeyError) Error() string {
	if e.New == nil {
		return fmt.Sprintf(
			"After applying the update, the (immutable) field '%s' was found to have been removed",
			e.Path,
		)
	}

	return fmt.Sprintf(
		"After applying the update, the (immutable) field '%[1]s' was found to have been altered to %[1]s: %[2]s",
		e.Path, types.FormatAnyValue(e.New),
	)
}

// Code returns client-visible error code.
func (e *ShardKeyError) Code() handlererrors.ErrorCode {
	return handlererrors.ErrImmutableField
}

// check interfaces
var (
	_ handlererrors.Coder = (*ParseError)(nil)
	_ handlererrors.Coder = (*ApplyError)(nil)
	_ handlererrors.Coder = (*ShardKeyError)(nil)
)
