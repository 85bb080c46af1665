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
package handlererrors

import (
	"errors"
	"fmt"

	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// CommandError represents a failed command or update that is reported to the client as a whole,
// as opposed to per-item WriteErrors.
type CommandError struct {
	err  error
	code ErrorCode
	info *ErrInfo
}

// NewCommandError creates a new command error.
//
// Code shouldn't be zero, err can't be nil.
func NewCommandError(code ErrorCode, err error) error {
	if err == nil {
		panic("err is nil")
	}

	return &CommandError{
		code: code,
		err:  err,
	}
}

// NewCommandErrorMsg is variant for NewCommandError with error string.
//
// There is no printf-like variant; callers format messages themselves.
func NewCommandErrorMsg(code ErrorCode, msg string) error {
	return NewCommandError(code, errors.New(msg))
}

// NewCommandErrorMsgWithArgument is variant for NewCommandErrorMsg
// that also records the command field or operator that caused the error.
func NewCommandErrorMsgWithArgument(code ErrorCode, msg string, argument string) error {
	e := NewCommandErrorMsg(code, msg).(*CommandError) //nolint:errorlint // our own type
	if argument != "" {
		e.info = &ErrInfo{Argument: argument}
	}

	return e
}

// Error implements error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%[1]s (%[1]d): %[2]v", e.code, e.err)
}

// Unwrap implements ProtoErr interface.
func (e *CommandError) Unwrap() error {
	return e.err
}

// Code implements ProtoErr interface.
func (e *CommandError) Code() ErrorCode {
	return e.code
}

// Argument returns the command field or operator that caused the error, if known.
func (e *CommandError) Argument() string {
	if e.info == nil {
		return ""
	}

	return e.info.Argument
}

// Document implements ProtoErr interface.
//
// The argument, when known, is rendered after codeName.
func (e *CommandError) Document() *types.Document {
	d := must.NotFail(types.NewDocument(
		"ok", float64(0),
		"errmsg", e.err.Error(),
	))

	if e.code != errUnset {
		must.NoError(d.Set("code", int32(e.code)))
		must.NoError(d.Set("codeName", e.code.String()))
	}

	if arg := e.Argument(); arg != "" {
		must.NoError(d.Set("argument", arg))
	}

	return d
}

// Info implements ProtoErr interface.
func (e *CommandError) Info() *ErrInfo {
	return e.info
}

// check interfaces
var (
	_ ProtoErr = (*CommandError)(nil)
)
