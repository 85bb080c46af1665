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

	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// writeError represents a single write error details.
type writeError struct {
	// the order of fields is weird to make the struct smaller due to alignment

	errmsg string
	index  int32
	code   ErrorCode
}

// WriteErrors represents a list of write errors of a batch.
type WriteErrors struct {
	errs []writeError
}

// NewWriteErrorMsg creates a new protocol write error with given ErrorCode and message.
func NewWriteErrorMsg(code ErrorCode, msg string) error {
	return &WriteErrors{
		errs: []writeError{{
			code:   code,
			errmsg: msg,
		}},
	}
}

// Error implements error interface.
func (we *WriteErrors) Error() string {
	var err string

	for i, e := range we.errs {
		if i != 0 {
			err += ", "
		}

		err += e.errmsg
	}

	return err
}

// Unwrap implements ProtoErr interface.
func (we *WriteErrors) Unwrap() error {
	return nil
}

// Code implements ProtoErr interface.
//
// It returns the code of the first error.
func (we *WriteErrors) Code() ErrorCode {
	if len(we.errs) == 0 {
		return errUnset
	}

	return we.errs[0].code
}

// Document implements ProtoErr interface.
func (we *WriteErrors) Document() *types.Document {
	errs := types.MakeArray(we.Len())

	for _, e := range we.errs {
		doc := must.NotFail(types.NewDocument(
			"index", e.index,
			"code", int32(e.code),
			"errmsg", e.errmsg,
		))

		must.NoError(errs.Append(doc))
	}

	return must.NotFail(types.NewDocument(
		"ok", float64(1),
		"writeErrors", errs,
	))
}

// Info implements ProtoErr interface.
func (we *WriteErrors) Info() *ErrInfo {
	return nil
}

// Append converts the err to the writeError type and
// appends it to WriteErrors. The index value is an
// index of the query with error.
func (we *WriteErrors) Append(err error, index int32) {
	var cmdErr *CommandError
	var coder Coder

	switch {
	case errors.As(err, &cmdErr):
		we.errs = append(we.errs, writeError{
			code:   cmdErr.code,
			errmsg: cmdErr.err.Error(),
			index:  index,
		})

	case errors.As(err, &coder):
		we.errs = append(we.errs, writeError{
			code:   coder.Code(),
			errmsg: coder.Error(),
			index:  index,
		})

	default:
		we.errs = append(we.errs, writeError{
			code:   ErrInternalError,
			errmsg: err.Error(),
			index:  index,
		})
	}
}

// Len returns the number of errors.
func (we *WriteErrors) Len() int {
	return len(we.errs)
}

// Merge merges the given WriteErrors with the current one and sets the given index.
func (we *WriteErrors) Merge(we2 *WriteErrors, index int32) {
	for _, e := range we2.errs {
		e.index = index
		we.errs = append(we.errs, e)
	}
}

// First returns the code and message of the first error, if any.
func (we *WriteErrors) First() (ErrorCode, string, bool) {
	if len(we.errs) == 0 {
		return errUnset, "", false
	}

	return we.errs[0].code, we.errs[0].errmsg, true
}

// check interfaces
var (
	_ ProtoErr = (*WriteErrors)(nil)
)
