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

// Package handlererrors provides client-visible errors returned by the update handler.
package handlererrors

import (
	"errors"
	"fmt"

	"github.com/FerretDB/docupdate/internal/types"
)

// ErrorCode represents wire protocol error code.
type ErrorCode int32

const (
	errUnset = ErrorCode(0) // Unset

	// ErrInternalError indicates an unexpected internal error.
	ErrInternalError = ErrorCode(1) // InternalError

	// ErrBadValue indicates wrong input.
	ErrBadValue = ErrorCode(2) // BadValue

	// ErrFailedToParse indicates user input parsing failure.
	ErrFailedToParse = ErrorCode(9) // FailedToParse

	// ErrTypeMismatch indicates that a parameter has an unexpected type.
	ErrTypeMismatch = ErrorCode(14) // TypeMismatch

	// ErrInvalidLength indicates that a batch has an invalid number of items.
	ErrInvalidLength = ErrorCode(16) // InvalidLength

	// ErrUnsuitableValueType indicates that field could not be created for given value.
	ErrUnsuitableValueType = ErrorCode(28) // UnsuitableValueType

	// ErrConflictingUpdateOperators indicates that update operators target overlapping paths.
	ErrConflictingUpdateOperators = ErrorCode(40) // ConflictingUpdateOperators

	// ErrDollarPrefixedFieldName indicates that a replacement document contains an operator.
	ErrDollarPrefixedFieldName = ErrorCode(52) // DollarPrefixedFieldName

	// ErrInvalidID indicates that _id field is invalid.
	ErrInvalidID = ErrorCode(53) // InvalidID

	// ErrEmptyName indicates that the field name is empty.
	ErrEmptyName = ErrorCode(56) // EmptyName

	// ErrCommandNotFound indicates unknown command input.
	ErrCommandNotFound = ErrorCode(59) // CommandNotFound

	// ErrImmutableField indicates that an update tried to alter _id or a shard key field.
	ErrImmutableField = ErrorCode(66) // ImmutableField

	// ErrInvalidNamespace indicates that the collection name is invalid.
	ErrInvalidNamespace = ErrorCode(73) // InvalidNamespace

	// ErrNotImplemented indicates that a flag or command is not implemented.
	ErrNotImplemented = ErrorCode(238) // NotImplemented

	// ErrDuplicateKey indicates duplicate key violation.
	ErrDuplicateKey = ErrorCode(11000) // Location11000
)

// String implements fmt.Stringer.
func (c ErrorCode) String() string {
	switch c {
	case errUnset:
		return "Unset"
	case ErrInternalError:
		return "InternalError"
	case ErrBadValue:
		return "BadValue"
	case ErrFailedToParse:
		return "FailedToParse"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrInvalidLength:
		return "InvalidLength"
	case ErrUnsuitableValueType:
		return "UnsuitableValueType"
	case ErrConflictingUpdateOperators:
		return "ConflictingUpdateOperators"
	case ErrDollarPrefixedFieldName:
		return "DollarPrefixedFieldName"
	case ErrInvalidID:
		return "InvalidID"
	case ErrEmptyName:
		return "EmptyName"
	case ErrCommandNotFound:
		return "CommandNotFound"
	case ErrImmutableField:
		return "ImmutableField"
	case ErrInvalidNamespace:
		return "InvalidNamespace"
	case ErrNotImplemented:
		return "NotImplemented"
	case ErrDuplicateKey:
		return "Location11000"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int32(c))
	}
}

// ErrInfo represents additional optional error information.
type ErrInfo struct {
	Argument string // command's argument or operator that caused an error
}

// ProtoErr represents protocol error type.
type ProtoErr interface {
	error
	// Unwrap returns unwrapped error.
	Unwrap() error
	// Code returns ErrorCode.
	Code() ErrorCode
	// Document returns *types.Document.
	Document() *types.Document
	// Info returns *ErrInfo.
	Info() *ErrInfo
}

// Coder is implemented by errors of lower layers that know their client-visible code.
type Coder interface {
	error
	Code() ErrorCode
}

// CodeName returns the name of the code carried by err,
// or "InternalError" if err does not implement Coder.
// It is used for metrics labels, span attributes, and logs.
func CodeName(err error) string {
	var coder Coder
	if errors.As(err, &coder) {
		return coder.Code().String()
	}

	return ErrInternalError.String()
}

// ProtocolError converts any error to wire protocol error.
//
// Nil panics, *CommandError or *WriteErrors (possibly wrapped) is returned unwrapped with true,
// Coder is converted to *CommandError with its code and returned with true,
// any other value is wrapped with InternalError and returned with false.
func ProtocolError(err error) (ProtoErr, bool) {
	if err == nil {
		panic("err is nil")
	}

	var e *CommandError
	if errors.As(err, &e) {
		return e, true
	}

	var writeErr *WriteErrors
	if errors.As(err, &writeErr) {
		return writeErr, true
	}

	var coder Coder
	if errors.As(err, &coder) {
		return NewCommandError(coder.Code(), coder).(*CommandError), true //nolint:errorlint // false positive
	}

	e = NewCommandError(ErrInternalError, err).(*CommandError) //nolint:errorlint // false positive

	return e, false
}
