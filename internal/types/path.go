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

package types

import (
	"fmt"
	"slices"
	"strings"
)

// PathErrorCode represents PathError code.
type PathErrorCode int

const (
	_ PathErrorCode = iota

	// ErrPathElementEmpty indicates that provided path contains an empty element.
	ErrPathElementEmpty

	// ErrPathKeyNotFound indicates that key was not found in document.
	ErrPathKeyNotFound

	// ErrPathIndexInvalid indicates that provided array index is invalid.
	ErrPathIndexInvalid

	// ErrPathIndexOutOfBound indicates that provided array index is out of bound.
	ErrPathIndexOutOfBound

	// ErrPathCannotAccess indicates that path tries to access a scalar value.
	ErrPathCannotAccess

	// ErrPathNotArray indicates that an array operation targets a value that is not an array.
	ErrPathNotArray

	// ErrPathConflictOverwrite indicates a path overwrites another path.
	ErrPathConflictOverwrite

	// ErrPathConflictCollision indicates a path creates collision at another path.
	ErrPathConflictCollision
)

// String implements fmt.Stringer.
func (c PathErrorCode) String() string {
	switch c {
	case ErrPathElementEmpty:
		return "ErrPathElementEmpty"
	case ErrPathKeyNotFound:
		return "ErrPathKeyNotFound"
	case ErrPathIndexInvalid:
		return "ErrPathIndexInvalid"
	case ErrPathIndexOutOfBound:
		return "ErrPathIndexOutOfBound"
	case ErrPathCannotAccess:
		return "ErrPathCannotAccess"
	case ErrPathNotArray:
		return "ErrPathNotArray"
	case ErrPathConflictOverwrite:
		return "ErrPathConflictOverwrite"
	case ErrPathConflictCollision:
		return "ErrPathConflictCollision"
	default:
		return fmt.Sprintf("PathErrorCode(%d)", int(c))
	}
}

// PathError describes an error that could occur on path related operations.
type PathError struct {
	err  error
	code PathErrorCode
}

// newPathError creates a new PathError.
func newPathError(code PathErrorCode, reason error) error {
	return &PathError{err: reason, code: code}
}

// Error implements the error interface.
func (e *PathError) Error() string {
	return e.err.Error()
}

// Code returns the PathError code.
func (e *PathError) Code() PathErrorCode {
	return e.code
}

// Path represents the field path type. It should be used wherever we work with paths or dot notation.
// Path should be stored and passed as a value.
// Its methods return new values, not modifying the receiver's state.
type Path struct {
	s []string
}

// NewPathFromString returns Path from a given string that contains dot notation.
//
// It returns *PathError with ErrPathElementEmpty code if any element is empty.
func NewPathFromString(s string) (Path, error) {
	var res Path

	path := strings.Split(s, ".")

	for _, elem := range path {
		if elem == "" {
			return res, newPathError(
				ErrPathElementEmpty,
				fmt.Errorf("types.NewPathFromString: path %q contains empty elements", s),
			)
		}
	}

	res.s = path

	return res, nil
}

// NewStaticPath returns Path from a given static slice of path elements.
//
// It panics on invalid input; use it only for literals.
func NewStaticPath(path ...string) Path {
	if len(path) == 0 {
		panic("types.NewStaticPath: empty path")
	}

	for _, elem := range path {
		if elem == "" {
			panic("types.NewStaticPath: path contains empty elements")
		}
	}

	return Path{s: slices.Clone(path)}
}

// String returns a dot-separated string representation.
func (p Path) String() string {
	return strings.Join(p.s, ".")
}

// Len returns path length.
func (p Path) Len() int {
	return len(p.s)
}

// Slice returns a copy of path elements.
func (p Path) Slice() []string {
	return slices.Clone(p.s)
}

// Prefix returns the first path element.
func (p Path) Prefix() string {
	return p.s[0]
}

// Suffix returns the last path element.
func (p Path) Suffix() string {
	return p.s[p.Len()-1]
}

// TrimSuffix returns a path without the last element.
func (p Path) TrimSuffix() Path {
	if p.Len() <= 1 {
		panic("path should have more than 1 element")
	}

	return Path{s: slices.Clone(p.s[:p.Len()-1])}
}

// TrimPrefix returns a copy of path without the first element.
func (p Path) TrimPrefix() Path {
	if p.Len() <= 1 {
		panic("path should have more than 1 element")
	}

	return Path{s: slices.Clone(p.s[1:])}
}

// Append returns new Path constructed from the current path and given element.
func (p Path) Append(elem string) Path {
	elems := slices.Clone(p.s)

	return Path{s: append(elems, elem)}
}

// Equal returns true if both paths have the same elements.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p.s, other.s)
}

// IsAncestorOf returns true if p is a strict prefix of other.
func (p Path) IsAncestorOf(other Path) bool {
	if p.Len() >= other.Len() {
		return false
	}

	return slices.Equal(p.s, other.s[:p.Len()])
}

// Overlaps returns true if paths are equal, or one is an ancestor of the other.
func (p Path) Overlaps(other Path) bool {
	return p.Equal(other) || p.IsAncestorOf(other) || other.IsAncestorOf(p)
}

// IsConflictPath returns PathError error if adding a path creates conflict at any of paths.
// Returned PathError error codes:
//
//   - ErrPathConflictOverwrite when a path overwrites one of the paths (path is a descendant);
//   - ErrPathConflictCollision when a path creates collision (path is an ancestor).
//
// The error message names the ancestor path where the conflict happens.
// Equal paths do not conflict.
func IsConflictPath(paths []Path, path Path) error {
	for _, p := range paths {
		if p.IsAncestorOf(path) {
			return newPathError(
				ErrPathConflictOverwrite,
				fmt.Errorf("Updating the path '%s' would create a conflict at '%s'", path, p),
			)
		}

		if path.IsAncestorOf(p) {
			return newPathError(
				ErrPathConflictCollision,
				fmt.Errorf("Updating the path '%s' would create a conflict at '%s'", path, path),
			)
		}
	}

	return nil
}
