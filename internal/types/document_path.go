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
	"strconv"
)

// arrayIndex parses path element as an array index.
// Only plain decimal digits are accepted.
func arrayIndex(elem string) (int, bool) {
	if elem == "" || len(elem) > 9 {
		return 0, false
	}

	for _, c := range []byte(elem) {
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	i, err := strconv.Atoi(elem)
	if err != nil {
		return 0, false
	}

	return i, true
}

// getByPath returns a value by path - a sequence of indexes and keys.
func getByPath(v any, path Path) (any, error) {
	cur := v

	for _, elem := range path.s {
		switch s := cur.(type) {
		case *Document:
			next, err := s.Get(elem)
			if err != nil {
				return nil, newPathError(ErrPathKeyNotFound, fmt.Errorf("types.getByPath: %w", err))
			}

			cur = next

		case *Array:
			index, ok := arrayIndex(elem)
			if !ok {
				return nil, newPathError(
					ErrPathIndexInvalid,
					fmt.Errorf("types.getByPath: invalid array index %q", elem),
				)
			}

			next, err := s.Get(index)
			if err != nil {
				return nil, newPathError(ErrPathIndexOutOfBound, fmt.Errorf("types.getByPath: %w", err))
			}

			cur = next

		default:
			return nil, newPathError(
				ErrPathCannotAccess,
				fmt.Errorf("types.getByPath: can't access %T by path %q", cur, elem),
			)
		}
	}

	return cur, nil
}

// GetByPath returns a value by path.
func (d *Document) GetByPath(path Path) (any, error) {
	return getByPath(d, path)
}

// HasByPath returns true if the given path is present in the document.
func (d *Document) HasByPath(path Path) bool {
	_, err := d.GetByPath(path)
	return err == nil
}

// SetByPath sets a deep copy of value by path.
//
// Missing intermediate documents are created; arrays are never extended,
// so every array index on the path must already exist.
// Nothing is modified if an error is returned.
func (d *Document) SetByPath(path Path, value any) error {
	if err := validateValue(value); err != nil {
		return fmt.Errorf("types.Document.SetByPath: %w", err)
	}

	parent, err := d.makeParents(path)
	if err != nil {
		return err
	}

	key := path.Suffix()

	switch p := parent.(type) {
	case *Document:
		return p.Set(key, deepCopy(value))

	case *Array:
		index, ok := arrayIndex(key)
		if !ok {
			return newPathError(
				ErrPathIndexInvalid,
				fmt.Errorf("Cannot create field '%s' in element {%s: %s}", key, path.parentKey(), FormatAnyValue(p)),
			)
		}

		if index >= p.Len() {
			return newPathError(
				ErrPathIndexOutOfBound,
				fmt.Errorf("Cannot set array element %d beyond the end of array {%s: %s}", index, path.parentKey(), FormatAnyValue(p)),
			)
		}

		return p.Set(index, deepCopy(value))

	default:
		return newPathError(
			ErrPathCannotAccess,
			fmt.Errorf("Cannot create field '%s' in element {%s: %s}", key, path.parentKey(), FormatAnyValue(p)),
		)
	}
}

// makeParents walks path without the last element, creating missing documents,
// and returns the container that should hold the last element.
//
// A failure can only happen before the first document is created,
// because only empty documents are traversed after that.
func (d *Document) makeParents(path Path) (any, error) {
	var cur any = d

	for i, elem := range path.s[:path.Len()-1] {
		switch s := cur.(type) {
		case *Document:
			next, err := s.Get(elem)
			if err != nil {
				next = MakeDocument(1)
				if err = s.Set(elem, next); err != nil {
					return nil, fmt.Errorf("types.Document.makeParents: %w", err)
				}
			}

			cur = next

		case *Array:
			index, ok := arrayIndex(elem)
			if !ok {
				return nil, newPathError(
					ErrPathIndexInvalid,
					fmt.Errorf("Cannot create field '%s' in element {%s: %s}", elem, prevElem(path, i), FormatAnyValue(s)),
				)
			}

			next, err := s.Get(index)
			if err != nil {
				return nil, newPathError(
					ErrPathIndexOutOfBound,
					fmt.Errorf("Cannot create field '%s' beyond the end of array {%s: %s}", elem, prevElem(path, i), FormatAnyValue(s)),
				)
			}

			cur = next

		default:
			return nil, newPathError(
				ErrPathCannotAccess,
				fmt.Errorf("Cannot create field '%s' in element {%s: %s}", elem, prevElem(path, i), FormatAnyValue(s)),
			)
		}
	}

	return cur, nil
}

// prevElem returns the path element before i-th, or an empty string for the first one.
func prevElem(path Path, i int) string {
	if i == 0 {
		return ""
	}

	return path.s[i-1]
}

// parentKey returns the element before the last one, or an empty string.
func (p Path) parentKey() string {
	return prevElem(p, p.Len()-1)
}

// RemoveByPath removes a value by path, doing nothing if the path does not exist.
// Array elements are spliced out.
func (d *Document) RemoveByPath(path Path) {
	var parent any = d

	if path.Len() > 1 {
		var err error
		if parent, err = d.GetByPath(path.TrimSuffix()); err != nil {
			return
		}
	}

	switch p := parent.(type) {
	case *Document:
		p.Remove(path.Suffix())

	case *Array:
		if index, ok := arrayIndex(path.Suffix()); ok {
			p.Remove(index)
		}
	}
}

// PushByPath appends deep copies of values to the array at path.
//
// The array (and missing intermediate documents) is created if absent.
// If bound is not nil, the array is truncated with Array.Bound afterwards.
// Nothing is modified if an error is returned.
func (d *Document) PushByPath(path Path, values []any, bound *int64) error {
	for i, v := range values {
		if err := validateValue(v); err != nil {
			return fmt.Errorf("types.Document.PushByPath: index %d: %w", i, err)
		}
	}

	copies := make([]any, len(values))
	for i, v := range values {
		copies[i] = deepCopy(v)
	}

	v, err := d.GetByPath(path)
	if err != nil {
		arr := &Array{s: copies}
		if bound != nil {
			arr.Bound(*bound)
		}

		return d.SetByPath(path, arr)
	}

	arr, ok := v.(*Array)
	if !ok {
		return newPathError(
			ErrPathNotArray,
			fmt.Errorf("The field '%s' must be an array but is of type %s", path, AliasFromType(v)),
		)
	}

	arr.s = append(arr.s, copies...)

	if bound != nil {
		arr.Bound(*bound)
	}

	return nil
}
