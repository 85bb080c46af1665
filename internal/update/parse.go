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

// Package update implements parsing and application of update specifications
// with shard key invariance checks.
//
// An update specification is either a set of modifiers ({$set: {a: 1}})
// or a replacement document ({a: 1}).
// Driver applies it to a single document and reports whether
// the configured shard key was (or could have been) altered.
package update

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// Operator represents update modifier kind.
type Operator int

const (
	_ Operator = iota

	// OpSet sets field value.
	OpSet

	// OpUnset removes field.
	OpUnset

	// OpPush appends values to array, optionally bounding it.
	OpPush

	// OpPushAll appends all values to array.
	OpPushAll

	// OpSetOnInsert sets field value only when the document is inserted.
	OpSetOnInsert
)

// operators maps operator names to kinds.
var operators = map[string]Operator{
	"$set":         OpSet,
	"$unset":       OpUnset,
	"$push":        OpPush,
	"$pushAll":     OpPushAll,
	"$setOnInsert": OpSetOnInsert,
}

// String implements fmt.Stringer.
func (op Operator) String() string {
	switch op {
	case OpSet:
		return "$set"
	case OpUnset:
		return "$unset"
	case OpPush:
		return "$push"
	case OpPushAll:
		return "$pushAll"
	case OpSetOnInsert:
		return "$setOnInsert"
	default:
		return fmt.Sprintf("Operator(%d)", int(op))
	}
}

// PushOperand represents $push and $pushAll operand.
//
// A plain $push value is Each with a single element.
type PushOperand struct {
	Each  []any
	Slice *int64 // nil means unbounded
}

// Modifier represents a single (operator, path, operand) update instruction.
type Modifier struct {
	Op    Operator
	Path  types.Path
	Value any          // for OpSet and OpSetOnInsert
	Push  *PushOperand // for OpPush and OpPushAll
}

// Update represents a parsed update specification.
type Update struct {
	mods        []Modifier
	replacement *types.Document
}

// NumMods returns the number of parsed modifiers; 0 for a replacement.
func (u *Update) NumMods() int {
	return len(u.mods)
}

// IsDocReplacement returns true if the whole specification is a replacement document.
func (u *Update) IsDocReplacement() bool {
	return u.replacement != nil
}

// Modifiers returns parsed modifiers in application order.
func (u *Update) Modifiers() []Modifier {
	res := make([]Modifier, len(u.mods))
	copy(res, u.mods)

	return res
}

// Replacement returns the replacement document, or nil for a modifier-style update.
func (u *Update) Replacement() *types.Document {
	return u.replacement
}

// Parse validates the update specification and decomposes it into modifiers or a replacement.
//
// Modifiers are ordered by operator block, then by field within the block.
// The specification is deep copied, so the caller can reuse it.
func Parse(spec *types.Document) (*Update, error) {
	if spec.Len() == 0 {
		return nil, newParseError(handlererrors.ErrFailedToParse, "", "Update document is empty")
	}

	var hasOperators, hasFields bool
	var firstField string

	for _, key := range spec.Keys() {
		if strings.HasPrefix(key, "$") {
			hasOperators = true
			continue
		}

		if !hasFields {
			firstField = key
		}

		hasFields = true
	}

	if !hasOperators {
		return &Update{replacement: spec.DeepCopy()}, nil
	}

	if hasFields {
		return nil, newParseError(
			handlererrors.ErrDollarPrefixedFieldName,
			"",
			fmt.Sprintf("Cannot mix update operators with replacement fields: '%s'", firstField),
		)
	}

	res := new(Update)

	var visited []types.Path

	for _, opName := range spec.Keys() {
		op, ok := operators[opName]
		if !ok {
			return nil, newParseError(
				handlererrors.ErrFailedToParse,
				opName,
				fmt.Sprintf(
					"Unknown modifier: %s. Expected a valid update modifier or pipeline-style "+
						"update specified as an array", opName,
				),
			)
		}

		opValue := must.NotFail(spec.Get(opName))

		fields, ok := opValue.(*types.Document)
		if !ok {
			return nil, newParseError(
				handlererrors.ErrFailedToParse,
				opName,
				fmt.Sprintf(
					"Modifiers operate on fields but we found type %s instead. "+
						"For example: {$mod: {<field>: ...}} not {%s: %s}",
					types.AliasFromType(opValue), opName, types.FormatAnyValue(opValue),
				),
			)
		}

		if fields.Len() == 0 {
			return nil, newParseError(
				handlererrors.ErrFailedToParse,
				opName,
				fmt.Sprintf("'%[1]s' is empty. You must specify a field like so: {%[1]s: {<field>: ...}}", opName),
			)
		}

		values := fields.Values()

		for i, key := range fields.Keys() {
			path, err := parsePath(opName, key)
			if err != nil {
				return nil, err
			}

			if err = types.IsConflictPath(visited, path); err != nil {
				return nil, newParseError(handlererrors.ErrConflictingUpdateOperators, opName, err.Error())
			}

			visited = append(visited, path)

			mod, err := newModifier(op, path, values[i])
			if err != nil {
				return nil, err
			}

			res.mods = append(res.mods, mod)
		}
	}

	return res, nil
}

// parsePath parses and validates modifier target path.
func parsePath(opName, key string) (types.Path, error) {
	path, err := types.NewPathFromString(key)
	if err != nil {
		var pe *types.PathError
		if errors.As(err, &pe) && pe.Code() == types.ErrPathElementEmpty {
			return types.Path{}, newParseError(
				handlererrors.ErrEmptyName,
				opName,
				fmt.Sprintf("The update path '%s' contains an empty field name, which is not allowed.", key),
			)
		}

		return types.Path{}, newParseError(handlererrors.ErrFailedToParse, opName, err.Error())
	}

	for _, elem := range path.Slice() {
		if strings.HasPrefix(elem, "$") {
			return types.Path{}, newParseError(
				handlererrors.ErrNotImplemented,
				opName,
				fmt.Sprintf("The update path '%s' contains an operator '%s', which is not supported.", key, elem),
			)
		}
	}

	return path, nil
}

// newModifier validates operand shape for the given operator.
func newModifier(op Operator, path types.Path, value any) (Modifier, error) {
	mod := Modifier{
		Op:   op,
		Path: path,
	}

	switch op {
	case OpSet, OpSetOnInsert:
		mod.Value = deepCopyValue(value)

	case OpUnset:
		// operand is ignored

	case OpPush:
		push, err := parsePushOperand(value)
		if err != nil {
			return mod, err
		}

		mod.Push = push

	case OpPushAll:
		arr, ok := value.(*types.Array)
		if !ok {
			return mod, newParseError(
				handlererrors.ErrBadValue,
				op.String(),
				fmt.Sprintf("$pushAll requires an array of values but was given type: %s", types.AliasFromType(value)),
			)
		}

		mod.Push = &PushOperand{Each: arrayValues(arr)}

	default:
		panic(fmt.Sprintf("unexpected operator %s", op))
	}

	return mod, nil
}

// parsePushOperand parses $push operand.
//
// A document with $each field uses the {$each: [...], $slice: n} form with clauses in any order;
// any other value is appended as is.
func parsePushOperand(value any) (*PushOperand, error) {
	doc, ok := value.(*types.Document)
	if !ok || !doc.Has("$each") {
		return &PushOperand{Each: []any{deepCopyValue(value)}}, nil
	}

	res := new(PushOperand)
	values := doc.Values()

	for i, key := range doc.Keys() {
		v := values[i]

		switch key {
		case "$each":
			arr, ok := v.(*types.Array)
			if !ok {
				return nil, newParseError(
					handlererrors.ErrBadValue,
					"$push",
					fmt.Sprintf("The argument to $each in $push must be an array but it was of type: %s", types.AliasFromType(v)),
				)
			}

			res.Each = arrayValues(arr)

		case "$slice":
			n, ok := sliceValue(v)
			if !ok {
				return nil, newParseError(
					handlererrors.ErrBadValue,
					"$push",
					fmt.Sprintf("The value for $slice must be an integer value but was given type: %s", types.AliasFromType(v)),
				)
			}

			res.Slice = &n

		default:
			return nil, newParseError(
				handlererrors.ErrBadValue,
				"$push",
				fmt.Sprintf("Unrecognized clause in $push: %s", key),
			)
		}
	}

	return res, nil
}

// sliceValue returns $slice operand as int64.
// Whole doubles are accepted.
func sliceValue(v any) (int64, bool) {
	switch v := v.(type) {
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return 0, false
		}

		if v >= 1<<63 || v < -(1<<63) {
			return 0, false
		}

		return int64(v), true
	default:
		return 0, false
	}
}

// arrayValues returns deep copies of array elements.
func arrayValues(arr *types.Array) []any {
	res := make([]any, arr.Len())
	for i := range res {
		res[i] = deepCopyValue(must.NotFail(arr.Get(i)))
	}

	return res
}

// deepCopyValue returns a deep copy of composite values, scalars are returned as is.
func deepCopyValue(v any) any {
	switch v := v.(type) {
	case *types.Document:
		return v.DeepCopy()
	case *types.Array:
		return v.DeepCopy()
	case types.Binary:
		b := make([]byte, len(v.B))
		copy(b, v.B)

		return types.Binary{Subtype: v.Subtype, B: b}
	default:
		return v
	}
}
