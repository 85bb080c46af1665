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
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docupdate/internal/bson"
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// fromJSON parses Extended JSON document for tests.
func fromJSON(tb testing.TB, s string) *types.Document {
	tb.Helper()

	doc, err := bson.FromExtJSON(s)
	require.NoError(tb, err)

	return doc
}

func TestParse(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		spec        string
		numMods     int
		replacement bool
		code        handlererrors.ErrorCode
	}{
		"Normal": {
			spec:    `{"$set": {"a": 1}}`,
			numMods: 1,
		},
		"MultiMods": {
			spec:    `{"$set": {"a": 1, "b": 1}}`,
			numMods: 2,
		},
		"MixingMods": {
			spec:    `{"$set": {"a": 1}, "$unset": {"b": 1}}`,
			numMods: 2,
		},
		"ObjectReplacement": {
			spec:        `{"obj": "obj replacement"}`,
			replacement: true,
		},
		"PushAll": {
			spec:    `{"$pushAll": {"a": [1, 2, 3]}}`,
			numMods: 1,
		},
		"SetOnInsert": {
			spec:    `{"$setOnInsert": {"a": 1}}`,
			numMods: 1,
		},
		"SamePathDifferentOperators": {
			spec:    `{"$set": {"a": 1}, "$setOnInsert": {"a": 2}}`,
			numMods: 2,
		},
		"Empty": {
			spec: `{}`,
			code: handlererrors.ErrFailedToParse,
		},
		"EmptyMod": {
			spec: `{"$set": {}}`,
			code: handlererrors.ErrFailedToParse,
		},
		"WrongMod": {
			spec: `{"$xyz": {"a": 1}}`,
			code: handlererrors.ErrFailedToParse,
		},
		"WrongType": {
			spec: `{"$set": [{"a": 1}]}`,
			code: handlererrors.ErrFailedToParse,
		},
		"ModsWithLaterObjReplacement": {
			spec: `{"$set": {"a": 1}, "obj": "obj replacement"}`,
			code: handlererrors.ErrDollarPrefixedFieldName,
		},
		"ObjReplacementWithLaterMods": {
			spec: `{"obj": "obj replacement", "$set": {"a": 1}}`,
			code: handlererrors.ErrDollarPrefixedFieldName,
		},
		"EmptyPathElement": {
			spec: `{"$set": {"a..b": 1}}`,
			code: handlererrors.ErrEmptyName,
		},
		"PositionalOperator": {
			spec: `{"$set": {"a.$": 1}}`,
			code: handlererrors.ErrNotImplemented,
		},
		"ConflictAncestor": {
			spec: `{"$set": {"a": 1}, "$unset": {"a.b": 1}}`,
			code: handlererrors.ErrConflictingUpdateOperators,
		},
		"ConflictDescendantSameOperator": {
			spec: `{"$set": {"a.b": 1, "a": 1}}`,
			code: handlererrors.ErrConflictingUpdateOperators,
		},
		"PushAllNotArray": {
			spec: `{"$pushAll": {"a": 1}}`,
			code: handlererrors.ErrBadValue,
		},
		"PushEachNotArray": {
			spec: `{"$push": {"a": {"$each": 1}}}`,
			code: handlererrors.ErrBadValue,
		},
		"PushUnknownClause": {
			spec: `{"$push": {"a": {"$each": [1], "$sort": 1}}}`,
			code: handlererrors.ErrBadValue,
		},
		"PushSliceNotInteger": {
			spec: `{"$push": {"a": {"$each": [1], "$slice": 1.5}}}`,
			code: handlererrors.ErrBadValue,
		},
		"PushSliceBeforeEach": {
			spec:    `{"$push": {"a": {"$slice": 1, "$each": [1]}}}`,
			numMods: 1,
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			u, err := Parse(fromJSON(t, tc.spec))

			if tc.code != 0 {
				var pe *ParseError
				require.ErrorAs(t, err, &pe)
				assert.Equal(t, tc.code, pe.Code(), err.Error())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.numMods, u.NumMods())
			assert.Equal(t, tc.replacement, u.IsDocReplacement())
		})
	}
}

func TestParseModifiers(t *testing.T) {
	t.Parallel()

	spec := fromJSON(t, `{
		"$unset": {"z": ""},
		"$set": {"b": {"c": 1}, "a": 2},
		"$push": {"p": {"$each": [1, 2], "$slice": -1.0}, "q": {"x": 1}},
		"$pushAll": {"r": [3]}
	}`)

	u, err := Parse(spec)
	require.NoError(t, err)

	mods := u.Modifiers()
	require.Len(t, mods, 6)

	var ops []Operator
	var paths []string

	for _, mod := range mods {
		ops = append(ops, mod.Op)
		paths = append(paths, mod.Path.String())
	}

	assert.Equal(t, []Operator{OpUnset, OpSet, OpSet, OpPush, OpPush, OpPushAll}, ops)
	assert.Equal(t, []string{"z", "b", "a", "p", "q", "r"}, paths)

	assert.Equal(t, int32(2), mods[2].Value)

	assert.Equal(t, []any{int32(1), int32(2)}, mods[3].Push.Each)
	assert.Equal(t, pointer.ToInt64(-1), mods[3].Push.Slice)

	require.Len(t, mods[4].Push.Each, 1)
	assert.True(t, types.Identical(must.NotFail(types.NewDocument("x", int32(1))), mods[4].Push.Each[0]))
	assert.Nil(t, mods[4].Push.Slice)

	assert.Equal(t, []any{int32(3)}, mods[5].Push.Each)
	assert.Nil(t, mods[5].Push.Slice)

	// parsed update does not share values with the specification
	b := must.NotFail(must.NotFail(spec.Get("$set")).(*types.Document).Get("b")).(*types.Document)
	require.NoError(t, b.Set("c", int32(42)))
	assert.True(t, types.Identical(must.NotFail(types.NewDocument("c", int32(1))), mods[1].Value))
}

func TestParseErrorMessages(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		spec string
		err  string
	}{
		"Unknown": {
			spec: `{"$xyz": {"a": 1}}`,
			err: "Unknown modifier: $xyz. Expected a valid update modifier or pipeline-style " +
				"update specified as an array",
		},
		"WrongType": {
			spec: `{"$set": [{"a": 1}]}`,
			err: "Modifiers operate on fields but we found type array instead. " +
				"For example: {$mod: {<field>: ...}} not {$set: [ { a: 1 } ]}",
		},
		"Empty": {
			spec: `{"$unset": {}}`,
			err:  "'$unset' is empty. You must specify a field like so: {$unset: {<field>: ...}}",
		},
		"Conflict": {
			spec: `{"$set": {"s": 1}, "$push": {"s.a": 1}}`,
			err:  "Updating the path 's.a' would create a conflict at 's'",
		},
		"EmptyName": {
			spec: `{"$set": {"a.": 1}}`,
			err:  "The update path 'a.' contains an empty field name, which is not allowed.",
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse(fromJSON(t, tc.spec))
			assert.EqualError(t, err, tc.err)
		})
	}
}
