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
package handlerparams

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// assertCommandError checks that err is CommandError with the given code and message.
func assertCommandError(t testing.TB, err error, code handlererrors.ErrorCode, msg string) {
	t.Helper()

	var ce *handlererrors.CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, code, ce.Code())
	assert.Equal(t, msg, ce.Unwrap().Error())
}

func TestGetParam(t *testing.T) {
	t.Parallel()

	doc := must.NotFail(types.NewDocument(
		"update", "values",
		"updates", must.NotFail(types.NewArray()),
		"ordered", int32(1),
	))

	coll, err := GetRequiredParam[string](doc, "update", "update")
	require.NoError(t, err)
	assert.Equal(t, "values", coll)

	updates, err := GetRequiredParam[*types.Array](doc, "update", "updates")
	require.NoError(t, err)
	assert.Equal(t, 0, updates.Len())

	_, err = GetRequiredParam[string](doc, "update", "$db")
	assertCommandError(t, err, handlererrors.ErrBadValue, "BSON field 'update.$db' is missing but a required field")

	_, err = GetRequiredParam[*types.Document](doc, "update", "updates")
	assertCommandError(
		t, err, handlererrors.ErrTypeMismatch,
		"BSON field 'update.updates' is the wrong type 'array', expected type 'object'",
	)

	wc, err := GetOptionalParam(doc, "update", "writeConcern", types.MakeDocument(0))
	require.NoError(t, err)
	assert.Equal(t, 0, wc.Len())

	_, err = GetOptionalParam(doc, "update", "ordered", true)
	assertCommandError(
		t, err, handlererrors.ErrTypeMismatch,
		"BSON field 'update.ordered' is the wrong type 'int', expected type 'bool'",
	)
}

func TestGetBoolOptionalParam(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		v        any
		expected bool
		err      string
	}{
		"Missing":   {v: nil},
		"Null":      {v: types.Null},
		"True":      {v: true, expected: true},
		"Int":       {v: int32(1), expected: true},
		"ZeroLong":  {v: int64(0)},
		"Double":    {v: 0.5, expected: true},
		"WrongType": {v: "true", err: "BSON field 'upsert' is the wrong type 'string', expected types '[bool, long, int, decimal, double]'"},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			actual, err := GetBoolOptionalParam("upsert", tc.v)
			if tc.err != "" {
				assertCommandError(t, err, handlererrors.ErrTypeMismatch, tc.err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestGetWholeNumberParam(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		v        any
		expected int64
		code     handlererrors.ErrorCode
	}{
		"Int":         {v: int32(1), expected: 1},
		"Long":        {v: int64(-3), expected: -3},
		"WholeDouble": {v: 2.0, expected: 2},
		"Fraction":    {v: 1.5, code: handlererrors.ErrBadValue},
		"TooLarge":    {v: int64(1 << 40), code: handlererrors.ErrBadValue},
		"String":      {v: "1", code: handlererrors.ErrTypeMismatch},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			actual, err := GetWholeNumberParam("limit", tc.v)
			if tc.code != 0 {
				var ce *handlererrors.CommandError
				require.ErrorAs(t, err, &ce)
				assert.Equal(t, tc.code, ce.Code())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestSplitNamespace(t *testing.T) {
	t.Parallel()

	db, coll, err := SplitNamespace("test.values.archive", "ns")
	require.NoError(t, err)
	assert.Equal(t, "test", db)
	assert.Equal(t, "values.archive", coll)

	for _, ns := range []string{"test", ".values", "test.", ""} {
		_, _, err = SplitNamespace(ns, "ns")
		assertCommandError(t, err, handlererrors.ErrInvalidNamespace, "Invalid namespace specified '"+ns+"'")
	}
}
