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
package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docupdate/internal/bson"
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/testutil"
)

// fromJSON parses Extended JSON document for tests.
func fromJSON(tb testing.TB, s string) *types.Document {
	tb.Helper()

	doc, err := bson.FromExtJSON(s)
	require.NoError(tb, err)

	return doc
}

func TestCollection(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	c, err := New("test.values", fromJSON(t, `{"_id": 3, "a": 1}`), fromJSON(t, `{"_id": 1, "a": 2, "s": {"b": 1}}`))
	require.NoError(t, err)

	doc, err := c.FindOne(ctx, fromJSON(t, `{"a": 2}`))
	require.NoError(t, err)
	testutil.AssertEqual(t, fromJSON(t, `{"_id": 1, "a": 2, "s": {"b": 1}}`), doc)

	doc, err = c.FindOne(ctx, fromJSON(t, `{"s.b": {"$eq": 1}}`))
	require.NoError(t, err)
	require.NotNil(t, doc)

	doc, err = c.FindOne(ctx, fromJSON(t, `{"a": 3}`))
	require.NoError(t, err)
	assert.Nil(t, doc)

	docs, err := c.FindAll(ctx, fromJSON(t, `{"x": null}`))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	testutil.AssertEqual(t, fromJSON(t, `{"_id": 3, "a": 1}`), docs[0])

	// returned documents are copies
	require.NoError(t, docs[0].Set("a", int32(42)))
	testutil.AssertEqual(t, fromJSON(t, `{"_id": 3, "a": 1}`), c.All()[0])

	require.NoError(t, c.Replace(ctx, fromJSON(t, `{"_id": 3, "b": 1}`)))
	require.NoError(t, c.Insert(ctx, fromJSON(t, `{"_id": 2}`)))

	all := c.All()
	require.Len(t, all, 3)
	testutil.AssertEqual(t, fromJSON(t, `{"_id": 3, "b": 1}`), all[0])
	testutil.AssertEqual(t, fromJSON(t, `{"_id": 2}`), all[2])

	assert.Error(t, c.Replace(ctx, fromJSON(t, `{"_id": 4}`)))
	assert.Error(t, c.Insert(ctx, fromJSON(t, `{"a": 1}`)))
}

func TestCollectionErrors(t *testing.T) {
	t.Parallel()

	ctx := testutil.Ctx(t)

	c, err := New("test.values", fromJSON(t, `{"_id": 1}`))
	require.NoError(t, err)

	err = c.Insert(ctx, fromJSON(t, `{"_id": 1, "a": 1}`))

	var we *handlererrors.WriteErrors
	require.ErrorAs(t, err, &we)
	assert.Equal(t, handlererrors.ErrDuplicateKey, we.Code())
	assert.Equal(t, "E11000 duplicate key error collection: test.values index: _id_ dup key: { _id: 1 }", we.Error())

	// different types are different keys
	require.NoError(t, c.Insert(ctx, fromJSON(t, `{"_id": {"$numberLong": "1"}}`)))

	for _, filter := range []string{`{"a": {"$gt": 1}}`, `{"$or": []}`, `{"a": {"$eq": 1, "$ne": 2}}`} {
		_, err = c.FindOne(ctx, fromJSON(t, filter))

		var ce *handlererrors.CommandError
		require.ErrorAs(t, err, &ce, filter)
		assert.Equal(t, handlererrors.ErrNotImplemented, ce.Code())
		assert.ErrorIs(t, err, errUnsupportedOperator)
	}

	_, err = New("test.values", fromJSON(t, `{"_id": 1}`), fromJSON(t, `{"_id": 1}`))
	assert.Error(t, err)
}
