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
package wire

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
	"github.com/FerretDB/docupdate/internal/util/testutil"
)

// testMessage writes msg with WriteMessage, reads it back with ReadMessage and returns the result.
func testMessage(t testing.TB, requestID int32, msg MsgBody) (*MsgHeader, MsgBody) {
	t.Helper()

	header, err := NewHeader(requestID, msg)
	require.NoError(t, err)

	var buf bytes.Buffer
	bufw := bufio.NewWriter(&buf)
	require.NoError(t, WriteMessage(bufw, header, msg))
	require.NoError(t, bufw.Flush())

	actualHeader, actualBody, err := ReadMessage(bufio.NewReader(&buf))
	require.NoError(t, err)
	assert.Equal(t, header, actualHeader)

	return actualHeader, actualBody
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("Insert", func(t *testing.T) {
		t.Parallel()

		msg := &OpInsert{
			Flags:              OpInsertFlags(OpInsertContinueOnError),
			FullCollectionName: "test.values",
			Documents: []*types.Document{
				must.NotFail(types.NewDocument("_id", int32(1), "a", "b")),
				must.NotFail(types.NewDocument("_id", int32(2), "a", must.NotFail(types.NewArray(1.5)))),
			},
		}

		header, body := testMessage(t, 1, msg)
		assert.Equal(t, OpCodeInsert, header.OpCode)

		actual, ok := body.(*OpInsert)
		require.True(t, ok)
		assert.Equal(t, msg.Flags, actual.Flags)
		assert.Equal(t, msg.FullCollectionName, actual.FullCollectionName)
		require.Len(t, actual.Documents, 2)
		testutil.AssertEqual(t, msg.Documents[0], actual.Documents[0])
		testutil.AssertEqual(t, msg.Documents[1], actual.Documents[1])
	})

	t.Run("Update", func(t *testing.T) {
		t.Parallel()

		msg := &OpUpdate{
			FullCollectionName: "test.values",
			Flags:              OpUpdateFlags(OpUpdateUpsert) | OpUpdateFlags(OpUpdateMultiUpdate),
			Selector:           must.NotFail(types.NewDocument("a", int32(1))),
			Update: must.NotFail(types.NewDocument(
				"$set", must.NotFail(types.NewDocument("b", int64(2))),
			)),
		}

		header, body := testMessage(t, 2, msg)
		assert.Equal(t, OpCodeUpdate, header.OpCode)
		assert.Equal(t, int32(2), header.RequestID)

		actual, ok := body.(*OpUpdate)
		require.True(t, ok)
		assert.True(t, actual.Flags.FlagSet(OpUpdateUpsert))
		assert.True(t, actual.Flags.FlagSet(OpUpdateMultiUpdate))
		assert.Equal(t, "test.values", actual.FullCollectionName)
		testutil.AssertEqual(t, msg.Selector, actual.Selector)
		testutil.AssertEqual(t, msg.Update, actual.Update)
	})

	t.Run("Delete", func(t *testing.T) {
		t.Parallel()

		msg := &OpDelete{
			FullCollectionName: "test.values",
			Flags:              OpDeleteFlags(OpDeleteSingleRemove),
			Selector:           must.NotFail(types.NewDocument("a", types.Null)),
		}

		header, body := testMessage(t, 3, msg)
		assert.Equal(t, OpCodeDelete, header.OpCode)

		actual, ok := body.(*OpDelete)
		require.True(t, ok)
		assert.True(t, actual.Flags.FlagSet(OpDeleteSingleRemove))
		testutil.AssertEqual(t, msg.Selector, actual.Selector)
	})
}

// makeUpdateBody returns OP_UPDATE body bytes built by hand.
func makeUpdateBody(ns string, flags int32) []byte {
	b := bsoncore.AppendInt32(nil, 0)
	b = append(b, ns...)
	b = append(b, 0)
	b = bsoncore.AppendInt32(b, flags)
	b = append(b, bsoncore.NewDocumentBuilder().AppendInt32("a", 1).Build()...)
	b = append(b, bsoncore.NewDocumentBuilder().AppendString("b", "c").Build()...)

	return b
}

func TestOpUpdateUnmarshal(t *testing.T) {
	t.Parallel()

	var msg OpUpdate
	require.NoError(t, msg.UnmarshalBinary(makeUpdateBody("db.coll", 1)))

	assert.Equal(t, "db.coll", msg.FullCollectionName)
	assert.True(t, msg.Flags.FlagSet(OpUpdateUpsert))
	assert.False(t, msg.Flags.FlagSet(OpUpdateMultiUpdate))
	testutil.AssertEqual(t, must.NotFail(types.NewDocument("a", int32(1))), msg.Selector)
	testutil.AssertEqual(t, must.NotFail(types.NewDocument("b", "c")), msg.Update)

	b, err := msg.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, makeUpdateBody("db.coll", 1), b)
}

func TestUnmarshalErrors(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		body       MsgBody
		b          []byte
		validation bool
	}{
		"InvalidNamespace": {
			body:       new(OpUpdate),
			b:          makeUpdateBody("nodot", 0),
			validation: true,
		},
		"EmptyDatabase": {
			body:       new(OpUpdate),
			b:          makeUpdateBody(".coll", 0),
			validation: true,
		},
		"TrailingBytes": {
			body: new(OpUpdate),
			b:    append(makeUpdateBody("db.coll", 0), 1),
		},
		"Truncated": {
			body: new(OpUpdate),
			b:    makeUpdateBody("db.coll", 0)[:20],
		},
		"MalformedDocument": {
			body:       new(OpDelete),
			b:          append(bsoncore.AppendInt32(append(bsoncore.AppendInt32(nil, 0), "db.coll\x00"...), 0), 5, 0, 0, 0, 1),
			validation: true,
		},
		"NoDocuments": {
			body:       new(OpInsert),
			b:          append(bsoncore.AppendInt32(nil, 0), "db.coll\x00"...),
			validation: true,
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.body.UnmarshalBinary(tc.b)
			require.Error(t, err)

			var ve *ValidationError
			assert.Equal(t, tc.validation, errors.As(err, &ve), "%v", err)
		})
	}
}

func TestReadMessageErrors(t *testing.T) {
	t.Parallel()

	t.Run("EOF", func(t *testing.T) {
		t.Parallel()

		_, _, err := ReadMessage(bufio.NewReader(bytes.NewReader(nil)))
		assert.Equal(t, io.EOF, err)
	})

	t.Run("UnknownOpCode", func(t *testing.T) {
		t.Parallel()

		header := &MsgHeader{MessageLength: MsgHeaderLen, OpCode: OpCode(2013)}
		b := must.NotFail(header.MarshalBinary())

		_, _, err := ReadMessage(bufio.NewReader(bytes.NewReader(b)))
		assert.ErrorContains(t, err, "unhandled opcode OpCode(2013)")
	})

	t.Run("InvalidLength", func(t *testing.T) {
		t.Parallel()

		header := &MsgHeader{MessageLength: 3, OpCode: OpCodeUpdate}
		b := must.NotFail(header.MarshalBinary())

		_, _, err := ReadMessage(bufio.NewReader(bytes.NewReader(b)))
		assert.ErrorContains(t, err, "invalid message length 3")
	})
}

func TestFlagsString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[]", OpUpdateFlags(0).String())
	assert.Equal(t, "[Upsert|MultiUpdate]", OpUpdateFlags(3).String())
	assert.Equal(t, "[Upsert|OpUpdateFlagBit(8)]", OpUpdateFlags(9).String())
	assert.Equal(t, "[ContinueOnError]", OpInsertFlags(1).String())
	assert.Equal(t, "[SingleRemove]", OpDeleteFlags(1).String())
}

func TestString(t *testing.T) {
	t.Parallel()

	msg := &OpUpdate{
		FullCollectionName: "db.coll",
		Flags:              OpUpdateFlags(OpUpdateUpsert),
		Selector:           must.NotFail(types.NewDocument("a", int32(1))),
		Update:             must.NotFail(types.NewDocument("b", "c")),
	}

	expected := `{
  "Flags": "[Upsert]",
  "FullCollectionName": "db.coll",
  "Selector": {"a":1},
  "Update": {"b":"c"}
}`
	assert.JSONEq(t, expected, msg.String())

	header := &MsgHeader{MessageLength: 42, RequestID: 1, OpCode: OpCodeUpdate}
	assert.Equal(t, "length:    42, id:    1, response_to:    0, opcode: OP_UPDATE", header.String())
}
