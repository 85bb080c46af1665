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
package main

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/docupdate/internal/bson"
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/util/must"
	"github.com/FerretDB/docupdate/internal/util/testutil"
	"github.com/FerretDB/docupdate/internal/wire"
)

// lines returns non-empty output lines.
func lines(buf *bytes.Buffer) []string {
	return strings.FieldsFunc(buf.String(), func(r rune) bool { return r == '\n' })
}

func TestApply(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		cmd      applyCmd
		expected []string
		code     handlererrors.ErrorCode
	}{
		"Set": {
			cmd: applyCmd{
				Doc:    `{"_id": 1, "a": 1}`,
				Update: `{"$set": {"b": 2}}`,
			},
			expected: []string{
				`{"_id": {"$numberInt": "1"}, "a": {"$numberInt": "1"}, "b": {"$numberInt": "2"}}`,
			},
		},
		"SetOnInsert": {
			cmd: applyCmd{
				Doc:    `{"_id": 1}`,
				Update: `{"$setOnInsert": {"b": 2}}`,
				Upsert: true,
			},
			expected: []string{
				`{"_id": {"$numberInt": "1"}, "b": {"$numberInt": "2"}}`,
			},
		},
		"ShardKeyUntouched": {
			cmd: applyCmd{
				Doc:      `{"_id": 1, "s": 1}`,
				Update:   `{"$set": {"a": 1}}`,
				ShardKey: `{"s": 1}`,
			},
			expected: []string{
				`{"_id": {"$numberInt": "1"}, "s": {"$numberInt": "1"}, "a": {"$numberInt": "1"}}`,
			},
		},
		"ShardKeyAltered": {
			cmd: applyCmd{
				Doc:      `{"_id": 1, "s": 1}`,
				Update:   `{"$set": {"s": 2}}`,
				ShardKey: `{"s": 1}`,
			},
			code: handlererrors.ErrImmutableField,
		},
		"InvalidDoc": {
			cmd: applyCmd{
				Doc:    `{"_id": `,
				Update: `{"$set": {"b": 2}}`,
			},
			code: handlererrors.ErrFailedToParse,
		},
		"InvalidUpdate": {
			cmd: applyCmd{
				Doc:    `{"_id": 1}`,
				Update: `{"$xyz": {"b": 2}}`,
			},
			code: handlererrors.ErrFailedToParse,
		},
	} {
		name, tc := name, tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			err := tc.cmd.run(&buf, testutil.Logger(t), prometheus.NewRegistry())

			if tc.code != 0 {
				pe, ok := handlererrors.ProtocolError(err)
				require.True(t, ok, "%v", err)
				assert.Equal(t, tc.code, pe.Code())
				assert.Empty(t, buf.String())

				return
			}

			require.NoError(t, err)

			out := lines(&buf)
			require.Len(t, out, 2)
			assert.JSONEq(t, tc.expected[0], out[0])
			assert.Equal(t, "affectsShardKey: false", out[1])
		})
	}
}

func TestApplyAffectsShardKey(t *testing.T) {
	t.Parallel()

	cmd := applyCmd{
		Doc:      `{"_id": 1, "s": {"a": 1}}`,
		Update:   `{"_id": 1, "s": {"a": 1}, "b": 2}`,
		ShardKey: `{"s.a": 1}`,
	}

	var buf bytes.Buffer
	require.NoError(t, cmd.run(&buf, testutil.Logger(t), prometheus.NewRegistry()))

	out := lines(&buf)
	require.Len(t, out, 2)
	assert.Equal(t, "affectsShardKey: true", out[1])
}

// writeFile writes content to a new file in a temporary directory and returns its path.
func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, content, 0o666))

	return file
}

func TestBatchCommands(t *testing.T) {
	t.Parallel()

	cmd := batchCmd{
		Docs: writeFile(t, "docs.jsonl", []byte("{\"_id\": 1, \"a\": 1}\n\n{\"_id\": 2, \"a\": 1}\n")),
		Command: []string{
			`{"update": "values", "updates": [{"q": {"_id": 1}, "u": {"$set": {"a": 2}}}], "$db": "test"}`,
			`{"insert": "values", "documents": [{"_id": 3}], "$db": "test"}`,
			`{"insert": "values", "documents": [{"_id": 3}], "$db": "test"}`,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), &buf, testutil.Logger(t), prometheus.NewRegistry()))

	out := lines(&buf)
	require.Len(t, out, 6)

	assert.JSONEq(t, `{"n": 1, "nModified": 1, "ok": 1}`, out[0])
	assert.JSONEq(t, `{"n": 1, "ok": 1}`, out[1])

	dup, err := bson.FromExtJSON(out[2])
	require.NoError(t, err)
	assert.Equal(t, int32(0), must.NotFail(dup.Get("n")))
	assert.True(t, dup.Has("writeErrors"))

	assert.JSONEq(t, `{"_id": {"$numberInt": "1"}, "a": {"$numberInt": "2"}}`, out[3])
	assert.JSONEq(t, `{"_id": {"$numberInt": "2"}, "a": {"$numberInt": "1"}}`, out[4])
	assert.JSONEq(t, `{"_id": {"$numberInt": "3"}}`, out[5])
}

func TestBatchCommandError(t *testing.T) {
	t.Parallel()

	cmd := batchCmd{
		Command: []string{`{"find": "values", "$db": "test"}`},
	}

	var buf bytes.Buffer
	err := cmd.run(context.Background(), &buf, testutil.Logger(t), prometheus.NewRegistry())

	pe, ok := handlererrors.ProtocolError(err)
	require.True(t, ok)
	assert.Equal(t, handlererrors.ErrCommandNotFound, pe.Code())
}

func TestBatchWire(t *testing.T) {
	t.Parallel()

	msgs := []wire.MsgBody{
		&wire.OpUpdate{
			FullCollectionName: "test.values",
			Selector:           must.NotFail(bson.FromExtJSON(`{"_id": 1}`)),
			Update:             must.NotFail(bson.FromExtJSON(`{"$set": {"a": 2}}`)),
		},
		&wire.OpUpdate{
			FullCollectionName: "test.values",
			Flags:              wire.OpUpdateFlags(wire.OpUpdateUpsert),
			Selector:           must.NotFail(bson.FromExtJSON(`{"_id": 2}`)),
			Update:             must.NotFail(bson.FromExtJSON(`{"$set": {"b": 1}}`)),
		},
		&wire.OpUpdate{
			FullCollectionName: "test.values",
			Selector:           must.NotFail(bson.FromExtJSON(`{"_id": 1}`)),
			Update:             must.NotFail(bson.FromExtJSON(`{"$set": {"_id": 5}}`)),
		},
	}

	var b bytes.Buffer
	bw := bufio.NewWriter(&b)

	for i, msg := range msgs {
		header, err := wire.NewHeader(int32(i+1), msg)
		require.NoError(t, err)
		require.NoError(t, wire.WriteMessage(bw, header, msg))
	}

	require.NoError(t, bw.Flush())

	cmd := batchCmd{
		Docs: writeFile(t, "docs.jsonl", []byte(`{"_id": 1, "a": 1}`)),
		Wire: writeFile(t, "msgs.bin", b.Bytes()),
	}

	var buf bytes.Buffer
	require.NoError(t, cmd.run(context.Background(), &buf, testutil.Logger(t), prometheus.NewRegistry()))

	out := lines(&buf)
	require.Len(t, out, 5)

	assert.JSONEq(t, `{"n": 1, "updatedExisting": true, "err": null, "ok": 1}`, out[0])
	assert.JSONEq(t, `{"n": 1, "updatedExisting": false, "upserted": 2, "err": null, "ok": 1}`, out[1])

	le, err := bson.FromExtJSON(out[2])
	require.NoError(t, err)
	assert.Equal(t, int32(handlererrors.ErrImmutableField), must.NotFail(le.Get("code")))

	assert.JSONEq(t, `{"_id": {"$numberInt": "1"}, "a": {"$numberInt": "2"}}`, out[3])
	assert.JSONEq(t, `{"_id": {"$numberInt": "2"}, "b": {"$numberInt": "1"}}`, out[4])
}
