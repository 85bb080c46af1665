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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/FerretDB/docupdate/internal/bson"
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// ValidationError is used for reporting validation errors.
type ValidationError struct {
	err error
}

// Error implements error interface.
func (v *ValidationError) Error() string {
	return v.err.Error()
}

// Code implements handlererrors.Coder interface.
func (v *ValidationError) Code() handlererrors.ErrorCode {
	return handlererrors.ErrBadValue
}

// Document returns the value of msg as a types.Document.
func (v *ValidationError) Document() *types.Document {
	d := must.NotFail(types.NewDocument(
		"ok", float64(0),
		"errmsg", v.err.Error(),
		"code", int32(v.Code()),
	))

	return d
}

// newValidationError returns new ValidationError.
func newValidationError(err error) error {
	return &ValidationError{err: err}
}

// validateNamespace checks that the full collection name has both database and collection parts.
func validateNamespace(ns string) error {
	db, coll, ok := strings.Cut(ns, ".")
	if !ok || db == "" || coll == "" {
		return newValidationError(fmt.Errorf("invalid namespace %q", ns))
	}

	return nil
}

// readCString reads a zero-terminated string from bufr.
func readCString(bufr *bufio.Reader) (string, error) {
	b, err := bufr.ReadBytes(0)
	if err != nil {
		return "", lazyerrors.Error(err)
	}

	return string(b[:len(b)-1]), nil
}

// appendCString appends a zero-terminated string to b.
func appendCString(b []byte, s string) []byte {
	b = append(b, s...)
	return append(b, 0)
}

// readDocument reads a single BSON document from bufr.
// It returns ValidationError if the document is malformed or contains unsupported values.
func readDocument(bufr *bufio.Reader) (*types.Document, error) {
	l, err := bufr.Peek(4)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	n := int32(binary.LittleEndian.Uint32(l))
	if n < 5 || n > MaxMsgLen {
		return nil, newValidationError(fmt.Errorf("invalid document length %d", n))
	}

	b := make([]byte, n)
	if _, err = io.ReadFull(bufr, b); err != nil {
		return nil, lazyerrors.Error(err)
	}

	raw, rest, ok := bsoncore.ReadDocument(b)
	if !ok || len(rest) != 0 {
		return nil, newValidationError(fmt.Errorf("malformed document of length %d", n))
	}

	doc, err := bson.FromRaw([]byte(raw))
	if err != nil {
		return nil, newValidationError(err)
	}

	return doc, nil
}

// appendDocument appends BSON encoding of doc to b.
func appendDocument(b []byte, doc *types.Document) ([]byte, error) {
	raw, err := bson.ToRaw(doc)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return append(b, raw...), nil
}

// jsonDocument returns relaxed Extended JSON of doc for String methods.
func jsonDocument(doc *types.Document) json.RawMessage {
	if doc == nil {
		return json.RawMessage("null")
	}

	return json.RawMessage(must.NotFail(bson.ToExtJSON(doc, false)))
}
