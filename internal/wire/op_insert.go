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
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// OpInsert is a legacy message used to insert one or more documents into a collection.
type OpInsert struct {
	Flags              OpInsertFlags
	FullCollectionName string
	Documents          []*types.Document
}

func (insert *OpInsert) msgbody() {}

// readFrom composes an OpInsert from a buffered reader.
// It may return ValidationError if the documents read from bufr are invalid.
func (insert *OpInsert) readFrom(bufr *bufio.Reader) error {
	if err := binary.Read(bufr, binary.LittleEndian, &insert.Flags); err != nil {
		return lazyerrors.Errorf("wire.OpInsert.readFrom (binary.Read): %w", err)
	}

	var err error
	if insert.FullCollectionName, err = readCString(bufr); err != nil {
		return lazyerrors.Error(err)
	}

	if err = validateNamespace(insert.FullCollectionName); err != nil {
		return err
	}

	insert.Documents = nil

	for {
		if _, err = bufr.Peek(1); err != nil {
			break
		}

		var doc *types.Document
		if doc, err = readDocument(bufr); err != nil {
			return err
		}

		insert.Documents = append(insert.Documents, doc)
	}

	if len(insert.Documents) == 0 {
		return newValidationError(errors.New("OP_INSERT contains no documents"))
	}

	return nil
}

// UnmarshalBinary reads an OpInsert from a byte array.
func (insert *OpInsert) UnmarshalBinary(b []byte) error {
	br := bytes.NewReader(b)
	bufr := bufio.NewReader(br)

	if err := insert.readFrom(bufr); err != nil {
		return err
	}

	if _, err := bufr.Peek(1); err != io.EOF {
		return lazyerrors.Errorf("unexpected end of the OpInsert: %v", err)
	}

	return nil
}

// MarshalBinary writes an OpInsert to a byte array.
func (insert *OpInsert) MarshalBinary() ([]byte, error) {
	b := bsoncore.AppendInt32(nil, int32(insert.Flags))
	b = appendCString(b, insert.FullCollectionName)

	var err error
	for _, doc := range insert.Documents {
		if b, err = appendDocument(b, doc); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	return b, nil
}

// String returns a string representation for logging.
func (insert *OpInsert) String() string {
	if insert == nil {
		return "<nil>"
	}

	docs := make([]json.RawMessage, len(insert.Documents))
	for i, doc := range insert.Documents {
		docs[i] = jsonDocument(doc)
	}

	m := map[string]any{
		"Flags":              insert.Flags.String(),
		"FullCollectionName": insert.FullCollectionName,
		"Documents":          docs,
	}

	return string(must.NotFail(json.MarshalIndent(m, "", "  ")))
}

// check interfaces
var (
	_ MsgBody = (*OpInsert)(nil)
)
