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
	"io"

	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// OpUpdate is a legacy message used to update a document in a collection.
type OpUpdate struct {
	FullCollectionName string
	Flags              OpUpdateFlags
	Selector           *types.Document
	Update             *types.Document
}

func (upd *OpUpdate) msgbody() {}

// readFrom composes an OpUpdate from a buffered reader.
// It may return ValidationError if the documents read from bufr are invalid.
func (upd *OpUpdate) readFrom(bufr *bufio.Reader) error {
	var zero int32
	if err := binary.Read(bufr, binary.LittleEndian, &zero); err != nil {
		return lazyerrors.Errorf("wire.OpUpdate.readFrom (binary.Read): %w", err)
	}

	var err error
	if upd.FullCollectionName, err = readCString(bufr); err != nil {
		return lazyerrors.Error(err)
	}

	if err = validateNamespace(upd.FullCollectionName); err != nil {
		return err
	}

	if err = binary.Read(bufr, binary.LittleEndian, &upd.Flags); err != nil {
		return lazyerrors.Errorf("wire.OpUpdate.readFrom (binary.Read): %w", err)
	}

	if upd.Selector, err = readDocument(bufr); err != nil {
		return err
	}

	if upd.Update, err = readDocument(bufr); err != nil {
		return err
	}

	return nil
}

// UnmarshalBinary reads an OpUpdate from a byte array.
func (upd *OpUpdate) UnmarshalBinary(b []byte) error {
	br := bytes.NewReader(b)
	bufr := bufio.NewReader(br)

	if err := upd.readFrom(bufr); err != nil {
		return err
	}

	if _, err := bufr.Peek(1); err != io.EOF {
		return lazyerrors.Errorf("unexpected end of the OpUpdate: %v", err)
	}

	return nil
}

// MarshalBinary writes an OpUpdate to a byte array.
func (upd *OpUpdate) MarshalBinary() ([]byte, error) {
	b := bsoncore.AppendInt32(nil, 0)
	b = appendCString(b, upd.FullCollectionName)
	b = bsoncore.AppendInt32(b, int32(upd.Flags))

	var err error
	if b, err = appendDocument(b, upd.Selector); err != nil {
		return nil, lazyerrors.Error(err)
	}

	if b, err = appendDocument(b, upd.Update); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return b, nil
}

// String returns a string representation for logging.
func (upd *OpUpdate) String() string {
	if upd == nil {
		return "<nil>"
	}

	m := map[string]any{
		"FullCollectionName": upd.FullCollectionName,
		"Flags":              upd.Flags.String(),
		"Selector":           jsonDocument(upd.Selector),
		"Update":             jsonDocument(upd.Update),
	}

	return string(must.NotFail(json.MarshalIndent(m, "", "  ")))
}

// check interfaces
var (
	_ MsgBody = (*OpUpdate)(nil)
)
