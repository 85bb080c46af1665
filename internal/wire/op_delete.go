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

// OpDelete is a legacy message used to remove documents from a collection.
type OpDelete struct {
	FullCollectionName string
	Flags              OpDeleteFlags
	Selector           *types.Document
}

func (del *OpDelete) msgbody() {}

// readFrom composes an OpDelete from a buffered reader.
// It may return ValidationError if the document read from bufr is invalid.
func (del *OpDelete) readFrom(bufr *bufio.Reader) error {
	var zero int32
	if err := binary.Read(bufr, binary.LittleEndian, &zero); err != nil {
		return lazyerrors.Errorf("wire.OpDelete.readFrom (binary.Read): %w", err)
	}

	var err error
	if del.FullCollectionName, err = readCString(bufr); err != nil {
		return lazyerrors.Error(err)
	}

	if err = validateNamespace(del.FullCollectionName); err != nil {
		return err
	}

	if err = binary.Read(bufr, binary.LittleEndian, &del.Flags); err != nil {
		return lazyerrors.Errorf("wire.OpDelete.readFrom (binary.Read): %w", err)
	}

	if del.Selector, err = readDocument(bufr); err != nil {
		return err
	}

	return nil
}

// UnmarshalBinary reads an OpDelete from a byte array.
func (del *OpDelete) UnmarshalBinary(b []byte) error {
	br := bytes.NewReader(b)
	bufr := bufio.NewReader(br)

	if err := del.readFrom(bufr); err != nil {
		return err
	}

	if _, err := bufr.Peek(1); err != io.EOF {
		return lazyerrors.Errorf("unexpected end of the OpDelete: %v", err)
	}

	return nil
}

// MarshalBinary writes an OpDelete to a byte array.
func (del *OpDelete) MarshalBinary() ([]byte, error) {
	b := bsoncore.AppendInt32(nil, 0)
	b = appendCString(b, del.FullCollectionName)
	b = bsoncore.AppendInt32(b, int32(del.Flags))

	b, err := appendDocument(b, del.Selector)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return b, nil
}

// String returns a string representation for logging.
func (del *OpDelete) String() string {
	if del == nil {
		return "<nil>"
	}

	m := map[string]any{
		"FullCollectionName": del.FullCollectionName,
		"Flags":              del.Flags.String(),
		"Selector":           jsonDocument(del.Selector),
	}

	return string(must.NotFail(json.MarshalIndent(m, "", "  ")))
}

// check interfaces
var (
	_ MsgBody = (*OpDelete)(nil)
)
