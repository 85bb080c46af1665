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
// Package wire provides legacy write operations of the MongoDB wire protocol.
package wire

import (
	"bufio"
	"encoding"
	"fmt"
	"io"

	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
)

// MsgBody is a wire protocol message body.
type MsgBody interface {
	readFrom(*bufio.Reader) error
	encoding.BinaryUnmarshaler
	encoding.BinaryMarshaler
	fmt.Stringer

	msgbody() // seal for go-sumtype
}

//go-sumtype:decl MsgBody

// ReadMessage reads from reader and returns wire header and body.
//
// Error is (possibly wrapped) ValidationError if the message contains invalid documents.
// It returns io.EOF only if no bytes were read.
func ReadMessage(r *bufio.Reader) (*MsgHeader, MsgBody, error) {
	var header MsgHeader
	if err := header.readFrom(r); err != nil {
		if err == io.EOF {
			return nil, nil, err
		}

		return nil, nil, lazyerrors.Error(err)
	}

	b := make([]byte, header.MessageLength-MsgHeaderLen)
	if n, err := io.ReadFull(r, b); err != nil {
		return nil, nil, lazyerrors.Errorf("expected %d, read %d: %w", len(b), n, err)
	}

	var body MsgBody

	switch header.OpCode {
	case OpCodeInsert:
		body = new(OpInsert)
	case OpCodeUpdate:
		body = new(OpUpdate)
	case OpCodeDelete:
		body = new(OpDelete)
	default:
		return nil, nil, lazyerrors.Errorf("unhandled opcode %s", header.OpCode)
	}

	if err := body.UnmarshalBinary(b); err != nil {
		return nil, nil, lazyerrors.Error(err)
	}

	return &header, body, nil
}

// WriteMessage validates msg and headers and writes them to the writer.
func WriteMessage(w *bufio.Writer, header *MsgHeader, msg MsgBody) error {
	b, err := msg.MarshalBinary()
	if err != nil {
		return lazyerrors.Error(err)
	}

	if expected := len(b) + MsgHeaderLen; int32(expected) != header.MessageLength {
		panic(fmt.Sprintf(
			"expected length %d (marshaled body size) + %d (fixed marshaled header size) = %d, got %d",
			len(b), MsgHeaderLen, expected, header.MessageLength,
		))
	}

	if err := header.writeTo(w); err != nil {
		return lazyerrors.Error(err)
	}

	if _, err := w.Write(b); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// NewHeader returns a header for msg with the correct length.
func NewHeader(requestID int32, msg MsgBody) (*MsgHeader, error) {
	b, err := msg.MarshalBinary()
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	var opCode OpCode

	switch msg.(type) {
	case *OpInsert:
		opCode = OpCodeInsert
	case *OpUpdate:
		opCode = OpCodeUpdate
	case *OpDelete:
		opCode = OpCodeDelete
	default:
		panic(fmt.Sprintf("unexpected message body %T", msg))
	}

	return &MsgHeader{
		MessageLength: int32(len(b) + MsgHeaderLen),
		RequestID:     requestID,
		OpCode:        opCode,
	}, nil
}
