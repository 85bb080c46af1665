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
	"fmt"
	"io"

	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
)

// OpCode represents wire operation code.
type OpCode int32

// Legacy write operation codes.
const (
	OpCodeUpdate = OpCode(2001) // OP_UPDATE
	OpCodeInsert = OpCode(2002) // OP_INSERT
	OpCodeDelete = OpCode(2006) // OP_DELETE
)

// String implements fmt.Stringer.
func (c OpCode) String() string {
	switch c {
	case OpCodeUpdate:
		return "OP_UPDATE"
	case OpCodeInsert:
		return "OP_INSERT"
	case OpCodeDelete:
		return "OP_DELETE"
	default:
		return fmt.Sprintf("OpCode(%d)", int32(c))
	}
}

const (
	// MsgHeaderLen is an expected len of the header.
	MsgHeaderLen = 16

	// MaxMsgLen is the maximum message length.
	MaxMsgLen = 48000000
)

// MsgHeader represents common message header.
type MsgHeader struct {
	MessageLength int32
	RequestID     int32
	ResponseTo    int32
	OpCode        OpCode
}

// readFrom reads header from bufr.
//
// It returns io.EOF only if no bytes were read.
func (msg *MsgHeader) readFrom(bufr *bufio.Reader) error {
	b := make([]byte, MsgHeaderLen)
	if n, err := io.ReadFull(bufr, b); err != nil {
		if err == io.EOF {
			return err
		}

		return lazyerrors.Errorf("expected %d, read %d: %w", len(b), n, err)
	}

	msg.MessageLength = int32(binary.LittleEndian.Uint32(b[0:4]))
	msg.RequestID = int32(binary.LittleEndian.Uint32(b[4:8]))
	msg.ResponseTo = int32(binary.LittleEndian.Uint32(b[8:12]))
	msg.OpCode = OpCode(binary.LittleEndian.Uint32(b[12:16]))

	if msg.MessageLength < MsgHeaderLen || msg.MessageLength > MaxMsgLen {
		return lazyerrors.Errorf("invalid message length %d", msg.MessageLength)
	}

	return nil
}

// writeTo writes header to bufw.
func (msg *MsgHeader) writeTo(bufw *bufio.Writer) error {
	b, err := msg.MarshalBinary()
	if err != nil {
		return lazyerrors.Error(err)
	}

	if _, err := bufw.Write(b); err != nil {
		return lazyerrors.Error(err)
	}

	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (msg *MsgHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, MsgHeaderLen)

	binary.LittleEndian.PutUint32(b[0:4], uint32(msg.MessageLength))
	binary.LittleEndian.PutUint32(b[4:8], uint32(msg.RequestID))
	binary.LittleEndian.PutUint32(b[8:12], uint32(msg.ResponseTo))
	binary.LittleEndian.PutUint32(b[12:16], uint32(msg.OpCode))

	return b, nil
}

// String returns a string representation for logging.
func (msg *MsgHeader) String() string {
	if msg == nil {
		return "<nil>"
	}

	return fmt.Sprintf(
		"length: %5d, id: %4d, response_to: %4d, opcode: %s",
		msg.MessageLength, msg.RequestID, msg.ResponseTo, msg.OpCode,
	)
}

// check interfaces
var (
	_ fmt.Stringer = OpCode(0)
	_ fmt.Stringer = (*MsgHeader)(nil)
)
