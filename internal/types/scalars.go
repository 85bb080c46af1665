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

package types

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
	"time"
)

// BinarySubtype represents BSON Binary's subtype.
type BinarySubtype byte

const (
	BinaryGeneric    = BinarySubtype(0x00) // generic
	BinaryFunction   = BinarySubtype(0x01) // function
	BinaryGenericOld = BinarySubtype(0x02) // generic-old
	BinaryUUIDOld    = BinarySubtype(0x03) // uuid-old
	BinaryUUID       = BinarySubtype(0x04) // uuid
	BinaryMD5        = BinarySubtype(0x05) // md5
	BinaryEncrypted  = BinarySubtype(0x06) // encrypted
	BinaryUser       = BinarySubtype(0x80) // user
)

// Binary represents BSON type Binary.
type Binary struct {
	Subtype BinarySubtype
	B       []byte
}

// Regex represents BSON type Regex.
type Regex struct {
	Pattern string
	Options string
}

// ObjectIDLen is an ObjectID length in bytes.
const ObjectIDLen = 12

// ObjectID represents BSON type ObjectID.
type ObjectID [ObjectIDLen]byte

// objectIDProcess is a per-process unique value used in every generated ObjectID.
var objectIDProcess [5]byte

// objectIDCounter is incremented for every generated ObjectID.
var objectIDCounter atomic.Uint32

func init() {
	if _, err := rand.Read(objectIDProcess[:]); err != nil {
		panic(err)
	}

	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}

	objectIDCounter.Store(binary.BigEndian.Uint32(b[:]))
}

// NewObjectID returns a new ObjectID for the current time.
func NewObjectID() ObjectID {
	return newObjectIDTime(time.Now())
}

// newObjectIDTime returns a new ObjectID with the given time.
func newObjectIDTime(t time.Time) ObjectID {
	var res ObjectID

	binary.BigEndian.PutUint32(res[0:4], uint32(t.Unix()))
	copy(res[4:9], objectIDProcess[:])

	c := objectIDCounter.Add(1)
	res[9] = byte(c >> 16)
	res[10] = byte(c >> 8)
	res[11] = byte(c)

	return res
}
