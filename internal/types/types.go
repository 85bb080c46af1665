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

// Package types provides Go types matching BSON types that don't have built-in Go equivalents.
//
// Values of those types form a mutable document tree: every composite value
// (*Document or *Array) is exclusively owned by its parent, and is never shared
// between two documents. Use DeepCopy to take an independent snapshot.
//
// Mapping
//
// Composite types (passed by pointers)
//
//	*types.Document  Document
//	*types.Array     Array
//
// Scalar types (passed by values)
//
//	float64          64-bit binary floating point
//	string           UTF-8 string
//	types.Binary     Binary data
//	types.ObjectID   ObjectId
//	bool             Boolean
//	time.Time        UTC datetime
//	types.NullType   Null
//	types.Regex      Regular expression
//	int32            32-bit integer
//	types.Timestamp  Timestamp
//	int64            64-bit integer
package types

import (
	"fmt"
	"time"
)

// ScalarType represents scalar type.
type ScalarType interface {
	float64 | string | Binary | ObjectID | bool | time.Time | NullType | Regex | int32 | Timestamp | int64
}

// CompositeType represents composite type - *Document or *Array.
type CompositeType interface {
	*Document | *Array
}

// Type represents any BSON type (scalar or composite).
type Type interface {
	ScalarType | CompositeType
}

type (
	// Timestamp represents BSON type Timestamp.
	Timestamp uint64

	// NullType represents BSON type Null.
	//
	// Most callers should use types.Null value instead.
	NullType struct{}
)

// Null represents BSON value Null.
var Null = NullType{}

// NewTimestamp returns a timestamp from seconds and an increment.
func NewTimestamp(sec, i uint32) Timestamp {
	return Timestamp(uint64(sec)<<32 | uint64(i))
}

// validateValue returns an error if value is not a supported BSON value.
func validateValue(value any) error {
	switch value := value.(type) {
	case *Document:
		if value == nil {
			return fmt.Errorf("types.validateValue: nil document")
		}
	case *Array:
		if value == nil {
			return fmt.Errorf("types.validateValue: nil array")
		}
	case float64, string, Binary, ObjectID, bool, time.Time, NullType, Regex, int32, Timestamp, int64:
	default:
		return fmt.Errorf("types.validateValue: unsupported type: %[1]T (%[1]v)", value)
	}

	return nil
}

// deepCopy returns a deep copy of the given value.
func deepCopy(value any) any {
	if value == nil {
		panic("types.deepCopy: nil value")
	}

	switch value := value.(type) {
	case *Document:
		fields := make([]field, len(value.fields))
		for i, f := range value.fields {
			fields[i] = field{
				key:   f.key,
				value: deepCopy(f.value),
			}
		}

		return &Document{fields: fields}

	case *Array:
		s := make([]any, len(value.s))
		for i, v := range value.s {
			s[i] = deepCopy(v)
		}

		return &Array{s: s}

	case Binary:
		b := make([]byte, len(value.B))
		copy(b, value.B)

		return Binary{
			Subtype: value.Subtype,
			B:       b,
		}

	case float64, string, ObjectID, bool, time.Time, NullType, Regex, int32, Timestamp, int64:
		return value

	default:
		panic(fmt.Sprintf("types.deepCopy: unsupported type: %[1]T (%[1]v)", value))
	}
}
