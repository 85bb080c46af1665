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
	"bytes"
	"math"
	"time"
)

// Identical returns true if a and b are the same type and have the same value.
//
// Documents are identical when they have the same fields in the same order.
// Unlike numeric comparison used by queries, int32(1) and float64(1) are not identical.
// NaN is identical to NaN.
func Identical(a, b any) bool {
	switch a := a.(type) {
	case *Document:
		b, ok := b.(*Document)
		if !ok {
			return false
		}

		if a.Len() != b.Len() {
			return false
		}

		for i, af := range a.fields {
			bf := b.fields[i]

			if af.key != bf.key || !Identical(af.value, bf.value) {
				return false
			}
		}

		return true

	case *Array:
		b, ok := b.(*Array)
		if !ok {
			return false
		}

		if a.Len() != b.Len() {
			return false
		}

		for i, av := range a.s {
			if !Identical(av, b.s[i]) {
				return false
			}
		}

		return true

	case float64:
		b, ok := b.(float64)
		if !ok {
			return false
		}

		if math.IsNaN(a) && math.IsNaN(b) {
			return true
		}

		return a == b && math.Signbit(a) == math.Signbit(b)

	case string:
		b, ok := b.(string)
		return ok && a == b

	case Binary:
		b, ok := b.(Binary)
		return ok && a.Subtype == b.Subtype && bytes.Equal(a.B, b.B)

	case ObjectID:
		b, ok := b.(ObjectID)
		return ok && a == b

	case bool:
		b, ok := b.(bool)
		return ok && a == b

	case time.Time:
		b, ok := b.(time.Time)
		return ok && a.UnixMilli() == b.UnixMilli()

	case NullType:
		_, ok := b.(NullType)
		return ok

	case Regex:
		b, ok := b.(Regex)
		return ok && a == b

	case int32:
		b, ok := b.(int32)
		return ok && a == b

	case Timestamp:
		b, ok := b.(Timestamp)
		return ok && a == b

	case int64:
		b, ok := b.(int64)
		return ok && a == b
	}

	panic("not reached")
}
