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
	"math/bits"
	"strconv"
	"strings"
)

type flagBit uint32

type flags uint32

// string returns a human-readable list of set bits, using stringer for names.
func (f flags) string(stringer func(flagBit) string) string {
	if f == 0 {
		return "[]"
	}

	res := make([]string, 0, bits.OnesCount32(uint32(f)))

	for f != 0 {
		bit := flagBit(1 << bits.TrailingZeros32(uint32(f)))
		res = append(res, stringer(bit))
		f &^= flags(bit)
	}

	return "[" + strings.Join(res, "|") + "]"
}

// unknownBit formats a bit without a name.
func unknownBit(prefix string, bit flagBit) string {
	return prefix + "(" + strconv.FormatUint(uint64(bit), 10) + ")"
}
