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

import "fmt"

// OpUpdateFlagBit is a bit of OP_UPDATE flags.
type OpUpdateFlagBit flagBit

const (
	OpUpdateUpsert      = OpUpdateFlagBit(1 << 0) // Upsert
	OpUpdateMultiUpdate = OpUpdateFlagBit(1 << 1) // MultiUpdate
)

// String implements fmt.Stringer.
func (b OpUpdateFlagBit) String() string {
	switch b {
	case OpUpdateUpsert:
		return "Upsert"
	case OpUpdateMultiUpdate:
		return "MultiUpdate"
	default:
		return unknownBit("OpUpdateFlagBit", flagBit(b))
	}
}

// OpUpdateFlags are OP_UPDATE flags.
type OpUpdateFlags flags

func opUpdateFlagBitStringer(bit flagBit) string {
	return OpUpdateFlagBit(bit).String()
}

// String implements fmt.Stringer.
func (f OpUpdateFlags) String() string {
	return flags(f).string(opUpdateFlagBitStringer)
}

// FlagSet returns true if the given bit is set.
func (f OpUpdateFlags) FlagSet(bit OpUpdateFlagBit) bool {
	return f&OpUpdateFlags(bit) != 0
}

// check interfaces
var (
	_ fmt.Stringer = OpUpdateFlagBit(0)
	_ fmt.Stringer = OpUpdateFlags(0)
)
