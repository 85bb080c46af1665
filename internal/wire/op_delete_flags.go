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

// OpDeleteFlagBit is a bit of OP_DELETE flags.
type OpDeleteFlagBit flagBit

const (
	OpDeleteSingleRemove = OpDeleteFlagBit(1 << 0) // SingleRemove
)

// String implements fmt.Stringer.
func (b OpDeleteFlagBit) String() string {
	if b == OpDeleteSingleRemove {
		return "SingleRemove"
	}

	return unknownBit("OpDeleteFlagBit", flagBit(b))
}

// OpDeleteFlags are OP_DELETE flags.
type OpDeleteFlags flags

func opDeleteFlagBitStringer(bit flagBit) string {
	return OpDeleteFlagBit(bit).String()
}

// String implements fmt.Stringer.
func (f OpDeleteFlags) String() string {
	return flags(f).string(opDeleteFlagBitStringer)
}

// FlagSet returns true if the given bit is set.
func (f OpDeleteFlags) FlagSet(bit OpDeleteFlagBit) bool {
	return f&OpDeleteFlags(bit) != 0
}

// check interfaces
var (
	_ fmt.Stringer = OpDeleteFlagBit(0)
	_ fmt.Stringer = OpDeleteFlags(0)
)
