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

// OpInsertFlagBit is a bit of OP_INSERT flags.
type OpInsertFlagBit flagBit

const (
	OpInsertContinueOnError = OpInsertFlagBit(1 << 0) // ContinueOnError
)

// String implements fmt.Stringer.
func (b OpInsertFlagBit) String() string {
	if b == OpInsertContinueOnError {
		return "ContinueOnError"
	}

	return unknownBit("OpInsertFlagBit", flagBit(b))
}

// OpInsertFlags are OP_INSERT flags.
type OpInsertFlags flags

func opInsertFlagBitStringer(bit flagBit) string {
	return OpInsertFlagBit(bit).String()
}

// String implements fmt.Stringer.
func (f OpInsertFlags) String() string {
	return flags(f).string(opInsertFlagBitStringer)
}

// FlagSet returns true if the given bit is set.
func (f OpInsertFlags) FlagSet(bit OpInsertFlagBit) bool {
	return f&OpInsertFlags(bit) != 0
}

// check interfaces
var (
	_ fmt.Stringer = OpInsertFlagBit(0)
	_ fmt.Stringer = OpInsertFlags(0)
)
