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

package update

import (
	"fmt"
	"slices"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
)

// ShardKeyPattern represents an ordered set of shard key field paths.
//
// It is immutable; a nil *ShardKeyPattern is a valid empty pattern (unsharded collection).
type ShardKeyPattern struct {
	paths []types.Path
}

// NewShardKeyPattern creates a pattern from a key pattern document like {"s.a": 1, "s.c": 1}.
//
// Values must be 1, -1, or "hashed". Paths must not overlap.
func NewShardKeyPattern(doc *types.Document) (*ShardKeyPattern, error) {
	if doc.Len() == 0 {
		return nil, handlererrors.NewCommandErrorMsg(handlererrors.ErrBadValue, "Shard key pattern is empty")
	}

	res := &ShardKeyPattern{
		paths: make([]types.Path, 0, doc.Len()),
	}

	values := doc.Values()

	for i, key := range doc.Keys() {
		if !validKeyPatternValue(values[i]) {
			return nil, handlererrors.NewCommandErrorMsg(
				handlererrors.ErrBadValue,
				fmt.Sprintf(
					`Shard key pattern values must be 1, -1, or "hashed", got %s for '%s'`,
					types.FormatAnyValue(values[i]), key,
				),
			)
		}

		path, err := types.NewPathFromString(key)
		if err != nil {
			return nil, handlererrors.NewCommandErrorMsg(
				handlererrors.ErrBadValue,
				fmt.Sprintf("Shard key pattern field '%s' is not a valid path", key),
			)
		}

		for _, p := range res.paths {
			if p.Overlaps(path) {
				return nil, handlererrors.NewCommandErrorMsg(
					handlererrors.ErrBadValue,
					fmt.Sprintf("Shard key pattern fields '%s' and '%s' overlap", p, path),
				)
			}
		}

		res.paths = append(res.paths, path)
	}

	return res, nil
}

// validKeyPatternValue returns true for 1, -1, and "hashed".
func validKeyPatternValue(v any) bool {
	switch v := v.(type) {
	case int32:
		return v == 1 || v == -1
	case int64:
		return v == 1 || v == -1
	case float64:
		return v == 1 || v == -1
	case string:
		return v == "hashed"
	default:
		return false
	}
}

// Len returns the number of paths in the pattern.
func (p *ShardKeyPattern) Len() int {
	if p == nil {
		return 0
	}

	return len(p.paths)
}

// Paths returns a copy of pattern paths.
func (p *ShardKeyPattern) Paths() []types.Path {
	if p == nil {
		return nil
	}

	return slices.Clone(p.paths)
}

// Overlaps returns true if path is equal to, an ancestor of, or a descendant of any pattern path.
func (p *ShardKeyPattern) Overlaps(path types.Path) bool {
	if p == nil {
		return false
	}

	for _, sp := range p.paths {
		if sp.Overlaps(path) {
			return true
		}
	}

	return false
}

// CheckUnaltered returns *ShardKeyError for the first pattern path
// which value differs between pre-image and post-image.
//
// An absent field is distinct from any value, including null.
func (p *ShardKeyPattern) CheckUnaltered(pre, post *types.Document) error {
	if p == nil {
		return nil
	}

	for _, path := range p.paths {
		oldV, oldErr := pre.GetByPath(path)
		newV, newErr := post.GetByPath(path)

		switch {
		case oldErr != nil && newErr != nil:
			continue
		case oldErr == nil && newErr == nil && types.Identical(oldV, newV):
			continue
		}

		return &ShardKeyError{
			Path: path,
			Old:  oldV,
			New:  newV,
		}
	}

	return nil
}
