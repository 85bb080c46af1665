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
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
)

// idPath is the path of the immutable document identity field.
var idPath = types.NewStaticPath("_id")

// DriverOpts represents Driver options.
type DriverOpts struct {
	L       *zap.Logger
	Metrics *Metrics // may be nil
}

// ApplyParams represents Driver.Update parameters.
type ApplyParams struct {
	// Insert is true when the document is being inserted (upsert), not matched.
	// Only then $setOnInsert modifiers are applied.
	Insert bool
}

// Driver parses and applies a single update specification to a single document,
// tracking whether the shard key could be affected.
//
// Driver is not safe for concurrent use; callers serialize evaluations per instance.
type Driver struct {
	l *zap.Logger
	m *Metrics

	u       *Update
	pattern *ShardKeyPattern

	touched []types.Path
	affects bool
}

// NewDriver creates a new Driver.
func NewDriver(opts *DriverOpts) *Driver {
	if opts == nil {
		opts = new(DriverOpts)
	}

	l := opts.L
	if l == nil {
		l = zap.NewNop()
	}

	return &Driver{
		l: l,
		m: opts.Metrics,
	}
}

// Parse parses the update specification, replacing the previously parsed one.
func (d *Driver) Parse(spec *types.Document) error {
	d.u = nil
	d.touched = nil
	d.affects = false

	u, err := Parse(spec)
	if err != nil {
		d.m.parsed("error")
		d.l.Debug("Failed to parse update", zap.Error(err))

		return err
	}

	d.u = u

	kind := "modifiers"
	if u.IsDocReplacement() {
		kind = "replacement"
	}

	d.m.parsed(kind)
	d.l.Debug("Parsed update", zap.String("kind", kind), zap.Int("mods", u.NumMods()))

	return nil
}

// NumMods returns the number of parsed modifiers; 0 for a replacement or before Parse.
func (d *Driver) NumMods() int {
	if d.u == nil {
		return 0
	}

	return d.u.NumMods()
}

// IsDocReplacement returns true if the parsed update is a replacement document.
func (d *Driver) IsDocReplacement() bool {
	return d.u != nil && d.u.IsDocReplacement()
}

// RefreshShardKeyPattern sets the shard key pattern used by the following evaluations.
//
// Nil means the collection is not sharded.
func (d *Driver) RefreshShardKeyPattern(p *ShardKeyPattern) {
	d.pattern = p
}

// ShardKeyPattern returns the current shard key pattern.
func (d *Driver) ShardKeyPattern() *ShardKeyPattern {
	return d.pattern
}

// Update applies the parsed update to doc.
//
// On error doc is left unmodified: modifiers are applied to a deep copy
// that replaces doc content only after all of them succeed.
// Errors are *ApplyError; the caller should not persist anything in that case.
func (d *Driver) Update(doc *types.Document, params *ApplyParams) error {
	if d.u == nil {
		return lazyerrors.New("update.Driver.Update: nothing parsed")
	}

	if params == nil {
		params = new(ApplyParams)
	}

	d.touched = nil
	d.affects = false

	var res *types.Document
	var err error

	if d.u.IsDocReplacement() {
		res, err = d.replace(doc)
	} else {
		res, err = d.apply(doc, params)
	}

	if err != nil {
		d.touched = nil
		d.affects = false

		d.m.applied(handlererrors.CodeName(err))
		d.l.Debug("Failed to apply update", zap.Error(err))

		return err
	}

	*doc = *res

	d.m.applied("ok")

	if ce := d.l.Check(zap.DebugLevel, "Applied update"); ce != nil {
		paths := make([]string, len(d.touched))
		for i, p := range d.touched {
			paths[i] = p.String()
		}

		ce.Write(zap.Strings("touched", paths), zap.Bool("affects_shard_key", d.affects))
	}

	return nil
}

// apply applies modifiers to a copy of doc.
func (d *Driver) apply(doc *types.Document, params *ApplyParams) (*types.Document, error) {
	res := doc.DeepCopy()

	for _, mod := range d.u.mods {
		switch mod.Op {
		case OpSetOnInsert:
			if !params.Insert {
				continue
			}

			fallthrough

		case OpSet:
			if v, err := res.GetByPath(mod.Path); err == nil && types.Identical(v, mod.Value) {
				continue
			}

			if err := res.SetByPath(mod.Path, mod.Value); err != nil {
				return nil, newApplyError(handlererrors.ErrUnsuitableValueType, mod.Path, err)
			}

			d.touch(mod.Path)

		case OpUnset:
			if !res.HasByPath(mod.Path) {
				continue
			}

			res.RemoveByPath(mod.Path)
			d.touch(mod.Path)

		case OpPush, OpPushAll:
			if err := res.PushByPath(mod.Path, mod.Push.Each, mod.Push.Slice); err != nil {
				code := handlererrors.ErrUnsuitableValueType

				var pe *types.PathError
				if errors.As(err, &pe) && pe.Code() == types.ErrPathNotArray {
					code = handlererrors.ErrBadValue
				}

				return nil, newApplyError(code, mod.Path, err)
			}

			d.touch(mod.Path)

		default:
			panic(fmt.Sprintf("unexpected operator %s", mod.Op))
		}
	}

	if !params.Insert {
		oldID, oldErr := doc.Get("_id")
		newID, newErr := res.Get("_id")

		if (oldErr == nil) != (newErr == nil) || (oldErr == nil && !types.Identical(oldID, newID)) {
			return nil, newApplyError(
				handlererrors.ErrImmutableField,
				idPath,
				errors.New("Performing an update on the path '_id' would modify the immutable field '_id'"),
			)
		}
	}

	return res, nil
}

// replace returns the replacement document with the original _id.
func (d *Driver) replace(doc *types.Document) (*types.Document, error) {
	repl := d.u.replacement

	oldID, oldErr := doc.Get("_id")
	newID, newErr := repl.Get("_id")

	if oldErr == nil && newErr == nil && !types.Identical(oldID, newID) {
		return nil, newApplyError(
			handlererrors.ErrImmutableField,
			idPath,
			fmt.Errorf(
				"The _id field cannot be changed from {_id: %s} to {_id: %s}.",
				types.FormatAnyValue(oldID), types.FormatAnyValue(newID),
			),
		)
	}

	res := types.MakeDocument(repl.Len() + 1)

	switch {
	case oldErr == nil:
		if err := res.Set("_id", oldID); err != nil {
			return nil, lazyerrors.Error(err)
		}
	case newErr == nil:
		if err := res.Set("_id", newID); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	values := repl.Values()

	for i, key := range repl.Keys() {
		if key == "_id" {
			continue
		}

		if err := res.Set(key, values[i]); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	res = res.DeepCopy()

	for _, key := range doc.Keys() {
		d.touch(types.NewStaticPath(key))
	}

	for _, key := range res.Keys() {
		d.touch(types.NewStaticPath(key))
	}

	d.affects = d.pattern.Len() > 0

	return res, nil
}

// touch records path as structurally modified.
func (d *Driver) touch(path types.Path) {
	for _, p := range d.touched {
		if p.Equal(path) {
			return
		}
	}

	d.touched = append(d.touched, path)

	if d.pattern.Overlaps(path) {
		d.affects = true
	}
}

// Touched returns paths modified by the last Update call.
func (d *Driver) Touched() []types.Path {
	return slices.Clone(d.touched)
}

// ModsAffectShardKeys returns true if the last Update touched any path that overlaps the shard key.
//
// It over-approximates: array operators always count, replacements always count
// for a non-empty pattern. Use CheckShardKeysUnaltered for the authoritative answer.
func (d *Driver) ModsAffectShardKeys() bool {
	return d.affects
}

// CheckShardKeysUnaltered returns *ShardKeyError if any shard key path has
// different values in pre-image and post-image.
//
// It does not depend on ModsAffectShardKeys.
func (d *Driver) CheckShardKeysUnaltered(pre, post *types.Document) error {
	err := d.pattern.CheckUnaltered(pre, post)

	result := "ok"
	if err != nil {
		result = handlererrors.CodeName(err)

		d.l.Warn(
			"Update alters shard key",
			zap.Error(err),
			zap.Bool("affects_shard_key", d.affects),
		)
	}

	d.m.shardKeyChecked(d.affects, result)

	return err
}
