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
package handler

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/update"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// UpdateParams represents Update parameters.
type UpdateParams struct {
	DB         string
	Collection string

	Query  *types.Document
	Update *types.Document
	Upsert bool
	Multi  bool
}

// UpdateResult represents Update result.
type UpdateResult struct {
	Matched    int32
	Modified   int32
	UpsertedID any // nil if nothing was upserted

	// AffectsShardKey is the advisory answer of the update tracker.
	AffectsShardKey bool
}

// Update executes a single update item against coll.
//
// For every matched document the update is applied to a copy,
// and the copy is written back only if the shard key and _id are unaltered.
// Errors are *update.ParseError, *update.ApplyError, *update.ShardKeyError,
// *handlererrors.CommandError, or internal errors of coll.
func (h *Handler) Update(ctx context.Context, coll Collection, params *UpdateParams) (*UpdateResult, error) {
	ctx, span := h.tracer.Start(ctx, "update", oteltrace.WithAttributes(
		attribute.String("db.name", params.DB),
		attribute.String("db.collection.name", params.Collection),
		attribute.Bool("docupdate.upsert", params.Upsert),
		attribute.Bool("docupdate.multi", params.Multi),
	))

	res, err := h.update(ctx, coll, params, span)

	verdict := "ok"

	if err != nil {
		verdict = handlererrors.CodeName(err)
		span.SetStatus(otelcodes.Error, err.Error())
	} else {
		span.SetStatus(otelcodes.Ok, "")
		span.SetAttributes(
			attribute.Int("docupdate.matched", int(res.Matched)),
			attribute.Int("docupdate.modified", int(res.Modified)),
			attribute.Bool("docupdate.upserted", res.UpsertedID != nil),
		)
	}

	span.SetAttributes(attribute.String("docupdate.verdict", verdict))
	span.End()

	h.items.WithLabelValues(verdict).Inc()

	if ce := h.L.Check(zap.DebugLevel, "Update executed"); ce != nil {
		fields := []zap.Field{
			zap.String("ns", params.DB+"."+params.Collection),
			zap.String("verdict", verdict),
		}

		if res != nil {
			fields = append(
				fields,
				zap.Int32("matched", res.Matched),
				zap.Int32("modified", res.Modified),
				zap.Bool("affects_shard_key", res.AffectsShardKey),
			)
		}

		ce.Write(fields...)
	}

	return res, err
}

// update implements Update.
func (h *Handler) update(ctx context.Context, coll Collection, params *UpdateParams, span oteltrace.Span) (*UpdateResult, error) {
	d := h.newDriver()

	if err := d.Parse(params.Update); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("docupdate.mods", d.NumMods()),
		attribute.Bool("docupdate.replacement", d.IsDocReplacement()),
	)

	if params.Multi && d.IsDocReplacement() {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrFailedToParse,
			"multi update is not supported for replacement-style update",
			"multi",
		)
	}

	var docs []*types.Document

	if params.Multi {
		var err error
		if docs, err = coll.FindAll(ctx, params.Query); err != nil {
			return nil, lazyerrors.Error(err)
		}
	} else {
		doc, err := coll.FindOne(ctx, params.Query)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		if doc != nil {
			docs = append(docs, doc)
		}
	}

	res := new(UpdateResult)

	if len(docs) == 0 {
		if !params.Upsert {
			return res, nil
		}

		doc, err := h.upsert(ctx, d, coll, params.Query)
		if err != nil {
			return nil, err
		}

		res.UpsertedID = must.NotFail(doc.Get("_id"))
		res.AffectsShardKey = d.ModsAffectShardKeys()

		span.SetAttributes(attribute.Bool("docupdate.affects_shard_key", res.AffectsShardKey))

		return res, nil
	}

	for _, doc := range docs {
		res.Matched++

		modified, err := h.updateOne(ctx, d, coll, doc)

		if d.ModsAffectShardKeys() {
			res.AffectsShardKey = true
		}

		span.SetAttributes(attribute.Bool("docupdate.affects_shard_key", res.AffectsShardKey))

		if err != nil {
			return nil, err
		}

		if modified {
			res.Modified++
		}
	}

	return res, nil
}

// updateOne applies the parsed update to the matched document and writes the result.
// It returns true if the document was modified.
func (h *Handler) updateOne(ctx context.Context, d *update.Driver, coll Collection, doc *types.Document) (bool, error) {
	post := doc.DeepCopy()

	if err := d.Update(post, nil); err != nil {
		return false, err
	}

	if d.ShardKeyPattern().Len() > 0 {
		if err := d.CheckShardKeysUnaltered(doc, post); err != nil {
			return false, err
		}
	}

	if types.Identical(doc, post) {
		return false, nil
	}

	if err := coll.Replace(ctx, post); err != nil {
		return false, lazyerrors.Error(err)
	}

	return true, nil
}

// upsert builds a new document from filter and the parsed update and inserts it.
func (h *Handler) upsert(ctx context.Context, d *update.Driver, coll Collection, filter *types.Document) (*types.Document, error) {
	doc := types.MakeDocument(0)

	if err := processFilterEqualityCondition(doc, filter); err != nil {
		return nil, err
	}

	if err := d.Update(doc, &update.ApplyParams{Insert: true}); err != nil {
		return nil, err
	}

	doc = withID(doc)

	if err := coll.Insert(ctx, doc); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return doc, nil
}

// processFilterEqualityCondition copies the fields with equality condition from filter to doc.
//
// Both {a: v} and {a: {$eq: v}} are equality conditions.
// Top-level operators and other conditions are skipped.
func processFilterEqualityCondition(doc, filter *types.Document) error {
	if filter == nil {
		return nil
	}

	values := filter.Values()

	for i, key := range filter.Keys() {
		if strings.HasPrefix(key, "$") {
			continue
		}

		val := values[i]

		if valDoc, ok := val.(*types.Document); ok && strings.HasPrefix(valDoc.Command(), "$") {
			eq, err := valDoc.Get("$eq")
			if err != nil || valDoc.Len() != 1 {
				continue
			}

			val = eq
		}

		path, err := types.NewPathFromString(key)
		if err != nil {
			return handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrEmptyName,
				fmt.Sprintf("Invalid path '%s' in query", key),
				key,
			)
		}

		if err = doc.SetByPath(path, val); err != nil {
			return handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrBadValue,
				fmt.Sprintf("cannot infer query fields to set, %s", err),
				key,
			)
		}
	}

	return nil
}

// withID returns doc with _id as the first field, generating a new ObjectID if it is missing.
func withID(doc *types.Document) *types.Document {
	if doc.Has("_id") {
		return doc
	}

	res := types.MakeDocument(doc.Len() + 1)
	must.NoError(res.Set("_id", types.NewObjectID()))

	values := doc.Values()
	for i, key := range doc.Keys() {
		must.NoError(res.Set(key, values[i]))
	}

	return res
}
