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

	"go.uber.org/zap"

	"github.com/FerretDB/docupdate/internal/batch"
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
)

// Batch executes the write batch against coll.
//
// Per-item errors are collected as write errors tagged with the item index.
// Ordered batches stop at the first error; unordered batches continue.
func (h *Handler) Batch(ctx context.Context, req *batch.Request, coll Collection) *batch.Response {
	resp := &batch.Response{Ok: true}
	we := new(handlererrors.WriteErrors)

	switch req.Kind {
	case batch.KindUpdate:
		for i, item := range req.Updates {
			res, err := h.Update(ctx, coll, &UpdateParams{
				DB:         req.DB,
				Collection: req.Collection,
				Query:      item.Query,
				Update:     item.Update,
				Upsert:     item.Upsert,
				Multi:      item.Multi,
			})
			if err != nil {
				we.Append(err, int32(i))

				if req.Ordered {
					break
				}

				continue
			}

			resp.N += res.Matched
			resp.NModified += res.Modified

			if res.UpsertedID != nil {
				resp.N++
				resp.Upserted = append(resp.Upserted, batch.Upserted{Index: int32(i), ID: res.UpsertedID})
			}
		}

	case batch.KindInsert:
		for i, doc := range req.Inserts {
			if err := coll.Insert(ctx, withID(doc.DeepCopy())); err != nil {
				we.Append(lazyerrors.Error(err), int32(i))

				if req.Ordered {
					break
				}

				continue
			}

			resp.N++
		}

	default:
		resp.Ok = false
		resp.ErrCode = handlererrors.ErrNotImplemented
		resp.ErrMessage = fmt.Sprintf("%s batches are not supported", req.Kind)
	}

	if we.Len() > 0 {
		resp.WriteErrors = we
	}

	h.L.Debug(
		"Batch executed",
		zap.Stringer("kind", req.Kind),
		zap.String("ns", req.Namespace()),
		zap.Int("items", req.Len()),
		zap.Int32("n", resp.N),
		zap.Int("write_errors", we.Len()),
	)

	return resp
}
