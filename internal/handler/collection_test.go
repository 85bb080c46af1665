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
	"sync/atomic"

	"github.com/FerretDB/docupdate/internal/memstore"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// memCollection is an in-memory Collection for tests that counts replaces.
type memCollection struct {
	*memstore.Collection
	replaces atomic.Int32
}

// newMemCollection returns a collection with copies of the given documents.
func newMemCollection(docs ...*types.Document) *memCollection {
	return &memCollection{
		Collection: must.NotFail(memstore.New("test.values", docs...)),
	}
}

// Replace implements Collection interface.
func (c *memCollection) Replace(ctx context.Context, doc *types.Document) error {
	c.replaces.Add(1)
	return c.Collection.Replace(ctx, doc)
}

// all returns copies of stored documents.
func (c *memCollection) all() []*types.Document {
	return c.Collection.All()
}

// check interfaces
var (
	_ Collection = (*memCollection)(nil)
	_ Collection = (*memstore.Collection)(nil)
)
