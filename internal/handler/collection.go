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

	"github.com/FerretDB/docupdate/internal/types"
)

// Collection is the storage the handler reads and writes documents through.
//
// Filter matching is implemented by the collection.
type Collection interface {
	// FindOne returns the first document matching filter, or nil if there is none.
	FindOne(ctx context.Context, filter *types.Document) (*types.Document, error)

	// FindAll returns all documents matching filter.
	FindAll(ctx context.Context, filter *types.Document) ([]*types.Document, error)

	// Insert inserts a new document.
	Insert(ctx context.Context, doc *types.Document) error

	// Replace replaces the stored document with the same _id.
	Replace(ctx context.Context, doc *types.Document) error
}
