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
// Package memstore provides an in-memory collection of documents.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/exp/maps"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// entry is a stored document with its insertion sequence number.
type entry struct {
	seq int
	doc *types.Document
}

// Collection is an in-memory collection of documents keyed by _id.
//
// It supports only equality filters: {a: v} and {a: {$eq: v}}.
// It is safe for concurrent use.
type Collection struct {
	name string

	rw   sync.RWMutex
	seq  int
	docs map[string]entry
}

// New returns a new collection with copies of the given documents.
func New(name string, docs ...*types.Document) (*Collection, error) {
	c := &Collection{
		name: name,
		docs: make(map[string]entry, len(docs)),
	}

	for _, doc := range docs {
		if err := c.Insert(context.Background(), doc); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// key returns the map key for the document's _id.
func key(doc *types.Document) (string, error) {
	id, err := doc.Get("_id")
	if err != nil {
		return "", lazyerrors.New("document has no _id")
	}

	return fmt.Sprintf("%T:%s", id, types.FormatAnyValue(id)), nil
}

// sorted returns stored entries in insertion order.
func (c *Collection) sorted() []entry {
	entries := maps.Values(c.docs)
	slices.SortFunc(entries, func(a, b entry) int { return a.seq - b.seq })

	return entries
}

// find returns copies of up to limit matching documents; 0 means no limit.
func (c *Collection) find(filter *types.Document, limit int) ([]*types.Document, error) {
	c.rw.RLock()
	defer c.rw.RUnlock()

	var res []*types.Document

	for _, e := range c.sorted() {
		ok, err := matches(e.doc, filter)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		res = append(res, e.doc.DeepCopy())

		if limit > 0 && len(res) == limit {
			break
		}
	}

	return res, nil
}

// FindOne returns the first document matching filter, or nil.
func (c *Collection) FindOne(ctx context.Context, filter *types.Document) (*types.Document, error) {
	docs, err := c.find(filter, 1)
	if err != nil || len(docs) == 0 {
		return nil, err
	}

	return docs[0], nil
}

// FindAll returns all documents matching filter.
func (c *Collection) FindAll(ctx context.Context, filter *types.Document) ([]*types.Document, error) {
	return c.find(filter, 0)
}

// Insert inserts a copy of doc.
// It returns DuplicateKey error if a document with the same _id exists.
func (c *Collection) Insert(ctx context.Context, doc *types.Document) error {
	k, err := key(doc)
	if err != nil {
		return err
	}

	c.rw.Lock()
	defer c.rw.Unlock()

	if _, ok := c.docs[k]; ok {
		id := must.NotFail(doc.Get("_id"))

		return handlererrors.NewWriteErrorMsg(
			handlererrors.ErrDuplicateKey,
			fmt.Sprintf(
				"E11000 duplicate key error collection: %s index: _id_ dup key: { _id: %s }",
				c.name, types.FormatAnyValue(id),
			),
		)
	}

	c.seq++
	c.docs[k] = entry{seq: c.seq, doc: doc.DeepCopy()}

	return nil
}

// Replace replaces the stored document having the same _id with a copy of doc.
func (c *Collection) Replace(ctx context.Context, doc *types.Document) error {
	k, err := key(doc)
	if err != nil {
		return err
	}

	c.rw.Lock()
	defer c.rw.Unlock()

	e, ok := c.docs[k]
	if !ok {
		return lazyerrors.Errorf("document %s not found", k)
	}

	e.doc = doc.DeepCopy()
	c.docs[k] = e

	return nil
}

// All returns copies of all stored documents in insertion order.
func (c *Collection) All() []*types.Document {
	c.rw.RLock()
	defer c.rw.RUnlock()

	entries := c.sorted()

	res := make([]*types.Document, len(entries))
	for i, e := range entries {
		res[i] = e.doc.DeepCopy()
	}

	return res
}

// errUnsupportedOperator is returned for filter operators other than $eq.
var errUnsupportedOperator = errors.New("unsupported filter operator")

// matches returns true if doc matches equality filter.
func matches(doc, filter *types.Document) (bool, error) {
	if filter == nil {
		return true, nil
	}

	values := filter.Values()

	for i, k := range filter.Keys() {
		if strings.HasPrefix(k, "$") {
			if k == "$comment" {
				continue
			}

			return false, unsupported(k)
		}

		expected := values[i]

		if d, ok := expected.(*types.Document); ok && strings.HasPrefix(d.Command(), "$") {
			eq, err := d.Get("$eq")
			if err != nil || d.Len() != 1 {
				return false, unsupported(d.Command())
			}

			expected = eq
		}

		path, err := types.NewPathFromString(k)
		if err != nil {
			return false, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrBadValue,
				fmt.Sprintf("Invalid path '%s' in query", k),
				k,
			)
		}

		actual, err := doc.GetByPath(path)
		if err != nil {
			if !types.Identical(expected, types.Null) {
				return false, nil
			}

			continue
		}

		if !types.Identical(expected, actual) {
			return false, nil
		}
	}

	return true, nil
}

// unsupported returns NotImplemented error for the given operator.
func unsupported(op string) error {
	return handlererrors.NewCommandError(
		handlererrors.ErrNotImplemented,
		fmt.Errorf("%w %s", errUnsupportedOperator, op),
	)
}
