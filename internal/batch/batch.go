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
// Package batch converts legacy write messages and write commands into
// normalized batch requests, and batch responses into last error state.
package batch

import (
	"fmt"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/handler/handlerparams"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
	"github.com/FerretDB/docupdate/internal/wire"
)

// Kind represents a batch kind.
type Kind int

// Batch kinds.
const (
	KindInsert Kind = iota + 1
	KindUpdate
	KindDelete
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// UpdateItem is a single update of a batch.
type UpdateItem struct {
	Query  *types.Document
	Update *types.Document
	Upsert bool
	Multi  bool
}

// DeleteItem is a single delete of a batch.
type DeleteItem struct {
	Query *types.Document
	Limit int32 // 0 means all matching documents
}

// Request is a normalized write batch.
//
// Exactly one of Inserts, Updates, Deletes is used, depending on Kind.
type Request struct {
	Kind         Kind
	DB           string
	Collection   string
	Ordered      bool
	WriteConcern *types.Document

	Inserts []*types.Document
	Updates []UpdateItem
	Deletes []DeleteItem
}

// Namespace returns the full collection name.
func (r *Request) Namespace() string {
	return r.DB + "." + r.Collection
}

// Len returns the number of items in the batch.
func (r *Request) Len() int {
	switch r.Kind {
	case KindInsert:
		return len(r.Inserts)
	case KindUpdate:
		return len(r.Updates)
	case KindDelete:
		return len(r.Deletes)
	default:
		return 0
	}
}

// newRequest returns a request for the given namespace with default settings.
func newRequest(kind Kind, ns string) (*Request, error) {
	db, coll, err := handlerparams.SplitNamespace(ns, kind.String())
	if err != nil {
		return nil, err
	}

	return &Request{
		Kind:         kind,
		DB:           db,
		Collection:   coll,
		Ordered:      true,
		WriteConcern: types.MakeDocument(0),
	}, nil
}

// FromMessage converts a legacy write message into a batch request.
//
// Header is used only for the operation code.
func FromMessage(header *wire.MsgHeader, body wire.MsgBody) (*Request, error) {
	switch body := body.(type) {
	case *wire.OpInsert:
		req, err := newRequest(KindInsert, body.FullCollectionName)
		if err != nil {
			return nil, err
		}

		req.Ordered = !body.Flags.FlagSet(wire.OpInsertContinueOnError)

		req.Inserts = make([]*types.Document, len(body.Documents))
		for i, doc := range body.Documents {
			req.Inserts[i] = doc.DeepCopy()
		}

		return req, nil

	case *wire.OpUpdate:
		req, err := newRequest(KindUpdate, body.FullCollectionName)
		if err != nil {
			return nil, err
		}

		req.Updates = []UpdateItem{{
			Query:  body.Selector.DeepCopy(),
			Update: body.Update.DeepCopy(),
			Upsert: body.Flags.FlagSet(wire.OpUpdateUpsert),
			Multi:  body.Flags.FlagSet(wire.OpUpdateMultiUpdate),
		}}

		return req, nil

	case *wire.OpDelete:
		req, err := newRequest(KindDelete, body.FullCollectionName)
		if err != nil {
			return nil, err
		}

		var limit int32
		if body.Flags.FlagSet(wire.OpDeleteSingleRemove) {
			limit = 1
		}

		req.Deletes = []DeleteItem{{
			Query: body.Selector.DeepCopy(),
			Limit: limit,
		}}

		return req, nil

	default:
		var opCode wire.OpCode
		if header != nil {
			opCode = header.OpCode
		}

		return nil, lazyerrors.Errorf("batch.FromMessage: unexpected message %T (%s)", body, opCode)
	}
}

// FromCommand converts an insert, update, or delete command document into a batch request.
func FromCommand(doc *types.Document) (*Request, error) {
	command := doc.Command()

	var kind Kind

	switch command {
	case "insert":
		kind = KindInsert
	case "update":
		kind = KindUpdate
	case "delete":
		kind = KindDelete
	default:
		return nil, handlererrors.NewCommandErrorMsg(
			handlererrors.ErrCommandNotFound,
			fmt.Sprintf("no such command: '%s'", command),
		)
	}

	coll, err := handlerparams.GetRequiredParam[string](doc, command, command)
	if err != nil {
		return nil, err
	}

	db, err := handlerparams.GetRequiredParam[string](doc, command, "$db")
	if err != nil {
		return nil, err
	}

	req, err := newRequest(kind, db+"."+coll)
	if err != nil {
		return nil, err
	}

	if req.Ordered, err = handlerparams.GetOptionalParam(doc, command, "ordered", true); err != nil {
		return nil, err
	}

	wc, err := handlerparams.GetOptionalParam(doc, command, "writeConcern", req.WriteConcern)
	if err != nil {
		return nil, err
	}

	req.WriteConcern = wc.DeepCopy()

	switch kind {
	case KindInsert:
		err = req.insertsFromCommand(doc)
	case KindUpdate:
		err = req.updatesFromCommand(doc)
	case KindDelete:
		err = req.deletesFromCommand(doc)
	}

	if err != nil {
		return nil, err
	}

	return req, nil
}

// items returns documents of the given array parameter.
func items(doc *types.Document, command, key string) ([]*types.Document, error) {
	arr, err := handlerparams.GetRequiredParam[*types.Array](doc, command, key)
	if err != nil {
		return nil, err
	}

	if arr.Len() == 0 {
		return nil, handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrInvalidLength,
			"Write batch sizes must be between 1 and 100000. Got 0 operations.",
			key,
		)
	}

	res := make([]*types.Document, arr.Len())

	for i := 0; i < arr.Len(); i++ {
		v, _ := arr.Get(i)

		d, ok := v.(*types.Document)
		if !ok {
			return nil, handlererrors.NewCommandErrorMsgWithArgument(
				handlererrors.ErrTypeMismatch,
				fmt.Sprintf(
					"BSON field '%s.%s.%d' is the wrong type '%s', expected type 'object'",
					command, key, i, types.AliasFromType(v),
				),
				key,
			)
		}

		res[i] = d
	}

	return res, nil
}

func (r *Request) insertsFromCommand(doc *types.Document) error {
	docs, err := items(doc, "insert", "documents")
	if err != nil {
		return err
	}

	r.Inserts = make([]*types.Document, len(docs))
	for i, d := range docs {
		r.Inserts[i] = d.DeepCopy()
	}

	return nil
}

func (r *Request) updatesFromCommand(doc *types.Document) error {
	docs, err := items(doc, "update", "updates")
	if err != nil {
		return err
	}

	r.Updates = make([]UpdateItem, len(docs))

	for i, d := range docs {
		item := &r.Updates[i]

		q, err := handlerparams.GetRequiredParam[*types.Document](d, "update.updates", "q")
		if err != nil {
			return err
		}

		u, err := handlerparams.GetRequiredParam[*types.Document](d, "update.updates", "u")
		if err != nil {
			return err
		}

		item.Query = q.DeepCopy()
		item.Update = u.DeepCopy()

		upsert, _ := d.Get("upsert")
		if item.Upsert, err = handlerparams.GetBoolOptionalParam("upsert", upsert); err != nil {
			return err
		}

		multi, _ := d.Get("multi")
		if item.Multi, err = handlerparams.GetBoolOptionalParam("multi", multi); err != nil {
			return err
		}
	}

	return nil
}

func (r *Request) deletesFromCommand(doc *types.Document) error {
	docs, err := items(doc, "delete", "deletes")
	if err != nil {
		return err
	}

	r.Deletes = make([]DeleteItem, len(docs))

	for i, d := range docs {
		q, err := handlerparams.GetRequiredParam[*types.Document](d, "delete.deletes", "q")
		if err != nil {
			return err
		}

		l, err := d.Get("limit")
		if err != nil {
			msg := "BSON field 'delete.deletes.limit' is missing but a required field"
			return handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrBadValue, msg, "limit")
		}

		limit, err := handlerparams.GetWholeNumberParam("limit", l)
		if err != nil {
			return err
		}

		if limit != 0 && limit != 1 {
			msg := fmt.Sprintf("The limit field in delete objects must be 0 or 1. Got %d", limit)
			return handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrFailedToParse, msg, "limit")
		}

		r.Deletes[i] = DeleteItem{
			Query: q.DeepCopy(),
			Limit: int32(limit),
		}
	}

	return nil
}
