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
package batch

import (
	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/must"
)

// Upserted describes a document inserted by an upsert.
type Upserted struct {
	Index int32
	ID    any
}

// Response is a result of a write batch execution.
type Response struct {
	Ok bool

	// N is the number of matched (for updates), inserted, or deleted documents,
	// including upserted ones.
	N         int32
	NModified int32
	Upserted  []Upserted

	// ErrCode and ErrMessage describe the command-level error when Ok is false.
	ErrCode    handlererrors.ErrorCode
	ErrMessage string

	// WriteErrors contains per-item errors; may be nil.
	WriteErrors *handlererrors.WriteErrors
}

// Document returns the command reply for the response of the given batch kind.
func (r *Response) Document(kind Kind) *types.Document {
	if !r.Ok {
		return must.NotFail(types.NewDocument(
			"ok", float64(0),
			"errmsg", r.ErrMessage,
			"code", int32(r.ErrCode),
			"codeName", r.ErrCode.String(),
		))
	}

	doc := must.NotFail(types.NewDocument("n", r.N))

	if kind == KindUpdate {
		must.NoError(doc.Set("nModified", r.NModified))

		if len(r.Upserted) > 0 {
			arr := types.MakeArray(len(r.Upserted))
			for _, u := range r.Upserted {
				must.NoError(arr.Append(must.NotFail(types.NewDocument("index", u.Index, "_id", u.ID))))
			}

			must.NoError(doc.Set("upserted", arr))
		}
	}

	if r.WriteErrors != nil && r.WriteErrors.Len() > 0 {
		we := r.WriteErrors.Document()
		must.NoError(doc.Set("writeErrors", must.NotFail(we.Get("writeErrors"))))
	}

	must.NoError(doc.Set("ok", float64(1)))

	return doc
}

// Existing describes whether the last update modified an existing document.
type Existing int

const (
	// NotUpdate means that the last operation was not an update.
	NotUpdate Existing = iota

	// ExistingTrue means that the last update matched an existing document.
	ExistingTrue

	// ExistingFalse means that the last update matched nothing.
	ExistingFalse
)

// LastError is the per-connection state reported by the getLastError command.
type LastError struct {
	Code            handlererrors.ErrorCode
	Msg             string
	N               int32
	UpdatedExisting Existing
	UpsertedID      any
}

// Reset clears the state.
func (le *LastError) Reset() {
	*le = LastError{}
}

// RaiseError records an error.
func (le *LastError) RaiseError(code handlererrors.ErrorCode, msg string) {
	le.Reset()
	le.Code = code
	le.Msg = msg
}

// RecordUpdate records update statistics.
func (le *LastError) RecordUpdate(updatedExisting bool, n int32, upsertedID any) {
	le.Reset()
	le.N = n

	le.UpdatedExisting = ExistingFalse
	if updatedExisting {
		le.UpdatedExisting = ExistingTrue
	}

	le.UpsertedID = upsertedID
}

// RecordDelete records delete statistics.
func (le *LastError) RecordDelete(n int32) {
	le.Reset()
	le.N = n
}

// Document returns the getLastError reply.
func (le *LastError) Document() *types.Document {
	doc := must.NotFail(types.NewDocument("n", le.N))

	if le.UpdatedExisting != NotUpdate {
		must.NoError(doc.Set("updatedExisting", le.UpdatedExisting == ExistingTrue))
	}

	if le.UpsertedID != nil {
		must.NoError(doc.Set("upserted", le.UpsertedID))
	}

	if le.Msg == "" {
		must.NoError(doc.Set("err", types.Null))
	} else {
		must.NoError(doc.Set("err", le.Msg))
		must.NoError(doc.Set("code", int32(le.Code)))
		must.NoError(doc.Set("codeName", le.Code.String()))
	}

	must.NoError(doc.Set("ok", float64(1)))

	return doc
}

// ToLastError records the outcome of the executed batch request in le.
//
// Command-level and write errors are raised; otherwise update and delete statistics are recorded.
// Inserts only reset the state.
func ToLastError(req *Request, resp *Response, le *LastError) {
	le.Reset()

	if !resp.Ok {
		le.RaiseError(resp.ErrCode, resp.ErrMessage)
		return
	}

	if resp.WriteErrors != nil {
		if code, msg, ok := resp.WriteErrors.First(); ok {
			le.RaiseError(code, msg)
			return
		}
	}

	switch req.Kind {
	case KindUpdate:
		var upsertedID any
		if len(resp.Upserted) > 0 {
			upsertedID = resp.Upserted[0].ID
		}

		le.RecordUpdate(resp.N != 0 && upsertedID == nil, resp.N, upsertedID)

	case KindDelete:
		le.RecordDelete(resp.N)

	case KindInsert:
		// nothing
	}
}
