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

// Package bson provides convertors between MongoDB Go driver's BSON and types packages.
package bson

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/FerretDB/docupdate/internal/types"
	"github.com/FerretDB/docupdate/internal/util/lazyerrors"
)

// convertFromTypes converts types package value to driver's primitive value.
//
// Invalid types cause panics.
func convertFromTypes(v any) any {
	switch v := v.(type) {
	case *types.Document:
		return FromDocument(v)
	case *types.Array:
		return FromArray(v)
	case float64:
		return v
	case string:
		return v
	case types.Binary:
		return primitive.Binary{
			Subtype: byte(v.Subtype),
			Data:    v.B,
		}
	case types.ObjectID:
		return primitive.ObjectID(v)
	case bool:
		return v
	case time.Time:
		return primitive.NewDateTimeFromTime(v)
	case types.NullType:
		return primitive.Null{}
	case types.Regex:
		return primitive.Regex{
			Pattern: v.Pattern,
			Options: v.Options,
		}
	case int32:
		return v
	case types.Timestamp:
		return primitive.Timestamp{
			T: uint32(uint64(v) >> 32),
			I: uint32(v),
		}
	case int64:
		return v

	default:
		panic(fmt.Sprintf("invalid type %T", v))
	}
}

// FromArray converts [*types.Array] to [primitive.A].
func FromArray(arr *types.Array) primitive.A {
	res := make(primitive.A, arr.Len())

	for i := range res {
		v, _ := arr.Get(i)
		res[i] = convertFromTypes(v)
	}

	return res
}

// FromDocument converts [*types.Document] to [primitive.D].
func FromDocument(doc *types.Document) primitive.D {
	values := doc.Values()
	res := make(primitive.D, len(values))

	for i, k := range doc.Keys() {
		res[i] = primitive.E{Key: k, Value: convertFromTypes(values[i])}
	}

	return res
}

// convertToTypes converts driver's primitive value to types package value.
//
// Unsupported BSON types (Decimal128, JavaScript, MinKey, etc.) are returned as errors.
func convertToTypes(v any) (any, error) {
	switch v := v.(type) {
	case primitive.D:
		doc, err := ToDocument(v)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		return doc, nil

	case primitive.A:
		arr, err := ToArray(v)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		return arr, nil

	case float64:
		return v, nil
	case string:
		return v, nil
	case primitive.Binary:
		b := v.Data
		if b == nil {
			b = []byte{}
		}

		return types.Binary{
			B:       b,
			Subtype: types.BinarySubtype(v.Subtype),
		}, nil
	case primitive.ObjectID:
		return types.ObjectID(v), nil
	case bool:
		return v, nil
	case primitive.DateTime:
		return v.Time().UTC(), nil
	case nil, primitive.Null:
		return types.Null, nil
	case primitive.Regex:
		return types.Regex{
			Pattern: v.Pattern,
			Options: v.Options,
		}, nil
	case int32:
		return v, nil
	case primitive.Timestamp:
		return types.NewTimestamp(v.T, v.I), nil
	case int64:
		return v, nil

	default:
		return nil, fmt.Errorf("bson.convertToTypes: unsupported BSON type %T", v)
	}
}

// ToArray converts [primitive.A] to [*types.Array].
func ToArray(a primitive.A) (*types.Array, error) {
	values := make([]any, len(a))

	for i, v := range a {
		var err error
		if values[i], err = convertToTypes(v); err != nil {
			return nil, lazyerrors.Error(err)
		}
	}

	res, err := types.NewArray(values...)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// ToDocument converts [primitive.D] to [*types.Document].
//
// Duplicate field names are rejected.
func ToDocument(d primitive.D) (*types.Document, error) {
	pairs := make([]any, 0, len(d)*2)

	for _, e := range d {
		v, err := convertToTypes(e.Value)
		if err != nil {
			return nil, lazyerrors.Error(err)
		}

		pairs = append(pairs, e.Key, v)
	}

	res, err := types.NewDocument(pairs...)
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return res, nil
}

// FromExtJSON parses a relaxed or canonical Extended JSON object.
func FromExtJSON(s string) (*types.Document, error) {
	var d primitive.D
	if err := bson.UnmarshalExtJSON([]byte(s), false, &d); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return ToDocument(d)
}

// ToExtJSON returns canonical Extended JSON representation of the document.
func ToExtJSON(doc *types.Document, canonical bool) (string, error) {
	b, err := bson.MarshalExtJSON(FromDocument(doc), canonical, false)
	if err != nil {
		return "", lazyerrors.Error(err)
	}

	return string(b), nil
}

// FromRaw decodes BSON document bytes.
func FromRaw(raw bson.Raw) (*types.Document, error) {
	if err := raw.Validate(); err != nil {
		return nil, lazyerrors.Error(err)
	}

	var d primitive.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, lazyerrors.Error(err)
	}

	return ToDocument(d)
}

// ToRaw encodes the document to BSON bytes.
func ToRaw(doc *types.Document) (bson.Raw, error) {
	b, err := bson.Marshal(FromDocument(doc))
	if err != nil {
		return nil, lazyerrors.Error(err)
	}

	return b, nil
}
