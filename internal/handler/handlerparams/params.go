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
// Package handlerparams provides functions for parsing command parameters.
package handlerparams

import (
	"fmt"
	"math"
	"strings"

	"github.com/FerretDB/docupdate/internal/handler/handlererrors"
	"github.com/FerretDB/docupdate/internal/types"
)

// GetRequiredParam returns doc's value for the given key
// or protocol error for missing key or invalid value type.
func GetRequiredParam[T types.Type](doc *types.Document, command, key string) (T, error) {
	var zero T

	v, err := doc.Get(key)
	if err != nil {
		msg := fmt.Sprintf("BSON field '%s.%s' is missing but a required field", command, key)
		return zero, handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrBadValue, msg, key)
	}

	res, ok := v.(T)
	if !ok {
		return zero, wrongType(command, key, v, zero)
	}

	return res, nil
}

// GetOptionalParam returns doc's value for the given key
// or protocol error for invalid value type.
// If the value is missing, it returns a default value.
func GetOptionalParam[T types.Type](doc *types.Document, command, key string, defaultValue T) (T, error) {
	v, err := doc.Get(key)
	if err != nil {
		return defaultValue, nil
	}

	res, ok := v.(T)
	if !ok {
		var zero T
		return zero, wrongType(command, key, v, zero)
	}

	return res, nil
}

// wrongType returns TypeMismatch protocol error for the given parameter.
func wrongType(command, key string, actual, expected any) error {
	msg := fmt.Sprintf(
		"BSON field '%s.%s' is the wrong type '%s', expected type '%s'",
		command, key, types.AliasFromType(actual), types.AliasFromType(expected),
	)

	return handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrTypeMismatch, msg, key)
}

// GetBoolOptionalParam returns bool value of v.
// Non-zero double, long, and int values return true.
// Zero values for those types, as well as nulls and missing fields, return false.
// Other types return a protocol error.
func GetBoolOptionalParam(key string, v any) (bool, error) {
	switch v := v.(type) {
	case nil:
		return false, nil
	case float64:
		return v != 0, nil
	case bool:
		return v, nil
	case types.NullType:
		return false, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	default:
		msg := fmt.Sprintf(
			"BSON field '%s' is the wrong type '%s', expected types '[bool, long, int, decimal, double]'",
			key,
			types.AliasFromType(v),
		)

		return false, handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrTypeMismatch, msg, key)
	}
}

// GetWholeNumberParam returns int64 value of v if it is a whole number
// that fits into int32, or protocol error otherwise.
func GetWholeNumberParam(key string, v any) (int64, error) {
	var res int64

	switch v := v.(type) {
	case int32:
		res = int64(v)
	case int64:
		res = v
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			msg := fmt.Sprintf("%s has non-integral value", key)
			return 0, handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrBadValue, msg, key)
		}

		if v > math.MaxInt32 || v < math.MinInt32 {
			msg := fmt.Sprintf("%v value for %s is out of range", v, key)
			return 0, handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrBadValue, msg, key)
		}

		res = int64(v)
	default:
		msg := fmt.Sprintf(
			"BSON field '%s' is the wrong type '%s', expected types '[long, int, decimal, double]'",
			key,
			types.AliasFromType(v),
		)

		return 0, handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrTypeMismatch, msg, key)
	}

	if res > math.MaxInt32 || res < math.MinInt32 {
		msg := fmt.Sprintf("%v value for %s is out of range", res, key)
		return 0, handlererrors.NewCommandErrorMsgWithArgument(handlererrors.ErrBadValue, msg, key)
	}

	return res, nil
}

// SplitNamespace returns the database and collection name from a given namespace in format "database.collection".
//
// Collection name may contain dots.
func SplitNamespace(ns, argument string) (string, string, error) {
	db, coll, ok := strings.Cut(ns, ".")

	if !ok || db == "" || coll == "" {
		return "", "", handlererrors.NewCommandErrorMsgWithArgument(
			handlererrors.ErrInvalidNamespace,
			fmt.Sprintf("Invalid namespace specified '%s'", ns),
			argument,
		)
	}

	return db, coll, nil
}
