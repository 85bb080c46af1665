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

package types

import (
	"fmt"
	"unicode/utf8"
)

// field represents a single Document field in the (possibly invalid) document.
type field struct {
	key   string
	value any
}

// Document represents BSON document: an ordered collection of fields.
//
// Duplicate field names are not supported.
type Document struct {
	fields []field
}

// NewDocument creates a document with the given key/value pairs.
func NewDocument(pairs ...any) (*Document, error) {
	l := len(pairs)
	if l%2 != 0 {
		return nil, fmt.Errorf("types.NewDocument: invalid number of arguments: %d", l)
	}

	doc := MakeDocument(l / 2)

	for i := 0; i < l; i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("types.NewDocument: invalid key type: %T", pairs[i])
		}

		if err := doc.Add(key, pairs[i+1]); err != nil {
			return nil, fmt.Errorf("types.NewDocument: %w", err)
		}
	}

	return doc, nil
}

// MakeDocument creates an empty document with set capacity.
func MakeDocument(capacity int) *Document {
	if capacity == 0 {
		return new(Document)
	}

	return &Document{fields: make([]field, 0, capacity)}
}

// isValidKey returns false if key is not a valid document field key.
func isValidKey(key string) bool {
	return key != "" && utf8.ValidString(key)
}

// DeepCopy returns a deep copy of this Document.
func (d *Document) DeepCopy() *Document {
	if d == nil {
		panic("types.Document.DeepCopy: nil document")
	}

	return deepCopy(d).(*Document)
}

// Len returns the number of fields in the document.
//
// It returns 0 for nil Document.
func (d *Document) Len() int {
	if d == nil {
		return 0
	}

	return len(d.fields)
}

// Keys returns a copy of document's keys.
//
// It returns nil for nil Document.
func (d *Document) Keys() []string {
	if d == nil {
		return nil
	}

	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.key
	}

	return keys
}

// Values returns a copy of document's values in the same order as Keys.
//
// It returns nil for nil Document.
func (d *Document) Values() []any {
	if d == nil {
		return nil
	}

	values := make([]any, len(d.fields))
	for i, f := range d.fields {
		values[i] = f.value
	}

	return values
}

// Command returns the first document's key. This is often used as a command name.
// It returns an empty string if document is nil or empty.
func (d *Document) Command() string {
	if d.Len() == 0 {
		return ""
	}

	return d.fields[0].key
}

// index returns the position of the field with the given key, or -1.
func (d *Document) index(key string) int {
	for i, f := range d.fields {
		if f.key == key {
			return i
		}
	}

	return -1
}

// Has returns true if the given key is present in the document.
func (d *Document) Has(key string) bool {
	return d.index(key) >= 0
}

// Get returns a value at the given key.
func (d *Document) Get(key string) (any, error) {
	if i := d.index(key); i >= 0 {
		return d.fields[i].value, nil
	}

	return nil, fmt.Errorf("types.Document.Get: key not found: %q", key)
}

// Add appends a new field to the end of the document.
// It returns an error if the key is already present.
func (d *Document) Add(key string, value any) error {
	if !isValidKey(key) {
		return fmt.Errorf("types.Document.Add: invalid key: %q", key)
	}

	if d.Has(key) {
		return fmt.Errorf("types.Document.Add: duplicate key: %q", key)
	}

	if err := validateValue(value); err != nil {
		return fmt.Errorf("types.Document.Add: %w", err)
	}

	d.fields = append(d.fields, field{key: key, value: value})

	return nil
}

// Set sets the value of the given key, replacing any existing value.
// New keys are added to the end of the document.
func (d *Document) Set(key string, value any) error {
	if !isValidKey(key) {
		return fmt.Errorf("types.Document.Set: invalid key: %q", key)
	}

	if err := validateValue(value); err != nil {
		return fmt.Errorf("types.Document.Set: %w", err)
	}

	if i := d.index(key); i >= 0 {
		d.fields[i].value = value
		return nil
	}

	d.fields = append(d.fields, field{key: key, value: value})

	return nil
}

// Remove removes the given key and returns its value, or nil if the key does not exist.
func (d *Document) Remove(key string) any {
	i := d.index(key)
	if i < 0 {
		return nil
	}

	v := d.fields[i].value
	d.fields = append(d.fields[:i], d.fields[i+1:]...)

	return v
}
