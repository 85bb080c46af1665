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

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	t.Run("Console", func(t *testing.T) {
		t.Parallel()

		config, err := Config(zapcore.DebugLevel, "console", "")
		require.NoError(t, err)
		assert.Equal(t, "console", config.Encoding)
		assert.True(t, config.Development)
		assert.Nil(t, config.InitialFields)
		assert.Equal(t, zapcore.DebugLevel, config.Level.Level())
	})

	t.Run("JSON", func(t *testing.T) {
		t.Parallel()

		config, err := Config(zapcore.WarnLevel, "json", "42")
		require.NoError(t, err)
		assert.Equal(t, "json", config.Encoding)
		assert.False(t, config.Development)
		assert.Equal(t, map[string]any{"uuid": "42"}, config.InitialFields)

		_, err = config.Build()
		require.NoError(t, err)
	})

	t.Run("Unknown", func(t *testing.T) {
		t.Parallel()

		_, err := Config(zapcore.InfoLevel, "xml", "")
		assert.EqualError(t, err, `logging.Config: unknown log format "xml"`)
	})
}
