// Copyright 2026 The rprof Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logging

import (
	"bytes"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelRecognizesAllNames(t *testing.T) {
	cases := map[string]logiface.Level{
		"trace":   logiface.LevelTrace,
		"debug":   logiface.LevelDebug,
		"info":    logiface.LevelInformational,
		"warn":    logiface.LevelWarning,
		"warning": logiface.LevelWarning,
		"error":   logiface.LevelError,
	}
	for s, want := range cases {
		got, ok := ParseLevel(s)
		require.True(t, ok, s)
		assert.Equal(t, want, got, s)
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	_, ok := ParseLevel("verbose")
	assert.False(t, ok)
}

func TestNewWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, logiface.LevelInformational)
	log.Info().Str("key", "value").Log("hello")
	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "value")
}

func TestNewDefaultsNilWriterToStderr(t *testing.T) {
	log := New(nil, logiface.LevelInformational)
	assert.NotNil(t, log)
}

func TestDiscardDropsEverything(t *testing.T) {
	log := Discard()
	require.NotNil(t, log)
	log.Emerg().Str("key", "value").Log("should not panic")
}
