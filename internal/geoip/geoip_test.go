// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geoip

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_Disabled(t *testing.T) {
	l, err := Open("")
	require.NoError(t, err)
	assert.False(t, l.Enabled())
	assert.NoError(t, l.Reload())

	assert.Equal(t, CodeLocal, l.Country("127.0.0.1"))
	assert.Equal(t, CodeLocal, l.Country("192.168.10.4"))
	assert.Equal(t, CodeLocal, l.Country("::1"))
	assert.Empty(t, l.Country("8.8.8.8"))
	assert.Empty(t, l.Country("not-an-ip"))
	assert.NoError(t, l.Close())
}

func TestOpen_MissingFile(t *testing.T) {
	l, err := Open(filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb"))
	require.Error(t, err)
	require.NotNil(t, l)
	assert.False(t, l.Enabled())
	assert.Empty(t, l.Country("1.1.1.1"))
}

func TestCountryName(t *testing.T) {
	assert.Equal(t, "South Korea", CountryName("KR"))
	assert.Equal(t, "Local Network", CountryName(CodeLocal))
	assert.Equal(t, "ZZ", CountryName("ZZ"))
	assert.Equal(t, "Unknown", CountryName(""))
}
