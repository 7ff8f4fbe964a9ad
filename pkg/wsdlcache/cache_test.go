package wsdlcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-siat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://pilotosiatservicios.impuestos.gob.bo/v2/FacturacionCodigos?wsdl"

func TestPathFor(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp", "OBTENCION_CODIGO.db"), PathFor("/tmp", "OBTENCION_CODIGO"))
	assert.Equal(t, filepath.Join("/tmp", "a_b_c.db"), PathFor("/tmp", "a/b c"))
}

func TestOpen_RequiresName(t *testing.T) {
	_, err := Open("", Options{Dir: t.TempDir()})
	assert.True(t, errors.IsValidationError(err))
}

func TestCache_PutGet(t *testing.T) {
	ctx := context.Background()
	cache, err := Open("OBTENCION_CODIGO", Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer cache.Close()

	_, found, err := cache.Get(ctx, testURL)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Put(ctx, testURL, []byte("<definitions/>")))
	body, found, err := cache.Get(ctx, testURL)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("<definitions/>"), body)

	require.NoError(t, cache.Put(ctx, testURL, []byte("<definitions name=\"v2\"/>")))
	body, _, err = cache.Get(ctx, testURL)
	require.NoError(t, err)
	assert.Equal(t, []byte("<definitions name=\"v2\"/>"), body)

	require.NoError(t, cache.Invalidate(ctx, testURL))
	_, found, err = cache.Get(ctx, testURL)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	cache, err := Open("COMPRAS", Options{Dir: t.TempDir(), TTL: time.Hour, Now: clock})
	require.NoError(t, err)
	defer cache.Close()

	require.NoError(t, cache.Put(ctx, testURL, []byte("<definitions/>")))

	now = now.Add(59 * time.Minute)
	_, found, err := cache.Get(ctx, testURL)
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(2 * time.Minute)
	_, found, err = cache.Get(ctx, testURL)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := Open("OPERACIONES", Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, testURL, []byte("<definitions/>")))
	require.NoError(t, first.Close())

	second, err := Open("OPERACIONES", Options{Dir: dir})
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, first.Path(), second.Path())
	body, found, err := second.Get(ctx, testURL)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("<definitions/>"), body)
}
