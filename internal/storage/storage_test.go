package storage

import (
	"context"
	"testing"

	"github.com/khrees2412/jobhunter/pkg/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore() *FSStore {
	return NewFSStore(afero.NewMemMapFs(), "/data")
}

func TestFSStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	require.NoError(t, s.Put(ctx, "bucket", "a.csv", []byte("one")))
	require.NoError(t, s.Put(ctx, "bucket", "a.csv", []byte("two")))

	data, err := s.Get(ctx, "bucket", "a.csv")
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	ok, err := s.Exists(ctx, "bucket", "a.csv")
	require.NoError(t, err)
	assert.True(t, ok)

	tmp, err := s.Exists(ctx, "bucket", "a.csv.tmp")
	require.NoError(t, err)
	assert.False(t, tmp)
}

func TestFSStore_Missing(t *testing.T) {
	_, err := newMemStore().Get(context.Background(), "bucket", "missing.csv")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestFSStore_InvalidObject(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	assert.Error(t, s.Put(ctx, "", "a.csv", nil))
	assert.Error(t, s.Put(ctx, "a/b", "a.csv", nil))
	assert.Error(t, s.Put(ctx, "bucket", "/", nil))
}

func TestFSStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, newMemStore().Put(ctx, "bucket", "a.csv", nil), context.Canceled)
}

func TestReadListings_MissingObjectIsEmpty(t *testing.T) {
	listings, err := ReadListings(context.Background(), newMemStore(), "bucket", "indeed_data.csv")
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func TestWriteListings_RoundTripAndDedupe(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()

	in := []models.Listing{
		{JobTitle: "Data Scientist", Location: "Austin TX", Company: "Acme", URL: "/rc/1",
			Jobsite: "Indeed", JobDescription: "line one\nline, \"two\"", SearchTerm: "Data+Scientist", CityTerm: "Austin"},
		{JobTitle: "Duplicate", URL: "/rc/1"},
		{JobTitle: "Analyst", URL: "/rc/2", CityTerm: "Chicago"},
	}

	written, err := WriteListings(ctx, s, "bucket", "indeed_data.csv", in)
	require.NoError(t, err)
	require.Len(t, written, 2)

	out, err := ReadListings(ctx, s, "bucket", "indeed_data.csv")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, "Analyst", out[1].JobTitle)
}

func TestDecodeListings_ColumnsByName(t *testing.T) {
	data := []byte("url,city_term,job_description\n/rc/9,New+York,hello\n")
	out, err := DecodeListings(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "/rc/9", out[0].URL)
	assert.Equal(t, "New+York", out[0].CityTerm)
	assert.Equal(t, "hello", out[0].JobDescription)
	assert.Empty(t, out[0].Company)
}
