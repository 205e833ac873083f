package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUpserter records upserts by id and fails for listed names.
type memUpserter struct {
	mu      sync.Mutex
	byID    map[string]*Agency
	order   []string
	failFor map[string]bool
}

func newMemUpserter(failFor ...string) *memUpserter {
	m := &memUpserter{byID: map[string]*Agency{}, failFor: map[string]bool{}}
	for _, n := range failFor {
		m.failFor[n] = true
	}
	return m
}

func (m *memUpserter) UpsertAgency(_ context.Context, a *Agency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[a.Name] {
		return errors.New("check constraint failed: agencies")
	}
	m.byID[a.ID] = a
	m.order = append(m.order, a.Name)
	return nil
}

func newTestImporter(store AgencyUpserter) *Importer {
	im := NewImporter(store)
	im.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	return im
}

func TestImporter_Accounting(t *testing.T) {
	store := newMemUpserter("Broken")
	rows := ParseCSV(
		"name,website\n"+
			"Acme,acme.io\n"+ // row 2
			",nameless.io\n"+ // row 3: skipped
			"Broken,broken.io\n"+ // row 4: store error
			"\n"+ // row 5: blank, ignored
			"Nowhere,not a url\n"+ // row 6: skipped
			"Beta,beta.io\n", // row 7
		',')

	out, err := newTestImporter(store).Import(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Imported)
	assert.Equal(t, 2, out.Skipped)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 4, out.Errors[0].Row)
	assert.Contains(t, out.Errors[0].Message, "check constraint")
	assert.Equal(t, []string{"Acme", "Beta"}, store.order)
}

// Row numbers are file line numbers: a blank line still takes a number.
func TestImporter_RowNumbersCountBlankLines(t *testing.T) {
	store := newMemUpserter("Gamma")
	rows := ParseCSV("name,website\n\nAlpha,alpha.io\nBeta,beta.io\nGamma,gamma.io\n", ',')

	out, err := newTestImporter(store).Import(context.Background(), rows)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Imported)
	assert.Equal(t, 0, out.Skipped)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, 5, out.Errors[0].Row)
}

func TestImporter_NoErrorsIsEmptySlice(t *testing.T) {
	out, err := newTestImporter(newMemUpserter()).Import(context.Background(), ParseCSV("name,website\nAcme,acme.io", ','))
	require.NoError(t, err)
	assert.NotNil(t, out.Errors)
	assert.Empty(t, out.Errors)
}

func TestImporter_LaterDuplicateWins(t *testing.T) {
	store := newMemUpserter()
	rows := ParseCSV("name,website,city\nAcme,https://acme.io/,Oslo\nACME,acme.io,Bergen", ',')

	out, err := newTestImporter(store).Import(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Imported)

	require.Len(t, store.byID, 1, "same website and name map to one id")
	for _, a := range store.byID {
		assert.Equal(t, "Bergen", a.City)
	}
}

func TestImporter_RejectsBatchBeforeWriting(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want error
	}{
		{"no rows", nil, ErrNoRows},
		{"blank input", ParseCSV("", ','), ErrNoRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemUpserter()
			_, err := newTestImporter(store).Import(context.Background(), tt.rows)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.byID)
		})
	}

	store := newMemUpserter()
	_, err := newTestImporter(store).Import(context.Background(), ParseCSV("name,location\nAcme,Oslo", ','))
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{ColWebsite}, missing.Columns)
	assert.Empty(t, store.byID)

	_, err = newTestImporter(store).Import(context.Background(), ParseCSV("name,website,website\nAcme,a.io,b.io", ','))
	var dup *DuplicateColumnError
	require.ErrorAs(t, err, &dup)
	assert.Empty(t, store.byID)
}

func TestImporter_HeaderOnly(t *testing.T) {
	out, err := newTestImporter(newMemUpserter()).Import(context.Background(), ParseCSV("name,website\n", ','))
	require.NoError(t, err)
	assert.Equal(t, ImportOutcome{Errors: []RowError{}}, *out)
}
