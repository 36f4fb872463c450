package tle

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalogFormats(t *testing.T) {
	catalog := strings.Join([]string{
		"ISS (ZARYA)",
		issLine1,
		issLine2,
		"0 VANGUARD 1",
		vanguardLine1,
		vanguardLine2,
		"",
		// Bare two-line entry without a name.
		"1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9998",
		"2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    07",
	}, "\r\n")

	entries, err := Parse(strings.NewReader(catalog), testLogger)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "ISS (ZARYA)", entries[0].Name)
	assert.Equal(t, 25544, entries[0].NORADID)
	assert.Equal(t, "VANGUARD 1", entries[1].Name)
	assert.Equal(t, 5, entries[1].NORADID)
	assert.Equal(t, "44713", entries[2].Name)
	assert.Equal(t, time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC), entries[2].Epoch)
	require.NotNil(t, entries[2].Elements)
}

func TestParseSkipsInvalidEntries(t *testing.T) {
	badChecksum := issLine2[:68] + "0"
	catalog := strings.Join([]string{
		"BROKEN",
		issLine1,
		badChecksum,
		"ORPHAN LINE",
		"VANGUARD 1",
		vanguardLine1,
		vanguardLine2,
	}, "\n")

	entries, err := Parse(strings.NewReader(catalog), testLogger)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "VANGUARD 1", entries[0].Name)
}

func TestParseTruncated(t *testing.T) {
	entries, err := Parse(strings.NewReader("ISS (ZARYA)\n"+issLine1+"\n"), testLogger)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewDatasetEpochRange(t *testing.T) {
	catalog := strings.Join([]string{"ISS", issLine1, issLine2, "VANGUARD", vanguardLine1, vanguardLine2}, "\n")
	entries, err := Parse(strings.NewReader(catalog), testLogger)
	require.NoError(t, err)

	fetched := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	ds := NewDataset("test", fetched, entries)
	assert.Equal(t, 2000, ds.EpochRange.Min.Year())
	assert.Equal(t, 2025, ds.EpochRange.Max.Year())
	assert.Equal(t, fetched, ds.FetchedAt)
	assert.Len(t, ds.Satellites, 2)
}
