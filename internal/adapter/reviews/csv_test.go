package reviews

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, filepath.Dir(name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const sampleCSV = `reviewId,content,score,at,category
r1,"Order arrived late, food was cold",1,2024-03-15 10:22:00,Delivery issue
r2,Great app!,5,2024-03-15 11:00:00,
r3,,3,2024-03-16 09:00:00,
r4,Refund still pending,2,2024-04-01 08:30:00,
`

func TestCSVSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/reviews.csv", sampleCSV)

	source := NewCSVSource(dir, "data/*.csv", "content", "at")
	revs, err := source.Load("")
	require.NoError(t, err)
	require.Len(t, revs, 3, "blank-text rows are skipped")

	assert.Equal(t, "reviews.csv:2", revs[0].ID)
	assert.Equal(t, "Order arrived late, food was cold", revs[0].Text)
	assert.Equal(t, "Delivery issue", revs[0].PriorLabel)
	assert.Equal(t, 2024, revs[0].Date.Year())

	assert.Equal(t, "Great app!", revs[1].Text)
	assert.Empty(t, revs[1].PriorLabel)
}

func TestCSVSourceDateFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/reviews.csv", sampleCSV)

	source := NewCSVSource(dir, "data/*.csv", "content", "at")

	march, err := source.Load("2024-03")
	require.NoError(t, err)
	assert.Len(t, march, 2)

	day, err := source.Load("2024-03-15")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	none, err := source.Load("2025-01")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCSVSourceMergesMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/a.csv", "content,at\nfirst review,2024-03-01\n")
	writeFile(t, dir, "data/nested/b.csv", "content,at\nsecond review,2024-03-02\n")

	source := NewCSVSource(dir, "data/**/*.csv", "content", "at")
	revs, err := source.Load("")
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}

func TestCSVSourceMissingTextColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data/reviews.csv", "reviewId,score\nr1,5\n")

	source := NewCSVSource(dir, "data/*.csv", "content", "at")
	_, err := source.Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "content"`)
}

func TestCSVSourceNoMatchingFiles(t *testing.T) {
	source := NewCSVSource(t.TempDir(), "data/*.csv", "content", "at")
	_, err := source.Load("")
	assert.Error(t, err)
}
