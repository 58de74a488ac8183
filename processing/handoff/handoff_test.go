package handoff

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"robovision/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resultAt(x, y, z float64) *models.QueryResult {
	return &models.QueryResult{
		ID:          "q-1",
		Query:       "apple",
		Coordinates: models.NewCoordinates(x, y, z),
	}
}

func TestFileSinkWritesTriple(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coords.txt")
	sink := NewFileSink(path)

	require.NoError(t, sink.Publish(resultAt(1, 2, 3)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[1.0, 2.0, 3.0]", string(data))
}

func TestFileSinkOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coords.txt")
	require.NoError(t, os.WriteFile(path, []byte("[9.0, 9.0, 9.0] and a long stale tail"), 0644))

	sink := NewFileSink(path)
	require.NoError(t, sink.Publish(resultAt(0.5, -1, 2.25)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[0.5, -1.0, 2.25]", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileSinkMissingDirectory(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing", "coords.txt"))
	assert.Error(t, sink.Publish(resultAt(1, 2, 3)))
}

type stubPublisher struct {
	got []*models.QueryResult
	err error
}

func (s *stubPublisher) Publish(result *models.QueryResult) error {
	s.got = append(s.got, result)
	return s.err
}

func (s *stubPublisher) Close() error { return s.err }

func TestMultiFansOut(t *testing.T) {
	boom := errors.New("boom")
	a := &stubPublisher{}
	b := &stubPublisher{err: boom}
	c := &stubPublisher{}

	m := Multi{a, b, c}
	err := m.Publish(resultAt(1, 2, 3))

	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1)
	assert.ErrorIs(t, m.Close(), boom)
}

func TestMultiEmpty(t *testing.T) {
	assert.NoError(t, Multi{}.Publish(resultAt(0, 0, 0)))
}
