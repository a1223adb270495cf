package audio

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumChunks(t *testing.T) {
	tests := []struct {
		name            string
		durationMs      int64
		chunkDurationMs int64
		want            int
	}{
		{"exact multiple", 1_200_000, 600_000, 2},
		{"s1 scenario: 25 minutes at 10-minute chunks", 1_500_000, 600_000, 3},
		{"shorter than one chunk", 90_000, 600_000, 1},
		{"zero duration", 0, 600_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, numChunks(tt.durationMs, tt.chunkDurationMs))
		})
	}
}

func TestMsToTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00.000"},
		{600_000, "00:10:00.000"},
		{3_661_500, "01:01:01.500"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, msToTimestamp(tt.ms))
	}
}

func TestSplitterCleanupRemovesPartialChunksAndEmptyDir(t *testing.T) {
	dir := t.TempDir()
	s := NewSplitter()

	chunks := []ChunkFile{
		{ChunkID: 0, Path: dir + "/chunk_0.mp3"},
		{ChunkID: 1, Path: dir + "/chunk_1.mp3"},
	}
	for _, c := range chunks {
		assert.NoError(t, writeEmptyFile(c.Path))
	}

	s.cleanup(chunks, dir)

	for _, c := range chunks {
		assert.NoFileExists(t, c.Path)
	}
	assert.NoDirExists(t, dir)
}

func writeEmptyFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}
