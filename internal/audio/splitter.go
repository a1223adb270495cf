// Package audio decodes a source recording and exports fixed-duration,
// non-overlapping chunk files, grounded on eternnoir-gollmscribe's
// ffmpeg-go chunker/processor but adapted from that teacher's
// variable-duration overlapping windows to spec.md §4.1's enumerate-by-index,
// non-overlapping scheme.
package audio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	pkgerrors "meetscribe/internal/errors"
)

// ChunkFile describes one exported chunk_<i>.mp3 in the staging directory.
type ChunkFile struct {
	ChunkID       int
	Path          string
	OffsetSeconds float64
}

// Splitter probes a source file's duration and exports contiguous
// millisecond-range slices of it as mp3 files.
type Splitter struct{}

// NewSplitter builds a Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// ProbeDurationMs decodes path's container metadata via ffprobe and
// returns its total duration in milliseconds (spec.md §4.1 step 4).
func (s *Splitter) ProbeDurationMs(path string) (int64, error) {
	info, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, &pkgerrors.AudioProcessingError{Err: fmt.Errorf("probe %s: %w", path, err)}
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(info), &probe); err != nil {
		return 0, &pkgerrors.AudioProcessingError{Err: fmt.Errorf("parse probe output: %w", err)}
	}

	durationSeconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return 0, &pkgerrors.AudioProcessingError{Err: fmt.Errorf("parse duration %q: %w", probe.Format.Duration, err)}
	}
	return int64(durationSeconds * 1000), nil
}

// Split exports ceil(durationMs/chunkDurationMs) contiguous slices of
// sourcePath into stagingDir as chunk_<i>.mp3, per spec.md §4.1 steps 5–6.
// On any export failure it deletes the chunk files already written and
// removes stagingDir if it is left empty, per the splitter's cleanup
// contract (spec.md §4.6).
func (s *Splitter) Split(sourcePath, stagingDir string, chunkDurationMs int64) ([]ChunkFile, int64, error) {
	durationMs, err := s.ProbeDurationMs(sourcePath)
	if err != nil {
		return nil, 0, err
	}

	n := numChunks(durationMs, chunkDurationMs)
	chunks := make([]ChunkFile, 0, n)

	for i := 0; i < n; i++ {
		startMs := int64(i) * chunkDurationMs
		endMs := startMs + chunkDurationMs
		if endMs > durationMs {
			endMs = durationMs
		}

		outPath := filepath.Join(stagingDir, fmt.Sprintf("chunk_%d.mp3", i))
		if err := s.exportRange(sourcePath, outPath, startMs, endMs); err != nil {
			s.cleanup(chunks, stagingDir)
			return nil, 0, &pkgerrors.AudioProcessingError{Err: fmt.Errorf("export chunk %d: %w", i, err)}
		}

		chunks = append(chunks, ChunkFile{
			ChunkID:       i,
			Path:          outPath,
			OffsetSeconds: float64(startMs) / 1000.0,
		})
	}

	return chunks, durationMs, nil
}

func (s *Splitter) exportRange(sourcePath, outPath string, startMs, endMs int64) error {
	stream := ffmpeg.Input(sourcePath, ffmpeg.KwArgs{
		"ss": msToTimestamp(startMs),
		"t":  msToTimestamp(endMs - startMs),
	}).Output(outPath, ffmpeg.KwArgs{
		"acodec": "libmp3lame",
		"ab":     "192k",
		"ar":     "44100",
		"ac":     "2",
	})
	return stream.OverWriteOutput().ErrorToStdOut().Run()
}

// cleanup removes any chunk files already written and, if the staging
// directory is then empty, removes it too.
func (s *Splitter) cleanup(chunks []ChunkFile, stagingDir string) {
	for _, c := range chunks {
		os.Remove(c.Path)
	}
	if entries, err := os.ReadDir(stagingDir); err == nil && len(entries) == 0 {
		os.Remove(stagingDir)
	}
}

func numChunks(durationMs, chunkDurationMs int64) int {
	if durationMs <= 0 {
		return 0
	}
	n := durationMs / chunkDurationMs
	if durationMs%chunkDurationMs != 0 {
		n++
	}
	return int(n)
}

func msToTimestamp(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3600000
	ms -= hours * 3600000
	minutes := ms / 60000
	ms -= minutes * 60000
	seconds := ms / 1000
	millis := ms - seconds*1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}
