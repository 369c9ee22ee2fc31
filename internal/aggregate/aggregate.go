package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codebuildervaibhav/speaker-diarization/internal/types"
)

// Build transforms the raw diarization segments into the final result:
// a formatted transcript plus per-speaker statistics. It is a pure
// function of its inputs; the caller fills in JobID and ProcessingTime.
func Build(segments []types.Segment, audioDuration float64) *types.DiarizationResult {
	// Pipeline output ordering is not guaranteed
	ordered := make([]types.Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	speakers := make(map[string]*types.SpeakerStats)
	lines := make([]string, 0, len(ordered))

	for i := range ordered {
		seg := &ordered[i]
		seg.Duration = seg.End - seg.Start

		lines = append(lines, fmt.Sprintf("%s [%.2fs - %.2fs]: %s",
			seg.Speaker, seg.Start, seg.End, seg.Text))

		stats, ok := speakers[seg.Speaker]
		if !ok {
			stats = &types.SpeakerStats{}
			speakers[seg.Speaker] = stats
		}
		stats.TotalDuration += seg.Duration
		stats.SegmentCount++
		stats.WordCount += len(strings.Fields(seg.Text))
	}

	for _, stats := range speakers {
		if audioDuration > 0 {
			stats.Percentage = stats.TotalDuration / audioDuration * 100
		}
		stats.AverageSegmentDuration = stats.TotalDuration / float64(stats.SegmentCount)
	}

	return &types.DiarizationResult{
		Transcript:    strings.Join(lines, "\n"),
		Speakers:      speakers,
		Segments:      ordered,
		AudioDuration: audioDuration,
		TotalSpeakers: len(speakers),
	}
}
