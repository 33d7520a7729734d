package downloader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audioStream(id string, abr float64, size int64) RawStream {
	return RawStream{FormatID: id, Ext: "m4a", ACodec: "mp4a.40.2", VCodec: "none", ABR: abr, Filesize: size}
}

func progressiveStream(id string, height int, tbr float64, size int64) RawStream {
	return RawStream{FormatID: id, Ext: "mp4", ACodec: "mp4a.40.2", VCodec: "avc1", Height: height, TBR: tbr, Filesize: size}
}

func videoOnlyStream(id string, height int, tbr float64, size int64) RawStream {
	return RawStream{FormatID: id, Ext: "mp4", ACodec: "none", VCodec: "avc1", Height: height, TBR: tbr, Filesize: size}
}

func TestRankAudioOrderedByBitrate(t *testing.T) {
	info := &Info{Streams: []RawStream{
		audioStream("a-low", 48, 1_000_000),
		audioStream("a-high", 160, 3_000_000),
		audioStream("a-mid", 128, 2_000_000),
	}}

	audio, _ := Rank(info)
	require.Len(t, audio, 3)
	assert.Equal(t, "a-high", audio[0].Selector)
	assert.Equal(t, "a-mid", audio[1].Selector)
	assert.Equal(t, "a-low", audio[2].Selector)
}

func TestRankVideoOrderedWithinGroups(t *testing.T) {
	info := &Info{Streams: []RawStream{
		audioStream("a1", 128, 2_000_000),
		progressiveStream("p-360", 360, 500, 5_000_000),
		progressiveStream("p-720", 720, 1500, 20_000_000),
		videoOnlyStream("v-1080", 1080, 2500, 40_000_000),
		videoOnlyStream("v-480", 480, 800, 8_000_000),
	}}

	_, video := Rank(info)
	require.Len(t, video, 4)
	// progressive group first, tallest first
	assert.Equal(t, "p-720", video[0].Selector)
	assert.Equal(t, "p-360", video[1].Selector)
	// then synthesized combinations, tallest first
	assert.Equal(t, "v-1080+bestaudio", video[2].Selector)
	assert.Equal(t, "v-480+bestaudio", video[3].Selector)
}

func TestRankCombinedSizeIsSumOfComponents(t *testing.T) {
	info := &Info{Streams: []RawStream{
		audioStream("a1", 128, 2_000_000),
		videoOnlyStream("v1", 720, 1500, 20_000_000),
	}}

	_, video := Rank(info)
	require.Len(t, video, 1)
	assert.Equal(t, int64(22_000_000), video[0].Size)
}

func TestRankCombinedSizeUnknownWhenComponentUnknown(t *testing.T) {
	for name, streams := range map[string][]RawStream{
		"video unknown": {
			audioStream("a1", 128, 2_000_000),
			videoOnlyStream("v1", 720, 1500, 0),
		},
		"audio unknown": {
			audioStream("a1", 128, 0),
			videoOnlyStream("v1", 720, 1500, 20_000_000),
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, video := Rank(&Info{Streams: streams})
			require.Len(t, video, 1)
			assert.Zero(t, video[0].Size, "unknown size must be 0, not a partial sum")
			assert.GreaterOrEqual(t, video[0].Size, int64(0))
		})
	}
}

func TestRankNoAudioMeansNoCombinedOptions(t *testing.T) {
	info := &Info{Streams: []RawStream{
		videoOnlyStream("v1", 720, 1500, 20_000_000),
		progressiveStream("p1", 360, 500, 5_000_000),
	}}

	_, video := Rank(info)
	require.Len(t, video, 1)
	assert.Equal(t, "p1", video[0].Selector)
}

func TestRankDeduplicatesByLabel(t *testing.T) {
	info := &Info{Streams: []RawStream{
		audioStream("a1", 128, 2_000_000),
		audioStream("a2", 128, 2_000_000), // identical label
	}}

	audio, _ := Rank(info)
	require.Len(t, audio, 1)
	assert.Equal(t, "a1", audio[0].Selector)
}

func TestRankFallsBackToApproxSize(t *testing.T) {
	s := RawStream{FormatID: "x", Ext: "m4a", ACodec: "opus", VCodec: "none", ABR: 96, FilesizeApprox: 1_500_000}
	assert.Equal(t, int64(1_500_000), s.EstSize())
}

func TestFilterByHeightCeiling(t *testing.T) {
	video := []Option{
		{Selector: "a", Label: "1440p mp4 (100.0 MB)"},
		{Selector: "b", Label: "1080p mp4 (60.0 MB)"},
		{Selector: "c", Label: "720p mp4 (30.0 MB)"},
		{Selector: "d", Label: "360p mp4 (10.0 MB)"},
	}

	got := FilterByHeight(video, 1080)
	require.Len(t, got, 3)
	for _, o := range got {
		assert.False(t, strings.HasPrefix(o.Label, "1440p"))
	}
}

func TestFilterByHeightKeepsUnparsableLabels(t *testing.T) {
	video := []Option{
		{Selector: "a", Label: "1440p mp4 (100.0 MB)"},
		{Selector: "b", Label: "premium mp4 (60.0 MB)"},
	}

	got := FilterByHeight(video, 1080)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Selector)
}

func TestFilterByHeightZeroCeilingKeepsAll(t *testing.T) {
	video := []Option{{Label: "2160p mp4 (1.0 MB)"}}
	assert.Len(t, FilterByHeight(video, 0), 1)
}
