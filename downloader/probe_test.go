package downloader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProbeJSON = `{
  "id": "dQw4w9WgXcQ",
  "title": "Test Video",
  "uploader": "Test Channel",
  "thumbnail": "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
  "duration": 212.5,
  "formats": [
    {"format_id": "sb0", "ext": "mhtml", "vcodec": "none", "acodec": "none"},
    {"format_id": "140", "ext": "m4a", "vcodec": "none", "acodec": "mp4a.40.2", "abr": 129.5, "filesize": 3400000},
    {"format_id": "18", "ext": "mp4", "vcodec": "avc1.42001E", "acodec": "mp4a.40.2", "height": 360, "tbr": 500.2, "filesize_approx": 13000000},
    {"format_id": "248", "ext": "webm", "vcodec": "vp9", "acodec": "none", "height": 1080, "fps": 25, "tbr": 1800.0, "filesize": null}
  ]
}`

func TestParseInfo(t *testing.T) {
	info, err := parseInfo([]byte(sampleProbeJSON))
	require.NoError(t, err)

	assert.Equal(t, "dQw4w9WgXcQ", info.ID)
	assert.Equal(t, "Test Video", info.Title)
	assert.Equal(t, "Test Channel", info.Uploader)
	assert.Equal(t, 212, info.Duration)
	require.Len(t, info.Streams, 3, "storyboard entries must be dropped")

	audio := info.Streams[0]
	assert.True(t, audio.HasAudio())
	assert.False(t, audio.HasVideo())
	assert.Equal(t, int64(3_400_000), audio.EstSize())

	progressive := info.Streams[1]
	assert.True(t, progressive.HasAudio())
	assert.True(t, progressive.HasVideo())
	assert.Equal(t, 360, progressive.Height)
	assert.Equal(t, int64(13_000_000), progressive.EstSize(), "approx size is the fallback")

	videoOnly := info.Streams[2]
	assert.False(t, videoOnly.HasAudio())
	assert.Equal(t, 1080, videoOnly.Height)
	assert.Zero(t, videoOnly.EstSize())
}

func TestParseInfoRejectsGarbage(t *testing.T) {
	_, err := parseInfo([]byte("not json"))
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestParseInfoNoUsableStreams(t *testing.T) {
	_, err := parseInfo([]byte(`{"id":"x","title":"t","formats":[{"format_id":"sb0","ext":"mhtml","vcodec":"none","acodec":"none"}]}`))
	assert.ErrorIs(t, err, ErrNoFormats)
}

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{"private video", "ERROR: [youtube] abc: Private video. Sign in if you've been granted access", ErrExtraction},
		{"removed", "ERROR: [youtube] abc: Video unavailable", ErrExtraction},
		{"bot check", "ERROR: [youtube] abc: Sign in to confirm you're not a bot", ErrExtraction},
		{"dns", "ERROR: Unable to download webpage: <urlopen error [Errno -3] Temporary failure in name resolution>", ErrNetwork},
		{"timeout", "ERROR: Unable to download webpage: The read operation timed out", ErrNetwork},
		{"unknown refusal", "ERROR: something novel happened", ErrExtraction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyOutput(tt.stderr, errors.New("exit status 1"))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFirstErrorLinePrefersErrorPrefix(t *testing.T) {
	stderr := "WARNING: something minor\nERROR: [youtube] abc: Video unavailable\n"
	assert.Equal(t, "[youtube] abc: Video unavailable", firstErrorLine(stderr, nil))
}

func TestFirstErrorLineFallsBackToRunError(t *testing.T) {
	assert.Equal(t, "exit status 1", firstErrorLine("", errors.New("exit status 1")))
}
