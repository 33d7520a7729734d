package downloader

// RawStream is a single encoding reported by the probe, before ranking.
type RawStream struct {
	FormatID       string
	Ext            string
	Height         int
	FPS            float64
	ABR            float64 // audio bitrate, kbit/s
	TBR            float64 // total bitrate, kbit/s
	VCodec         string
	ACodec         string
	Filesize       int64
	FilesizeApprox int64
}

func (s RawStream) HasAudio() bool {
	return s.ACodec != "" && s.ACodec != "none"
}

func (s RawStream) HasVideo() bool {
	return s.VCodec != "" && s.VCodec != "none"
}

// EstSize returns the declared size, falling back to the extractor's
// estimate. 0 means unknown.
func (s RawStream) EstSize() int64 {
	if s.Filesize > 0 {
		return s.Filesize
	}
	if s.FilesizeApprox > 0 {
		return s.FilesizeApprox
	}
	return 0
}

// Info is the result of a metadata probe. No media data is fetched.
type Info struct {
	ID        string
	Title     string
	Uploader  string
	Thumbnail string
	Duration  int // seconds
	Streams   []RawStream
}

// Option is one selectable encoding as shown to the user. The Selector is
// passed verbatim to yt-dlp; Size is an estimate in bytes, 0 when unknown.
// Options are immutable once ranked.
type Option struct {
	Selector string
	Label    string
	Size     int64
}

// AudioProfile selects the post-processing applied to extracted audio.
type AudioProfile string

const (
	AudioBest    AudioProfile = "best"
	AudioMP3320  AudioProfile = "mp3-320"
	AudioOpus160 AudioProfile = "opus-160"
	AudioFLAC    AudioProfile = "flac"
)

// AudioProfiles lists the selectable profiles in display order.
var AudioProfiles = []AudioProfile{AudioBest, AudioMP3320, AudioOpus160, AudioFLAC}

func (p AudioProfile) Valid() bool {
	switch p {
	case AudioBest, AudioMP3320, AudioOpus160, AudioFLAC:
		return true
	}
	return false
}

// postprocessArgs returns the yt-dlp flags that realize the profile.
// AudioBest keeps whatever container the best audio stream came in.
func (p AudioProfile) postprocessArgs() []string {
	switch p {
	case AudioMP3320:
		return []string{"--audio-format", "mp3", "--audio-quality", "320K"}
	case AudioOpus160:
		return []string{"--audio-format", "opus", "--audio-quality", "160K"}
	case AudioFLAC:
		return []string{"--audio-format", "flac"}
	default:
		return nil
	}
}
