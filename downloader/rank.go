package downloader

import (
	"fmt"
	"regexp"
	"sort"
)

// Rank turns probed streams into the two option lists shown to the user.
// It is a pure function: no I/O, stable for a given Info.
//
// Audio-only streams are ordered by (bitrate desc, size desc). Video lists
// hold progressive streams first, ordered by (height desc, bitrate desc),
// followed by synthesized "<id>+bestaudio" combinations of each video-only
// stream with the single best audio stream, same ordering. A combined
// option's size is the sum of its components when both are known and 0
// (unknown) otherwise. Duplicate labels are dropped, keeping the
// better-ranked entry.
func Rank(info *Info) (audio, video []Option) {
	var audioOnly, progressive, videoOnly []RawStream
	for _, s := range info.Streams {
		switch {
		case s.HasAudio() && s.HasVideo():
			progressive = append(progressive, s)
		case s.HasVideo():
			videoOnly = append(videoOnly, s)
		case s.HasAudio():
			audioOnly = append(audioOnly, s)
		}
	}

	sort.SliceStable(audioOnly, func(i, j int) bool {
		a, b := audioOnly[i], audioOnly[j]
		if a.ABR != b.ABR {
			return a.ABR > b.ABR
		}
		return a.EstSize() > b.EstSize()
	})
	byVideoKey := func(ss []RawStream) {
		sort.SliceStable(ss, func(i, j int) bool {
			a, b := ss[i], ss[j]
			if a.Height != b.Height {
				return a.Height > b.Height
			}
			return a.TBR > b.TBR
		})
	}
	byVideoKey(progressive)
	byVideoKey(videoOnly)

	for _, s := range audioOnly {
		audio = append(audio, Option{
			Selector: s.FormatID,
			Label:    fmt.Sprintf("%.0f kbps %s (%s)", s.ABR, s.Ext, sizeLabel(s.EstSize())),
			Size:     s.EstSize(),
		})
	}
	for _, s := range progressive {
		video = append(video, Option{
			Selector: s.FormatID,
			Label:    fmt.Sprintf("%dp %s (%s)", s.Height, s.Ext, sizeLabel(s.EstSize())),
			Size:     s.EstSize(),
		})
	}
	if len(audioOnly) > 0 {
		bestAudio := audioOnly[0].EstSize()
		for _, s := range videoOnly {
			size := int64(0)
			if s.EstSize() > 0 && bestAudio > 0 {
				size = s.EstSize() + bestAudio
			}
			video = append(video, Option{
				Selector: s.FormatID + "+bestaudio",
				Label:    fmt.Sprintf("%dp %s+audio (%s)", s.Height, s.Ext, sizeLabel(size)),
				Size:     size,
			})
		}
	}

	return dedupeByLabel(audio), dedupeByLabel(video)
}

func dedupeByLabel(opts []Option) []Option {
	seen := make(map[string]struct{}, len(opts))
	out := opts[:0]
	for _, o := range opts {
		if _, ok := seen[o.Label]; ok {
			continue
		}
		seen[o.Label] = struct{}{}
		out = append(out, o)
	}
	return out
}

var heightRE = regexp.MustCompile(`^(\d+)p\b`)

// FilterByHeight drops video options above the user's resolution ceiling.
// The height is parsed back out of the label; options whose label carries
// no parsable height are kept rather than silently hidden.
func FilterByHeight(video []Option, maxHeight int) []Option {
	if maxHeight <= 0 {
		return video
	}
	out := make([]Option, 0, len(video))
	for _, o := range video {
		m := heightRE.FindStringSubmatch(o.Label)
		if m == nil {
			out = append(out, o)
			continue
		}
		var h int
		fmt.Sscanf(m[1], "%d", &h)
		if h <= maxHeight {
			out = append(out, o)
		}
	}
	return out
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "size?"
	}
	return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
}
