package downloader

import (
	"io"
	"os"
	"time"

	"github.com/tcolgate/mp3"
)

// AudioDuration measures an MP3 file's playing time by walking its frames.
// Used when the probe metadata carries no duration for the audio caption.
func AudioDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		total += frame.Duration()
	}
	return total, nil
}
