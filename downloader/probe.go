package downloader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Engine shells out to yt-dlp. One instance is shared by all jobs; it
// holds no per-job state.
type Engine struct {
	Bin             string
	CookiesFile     string
	ProbeTimeout    time.Duration
	DownloadTimeout time.Duration
	ProbeRetries    uint64
}

func NewEngine(cookiesFile string) *Engine {
	return &Engine{
		Bin:             "yt-dlp",
		CookiesFile:     cookiesFile,
		ProbeTimeout:    30 * time.Second,
		DownloadTimeout: 15 * time.Minute,
		ProbeRetries:    2,
	}
}

// cookieArgs includes the jar only when it actually exists, so a missing
// or not-yet-harvested file degrades to anonymous requests.
func (e *Engine) cookieArgs() []string {
	if e.CookiesFile == "" {
		return nil
	}
	if _, err := os.Stat(e.CookiesFile); err != nil {
		return nil
	}
	return []string{"--cookies", e.CookiesFile}
}

// Probe asks yt-dlp for metadata only; no media is fetched. Transient
// network failures are retried with exponential backoff, structural
// failures are returned immediately.
func (e *Engine) Probe(ctx context.Context, url string) (*Info, error) {
	var info *Info
	op := func() error {
		out, err := e.runProbe(ctx, url)
		if err != nil {
			if errors.Is(err, ErrNetwork) {
				return err
			}
			return backoff.Permanent(err)
		}
		info, err = parseInfo(out)
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), e.ProbeRetries)
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return info, nil
}

func (e *Engine) runProbe(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.ProbeTimeout)
	defer cancel()

	args := []string{"-J", "--no-playlist", "--no-warnings"}
	args = append(args, e.cookieArgs()...)
	args = append(args, url)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, classifyOutput(stderr.String(), err)
	}
	return stdout.Bytes(), nil
}

// probeFormat mirrors one entry of yt-dlp's "formats" array. Numeric
// fields are pointers: yt-dlp emits null for unknowns.
type probeFormat struct {
	FormatID       string   `json:"format_id"`
	Ext            string   `json:"ext"`
	Height         *int     `json:"height"`
	FPS            *float64 `json:"fps"`
	ABR            *float64 `json:"abr"`
	TBR            *float64 `json:"tbr"`
	VCodec         string   `json:"vcodec"`
	ACodec         string   `json:"acodec"`
	Filesize       *int64   `json:"filesize"`
	FilesizeApprox *int64   `json:"filesize_approx"`
}

type probePayload struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Uploader  string        `json:"uploader"`
	Thumbnail string        `json:"thumbnail"`
	Duration  float64       `json:"duration"`
	Formats   []probeFormat `json:"formats"`
}

func parseInfo(raw []byte) (*Info, error) {
	var p probePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: bad probe JSON: %v", ErrExtraction, err)
	}
	info := &Info{
		ID:        p.ID,
		Title:     p.Title,
		Uploader:  p.Uploader,
		Thumbnail: p.Thumbnail,
		Duration:  int(p.Duration),
	}
	for _, f := range p.Formats {
		if f.FormatID == "" || f.Ext == "mhtml" {
			continue // storyboards and other non-media entries
		}
		s := RawStream{
			FormatID: f.FormatID,
			Ext:      f.Ext,
			VCodec:   f.VCodec,
			ACodec:   f.ACodec,
		}
		if f.Height != nil {
			s.Height = *f.Height
		}
		if f.FPS != nil {
			s.FPS = *f.FPS
		}
		if f.ABR != nil {
			s.ABR = *f.ABR
		}
		if f.TBR != nil {
			s.TBR = *f.TBR
		}
		if f.Filesize != nil {
			s.Filesize = *f.Filesize
		}
		if f.FilesizeApprox != nil {
			s.FilesizeApprox = *f.FilesizeApprox
		}
		if !s.HasAudio() && !s.HasVideo() {
			continue
		}
		info.Streams = append(info.Streams, s)
	}
	if len(info.Streams) == 0 {
		return nil, ErrNoFormats
	}
	return info, nil
}
