package bot

import (
	"fmt"
	"html"
	"path/filepath"
	"strings"

	tele "gopkg.in/telebot.v3"

	"ytgrabber/downloader"
)

// deliver uploads the produced file with a caption built from the probed
// metadata. The upload cap is re-checked against the real size: estimates
// lie, and Telegram rejects oversized payloads at the edge anyway.
func (b *Bot) deliver(job *Job, res *downloader.Result) error {
	if res.Size > b.cfg.MaxUploadBytes {
		return fmt.Errorf("%w: file is %.0f MB, cap is %d MB",
			ErrTooLarge, float64(res.Size)/(1<<20), b.cfg.MaxUploadBytes/(1<<20))
	}

	recipient := tele.ChatID(job.Key.Chat)
	caption := deliverCaption(job)

	if job.AudioOnly {
		duration := job.Duration
		if duration == 0 && strings.EqualFold(filepath.Ext(res.Path), ".mp3") {
			if d, err := downloader.AudioDuration(res.Path); err == nil {
				duration = int(d.Seconds())
			}
		}
		audio := &tele.Audio{
			File:      tele.FromDisk(res.Path),
			Title:     job.Title,
			Performer: job.Uploader,
			Duration:  duration,
			Caption:   caption,
			FileName:  filepath.Base(res.Path),
		}
		_, err := b.api.Send(recipient, audio, tele.ModeHTML)
		return err
	}

	video := &tele.Video{
		File:      tele.FromDisk(res.Path),
		Caption:   caption,
		FileName:  filepath.Base(res.Path),
		Duration:  job.Duration,
		Streaming: true,
	}
	if job.Thumb != "" {
		video.Thumbnail = &tele.Photo{File: tele.FromURL(job.Thumb)}
	}
	_, err := b.api.Send(recipient, video, tele.ModeHTML)
	return err
}

func deliverCaption(job *Job) string {
	caption := "<b>" + html.EscapeString(job.Title) + "</b>"
	if job.Uploader != "" {
		caption += "\n👤 " + html.EscapeString(job.Uploader)
	}
	if job.Duration > 0 {
		caption += " · ⏱ " + fmtDuration(job.Duration)
	}
	return caption
}
