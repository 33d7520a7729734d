package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v3"

	"ytgrabber/downloader"
)

// Matches watch/short/live/embed and youtu.be forms; the 11-char ID is
// what yt-dlp ultimately needs.
var youtubeRE = regexp.MustCompile(`https?://(?:www\.|m\.)?(?:youtube\.com/(?:watch\?\S*?v=|shorts/|live/|embed/)|youtu\.be/)[A-Za-z0-9_-]{11}\S*`)

const helpText = `🎬 Send me a YouTube link and pick a format — I will download it and send it back as video or audio.

Commands:
/settings — max resolution and audio profile
/audio — toggle audio mode (links go straight to audio options)
/help — this message`

func (b *Bot) onHelp(c tele.Context) error {
	return c.Send(helpText)
}

func (b *Bot) onText(c tele.Context) error {
	url := youtubeRE.FindString(c.Text())
	if url == "" {
		if c.Chat().Type == tele.ChatPrivate {
			return c.Send("Please send a YouTube link (youtube.com/watch?v=… or youtu.be/…).")
		}
		return nil // stay quiet in groups
	}

	dir := filepath.Join(b.cfg.WorkDir, uuid.New().String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("create scratch dir: %v", err)
		return c.Send("❌ Internal error, try again later.")
	}

	job, err := b.jobs.Begin(c.Chat().ID, c.Message().ID, c.Sender().ID, url, dir)
	if err != nil {
		os.RemoveAll(dir)
		if errors.Is(err, ErrChatBusy) {
			return c.Reply("⏳ One download at a time — finish or cancel the current one first.")
		}
		return err
	}

	status, err := b.api.Send(c.Chat(), "⏳ Fetching video info…")
	if err == nil {
		b.jobs.SetStatus(job.Key, status)
	}

	go b.runProbe(job)
	return nil
}

func (b *Bot) runProbe(job *Job) {
	info, err := b.engine.Probe(context.Background(), job.URL)
	if err != nil {
		log.Printf("probe %s: %v", job.URL, err)
		b.fail(job, err)
		return
	}

	st := b.settings.Get(job.UserID)
	audio, video := downloader.Rank(info)
	video = downloader.FilterByHeight(video, st.MaxHeight)
	if len(audio) == 0 && len(video) == 0 {
		b.fail(job, downloader.ErrNoFormats)
		return
	}

	if err := b.jobs.Ready(job.Key, info, audio, video); err != nil {
		return // reaped while probing; janitor already tore it down
	}

	header := jobHeader(job)
	if st.AudioFirst && len(audio) > 0 {
		b.editStatus(job, header+"\n\nPick an audio format:", optionsKeyboard(kindAudio, job.Key.Message, audio))
		return
	}
	b.editStatus(job, header+"\n\nWhat should I fetch?", categoryKeyboard(job.Key.Message, len(audio), len(video)))
}

func (b *Bot) onCategory(c tele.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return c.Respond(&tele.CallbackResponse{Text: "This menu is no longer valid."})
	}
	msgID, err := strconv.Atoi(args[1])
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "This menu is no longer valid."})
	}
	key := JobKey{Chat: c.Chat().ID, Message: msgID}
	job, ok := b.jobs.View(key)
	if !ok || job.State != StateAwaitingSelection {
		return c.Respond(&tele.CallbackResponse{Text: "This menu is no longer valid."})
	}

	list := job.Video
	prompt := "Pick a video format:"
	if args[0] == kindAudio {
		list = job.Audio
		prompt = "Pick an audio format:"
	}
	if err := c.Edit(jobHeader(&job)+"\n\n"+prompt, optionsKeyboard(args[0], msgID, list), tele.ModeHTML); err != nil {
		log.Printf("edit category menu: %v", err)
	}
	return c.Respond()
}

func (b *Bot) onPick(c tele.Context) error {
	audioKind, msgID, idx, err := decodePick(c.Args())
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Option no longer valid."})
	}
	key := JobKey{Chat: c.Chat().ID, Message: msgID}

	opt, err := b.jobs.Option(key, audioKind, idx)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Option no longer valid."})
	}

	if err := b.checkSize(opt); err != nil {
		return c.Respond(&tele.CallbackResponse{
			Text: fmt.Sprintf("~%.0f MB exceeds the %d MB upload limit — pick a smaller option.",
				float64(opt.Size)/(1<<20), b.cfg.MaxUploadBytes/(1<<20)),
			ShowAlert: true,
		})
	}

	profile := b.settings.Get(c.Sender().ID).Profile
	job, err := b.jobs.Bind(key, opt, audioKind, profile)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Already in progress."})
	}

	go b.runDownload(job)
	return c.Respond(&tele.CallbackResponse{Text: "Starting download…"})
}

func (b *Bot) runDownload(job *Job) {
	defer b.teardown(job)

	b.editStatus(job, fmt.Sprintf("⬇️ <b>%s</b>\nstarting…", html.EscapeString(job.Title)))

	req := downloader.Request{
		URL:       job.URL,
		Selector:  job.Chosen.Selector,
		Dir:       job.Dir,
		AudioOnly: job.AudioOnly,
		Profile:   job.Profile,
	}

	var lastEdit time.Time
	var lastPct int
	res, err := b.engine.Download(context.Background(), req, func(p downloader.Progress) {
		if p.Finished {
			b.editStatus(job, fmt.Sprintf("🔧 <b>%s</b>\nprocessing…", html.EscapeString(job.Title)))
			return
		}
		pct := progressPct(p)
		if time.Since(lastEdit) < 2*time.Second && pct-lastPct < 5 {
			return
		}
		lastEdit, lastPct = time.Now(), pct
		b.editStatus(job, progressText(job.Title, p))
	})
	if err != nil {
		log.Printf("download %s (%s): %v", job.URL, job.Chosen.Selector, err)
		b.jobs.SetState(job.Key, StateFailed)
		b.send(job.Key.Chat, "❌ "+userMessage(err))
		return
	}

	b.jobs.SetState(job.Key, StateDelivering)
	if err := b.deliver(job, res); err != nil {
		log.Printf("deliver %s: %v", res.Path, err)
		b.jobs.SetState(job.Key, StateFailed)
		b.send(job.Key.Chat, "❌ "+userMessage(err))
		return
	}
	b.jobs.SetState(job.Key, StateDone)
}

func (b *Bot) onCancel(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Respond(&tele.CallbackResponse{Text: "Nothing to cancel."})
	}
	msgID, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Nothing to cancel."})
	}
	job, err := b.jobs.Cancel(JobKey{Chat: c.Chat().ID, Message: msgID})
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Nothing to cancel — no selection pending."})
	}
	b.teardown(job)
	return c.Respond(&tele.CallbackResponse{Text: "Cancelled."})
}

func (b *Bot) onSettings(c tele.Context) error {
	st := b.settings.Get(c.Sender().ID)
	return c.Send("⚙️ <b>Settings</b>\nMax video resolution, audio extraction profile:",
		settingsKeyboard(st), tele.ModeHTML)
}

func (b *Bot) onAudioMode(c tele.Context) error {
	if b.settings.ToggleAudioFirst(c.Sender().ID) {
		return c.Send("🎵 Audio mode on — links now go straight to audio options. /audio to switch back.")
	}
	return c.Send("🎥 Audio mode off — you get the full format menu again.")
}

func (b *Bot) onSetResolution(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Respond()
	}
	h, err := strconv.Atoi(args[0])
	if err != nil {
		return c.Respond()
	}
	b.settings.SetMaxHeight(c.Sender().ID, h)
	if err := c.Edit(settingsKeyboard(b.settings.Get(c.Sender().ID))); err != nil {
		log.Printf("edit settings keyboard: %v", err)
	}
	return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("Max resolution: %dp", h)})
}

func (b *Bot) onSetProfile(c tele.Context) error {
	args := c.Args()
	if len(args) != 1 {
		return c.Respond()
	}
	p := downloader.AudioProfile(args[0])
	if !p.Valid() {
		return c.Respond()
	}
	b.settings.SetProfile(c.Sender().ID, p)
	if err := c.Edit(settingsKeyboard(b.settings.Get(c.Sender().ID))); err != nil {
		log.Printf("edit settings keyboard: %v", err)
	}
	return c.Respond(&tele.CallbackResponse{Text: "Audio profile: " + string(p)})
}

// checkSize refuses an option before it gets bound, so the job stays in
// AwaitingSelection and the user can pick again. Size 0 means unknown and
// is let through; the real file is re-checked before upload.
func (b *Bot) checkSize(opt downloader.Option) error {
	if opt.Size > 0 && opt.Size > b.cfg.MaxUploadBytes {
		return ErrTooLarge
	}
	return nil
}

// fail reports a user-facing error and tears the job down the same way the
// success path does.
func (b *Bot) fail(job *Job, err error) {
	b.jobs.SetState(job.Key, StateFailed)
	b.send(job.Key.Chat, "❌ "+userMessage(err))
	b.teardown(job)
}

// editStatus updates the job's single progress message in place,
// creating it lazily if the original send failed or the user deleted it.
// Edits are best-effort: a failure here never aborts the job.
func (b *Bot) editStatus(job *Job, text string, extra ...interface{}) {
	if job.Status == nil {
		msg, err := b.api.Send(tele.ChatID(job.Key.Chat), text, append(extra, tele.ModeHTML)...)
		if err != nil {
			log.Printf("send status message: %v", err)
			return
		}
		b.jobs.SetStatus(job.Key, msg)
		return
	}
	if _, err := b.api.Edit(job.Status, text, append(extra, tele.ModeHTML)...); err != nil {
		log.Printf("edit status message: %v", err)
	}
}

func (b *Bot) send(chat int64, text string) {
	if _, err := b.api.Send(tele.ChatID(chat), text); err != nil {
		log.Printf("send to %d: %v", chat, err)
	}
}

func jobHeader(job *Job) string {
	h := "<b>" + html.EscapeString(job.Title) + "</b>"
	if job.Uploader != "" {
		h += "\n👤 " + html.EscapeString(job.Uploader)
	}
	if job.Duration > 0 {
		h += "  ·  ⏱ " + fmtDuration(job.Duration)
	}
	return h
}

func fmtDuration(sec int) string {
	if sec >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", sec/3600, sec%3600/60, sec%60)
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func progressPct(p downloader.Progress) int {
	if p.Total <= 0 {
		return 0
	}
	return int(p.Downloaded * 100 / p.Total)
}

func progressText(title string, p downloader.Progress) string {
	name := html.EscapeString(title)
	if p.Total > 0 {
		return fmt.Sprintf("⬇️ <b>%s</b>\n%d%% (%.1f / %.1f MB)",
			name, progressPct(p), float64(p.Downloaded)/(1<<20), float64(p.Total)/(1<<20))
	}
	return fmt.Sprintf("⬇️ <b>%s</b>\n%.1f MB so far", name, float64(p.Downloaded)/(1<<20))
}

// userMessage flattens the error taxonomy into one chat-sized line.
func userMessage(err error) string {
	switch {
	case errors.Is(err, downloader.ErrNetwork):
		return "Network trouble reaching YouTube — try again in a minute."
	case errors.Is(err, downloader.ErrNoFormats):
		return "No downloadable formats found for this video."
	case errors.Is(err, downloader.ErrExtraction):
		return "Couldn't read this video (private, removed or region-locked): " + trailer(err)
	case errors.Is(err, ErrTooLarge):
		return "The file came out bigger than Telegram allows — pick a smaller option."
	default:
		return "Something went wrong: " + trailer(err)
	}
}

// trailer keeps the raw error chat-sized.
func trailer(err error) string {
	msg := err.Error()
	if len(msg) > 200 {
		msg = msg[:200] + "…"
	}
	return msg
}
