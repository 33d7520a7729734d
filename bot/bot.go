// Package bot wires the Telegram surface to the download engine: URL
// recognition, format selection keyboards, the per-message job lifecycle,
// and file delivery.
package bot

import (
	"context"
	"log"
	"os"
	"time"

	tele "gopkg.in/telebot.v3"

	"ytgrabber/downloader"
)

// Grabber is the slice of the download engine the bot needs. Tests swap in
// a fake.
type Grabber interface {
	Probe(ctx context.Context, url string) (*downloader.Info, error)
	Download(ctx context.Context, req downloader.Request, onProgress downloader.ProgressFunc) (*downloader.Result, error)
}

// messenger is the outbound transport surface: sending, editing and
// deleting chat messages. *tele.Bot satisfies it; tests use a recorder.
type messenger interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

type Config struct {
	WorkDir          string
	MaxUploadBytes   int64
	DefaultMaxHeight int
	JobTTL           time.Duration
}

type Bot struct {
	tele     *tele.Bot
	api      messenger
	engine   Grabber
	cfg      Config
	jobs     *JobStore
	settings *SettingsStore
}

func New(tb *tele.Bot, engine Grabber, cfg Config) *Bot {
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 10 * time.Minute
	}
	return &Bot{
		tele:     tb,
		api:      tb,
		engine:   engine,
		cfg:      cfg,
		jobs:     NewJobStore(),
		settings: NewSettingsStore(cfg.DefaultMaxHeight),
	}
}

// Jobs exposes the active-job table for the status endpoint.
func (b *Bot) Jobs() *JobStore { return b.jobs }

// Register installs all command and callback handlers.
func (b *Bot) Register() {
	b.tele.Handle("/start", b.onHelp)
	b.tele.Handle("/help", b.onHelp)
	b.tele.Handle("/settings", b.onSettings)
	b.tele.Handle("/audio", b.onAudioMode)
	b.tele.Handle(tele.OnText, b.onText)

	b.tele.Handle(&tele.Btn{Unique: cbCategory}, b.onCategory)
	b.tele.Handle(&tele.Btn{Unique: cbPick}, b.onPick)
	b.tele.Handle(&tele.Btn{Unique: cbCancel}, b.onCancel)
	b.tele.Handle(&tele.Btn{Unique: cbRes}, b.onSetResolution)
	b.tele.Handle(&tele.Btn{Unique: cbProfile}, b.onSetProfile)
}

// Start runs the janitor and blocks on the poller.
func (b *Bot) Start() {
	go b.janitor()
	b.tele.Start()
}

// janitor enforces the bounded job lifetime: selection menus nobody taps
// are torn down so the chat's single-flight slot is not held forever.
func (b *Bot) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		for _, job := range b.jobs.Expire(b.cfg.JobTTL, time.Now()) {
			log.Printf("job %d/%d expired awaiting selection", job.Key.Chat, job.Key.Message)
			b.teardown(job)
		}
	}
}

// teardown runs on every exit path: Done, Failed, Cancelled and expiry.
// Each step is best-effort; the map entry is always erased.
func (b *Bot) teardown(job *Job) {
	if job.Status != nil {
		if err := b.api.Delete(job.Status); err != nil {
			log.Printf("delete status message %d/%d: %v", job.Key.Chat, job.Status.ID, err)
		}
	}
	if job.Dir != "" {
		if err := os.RemoveAll(job.Dir); err != nil {
			log.Printf("remove scratch dir %s: %v", job.Dir, err)
		}
	}
	b.jobs.Remove(job.Key)
}
