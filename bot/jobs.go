package bot

import (
	"errors"
	"sync"
	"time"

	tele "gopkg.in/telebot.v3"

	"ytgrabber/downloader"
)

var (
	// ErrChatBusy rejects a second URL while the chat's job is active.
	ErrChatBusy = errors.New("chat already has an active job")
	// ErrStale means a button no longer refers to a live selection.
	ErrStale = errors.New("selection no longer valid")
	// ErrTooLarge refuses options whose estimate exceeds the upload cap.
	ErrTooLarge = errors.New("estimated size exceeds upload limit")
)

type State int

const (
	StateProbing State = iota
	StateAwaitingSelection
	StateDownloading
	StateDelivering
	StateDone
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProbing:
		return "probing"
	case StateAwaitingSelection:
		return "awaiting-selection"
	case StateDownloading:
		return "downloading"
	case StateDelivering:
		return "delivering"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// JobKey identifies one in-flight request: the chat plus the message that
// carried the URL.
type JobKey struct {
	Chat    int64
	Message int
}

// Job is one user request from URL to delivered file. Fields are written
// through JobStore methods while the job is visible to other goroutines;
// after binding, the download goroutine is the sole writer.
type Job struct {
	Key     JobKey
	UserID  int64
	URL     string
	Dir     string
	State   State
	Created time.Time

	// set by Ready after a successful probe
	Title    string
	Uploader string
	Thumb    string
	Duration int
	Audio    []downloader.Option
	Video    []downloader.Option

	// set once by Bind
	Chosen    *downloader.Option
	AudioOnly bool
	Profile   downloader.AudioProfile

	// the single in-chat status message, edited in place
	Status *tele.Message
}

// JobStore is the process-scoped table of active jobs. All mutation goes
// through its mutex; per-chat single-flight is enforced by the active
// index.
type JobStore struct {
	mu     sync.Mutex
	jobs   map[JobKey]*Job
	active map[int64]JobKey
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs:   make(map[JobKey]*Job),
		active: make(map[int64]JobKey),
	}
}

// Begin registers a new probing job, refusing if the chat already has one.
func (s *JobStore) Begin(chat int64, msgID int, userID int64, url, dir string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.active[chat]; busy {
		return nil, ErrChatBusy
	}
	key := JobKey{Chat: chat, Message: msgID}
	job := &Job{
		Key:     key,
		UserID:  userID,
		URL:     url,
		Dir:     dir,
		State:   StateProbing,
		Created: time.Now(),
	}
	s.jobs[key] = job
	s.active[chat] = key
	return job, nil
}

func (s *JobStore) Get(key JobKey) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	return j, ok
}

// View returns a copy of the job taken under the lock, for read-only use
// by handlers that race with state transitions.
func (s *JobStore) View(key JobKey) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// SetStatus records the lazily created progress message.
func (s *JobStore) SetStatus(key JobKey, msg *tele.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[key]; ok {
		j.Status = msg
	}
}

// Ready moves Probing → AwaitingSelection and stores the ranked options.
// The lists are frozen here; taps resolve by index into them and never
// trigger a re-probe.
func (s *JobStore) Ready(key JobKey, info *downloader.Info, audio, video []downloader.Option) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok || j.State != StateProbing {
		return ErrStale
	}
	j.State = StateAwaitingSelection
	j.Title = info.Title
	j.Uploader = info.Uploader
	j.Thumb = info.Thumbnail
	j.Duration = info.Duration
	j.Audio = audio
	j.Video = video
	return nil
}

// Option resolves a tapped (kind, index) pair against the stored lists.
// Indices are bounds-checked at resolution time: a stale button fails soft.
func (s *JobStore) Option(key JobKey, audioKind bool, idx int) (downloader.Option, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok || j.State != StateAwaitingSelection {
		return downloader.Option{}, ErrStale
	}
	list := j.Video
	if audioKind {
		list = j.Audio
	}
	if idx < 0 || idx >= len(list) {
		return downloader.Option{}, ErrStale
	}
	return list[idx], nil
}

// Bind commits the chosen option and moves AwaitingSelection → Downloading.
// It succeeds at most once per job; a second tap gets ErrStale.
func (s *JobStore) Bind(key JobKey, opt downloader.Option, audioKind bool, profile downloader.AudioProfile) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok || j.State != StateAwaitingSelection {
		return nil, ErrStale
	}
	chosen := opt
	j.Chosen = &chosen
	j.AudioOnly = audioKind
	j.Profile = profile
	j.State = StateDownloading
	return j, nil
}

// SetState advances a bound job along Downloading → Delivering → terminal.
func (s *JobStore) SetState(key JobKey, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[key]; ok {
		j.State = st
	}
}

// Cancel is only honored while the job is awaiting a selection.
func (s *JobStore) Cancel(key JobKey) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[key]
	if !ok || j.State != StateAwaitingSelection {
		return nil, ErrStale
	}
	j.State = StateCancelled
	return j, nil
}

// Remove erases the job and frees the chat's single-flight slot.
func (s *JobStore) Remove(key JobKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[key]; !ok {
		return
	}
	delete(s.jobs, key)
	if cur, ok := s.active[key.Chat]; ok && cur == key {
		delete(s.active, key.Chat)
	}
}

// Expire reaps jobs stuck awaiting a selection past their lifetime and
// returns them for teardown. Downloading jobs are left alone: the engine's
// own timeout bounds those.
func (s *JobStore) Expire(ttl time.Duration, now time.Time) []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*Job
	for _, j := range s.jobs {
		if j.State == StateAwaitingSelection && now.Sub(j.Created) > ttl {
			j.State = StateCancelled
			expired = append(expired, j)
		}
	}
	return expired
}

// Len reports the number of active jobs, for the status endpoint.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
