package bot

import (
	"sync"

	"ytgrabber/downloader"
)

// Settings are per-user preferences, created lazily on first interaction
// and living for the process lifetime.
type Settings struct {
	MaxHeight  int
	Profile    downloader.AudioProfile
	AudioFirst bool
}

type SettingsStore struct {
	mu       sync.Mutex
	m        map[int64]Settings
	defaults Settings
}

func NewSettingsStore(defaultMaxHeight int) *SettingsStore {
	if defaultMaxHeight <= 0 {
		defaultMaxHeight = 1080
	}
	return &SettingsStore{
		m: make(map[int64]Settings),
		defaults: Settings{
			MaxHeight: defaultMaxHeight,
			Profile:   downloader.AudioBest,
		},
	}
}

func (s *SettingsStore) Get(userID int64) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.m[userID]; ok {
		return st
	}
	return s.defaults
}

func (s *SettingsStore) SetMaxHeight(userID int64, h int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(userID)
	st.MaxHeight = h
	s.m[userID] = st
}

func (s *SettingsStore) SetProfile(userID int64, p downloader.AudioProfile) {
	if !p.Valid() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(userID)
	st.Profile = p
	s.m[userID] = st
}

// ToggleAudioFirst flips audio mode and reports the new value.
func (s *SettingsStore) ToggleAudioFirst(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(userID)
	st.AudioFirst = !st.AudioFirst
	s.m[userID] = st
	return st.AudioFirst
}

// get must be called with the lock held.
func (s *SettingsStore) get(userID int64) Settings {
	if st, ok := s.m[userID]; ok {
		return st
	}
	return s.defaults
}
