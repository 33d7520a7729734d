package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ytgrabber/downloader"
)

func TestSettingsDefaults(t *testing.T) {
	s := NewSettingsStore(0)
	st := s.Get(1)
	assert.Equal(t, 1080, st.MaxHeight)
	assert.Equal(t, downloader.AudioBest, st.Profile)
	assert.False(t, st.AudioFirst)
}

func TestSettingsMutationIsPerUser(t *testing.T) {
	s := NewSettingsStore(1080)
	s.SetMaxHeight(1, 720)
	s.SetProfile(1, downloader.AudioFLAC)

	st := s.Get(1)
	assert.Equal(t, 720, st.MaxHeight)
	assert.Equal(t, downloader.AudioFLAC, st.Profile)

	other := s.Get(2)
	assert.Equal(t, 1080, other.MaxHeight)
	assert.Equal(t, downloader.AudioBest, other.Profile)
}

func TestSettingsRejectsUnknownProfile(t *testing.T) {
	s := NewSettingsStore(0)
	s.SetProfile(1, downloader.AudioProfile("wav-9000"))
	assert.Equal(t, downloader.AudioBest, s.Get(1).Profile)
}

func TestToggleAudioFirst(t *testing.T) {
	s := NewSettingsStore(0)
	assert.True(t, s.ToggleAudioFirst(1))
	assert.True(t, s.Get(1).AudioFirst)
	assert.False(t, s.ToggleAudioFirst(1))
	assert.False(t, s.Get(1).AudioFirst)
}
