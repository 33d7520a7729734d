package bot

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"ytgrabber/downloader"
)

// Callback uniques. Payloads ride in Btn.Data as "|"-joined fields; telebot
// hands them back through Context.Args.
const (
	cbCategory = "grab_cat"
	cbPick     = "grab_pick"
	cbCancel   = "grab_cancel"
	cbRes      = "grab_res"
	cbProfile  = "grab_prof"
)

const (
	kindAudio = "a"
	kindVideo = "v"
)

// Buttons per keyboard row.
const optionColumns = 3

// Options shown per category. The ranked list can be long; everything past
// this is noise the user would have to scroll past anyway.
const maxOptions = 12

var resolutionChoices = []int{480, 720, 1080, 2160}

// categoryKeyboard offers the two option categories for a probed job.
func categoryKeyboard(msgID int, audioN, videoN int) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	id := strconv.Itoa(msgID)
	var rows []tele.Row
	if videoN > 0 {
		rows = append(rows, rm.Row(rm.Data(fmt.Sprintf("🎥 Video (%d)", videoN), cbCategory, kindVideo, id)))
	}
	if audioN > 0 {
		rows = append(rows, rm.Row(rm.Data(fmt.Sprintf("🎵 Audio (%d)", audioN), cbCategory, kindAudio, id)))
	}
	rows = append(rows, rm.Row(rm.Data("❌ Cancel", cbCancel, id)))
	rm.Inline(rows...)
	return rm
}

// optionsKeyboard renders one category as a grid, three buttons per row,
// with a trailing cancel control. Button payloads carry (kind, message id,
// option index); the index resolves against the stored list, never a
// re-probe.
func optionsKeyboard(kind string, msgID int, opts []downloader.Option) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	id := strconv.Itoa(msgID)
	n := len(opts)
	if n > maxOptions {
		n = maxOptions
	}
	btns := make([]tele.Btn, 0, n)
	for i := 0; i < n; i++ {
		btns = append(btns, rm.Data(opts[i].Label, cbPick, kind, id, strconv.Itoa(i)))
	}
	rows := rm.Split(optionColumns, btns)
	rows = append(rows, rm.Row(rm.Data("❌ Cancel", cbCancel, id)))
	rm.Inline(rows...)
	return rm
}

// settingsKeyboard marks the active choices with a dot.
func settingsKeyboard(st Settings) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	resBtns := make([]tele.Btn, 0, len(resolutionChoices))
	for _, h := range resolutionChoices {
		label := fmt.Sprintf("%dp", h)
		if h == st.MaxHeight {
			label = "• " + label
		}
		resBtns = append(resBtns, rm.Data(label, cbRes, strconv.Itoa(h)))
	}
	profBtns := make([]tele.Btn, 0, len(downloader.AudioProfiles))
	for _, p := range downloader.AudioProfiles {
		label := string(p)
		if p == st.Profile {
			label = "• " + label
		}
		profBtns = append(profBtns, rm.Data(label, cbProfile, string(p)))
	}
	rows := []tele.Row{rm.Row(resBtns...)}
	rows = append(rows, rm.Split(2, profBtns)...)
	rm.Inline(rows...)
	return rm
}

// decodePick parses a pick payload back into (audio?, message id, index).
func decodePick(args []string) (audioKind bool, msgID, idx int, err error) {
	if len(args) != 3 {
		return false, 0, 0, ErrStale
	}
	switch args[0] {
	case kindAudio:
		audioKind = true
	case kindVideo:
		audioKind = false
	default:
		return false, 0, 0, ErrStale
	}
	if msgID, err = strconv.Atoi(args[1]); err != nil {
		return false, 0, 0, ErrStale
	}
	if idx, err = strconv.Atoi(args[2]); err != nil {
		return false, 0, 0, ErrStale
	}
	return audioKind, msgID, idx, nil
}
