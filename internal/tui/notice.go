package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// noticeTTL is how long a notice stays on screen before auto-dismiss.
const noticeTTL = 3 * time.Second

type noticeLevel string

const (
	noticeSuccess noticeLevel = "success"
	noticeWarning noticeLevel = "warning"
	noticeDanger  noticeLevel = "danger"
)

// notice is the single-slot notification: the latest one overwrites
// whatever was showing.
type notice struct {
	text  string
	level noticeLevel
	seq   int
}

type noticeExpiredMsg struct {
	seq int
}

// setNotice replaces the current notice and returns the expiry tick for
// it. The sequence number keeps a stale timer from clearing a newer
// notice that took the slot in the meantime.
func (a *App) setNotice(level noticeLevel, text string) tea.Cmd {
	a.noticeSeq++
	a.notice = notice{text: text, level: level, seq: a.noticeSeq}
	seq := a.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

func (a *App) clearNotice(seq int) {
	if a.notice.seq == seq {
		a.notice = notice{}
	}
}
