package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Connect   key.Binding
	Refresh   key.Binding
	Form      key.Binding
	Repay     key.Binding
	Activity  key.Binding
	NextField key.Binding
	PrevField key.Binding
	Submit    key.Binding
	Back      key.Binding
	UpDown    key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Connect:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		Refresh:   key.NewBinding(key.WithKeys("R", "ctrl+r"), key.WithHelp("R", "refresh")),
		Form:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new request")),
		Repay:     key.NewBinding(key.WithKeys("p", "enter"), key.WithHelp("p", "repay")),
		Activity:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "activity")),
		NextField: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev field")),
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		UpDown:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("j/k", "navigate")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) listHelp() []key.Binding {
	return []key.Binding{k.Form, k.Repay, k.Refresh, k.Activity, k.UpDown, k.Quit}
}

func (k keyMap) formHelp() []key.Binding {
	return []key.Binding{k.NextField, k.Submit, k.Back, k.Quit}
}

func (k keyMap) disconnectedHelp() []key.Binding {
	return []key.Binding{k.Connect, k.Quit}
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		if help.Key == "" && help.Desc == "" {
			continue
		}
		parts = append(parts, boldKey(help.Key)+" "+help.Desc)
	}
	return strings.Join(parts, "  ")
}

func boldKey(text string) string {
	if text == "" {
		return ""
	}
	return "\x1b[1m" + text + "\x1b[22m"
}
