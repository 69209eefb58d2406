package tui

import "github.com/charmbracelet/bubbles/key"

// reviewKeys are the review screen bindings. Their help text is the footer.
type reviewKeys struct {
	Quit       key.Binding
	Search     key.Binding
	Match      key.Binding
	ErrorsOnly key.Binding
	Sort       key.Binding
	Detail     key.Binding
	CopyRow    key.Binding
	CopyFix    key.Binding
	Clear      key.Binding
}

var keys = reviewKeys{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Match:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "exposure")),
	ErrorsOnly: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "errors only")),
	Sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Detail:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "detail")),
	CopyRow:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy row")),
	CopyFix:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "copy fix")),
	Clear:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
}

// ShortHelp implements help.KeyMap.
func (k reviewKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Search, k.Match, k.ErrorsOnly, k.Sort, k.Detail, k.CopyRow, k.CopyFix, k.Clear}
}

// FullHelp implements help.KeyMap.
func (k reviewKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Search, k.Match, k.ErrorsOnly, k.Clear},
		{k.Sort, k.Detail},
		{k.CopyRow, k.CopyFix, k.Quit},
	}
}
