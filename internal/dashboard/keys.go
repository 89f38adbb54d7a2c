package dashboard

import "github.com/charmbracelet/bubbles/key"

// browseKeys holds key bindings for browsing a page.
type browseKeys struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Tab     key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	NextPg  key.Binding
	PrevPg  key.Binding
	Search  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns the browse bindings for the help bar.
func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.PrevTab, k.NextTab, k.PrevPg, k.NextPg, k.Search, k.Refresh, k.Enter, k.Quit}
}

// FullHelp returns the browse bindings grouped for expanded help.
func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Tab},
		{k.PrevTab, k.NextTab, k.PrevPg, k.NextPg},
		{k.Search, k.Refresh, k.Enter, k.Quit},
	}
}

// searchKeys holds key bindings while the search input has focus.
type searchKeys struct {
	Done   key.Binding
	Cancel key.Binding
}

// ShortHelp returns the search bindings for the help bar.
func (k searchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Done, k.Cancel}
}

// FullHelp returns the search bindings grouped for expanded help.
func (k searchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Done, k.Cancel}}
}

// BrowseKeyMap returns the key bindings for browsing. The enter binding is
// only shown on pages whose records can become the current account.
func BrowseKeyMap(switchable bool) browseKeys {
	return browseKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "switch account"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev tab"),
		),
		NextPg: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next page"),
		),
		PrevPg: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prev page"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh all"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}.withSwitch(switchable)
}

func (k browseKeys) withSwitch(enabled bool) browseKeys {
	k.Enter.SetEnabled(enabled)
	return k
}

// SearchKeyMap returns the key bindings for the search input.
func SearchKeyMap() searchKeys {
	return searchKeys{
		Done: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "done"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
	}
}
