package dashboard

import "github.com/charmbracelet/bubbles/help"

// HelpBindings returns the help.KeyMap for the current input mode,
// providing context-aware help bar content.
func HelpBindings(searching, switchable bool) help.KeyMap {
	if searching {
		return SearchKeyMap()
	}
	return BrowseKeyMap(switchable)
}
