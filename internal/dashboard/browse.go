package dashboard

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
	"github.com/smileynet/ledgerdeck/internal/store"
)

// CursorMarker is the prefix shown on the selected row.
const CursorMarker = "▸ "

// pageChrome is the number of list-pane lines used by the header and footer.
const pageChrome = 3

// pageState holds one entity page's latest view and the cursor into it.
type pageState struct {
	def    entity.Definition
	view   entity.View
	cursor int
	mount  uint64
}

func newPageState(def entity.Definition, mount uint64) pageState {
	return pageState{def: def, mount: mount, view: entity.View{Entity: def.Name, Status: store.StatusInitiated, Mount: mount}}
}

// apply replaces the view, keeping the cursor inside the new records.
func (ps pageState) apply(v entity.View) pageState {
	ps.view = v
	if ps.cursor >= len(v.Records) {
		ps.cursor = len(v.Records) - 1
	}
	if ps.cursor < 0 {
		ps.cursor = 0
	}
	return ps
}

// move shifts the cursor by delta, wrapping at both ends.
func (ps pageState) move(delta int) pageState {
	n := len(ps.view.Records)
	if n == 0 {
		return ps
	}
	ps.cursor = ((ps.cursor+delta)%n + n) % n
	return ps
}

// Selected returns the record under the cursor.
func (ps pageState) Selected() (ledger.Record, bool) {
	if ps.cursor < 0 || ps.cursor >= len(ps.view.Records) {
		return nil, false
	}
	return ps.view.Records[ps.cursor], true
}

// loading reports whether a fetch is in flight.
func (ps pageState) loading() bool {
	return ps.view.Status == store.StatusInitiated || ps.view.Status == store.StatusPending
}

// View renders the page for the given dimensions.
// spinnerView is the current spinner frame (may be empty when no fetch is in flight).
func (ps pageState) View(width, height int, spinnerView string) string {
	title := strings.ToLower(ps.def.Title)
	if len(ps.view.Records) == 0 {
		switch {
		case ps.loading():
			return fmt.Sprintf("%s Loading %s...", spinnerView, title)
		case ps.view.Status == store.StatusFailed:
			return errorText.Render("Error: could not load "+title) + "\n\nPress r to retry"
		case ps.view.Query.Search != "":
			return fmt.Sprintf("No %s match %q", title, ps.view.Query.Search)
		default:
			return "No " + title + " found"
		}
	}

	var b strings.Builder
	b.WriteString(headerText.Render(fit(ps.headerRow(), width)))

	rows := height - pageChrome
	if rows < 1 {
		rows = 1
	}
	first := 0
	if ps.cursor >= rows {
		first = ps.cursor - rows + 1
	}
	last := min(first+rows, len(ps.view.Records))
	for i := first; i < last; i++ {
		b.WriteByte('\n')
		marker := "  "
		if i == ps.cursor {
			marker = CursorMarker
		}
		b.WriteString(fit(marker+ps.row(ps.view.Records[i]), width))
	}

	b.WriteString("\n\n")
	b.WriteString(ps.footer(spinnerView))
	return b.String()
}

func (ps pageState) headerRow() string {
	cells := make([]string, len(ps.def.Columns))
	for i, c := range ps.def.Columns {
		cells[i] = cell(c.Title, c.Width)
	}
	return "  " + strings.Join(cells, " ")
}

func (ps pageState) row(r ledger.Record) string {
	values := ps.def.Row(r)
	for i, c := range ps.def.Columns {
		values[i] = cell(values[i], c.Width)
	}
	return strings.Join(values, " ")
}

func (ps pageState) footer(spinnerView string) string {
	p := ps.view.Pagination
	page := fmt.Sprintf("page %d", max(p.Page, 1))
	if p.TotalPages > 0 {
		page = fmt.Sprintf("page %d of %d", max(p.Page, 1), p.TotalPages)
	}
	parts := []string{page, StatusBadge(ps.view.Status)}
	if ps.loading() && spinnerView != "" {
		parts = append(parts, spinnerView)
	}
	if ps.view.Status == store.StatusFailed {
		parts = append(parts, "showing cached data")
	}
	return mutedText.Render(strings.Join(parts, " · "))
}

// cell pads or truncates s to exactly w columns.
func cell(s string, w int) string {
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}

// fit truncates a line to the pane width.
func fit(s string, w int) string {
	if w <= 0 {
		return s
	}
	return runewidth.Truncate(s, w, "…")
}
