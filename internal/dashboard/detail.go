package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/smileynet/ledgerdeck/internal/entity"
	"github.com/smileynet/ledgerdeck/internal/ledger"
)

// renderDetail renders a record for the detail pane: the page's columns as
// labelled fields, then the full record as indented JSON.
func renderDetail(def entity.Definition, r ledger.Record, currentAccount string) string {
	var b strings.Builder
	b.WriteString(headerText.Render(def.Title + " · " + r.RecordID()))
	b.WriteString("\n\n")

	values := def.Row(r)
	for i, c := range def.Columns {
		fmt.Fprintf(&b, "%-12s %s\n", c.Title+":", values[i])
	}

	if def.Switchable {
		b.WriteByte('\n')
		if r.RecordID() == currentAccount {
			b.WriteString(mutedText.Render("current account"))
		} else {
			b.WriteString(mutedText.Render("enter: switch to this account"))
		}
		b.WriteByte('\n')
	}

	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		fmt.Fprintf(&b, "\n%s\n", errorText.Render(err.Error()))
		return b.String()
	}
	b.WriteByte('\n')
	b.Write(raw)
	return b.String()
}
