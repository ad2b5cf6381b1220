package report

import "strings"

// Text renders a document as indented plain-text bullets, for the CLI
// preview and logs.
func (d Document) Text() string {
	var b strings.Builder
	for _, blk := range d.Blocks {
		for _, ln := range blk.Lines {
			if blk.Kind == KindList {
				b.WriteString(strings.Repeat("  ", blk.Indent+1))
				b.WriteString("- ")
			}
			for _, r := range ln.Runs {
				b.WriteString(r.Text)
				if r.URL != "" && r.Text != r.URL {
					b.WriteString(" (")
					b.WriteString(r.URL)
					b.WriteString(")")
				}
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
