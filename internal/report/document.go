package report

// Document is the renderer's output: an ordered sequence of blocks.
// It is platform-agnostic; the Slack package serializes it to Block
// Kit, and any other rendering surface can walk the same tree.
type Document struct {
	Blocks []Block
}

// BlockKind distinguishes a plain paragraph line from a bullet list.
type BlockKind int

const (
	// KindSection is a single standalone line (e.g. the "Updates:"
	// header).
	KindSection BlockKind = iota
	// KindList is a bulleted list at one indent level.
	KindList
)

// Block is either one section line or a bullet list of lines at a
// given indent depth (0 = section bullets, 1 = item bullets,
// 2 = sub-item bullets). Indent is presentational depth only; the
// contract is relative nesting, not literal values.
type Block struct {
	Kind   BlockKind
	Indent int
	Lines  []Line
}

// Line is an ordered run list making up one bullet or section line.
type Line struct {
	Runs []Run
}

// Run is a styled text fragment. A non-empty URL makes it a link whose
// visible text is Text.
type Run struct {
	Text   string
	URL    string
	Bold   bool
	Italic bool
}

// text creates a plain text run.
func text(t string) Run { return Run{Text: t} }

// bold creates a bold text run.
func bold(t string) Run { return Run{Text: t, Bold: true} }

// italic creates an italic text run.
func italic(t string) Run { return Run{Text: t, Italic: true} }

// link creates a link run with visible text t.
func link(url, t string) Run { return Run{Text: t, URL: url} }

// line assembles a Line, dropping empty text runs. A line that would
// end up empty gets a single space placeholder so no rendering surface
// ever receives an empty text node.
func line(runs ...Run) Line {
	cleaned := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.URL == "" && r.Text == "" {
			continue
		}
		cleaned = append(cleaned, r)
	}
	if len(cleaned) == 0 {
		cleaned = []Run{text(" ")}
	}
	return Line{Runs: cleaned}
}

// section appends a standalone line block.
func (d *Document) section(runs ...Run) {
	d.Blocks = append(d.Blocks, Block{Kind: KindSection, Lines: []Line{line(runs...)}})
}

// list appends a bullet list block at the given indent.
func (d *Document) list(indent int, lines ...Line) {
	if len(lines) == 0 {
		return
	}
	d.Blocks = append(d.Blocks, Block{Kind: KindList, Indent: indent, Lines: lines})
}
