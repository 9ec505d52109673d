// Package render turns a story into a terminal view.
//
// A view is a pure function of the story and a reveal mode. Instant views show
// every panel at once. Staggered views start with every panel hidden and
// publish a schedule of reveals, one per panel, offset from the moment the view
// was rendered. The caller owns the clock: it fires each Reveal when its delay
// elapses, and reveals for a closed view do nothing.
package render

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alkime/storytime/internal/story"
	"github.com/alkime/storytime/internal/tui/style"
	"github.com/charmbracelet/lipgloss"
)

// Mode selects how panels appear.
type Mode int

const (
	// Instant shows all panels immediately. Used for saved stories.
	Instant Mode = iota
	// Staggered reveals panel i at RevealStep * i. Used for new stories.
	Staggered
)

func (m Mode) String() string {
	switch m {
	case Instant:
		return "instant"
	case Staggered:
		return "staggered"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// RevealStep is the offset between consecutive panel reveals.
const RevealStep = 700 * time.Millisecond

const (
	defaultWidth = 80
	dateLayout   = "Jan 2, 2006 3:04 PM"
)

// ViewID identifies one rendering. Every call to Render yields a new id.
type ViewID uint64

var lastViewID atomic.Uint64

// Reveal is a scheduled panel reveal.
type Reveal struct {
	View  ViewID
	Index int
	Delay time.Duration
}

// View is a rendered story. It is not safe for concurrent use; the TUI
// touches it only from its update loop.
type View struct {
	id      ViewID
	story   story.Story
	mode    Mode
	visible []bool
	closed  bool
	resolve func(string) string
}

// Option customizes Render.
type Option func(*View)

// WithURLResolver rewrites audio and image locators before display.
func WithURLResolver(resolve func(string) string) Option {
	return func(v *View) {
		if resolve != nil {
			v.resolve = resolve
		}
	}
}

// Render builds a view of s in the given mode.
func Render(s story.Story, mode Mode, opts ...Option) *View {
	v := &View{
		id:      ViewID(lastViewID.Add(1)),
		story:   s.Clone(),
		mode:    mode,
		visible: make([]bool, len(s.Panels)),
		resolve: func(ref string) string { return ref },
	}

	for _, opt := range opts {
		opt(v)
	}

	if mode != Staggered {
		for i := range v.visible {
			v.visible[i] = true
		}
	}

	return v
}

func (v *View) ID() ViewID { return v.id }

func (v *View) Mode() Mode { return v.mode }

// Story returns a copy of the rendered story.
func (v *View) Story() story.Story { return v.story.Clone() }

// Schedule lists the reveals a staggered view needs, in panel order. Each
// reveal is independent of the others. Instant views need none.
func (v *View) Schedule() []Reveal {
	if v.mode != Staggered || v.closed {
		return nil
	}

	reveals := make([]Reveal, 0, len(v.visible))
	for i := range v.visible {
		reveals = append(reveals, Reveal{
			View:  v.id,
			Index: i,
			Delay: RevealStep * time.Duration(i),
		})
	}

	return reveals
}

// Reveal shows panel i. It reports whether anything changed; reveals for a
// closed view, an unknown panel, or an already visible panel are no-ops.
func (v *View) Reveal(i int) bool {
	if v.closed || i < 0 || i >= len(v.visible) || v.visible[i] {
		return false
	}

	v.visible[i] = true

	return true
}

// Apply fires r if it belongs to this view.
func (v *View) Apply(r Reveal) bool {
	if r.View != v.id {
		return false
	}

	return v.Reveal(r.Index)
}

// Visible reports whether panel i is shown.
func (v *View) Visible(i int) bool {
	if i < 0 || i >= len(v.visible) {
		return false
	}

	return v.visible[i]
}

// Revealed counts the visible panels.
func (v *View) Revealed() int {
	n := 0
	for _, shown := range v.visible {
		if shown {
			n++
		}
	}

	return n
}

// Close cancels every pending reveal.
func (v *View) Close() {
	v.closed = true
}

func (v *View) Closed() bool { return v.closed }

// Content draws the view at the given width.
func (v *View) Content(width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	var b strings.Builder

	b.WriteString(style.Title.Render(v.story.Title))
	b.WriteString("\n")

	if date := FormatDate(v.story.CreatedAt); date != "" {
		b.WriteString(style.Subtitle.Render(date))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(style.Label.Render("Audio: "))
	if audio := v.resolve(v.story.AudioURL); audio != "" {
		b.WriteString(style.Muted.Render(audio))
	} else {
		b.WriteString(style.Muted.Render("(none)"))
	}
	b.WriteString("\n\n")

	b.WriteString(style.Label.Render("Transcript"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(v.story.Transcript))
	b.WriteString("\n")

	for i, p := range v.story.Panels {
		b.WriteString("\n")
		b.WriteString(v.panel(i, p, width))
	}

	return b.String()
}

func (v *View) panel(i int, p story.Panel, width int) string {
	// borders take two columns
	inner := max(width-2, 10)

	shown := style.Panel.Width(inner).Render(lipgloss.JoinVertical(lipgloss.Left,
		style.Label.Render(fmt.Sprintf("Panel %d", i+1)),
		style.Muted.Render(v.resolve(p.ImageURL)),
		p.CaptionText,
	))

	if v.visible[i] {
		return shown
	}

	// keep the panel's footprint so later reveals do not shift the layout
	blank := make([]string, lipgloss.Height(shown))
	for j := range blank {
		blank[j] = strings.Repeat(" ", lipgloss.Width(shown))
	}

	return strings.Join(blank, "\n")
}

// FormatDate formats a creation time for display in local time.
func FormatDate(ts story.Timestamp) string {
	if ts.IsZero() {
		return ""
	}

	return ts.Local().Format(dateLayout)
}
