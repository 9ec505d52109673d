package tui

import (
	"strings"

	"github.com/alkime/storytime/internal/render"
	"github.com/alkime/storytime/internal/story"
	"github.com/alkime/storytime/internal/tui/style"
)

const emptyListText = "No stories yet. Record one!"

// renderList draws at most rows stories, scrolled to keep the cursor visible.
func renderList(stories []story.Summary, cursor, rows int) string {
	if len(stories) == 0 {
		return style.Muted.Render(emptyListText)
	}

	rows = max(rows, 1)
	first := 0
	if cursor >= rows {
		first = cursor - rows + 1
	}
	last := min(first+rows, len(stories))

	var sb strings.Builder
	for i := first; i < last; i++ {
		if i > first {
			sb.WriteString("\n")
		}

		s := stories[i]
		title := s.Title
		if title == "" {
			title = "Untitled"
		}

		if i == cursor {
			sb.WriteString(style.Bullet.Render("> "))
			sb.WriteString(style.Selected.Render(title))
		} else {
			sb.WriteString("  ")
			sb.WriteString(title)
		}

		if date := render.FormatDate(s.CreatedAt); date != "" {
			sb.WriteString("  ")
			sb.WriteString(style.Subtitle.Render(date))
		}
	}

	return sb.String()
}
