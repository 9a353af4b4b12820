package report

import (
	"fmt"
	"strings"
)

const placeholder = "<data>"

// RenderLine renders a single event without indentation.
func RenderLine(ev Event) string {
	tmpl, ok := templates[ev.Code]
	if !ok {
		return fallbackLine(ev)
	}
	var b strings.Builder
	args := ev.Args
	for {
		idx := strings.Index(tmpl, placeholder)
		if idx < 0 {
			b.WriteString(tmpl)
			break
		}
		b.WriteString(tmpl[:idx])
		if len(args) > 0 {
			b.WriteString(args[0].String())
			args = args[1:]
		} else {
			b.WriteString("?")
		}
		tmpl = tmpl[idx+len(placeholder):]
	}
	return b.String()
}

// Render joins events into text, honouring indentation and suppressed newlines.
func Render(events []Event) string {
	var b strings.Builder
	continuing := false
	for _, ev := range events {
		if !continuing {
			b.WriteString(strings.Repeat("  ", ev.Indent))
		}
		b.WriteString(RenderLine(ev))
		continuing = ev.NoNewline
		if !continuing {
			b.WriteByte('\n')
		}
	}
	if continuing {
		b.WriteByte('\n')
	}
	return b.String()
}

func fallbackLine(ev Event) string {
	parts := make([]string, 0, len(ev.Args)+1)
	parts = append(parts, fmt.Sprintf("[%d]", ev.Code))
	for _, arg := range ev.Args {
		parts = append(parts, arg.String())
	}
	return strings.Join(parts, " ")
}
