package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/yolodolo42/txagent/internal/agent"
	"github.com/yolodolo42/txagent/internal/ui"
	"golang.org/x/term"
)

const defaultWidth = 120

// terminalWidth falls back to defaultWidth when stdout is not a terminal.
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

func renderBlocks(width int, blocks []agent.UIBlock) string {
	if len(blocks) == 0 {
		return ""
	}

	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		switch blk.Kind {
		case agent.UIBlockTable:
			if blk.Table != nil {
				b.WriteString(renderTable(width, blk.Table))
			}
		case agent.UIBlockKV:
			if blk.KV != nil {
				b.WriteString(renderKV(width, blk.KV))
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderKV(width int, kv *agent.UIKV) string {
	var b strings.Builder
	if kv.Title != "" {
		b.WriteString(kv.Title)
		b.WriteString("\n")
	}
	maxKey := 0
	for _, it := range kv.Items {
		if len(it.Key) > maxKey {
			maxKey = len(it.Key)
		}
	}
	if maxKey > 24 {
		maxKey = 24
	}

	for _, it := range kv.Items {
		key := truncate(it.Key, maxKey)
		line := fmt.Sprintf("%-*s  %s", maxKey, key, it.Value)
		b.WriteString(truncate(line, width))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTable(width int, t *agent.UITable) string {
	cols := len(t.Headers)
	if cols == 0 {
		return ""
	}

	colW := make([]int, cols)
	for c := 0; c < cols; c++ {
		colW[c] = len(t.Headers[c])
	}
	for _, row := range t.Rows {
		for c := 0; c < cols && c < len(row); c++ {
			if l := len(row[c]); l > colW[c] {
				colW[c] = l
			}
		}
	}

	// shrink the rightmost wide column first until the table fits
	const sep = 3
	avail := width
	if avail < 20 {
		avail = 20
	}
	for totalWidth(colW, sep) > avail {
		shrunk := false
		for c := cols - 1; c >= 0; c-- {
			if colW[c] > 6 {
				colW[c]--
				shrunk = true
				break
			}
		}
		if !shrunk {
			break
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString(t.Title)
		b.WriteString("\n")
	}

	b.WriteString(renderTableRow(t.Headers, colW))
	b.WriteString("\n")
	b.WriteString(renderTableSep(colW, sep))
	for _, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(renderTableRow(row, colW))
	}
	return b.String()
}

func totalWidth(colW []int, sep int) int {
	total := sep * (len(colW) - 1)
	for _, w := range colW {
		total += w
	}
	return total
}

func renderTableSep(colW []int, sep int) string {
	var b strings.Builder
	for c, w := range colW {
		if c > 0 {
			b.WriteString(strings.Repeat("-", sep))
		}
		b.WriteString(strings.Repeat("-", w))
	}
	return b.String()
}

func renderTableRow(cells []string, colW []int) string {
	var b strings.Builder
	for c, w := range colW {
		if c > 0 {
			b.WriteString(" | ")
		}
		val := ""
		if c < len(cells) {
			val = cells[c]
		}
		b.WriteString(padRight(truncate(val, w), w))
	}
	return strings.TrimRight(b.String(), " ")
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

func truncate(s string, w int) string {
	if w <= 0 || len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-3] + "..."
}

// renderEvents prints a chat turn: tool calls, their results, then the reply.
func renderEvents(width int, events []agent.ChatEvent) string {
	var b strings.Builder
	for _, ev := range events {
		switch ev.Type {
		case "tool_call":
			b.WriteString(ui.ToolCallStyle.Render(ui.SymbolArrow+" "+ev.Tool) + " " + ui.ToolResultStyle.Render(truncate(ev.Args, width-len(ev.Tool)-3)))
		case "tool_result":
			switch {
			case ev.IsError:
				b.WriteString(ui.ErrorStyle.Render("  " + ui.SymbolTree + " " + ui.SymbolCross + " " + ev.Content))
			case len(ev.Blocks) > 0:
				b.WriteString(indent(renderBlocks(width-4, ev.Blocks), "    "))
			default:
				b.WriteString(ui.ToolResultStyle.Render("  " + ui.SymbolTree + " " + truncate(ev.Content, width-4)))
			}
		case "content":
			b.WriteString(ev.Content)
		default:
			continue
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
