package insight

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// CleanText strips an outer code fence and surrounding whitespace
func CleanText(input string) string {
	cleaned := strings.TrimSpace(input)
	if !strings.HasPrefix(cleaned, "```") || !strings.HasSuffix(cleaned, "```") || len(cleaned) < 6 {
		return cleaned
	}

	cleaned = strings.TrimSuffix(strings.TrimPrefix(cleaned, "```"), "```")
	// drop a language tag such as ```markdown or ```text
	if nl := strings.IndexByte(cleaned, '\n'); nl >= 0 && !strings.ContainsAny(cleaned[:nl], " \t[") {
		cleaned = cleaned[nl+1:]
	}
	return strings.TrimSpace(cleaned)
}

// Section is one "[STATEMENT] ..." block of an analysis
type Section struct {
	Title string
	Items []Item
}

// Item is one "[n] Label: text" line
type Item struct {
	Key   string
	Label string
	Text  string
}

var (
	sectionLine = regexp.MustCompile(`^\s*\[STATEMENT\]\s*(.+?)\s*$`)
	itemLine    = regexp.MustCompile(`^\s*\[(\d+|\*)\]\s*([^:]+?)\s*:\s*(.*)$`)
)

// Sections splits an analysis into its statement blocks. Lines that are
// neither a heading nor an item are appended to the previous item.
// Text before the first heading is ignored.
func Sections(text string) []Section {
	var out []Section
	for _, line := range strings.Split(text, "\n") {
		if m := sectionLine.FindStringSubmatch(line); m != nil {
			out = append(out, Section{Title: m[1]})
			continue
		}
		if len(out) == 0 {
			continue
		}
		cur := &out[len(out)-1]
		if m := itemLine.FindStringSubmatch(line); m != nil {
			cur.Items = append(cur.Items, Item{Key: m[1], Label: m[2], Text: m[3]})
			continue
		}
		if extra := strings.TrimSpace(line); extra != "" && len(cur.Items) > 0 {
			last := &cur.Items[len(cur.Items)-1]
			last.Text = strings.TrimSpace(last.Text + " " + extra)
		}
	}
	return out
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// HTML renders generated text for the dashboard. Raw HTML in the input
// is not passed through.
func HTML(text string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return template.HTML("<pre>" + template.HTMLEscapeString(text) + "</pre>")
	}
	return template.HTML(buf.String())
}
