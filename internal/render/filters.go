package render

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/mitchellh/go-wordwrap"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/util"
)

var newlineRe = regexp.MustCompile(`(\r\n|\r|\n)`)

// inlineMarkdown parses every block as a paragraph, so headings, lists and
// other block syntax stay literal text.
var inlineMarkdown = goldmark.New(
	goldmark.WithParser(parser.NewParser(
		parser.WithBlockParsers(util.Prioritized(parser.NewParagraphParser(), 1000)),
		parser.WithInlineParsers(parser.DefaultInlineParsers()...),
	)),
	goldmark.WithExtensions(extension.Linkify),
)

var styles = map[string]color.Attribute{
	"bold":      color.Bold,
	"dim":       color.Faint,
	"italic":    color.Italic,
	"underline": color.Underline,
	"black":     color.FgBlack,
	"red":       color.FgRed,
	"green":     color.FgGreen,
	"yellow":    color.FgYellow,
	"blue":      color.FgBlue,
	"magenta":   color.FgMagenta,
	"cyan":      color.FgCyan,
	"white":     color.FgWhite,
	"gray":      color.FgHiBlack,
	"grey":      color.FgHiBlack,
	"bgRed":     color.BgRed,
	"bgGreen":   color.BgGreen,
	"bgYellow":  color.BgYellow,
	"bgBlue":    color.BgBlue,
}

// funcs are the helpers available to both templates. Pipelines pass the
// piped value last, e.g. {{ .Fields.bio | wrap 60 | nlsp 4 }}. Styling goes
// through RenderRecord.Chalk so it follows the request's colour flag.
func funcs() map[string]any {
	return map[string]any{
		"nlsp":      nlsp,
		"wrap":      wrap,
		"md":        markdown,
		"linksplit": linksplit,
	}
}

// nlsp indents every line after the first by spaces.
func nlsp(spaces int, content string) string {
	if spaces <= 0 {
		return content
	}
	return newlineRe.ReplaceAllString(content, "${1}"+strings.Repeat(" ", spaces))
}

// chalk applies a named ANSI style; unknown names leave content unstyled.
// A style may combine names with dots, e.g. "bold.red".
func chalk(style, content string) string {
	var attrs []color.Attribute
	for _, name := range strings.Split(style, ".") {
		a, ok := styles[name]
		if !ok {
			return content
		}
		attrs = append(attrs, a)
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(content)
}

func wrap(width int, s string) string {
	if width <= 0 {
		return s
	}
	return wordwrap.WrapString(s, uint(width))
}

// markdown renders inline Markdown to HTML. Raw HTML in the source is dropped.
func markdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := inlineMarkdown.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return template.HTML(out)
}

// linksplit turns a lone Markdown link "[text](url)" into "text: url" and
// returns anything else unchanged.
func linksplit(s string) string {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, ")") && strings.Count(s, "](") == 1 {
		return strings.Replace(s[1:len(s)-1], "](", ": ", 1)
	}
	return s
}
