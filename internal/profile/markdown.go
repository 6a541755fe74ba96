package profile

import (
	"bytes"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/sakif/minispace/internal/model"
)

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// AccentOrDefault returns accent when it is a hex colour, otherwise the default.
// The value ends up inside style attributes, so nothing else is let through.
func AccentOrDefault(accent string) string {
	accent = strings.TrimSpace(accent)
	if hexColor.MatchString(accent) {
		return accent
	}
	return model.DefaultAccentColor
}

// MarkdownRenderer renders literal template segments and article bodies.
//
// GFM (tables, strikethrough, autolinks, task lists) is enabled and single
// newlines become <br>. Links, blockquotes and strong emphasis carry the
// caller's accent colour as inline styles.
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy // nil passes raw HTML through
}

// NewMarkdownRenderer builds a renderer. With sanitize set, the output is
// filtered through bluemonday's UGC policy extended with the accent styles.
func NewMarkdownRenderer(sanitize bool) *MarkdownRenderer {
	// No parser.WithAutoHeadingID: a page renders many segments separately
	// and each restarts the id sequence, so "# About" twice would give
	// duplicate ids.
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithUnsafe(),
		),
	)

	r := &MarkdownRenderer{md: md}
	if sanitize {
		p := bluemonday.UGCPolicy()
		p.AllowStyles("color").OnElements("a", "strong")
		p.AllowStyles("border-left-color").OnElements("blockquote")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-z0-9 -]+$`)).OnElements("a", "blockquote", "strong")
		r.policy = p
	}
	return r
}

// Render converts source to HTML using accent for emphasis elements.
// Whitespace-only input renders to the empty string.
func (r *MarkdownRenderer) Render(source, accent string) template.HTML {
	if strings.TrimSpace(source) == "" {
		return ""
	}

	src := []byte(source)
	doc := r.md.Parser().Parse(text.NewReader(src))
	applyAccent(doc, AccentOrDefault(accent))

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return template.HTML(template.HTMLEscapeString(source))
	}

	out := buf.Bytes()
	if r.policy != nil {
		out = r.policy.SanitizeBytes(out)
	}
	return template.HTML(out)
}

func applyAccent(doc ast.Node, accent string) {
	color := []byte("color: " + accent)

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link, *ast.AutoLink:
			n.SetAttributeString("class", []byte("md-link"))
			n.SetAttributeString("style", color)
		case *ast.Blockquote:
			n.SetAttributeString("class", []byte("md-quote"))
			n.SetAttributeString("style", []byte("border-left-color: "+accent))
		case *ast.Emphasis:
			if node.Level == 2 {
				n.SetAttributeString("style", color)
			}
		}
		return ast.WalkContinue, nil
	})
}
