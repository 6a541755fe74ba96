package profile

import (
	"html/template"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
)

// CustomScope is the class every custom CSS selector is nested under.
const CustomScope = ".profile-custom"

var allowedCSSProperties = map[string]bool{
	"color": true, "background": true, "background-color": true,
	"border": true, "border-color": true, "border-radius": true,
	"border-style": true, "border-width": true,
	"border-top": true, "border-bottom": true, "border-left": true, "border-right": true,
	"box-shadow": true, "opacity": true,
	"font-family": true, "font-size": true, "font-style": true, "font-weight": true,
	"letter-spacing": true, "line-height": true,
	"text-align": true, "text-decoration": true, "text-transform": true,
	"margin": true, "margin-top": true, "margin-bottom": true, "margin-left": true, "margin-right": true,
	"padding": true, "padding-top": true, "padding-bottom": true, "padding-left": true, "padding-right": true,
	"max-width": true, "width": true, "gap": true,
}

var forbiddenCSSValues = []string{
	"url(", "expression(", "javascript:", "<", "\\", "@import", "behavior", "-moz-binding", "/*",
}

// SanitizeCSS reduces user CSS to plain rule sets with allow-listed
// properties, each selector nested under CustomScope.
//
// The stylesheet is tokenized by douceur, so strings and nested blocks are
// understood. At-rules (@import, @media, @font-face, ...) are dropped whole,
// as are declarations that could load resources or close the style element.
// A stylesheet that does not parse yields no CSS at all.
func SanitizeCSS(raw string) template.CSS {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	sheet, err := parser.Parse(raw)
	if err != nil {
		return ""
	}

	var out strings.Builder
	for _, rule := range sheet.Rules {
		if rule.Kind != css.QualifiedRule {
			continue
		}
		selector := scopeSelectors(rule.Selectors)
		if selector == "" {
			continue
		}
		decls := sanitizeDeclarations(rule.Declarations)
		if decls == "" {
			continue
		}
		out.WriteString(selector)
		out.WriteString(" { ")
		out.WriteString(decls)
		out.WriteString(" }\n")
	}
	return template.CSS(out.String())
}

// scopeSelectors nests each selector under CustomScope. One unsafe selector
// drops the whole group, as a browser would for an invalid one.
func scopeSelectors(selectors []string) string {
	var scoped []string
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		switch {
		case sel == "":
			continue
		case strings.ContainsAny(sel, "<@\\{};") || strings.Contains(sel, "/*"):
			return ""
		case sel == "html" || sel == "body" || sel == ":root":
			scoped = append(scoped, CustomScope)
		default:
			scoped = append(scoped, CustomScope+" "+sel)
		}
	}
	return strings.Join(scoped, ", ")
}

func sanitizeDeclarations(decls []*css.Declaration) string {
	var kept []string
	for _, d := range decls {
		prop := strings.ToLower(strings.TrimSpace(d.Property))
		value := strings.TrimSpace(d.Value)
		if !allowedCSSProperties[prop] || value == "" || hasForbiddenValue(value) {
			continue
		}
		decl := prop + ": " + value
		if d.Important {
			decl += " !important"
		}
		kept = append(kept, decl+";")
	}
	return strings.Join(kept, " ")
}

func hasForbiddenValue(value string) bool {
	lower := strings.ToLower(value)
	for _, f := range forbiddenCSSValues {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
