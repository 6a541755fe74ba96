// Package profile turns a user's layout template into a composed profile page.
//
// A layout template is free text mixing Markdown prose with placeholder
// tokens such as {displayProfileCard} or {displayPosts}. Parse splits the
// template into an ordered list of units; Composer renders each unit against
// a UserData snapshot and the user's articles.
//
// Everything in this package is a pure function of its inputs. The only
// stateful piece is TagFilter, which is owned by a single page session.
package profile

import (
	"regexp"
	"strconv"
)

// tokenPattern matches "{" followed by one or more non-"}" characters and "}".
var tokenPattern = regexp.MustCompile(`\{[^}]+\}`)

// SectionKind identifies which structured renderer a token dispatches to.
type SectionKind int

const (
	SectionProfileCard SectionKind = iota + 1
	SectionPosts
	SectionTags
	SectionProjects
	SectionBookshelf
	SectionSkills
	SectionDisplayName
	SectionProfession
	SectionLocation
)

// vocabulary is the closed set of recognised tokens. Anything else in braces
// is literal text.
var vocabulary = map[string]SectionKind{
	"{displayProfileCard}": SectionProfileCard,
	"{displayPosts}":       SectionPosts,
	"{displayTags}":        SectionTags,
	"{projects}":           SectionProjects,
	"{bookshelf}":          SectionBookshelf,
	"{skills}":             SectionSkills,
	"{displayName}":        SectionDisplayName,
	"{profession}":         SectionProfession,
	"{location}":           SectionLocation,
}

var sectionNames = map[SectionKind]string{
	SectionProfileCard: "profileCard",
	SectionPosts:       "posts",
	SectionTags:        "tags",
	SectionProjects:    "projects",
	SectionBookshelf:   "bookshelf",
	SectionSkills:      "skills",
	SectionDisplayName: "displayName",
	SectionProfession:  "profession",
	SectionLocation:    "location",
}

func (k SectionKind) String() string {
	if name, ok := sectionNames[k]; ok {
		return name
	}
	return "unknown"
}

// Token returns the template spelling of k, e.g. "{displayPosts}".
func (k SectionKind) Token() string {
	for token, kind := range vocabulary {
		if kind == k {
			return token
		}
	}
	return ""
}

// Inline reports whether the section renders as a run of text rather than a block.
func (k SectionKind) Inline() bool {
	return k == SectionDisplayName || k == SectionProfession || k == SectionLocation
}

// LookupToken returns the section for a verbatim token string.
func LookupToken(s string) (SectionKind, bool) {
	kind, ok := vocabulary[s]
	return kind, ok
}

// UnitKind separates literal Markdown from recognised tokens.
type UnitKind int

const (
	UnitLiteral UnitKind = iota
	UnitSection
)

// Unit is one segment of a parsed template.
//
// Index is the segment's position in the split sequence, counting the empty
// segments that are dropped, so it stays stable for a given template.
type Unit struct {
	Kind    UnitKind
	Section SectionKind // zero for literals
	Raw     string      // verbatim template text
	Index   int
}

// Key is a stable identifier for the unit within its template.
func (u Unit) Key() string {
	return "unit-" + strconv.Itoa(u.Index)
}

// Parse splits template on the token pattern, keeping the tokens, and
// classifies every non-empty segment. Unknown tokens become literal units.
func Parse(template string) []Unit {
	var units []Unit
	index := 0

	emit := func(segment string) {
		if segment != "" {
			units = append(units, classify(segment, index))
		}
		index++
	}

	last := 0
	for _, loc := range tokenPattern.FindAllStringIndex(template, -1) {
		emit(template[last:loc[0]])
		emit(template[loc[0]:loc[1]])
		last = loc[1]
	}
	emit(template[last:])

	return units
}

func classify(segment string, index int) Unit {
	if kind, ok := vocabulary[segment]; ok {
		return Unit{Kind: UnitSection, Section: kind, Raw: segment, Index: index}
	}
	return Unit{Kind: UnitLiteral, Raw: segment, Index: index}
}
