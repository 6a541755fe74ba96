package service

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/model"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30

	MaxTitleLength   = 200
	MaxExcerptLength = 500
	MaxBodyLength    = 100_000
	MaxTags          = 20
	MaxTagLength     = 30

	MaxBioLength      = 2000
	MaxTemplateLength = 10_000
	MaxCustomCSS      = 10_000
	MaxBannerText     = 200
	MaxListItems      = 50
	MaxShortText      = 100
)

var (
	usernamePattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	hexColorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

	// reservedUsernames are first path segments taken by routes, so a
	// profile at /{username} would be unreachable.
	reservedUsernames = []any{
		"admin", "api", "articles", "auth", "discover", "edit", "feed", "healthz",
		"login", "logout", "profile", "register", "settings", "static",
		"users", "write",
	}
)

// usernameRules apply to every username, whether typed by the user or
// derived from a GitHub login.
func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(MinUsernameLength, MaxUsernameLength),
		validation.Match(usernamePattern).Error("may contain only a-z, 0-9, '_' and '-'"),
		validation.NotIn(reservedUsernames...).Error("is reserved"),
	}
}

func validUsername(username string) bool {
	return validation.Validate(username, usernameRules()...) == nil
}

func passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(auth.MinPasswordLength, auth.MaxPasswordLength),
	}
}

func emailRules() []validation.Rule {
	return []validation.Rule{validation.Required, is.EmailFormat}
}

func enumValues[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func validateProject(value any) error {
	p, _ := value.(model.Project)
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, MaxShortText)),
		validation.Field(&p.Description, validation.Length(0, MaxBioLength)),
		validation.Field(&p.URL, is.URL),
		validation.Field(&p.Status, validation.In(enumValues(model.ProjectStatuses)...)),
		validation.Field(&p.Year, validation.Length(0, 10)),
	)
}

func validateBook(value any) error {
	b, _ := value.(model.Book)
	return validation.ValidateStruct(&b,
		validation.Field(&b.Title, validation.Required, validation.Length(1, MaxShortText)),
		validation.Field(&b.Author, validation.Length(0, MaxShortText)),
		validation.Field(&b.Status, validation.In(enumValues(model.BookStatuses)...)),
		validation.Field(&b.Rating, validation.Min(1), validation.Max(5)),
	)
}

// normalizeTags trims tags and drops blanks and exact duplicates, keeping
// first-seen order. Tags stay case-sensitive.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// dedupeFold trims entries and drops blanks and case-insensitive duplicates,
// keeping the first spelling.
func dedupeFold(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
