package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/cache"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
	"github.com/sakif/minispace/internal/repository"
)

// InFlightSource reports which articles have writes in progress.
// *ArticleService implements it.
type InFlightSource interface {
	InFlight() (updating, deleting map[string]bool)
}

// ProfileView is a composed profile page plus what the page chrome needs.
type ProfileView struct {
	Page        profile.Page `json:"page"`
	DisplayName string       `json:"displayName"`
	Bio         string       `json:"bio,omitempty"`
	// Owner is true when the viewer owns the page; owner views are never cached.
	Owner bool `json:"-"`
}

// ProfileService owns everything about a user's page: the settings that
// shape it, the directory that lists it, and RenderProfile, which turns
// settings plus articles into a profile.Page.
//
// HOW A PROFILE PAGE IS BUILT:
//
//	user.LayoutTemplate  "{displayProfileCard}\n\n{displayPosts}"
//	        |  profile.Parse
//	        v
//	[]profile.Unit       literal text and section tokens, in order
//	        |  profile.Composer (markdown, card, posts, tags, ...)
//	        v
//	profile.Page         blocks, then split into main/aside by layout
//
// The profile package does the work and knows nothing about storage or
// HTTP. This service feeds it: it loads the user, lists the articles the
// viewer may see, applies the ?tag= filter and caches the result.
type ProfileService struct {
	users     repository.UserRepository
	articles  repository.ArticleRepository
	composer  *profile.Composer
	inflight  InFlightSource
	passwords *auth.PasswordService
	pages     cache.Cache
	pageTTL   time.Duration
	logger    zerolog.Logger
}

// NewProfileService takes the article service as an InFlightSource (the
// owner's controls grey out busy rows) and the password service (changing
// email asks for the current password).
func NewProfileService(
	users repository.UserRepository,
	articles repository.ArticleRepository,
	composer *profile.Composer,
	inflight InFlightSource,
	passwords *auth.PasswordService,
	pages cache.Cache,
	pageTTL time.Duration,
	logger zerolog.Logger,
) *ProfileService {
	return &ProfileService{
		users:     users,
		articles:  articles,
		composer:  composer,
		inflight:  inflight,
		passwords: passwords,
		pages:     pages,
		pageTTL:   pageTTL,
		logger:    logger.With().Str("service", "profile").Logger(),
	}
}

// SettingsInput is the full set of editable profile fields. UpdateSettings
// replaces every field, so clients send back what GetSettings returned with
// their changes applied.
type SettingsInput struct {
	Username     string            `json:"username"`
	Bio          string            `json:"bio"`
	ProfileEmoji string            `json:"profileEmoji"`
	BannerImage  string            `json:"bannerImage"`
	BannerPreset string            `json:"bannerPreset"`
	AccentColor  string            `json:"accentColor"`
	ProfileTheme model.Theme       `json:"profileTheme"`
	PageLayout   model.Layout      `json:"profileLayout"`
	CustomCSS    string            `json:"customCSS"`
	HeaderText   string            `json:"headerText"`
	FooterText   string            `json:"footerText"`
	ShowJoinDate bool              `json:"showJoinDate"`
	SocialLinks  model.SocialLinks `json:"socialLinks"`
	CustomLayout string            `json:"customLayout"`
	General      model.General     `json:"general"`
	Projects     []model.Project   `json:"projects"`
	Bookshelf    []model.Book      `json:"bookshelf"`
	Skills       []string          `json:"skills"`
	Tools        []string          `json:"tools"`
}

// SettingsFrom copies a user's current settings into an input.
func SettingsFrom(u *model.UserData) SettingsInput {
	return SettingsInput{
		Username:     u.Username,
		Bio:          u.Bio,
		ProfileEmoji: u.ProfileEmoji,
		BannerImage:  u.BannerImage,
		BannerPreset: u.BannerPreset,
		AccentColor:  u.AccentColor,
		ProfileTheme: u.ProfileTheme,
		PageLayout:   u.PageLayout,
		CustomCSS:    u.CustomCSS,
		HeaderText:   u.HeaderText,
		FooterText:   u.FooterText,
		ShowJoinDate: u.ShowJoinDate,
		SocialLinks:  u.SocialLinks,
		CustomLayout: u.LayoutTemplate,
		General:      u.General,
		Projects:     u.Projects,
		Bookshelf:    u.Bookshelf,
		Skills:       u.Skills,
		Tools:        u.Tools,
	}
}

// Validate checks every field with ozzo-validation.
//
// VALIDATION WITH OZZO:
// validation.ValidateStruct takes pointers to the struct's fields, which is
// how it finds the json tag to report: an error on &in.AccentColor comes
// back keyed "accentColor", the name the settings form and the API client
// use. apperror.FromValidation then picks the first failing field for the
// response's "field" so the form can highlight it.
//
// Nested values (social links, projects, books) implement
// validation.Validatable themselves, and validation.Each runs them per item.
func (in SettingsInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Username, usernameRules()...),
		validation.Field(&in.Bio, validation.RuneLength(0, MaxBioLength)),
		validation.Field(&in.ProfileEmoji, validation.RuneLength(0, 16)),
		validation.Field(&in.BannerImage, is.URL),
		validation.Field(&in.BannerPreset, validation.In(enumValues(model.BannerPresets)...)),
		validation.Field(&in.AccentColor, validation.Match(hexColorPattern).Error("must be a hex colour like #3b82f6")),
		validation.Field(&in.ProfileTheme, validation.In(enumValues(model.Themes)...)),
		validation.Field(&in.PageLayout, validation.In(enumValues(model.Layouts)...)),
		validation.Field(&in.CustomCSS, validation.Length(0, MaxCustomCSS)),
		validation.Field(&in.HeaderText, validation.RuneLength(0, MaxBannerText)),
		validation.Field(&in.FooterText, validation.RuneLength(0, MaxBannerText)),
		validation.Field(&in.SocialLinks, validation.By(validateSocialLinks)),
		validation.Field(&in.CustomLayout, validation.Length(0, MaxTemplateLength)),
		validation.Field(&in.General, validation.By(validateGeneral)),
		validation.Field(&in.Projects, validation.Length(0, MaxListItems), validation.Each(validation.By(validateProject))),
		validation.Field(&in.Bookshelf, validation.Length(0, MaxListItems), validation.Each(validation.By(validateBook))),
		validation.Field(&in.Skills, validation.Length(0, MaxListItems), validation.Each(validation.RuneLength(0, MaxShortText))),
		validation.Field(&in.Tools, validation.Length(0, MaxListItems), validation.Each(validation.RuneLength(0, MaxShortText))),
	)
}

func validateSocialLinks(value any) error {
	l, _ := value.(model.SocialLinks)
	return validation.ValidateStruct(&l,
		validation.Field(&l.Website, is.URL),
		validation.Field(&l.Twitter, is.URL),
		validation.Field(&l.GitHub, is.URL),
		validation.Field(&l.LinkedIn, is.URL),
	)
}

func validateGeneral(value any) error {
	g, _ := value.(model.General)
	return validation.ValidateStruct(&g,
		validation.Field(&g.DisplayName, validation.RuneLength(0, MaxShortText)),
		validation.Field(&g.Profession, validation.RuneLength(0, MaxShortText)),
		validation.Field(&g.Location, validation.RuneLength(0, MaxShortText)),
		validation.Field(&g.Tagline, validation.RuneLength(0, MaxBannerText)),
	)
}

func (s *ProfileService) GetSettings(ctx context.Context, userID string) (*model.UserData, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("not signed in")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading settings for %s: %w", userID, err)
	}
	return user, nil
}

// UpdateSettings validates and saves the profile.
//
// ORDER OF WORK:
//  1. load the current user (NotFound if the id is stale)
//  2. normalise: lowercase username, trim accent, dedupe skills and tools
//     case-insensitively ("Go" and "go" keep the first spelling)
//  3. validate; the first bad field becomes a ValidationFailed error
//  4. copy every field onto the user and save
//  5. drop cached pages under the old and the new username
//
// RENAMES:
// Articles store their author's username. UpdateUser rewrites
// articles.author_name in the same transaction as the user row, so a crash
// between the two cannot leave articles pointing at a name nobody owns. A
// taken username surfaces as Conflict from the unique index.
func (s *ProfileService) UpdateSettings(ctx context.Context, userID string, in SettingsInput) (*model.UserData, error) {
	user, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	in.AccentColor = strings.TrimSpace(in.AccentColor)
	in.Skills = dedupeFold(in.Skills)
	in.Tools = dedupeFold(in.Tools)
	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	previous := user.Username
	user.Username = in.Username
	user.Bio = in.Bio
	user.ProfileEmoji = in.ProfileEmoji
	user.BannerImage = strings.TrimSpace(in.BannerImage)
	user.BannerPreset = in.BannerPreset
	user.AccentColor = in.AccentColor
	user.ProfileTheme = in.ProfileTheme.Normalize()
	user.PageLayout = in.PageLayout.Normalize()
	user.CustomCSS = in.CustomCSS
	user.HeaderText = in.HeaderText
	user.FooterText = in.FooterText
	user.ShowJoinDate = in.ShowJoinDate
	user.SocialLinks = in.SocialLinks
	user.LayoutTemplate = in.CustomLayout
	user.General = in.General
	user.Projects = in.Projects
	user.Bookshelf = in.Bookshelf
	user.Skills = in.Skills
	user.Tools = in.Tools

	rewritten, err := s.users.UpdateUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("saving settings for %s: %w", userID, err)
	}

	if previous != user.Username {
		s.logger.Info().
			Str("userID", userID).
			Str("from", previous).
			Str("to", user.Username).
			Int64("articles", rewritten).
			Msg("username changed")
		invalidateProfile(ctx, s.pages, s.logger, previous)
	}
	invalidateProfile(ctx, s.pages, s.logger, user.Username)
	return user, nil
}

// ChangeEmail sets a new email address. Accounts with a password must
// confirm it; GitHub-only accounts have none to confirm.
func (s *ProfileService) ChangeEmail(ctx context.Context, userID, email, currentPassword string) (*model.UserData, error) {
	user, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	email = strings.TrimSpace(strings.ToLower(email))
	if err := validation.Validate(email, emailRules()...); err != nil {
		return nil, apperror.ValidationFailed("email", "email: "+err.Error())
	}

	if user.PasswordHash != "" {
		if err := s.passwords.Verify(user.PasswordHash, currentPassword); err != nil {
			if errors.Is(err, auth.ErrInvalidPassword) {
				return nil, apperror.Forbidden("current password is incorrect")
			}
			return nil, fmt.Errorf("verifying password: %w", err)
		}
	}

	if email == user.Email {
		return user, nil
	}
	if other, err := s.users.GetUserByEmail(ctx, email); err == nil && other.ID != user.ID {
		return nil, apperror.Conflict("email", email)
	}

	user.Email = email
	if _, err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("changing email for %s: %w", userID, err)
	}
	s.logger.Info().Str("userID", userID).Msg("email changed")
	return user, nil
}

func (s *ProfileService) GetUserByUsername(ctx context.Context, username string) (*model.UserData, error) {
	return s.users.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
}

// ListUsers searches the user directory.
func (s *ProfileService) ListUsers(ctx context.Context, query string, opts repository.ListOptions) ([]model.UserData, error) {
	users, err := s.users.ListUsers(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// RenderProfile composes username's public page as seen by viewerID (empty
// for anonymous). tag narrows the posts to one tag; nil shows all.
//
// The owner sees drafts and the per-article controls. Everyone else sees
// published articles only, and that view is cached per username and tag.
// Only tags some article actually carries are cached, so arbitrary ?tag=
// values cannot grow the cache.
func (s *ProfileService) RenderProfile(ctx context.Context, username, viewerID string, tag *string) (*ProfileView, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	owner := viewerID != "" && viewerID == user.ID
	key := pageKey(user.Username, tag)

	if !owner {
		var view ProfileView
		found, err := s.pages.Get(ctx, key, &view)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("page cache read failed")
		}
		if found {
			view.Page.Main, view.Page.Aside = profile.Arrange(view.Page.Layout, view.Page.Blocks)
			return &view, nil
		}
	}

	articles, err := s.articles.ListByAuthor(ctx, user.Username, !owner)
	if err != nil {
		return nil, fmt.Errorf("listing articles for %s: %w", user.Username, err)
	}

	filter := profile.NewTagFilter(articles)
	filter.Click(tag)

	opts := profile.PostsOptions{Variant: profile.VariantPublic}
	if owner {
		opts.Variant = profile.VariantProfile
		opts.ReturnTo = tagLinker(user.Username)(tag)
		opts.EmptyMessage = "No articles yet"
		opts.EmptySubtext = "Write your first article to see it here."
		if s.inflight != nil {
			opts.Updating, opts.Deleting = s.inflight.InFlight()
		}
	}
	if selected := filter.Selected(); selected != nil {
		opts.EmptyMessage = fmt.Sprintf("No articles tagged %q", *selected)
	}

	view := &ProfileView{
		Page: s.composer.Compose(profile.Input{
			User:        user,
			Articles:    filter.Visible(),
			AllArticles: filter.All(),
			SelectedTag: filter.Selected(),
			TagLink:     tagLinker(user.Username),
			Posts:       opts,
		}),
		DisplayName: user.DisplayName(),
		Bio:         user.Bio,
		Owner:       owner,
	}

	if !owner && cacheableTag(filter.All(), tag) {
		if err := s.pages.Set(ctx, key, view, s.pageTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("page cache write failed")
		}
	}
	return view, nil
}

// tagLinker links tag chips back to the profile: nil (the "All" chip) is
// the bare profile URL.
func tagLinker(username string) profile.TagLinker {
	base := "/" + url.PathEscape(username)
	return func(tag *string) string {
		if tag == nil {
			return base
		}
		return base + "?tag=" + url.QueryEscape(*tag)
	}
}

// cacheableTag reports whether a page filtered by tag may be cached: no
// filter, or a tag present on at least one of articles.
func cacheableTag(articles []model.Article, tag *string) bool {
	if tag == nil {
		return true
	}
	for _, tc := range profile.CountTags(articles) {
		if tc.Tag == *tag {
			return true
		}
	}
	return false
}

func pageKey(username string, tag *string) string {
	t := ""
	if tag != nil {
		t = url.QueryEscape(*tag)
	}
	return "profile:" + username + ":" + t
}

// invalidateProfile drops every cached page of username. Failures are logged
// only; entries expire on their own.
func invalidateProfile(ctx context.Context, pages cache.Cache, logger zerolog.Logger, username string) {
	if err := pages.DeletePattern(ctx, "profile:"+username+":*"); err != nil {
		logger.Warn().Err(err).Str("username", username).Msg("page cache invalidation failed")
	}
}
