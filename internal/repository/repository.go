// Package repository defines the storage contracts the service layer depends on.
package repository

import (
	"context"

	"github.com/sakif/minispace/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Normalize clamps the limit to 1..MaxListLimit (0 means the default) and
// the offset to zero or more.
func (o ListOptions) Normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.UserData) error
	GetUserByID(ctx context.Context, id string) (*model.UserData, error)
	GetUserByUsername(ctx context.Context, username string) (*model.UserData, error)
	GetUserByEmail(ctx context.Context, email string) (*model.UserData, error)
	GetUserByGitHubID(ctx context.Context, githubID int64) (*model.UserData, error)
	ListUsers(ctx context.Context, query string, opts ListOptions) ([]model.UserData, error)

	// UpdateUser saves the profile. When the username changed, every article
	// authored under the old name is rewritten in the same transaction; the
	// number of rewritten articles is returned.
	UpdateUser(ctx context.Context, user *model.UserData) (int64, error)
}

type ArticleRepository interface {
	CreateArticle(ctx context.Context, article *model.Article) error
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	ListByAuthor(ctx context.Context, author string, publishedOnly bool) ([]model.Article, error)
	ListPublished(ctx context.Context, opts ListOptions) ([]model.Article, error)
	UpdateArticle(ctx context.Context, article *model.Article) error
	SetPublished(ctx context.Context, id string, published bool) error
	DeleteArticle(ctx context.Context, id string) error
}
