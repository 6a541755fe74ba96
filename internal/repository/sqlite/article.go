package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// Assigning a nil *DB to a repository.ArticleRepository variable makes the
// compiler verify every method is present. A missing or misspelt method
// fails the build here instead of at the call site in server.New.
var _ repository.ArticleRepository = (*DB)(nil)

// articleColumns is shared by every SELECT and the INSERT so the column
// order and scanArticle's Scan order cannot drift apart.
const articleColumns = `id, title, excerpt, body, tags, author_name, published, created_at, updated_at`

// CreateArticle inserts a new article and fills in its ID and timestamps.
//
// IDS:
// xid.New() gives a 20-character, URL-safe id that sorts by creation time,
// e.g. "cv37rs3pp9olc6atsptg". It goes straight into /articles/{id} URLs.
//
// The article is passed by pointer so the caller sees the generated ID and
// timestamps after the call.
func (db *DB) CreateArticle(ctx context.Context, article *model.Article) error {
	now := time.Now().UTC()
	article.ID = xid.New().String()
	article.CreatedAt = now
	article.UpdatedAt = now

	tags, err := encodeList(article.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		article.ID, article.Title, article.Excerpt, article.Body, tags,
		article.AuthorName, article.Published, article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting article: %w", err)
	}
	return nil
}

// GetArticle loads one article. Visibility (drafts) is the service's
// concern; this returns drafts too.
func (db *DB) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)

	a, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("article", id)
		}
		return nil, fmt.Errorf("sqlite: getting article %s: %w", id, err)
	}
	return a, nil
}

// ListByAuthor returns every article by author, newest first.
func (db *DB) ListByAuthor(ctx context.Context, author string, publishedOnly bool) ([]model.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE author_name = ?`
	if publishedOnly {
		query += ` AND published = 1`
	}
	query += ` ORDER BY created_at DESC`

	return db.listArticles(ctx, query, author)
}

// ListPublished returns one page of published articles from every author,
// newest first.
func (db *DB) ListPublished(ctx context.Context, opts repository.ListOptions) ([]model.Article, error) {
	opts = opts.Normalize()
	return db.listArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE published = 1
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
}

// UpdateArticle saves title, excerpt, body and tags. Publication state is
// changed only through SetPublished.
func (db *DB) UpdateArticle(ctx context.Context, article *model.Article) error {
	tags, err := encodeList(article.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding tags: %w", err)
	}

	article.UpdatedAt = time.Now().UTC()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE articles SET title = ?, excerpt = ?, body = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		article.Title, article.Excerpt, article.Body, tags, article.UpdatedAt, article.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating article %s: %w", article.ID, err)
	}
	return requireAffected(res, article.ID)
}

// SetPublished changes only the published flag and updated_at. It is its
// own statement so a toggle cannot overwrite an edit saved a moment before.
func (db *DB) SetPublished(ctx context.Context, id string, published bool) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE articles SET published = ?, updated_at = ? WHERE id = ?`,
		published, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting published on %s: %w", id, err)
	}
	return requireAffected(res, id)
}

func (db *DB) DeleteArticle(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting article %s: %w", id, err)
	}
	return requireAffected(res, id)
}

// listArticles runs a SELECT of articleColumns and scans every row.
//
// ROWS MUST BE CLOSED:
// An unclosed *sql.Rows holds its connection, and with the pool capped at
// one connection for ":memory:" the next query would block forever. The
// defer covers every return path. rows.Err reports an error that ended
// the loop early, which rows.Next alone hides.
func (db *DB) listArticles(ctx context.Context, query string, args ...any) ([]model.Article, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing articles: %w", err)
	}
	defer rows.Close()

	articles := []model.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning article row: %w", err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating article rows: %w", err)
	}
	return articles, nil
}

func scanArticle(row scanner) (*model.Article, error) {
	var (
		a    model.Article
		tags string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Excerpt, &a.Body, &tags,
		&a.AuthorName, &a.Published, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	return &a, nil
}

// requireAffected turns "the UPDATE/DELETE matched no row" into NotFound.
// Exec reports no error for a WHERE that matches nothing.
func requireAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("article", id)
	}
	return nil
}
