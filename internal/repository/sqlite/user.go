package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/repository"
)

// Compile-time check, as in article.go.
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, password_hash, github_id, bio, profile_emoji,
	banner_image, banner_preset, accent_color, profile_theme, profile_layout, custom_css,
	header_text, footer_text, show_join_date, social_links, layout_template, general,
	projects, bookshelf, skills, tools, created_at, updated_at`

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// CreateUser inserts a new user, assigning its ID and timestamps.
// A taken username or email is reported as a conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.UserData) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	args, err := userArgs(user)
	if err != nil {
		return fmt.Errorf("sqlite: encoding user %s: %w", user.Username, err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id string) (*model.UserData, error) {
	return db.getUser(ctx, "id", id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.UserData, error) {
	return db.getUser(ctx, "username", strings.ToLower(username))
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.UserData, error) {
	if email == "" {
		return nil, apperror.NotFound("user", email)
	}
	return db.getUser(ctx, "email", email)
}

func (db *DB) GetUserByGitHubID(ctx context.Context, githubID int64) (*model.UserData, error) {
	return db.getUser(ctx, "github_id", githubID)
}

// getUser looks a user up by one column.
//
// The column name is concatenated into the SQL because placeholders can
// only stand for values, not identifiers. That is safe only because column
// comes from the four Get methods above and never from a request; the
// value itself still goes through a ? placeholder.
func (db *DB) getUser(ctx context.Context, column string, value any) (*model.UserData, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = ?`, value)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(value))
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", column, err)
	}
	return u, nil
}

// ListUsers returns users, newest first. A non-empty query matches the
// username or display name, case-insensitively.
func (db *DB) ListUsers(ctx context.Context, query string, opts repository.ListOptions) ([]model.UserData, error) {
	opts = opts.Normalize()

	sqlQuery := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		sqlQuery += ` WHERE username LIKE ? OR LOWER(json_extract(general, '$.displayName')) LIKE ?`
		args = append(args, pattern, pattern)
	}
	sqlQuery += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, opts.Limit, opts.Offset)

	rows, err := db.conn.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.UserData{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user rows: %w", err)
	}
	return users, nil
}

// UpdateUser saves every profile field. If the username changed, the
// articles' author_name is rewritten inside the same transaction, so either
// both the user row and the articles move to the new name or neither does.
//
// TRANSACTION PATTERN:
//
//	tx, err := db.BeginTx(ctx, nil)
//	defer tx.Rollback()   // undoes everything unless Commit ran first
//	... tx.ExecContext / tx.QueryRowContext ...
//	return tx.Commit()
//
// Every statement inside uses tx, not db.conn. A statement on db.conn
// would run on another connection, outside the transaction.
func (db *DB) UpdateUser(ctx context.Context, user *model.UserData) (int64, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: beginning user update: %w", err)
	}
	defer tx.Rollback() // no-op after Commit

	var previous string
	err = tx.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, user.ID).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("user", user.ID)
		}
		return 0, fmt.Errorf("sqlite: loading user %s: %w", user.ID, err)
	}

	user.Username = strings.ToLower(user.Username)
	user.UpdatedAt = time.Now().UTC()

	args, err := userArgs(user)
	if err != nil {
		return 0, fmt.Errorf("sqlite: encoding user %s: %w", user.ID, err)
	}
	// SET takes every column except id and created_at, then WHERE id.
	n := len(args)
	setArgs := make([]any, 0, n-1)
	setArgs = append(setArgs, args[1:n-2]...)
	setArgs = append(setArgs, args[n-1], user.ID)

	_, err = tx.ExecContext(ctx,
		`UPDATE users SET
			username = ?, email = ?, password_hash = ?, github_id = ?, bio = ?, profile_emoji = ?,
			banner_image = ?, banner_preset = ?, accent_color = ?, profile_theme = ?, profile_layout = ?,
			custom_css = ?, header_text = ?, footer_text = ?, show_join_date = ?, social_links = ?,
			layout_template = ?, general = ?, projects = ?, bookshelf = ?, skills = ?, tools = ?,
			updated_at = ?
		 WHERE id = ?`,
		setArgs...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("user", user.Username)
		}
		return 0, fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	var rewritten int64
	if previous != user.Username {
		res, err := tx.ExecContext(ctx,
			`UPDATE articles SET author_name = ? WHERE author_name = ?`,
			user.Username, previous,
		)
		if err != nil {
			return 0, fmt.Errorf("sqlite: renaming articles from %s to %s: %w", previous, user.Username, err)
		}
		rewritten, err = res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("sqlite: checking renamed articles: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: committing user update: %w", err)
	}
	return rewritten, nil
}

// userArgs returns the column values in userColumns order.
func userArgs(u *model.UserData) ([]any, error) {
	social, err := json.Marshal(u.SocialLinks)
	if err != nil {
		return nil, err
	}
	general, err := json.Marshal(u.General)
	if err != nil {
		return nil, err
	}
	projects, err := encodeList(u.Projects)
	if err != nil {
		return nil, err
	}
	bookshelf, err := encodeList(u.Bookshelf)
	if err != nil {
		return nil, err
	}
	skills, err := encodeList(u.Skills)
	if err != nil {
		return nil, err
	}
	tools, err := encodeList(u.Tools)
	if err != nil {
		return nil, err
	}

	var githubID sql.NullInt64
	if u.GitHubID != 0 {
		githubID = sql.NullInt64{Int64: u.GitHubID, Valid: true}
	}

	return []any{
		u.ID, strings.ToLower(u.Username), u.Email, u.PasswordHash, githubID, u.Bio, u.ProfileEmoji,
		u.BannerImage, u.BannerPreset, u.AccentColor, string(u.ProfileTheme), string(u.PageLayout), u.CustomCSS,
		u.HeaderText, u.FooterText, u.ShowJoinDate, string(social), u.LayoutTemplate, string(general),
		projects, bookshelf, skills, tools, u.CreatedAt, u.UpdatedAt,
	}, nil
}

func scanUser(row scanner) (*model.UserData, error) {
	var (
		u                                  model.UserData
		githubID                           sql.NullInt64
		theme, layout                      string
		social, general                    string
		projects, bookshelf, skills, tools string
	)

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &githubID, &u.Bio, &u.ProfileEmoji,
		&u.BannerImage, &u.BannerPreset, &u.AccentColor, &theme, &layout, &u.CustomCSS,
		&u.HeaderText, &u.FooterText, &u.ShowJoinDate, &social, &u.LayoutTemplate, &general,
		&projects, &bookshelf, &skills, &tools, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.GitHubID = githubID.Int64
	u.ProfileTheme = model.Theme(theme)
	u.PageLayout = model.Layout(layout)

	fields := []struct {
		name string
		src  string
		dst  any
	}{
		{"social_links", social, &u.SocialLinks},
		{"general", general, &u.General},
		{"projects", projects, &u.Projects},
		{"bookshelf", bookshelf, &u.Bookshelf},
		{"skills", skills, &u.Skills},
		{"tools", tools, &u.Tools},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.src), f.dst); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", f.name, err)
		}
	}
	return &u, nil
}

// encodeList stores nil slices as "[]" rather than "null".
func encodeList[T any](items []T) (string, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
