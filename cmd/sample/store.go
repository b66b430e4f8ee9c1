package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bjaus/apikit/model"
)

var errNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id           TEXT PRIMARY KEY,
	username     TEXT NOT NULL UNIQUE,
	email        TEXT NOT NULL,
	date_created DATETIME NOT NULL,
	date_updated DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS posts (
	id           TEXT PRIMARY KEY,
	author_id    TEXT NOT NULL REFERENCES users(id),
	title        TEXT NOT NULL,
	body         TEXT NOT NULL,
	published    BOOLEAN NOT NULL DEFAULT 0,
	date_created DATETIME NOT NULL,
	date_updated DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS comments (
	id           TEXT PRIMARY KEY,
	post_id      TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	author_id    TEXT NOT NULL REFERENCES users(id),
	body         TEXT NOT NULL,
	approved     BOOLEAN NOT NULL DEFAULT 1,
	date_created DATETIME NOT NULL,
	date_updated DATETIME NOT NULL
);
`

// store persists the blog in SQLite.
type store struct {
	db *sql.DB
}

func openStore(ctx context.Context, dsn string) (*store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragma: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) Close() error {
	return s.db.Close()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// inTx runs fn in a transaction that is rolled back when fn fails.
func (s *store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertUser(ctx context.Context, ex execer, u *User) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO users (id, username, email, date_created, date_updated) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.DateCreated, u.DateUpdated)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *store) createUser(ctx context.Context, u *User) error {
	return insertUser(ctx, s.db, u)
}

func (s *store) createUsers(ctx context.Context, users []*User) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			if err := insertUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) updateUsers(ctx context.Context, users []*User) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, u := range users {
			res, err := tx.ExecContext(ctx,
				`UPDATE users SET username = ?, email = ?, date_updated = ? WHERE id = ?`,
				u.Username, u.Email, u.DateUpdated, u.ID)
			if err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			if err := affected(res); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) deleteUsers(ctx context.Context, ids []uuid.UUID) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
				return fmt.Errorf("delete user: %w", err)
			}
		}
		return nil
	})
}

func (s *store) user(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, email, date_created, date_updated FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	return u, err
}

func (s *store) users(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, date_created, date_updated FROM users ORDER BY date_created, username`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DateCreated, &u.DateUpdated); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *store) createPost(ctx context.Context, p *Post) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, body, published, date_created, date_updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Author.ID, p.Title, p.Body, p.Published, p.DateCreated, p.DateUpdated)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *store) updatePost(ctx context.Context, p *Post) error {
	p.Touch()
	res, err := s.db.ExecContext(ctx,
		`UPDATE posts SET title = ?, body = ?, published = ?, date_updated = ? WHERE id = ?`,
		p.Title, p.Body, p.Published, p.DateUpdated, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return affected(res)
}

func (s *store) deletePost(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errNotFound
	}
	return nil
}

const postColumns = `p.id, p.title, p.body, p.published, p.date_created, p.date_updated,
	u.id, u.username, u.email, u.date_created, u.date_updated`

func scanPost(row scanner) (*Post, error) {
	p := Post{Author: &User{}}
	a := p.Author
	err := row.Scan(&p.ID, &p.Title, &p.Body, &p.Published, &p.DateCreated, &p.DateUpdated,
		&a.ID, &a.Username, &a.Email, &a.DateCreated, &a.DateUpdated)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// post loads a post with its author and comments.
func (s *store) post(ctx context.Context, id uuid.UUID) (*Post, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p JOIN users u ON u.id = p.author_id WHERE p.id = ?`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}

	if p.Comments, err = s.comments(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// posts lists posts with their authors, newest first.
func (s *store) posts(ctx context.Context) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts p JOIN users u ON u.id = p.author_id ORDER BY p.date_created DESC, p.title`)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var out []*Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *store) createComment(ctx context.Context, c *Comment) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, author_id, body, approved, date_created, date_updated) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Post.ID, c.Author.ID, c.Body, c.Approved, c.DateCreated, c.DateUpdated)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *store) comments(ctx context.Context, p *Post) ([]*Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.id, c.body, c.approved, c.date_created, c.date_updated,
			u.id, u.username, u.email, u.date_created, u.date_updated
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ? ORDER BY c.date_created`, p.ID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []*Comment{}
	for rows.Next() {
		c := Comment{Post: p, Author: &User{}}
		a := c.Author
		err := rows.Scan(&c.ID, &c.Body, &c.Approved, &c.DateCreated, &c.DateUpdated,
			&a.ID, &a.Username, &a.Email, &a.DateCreated, &a.DateUpdated)
		if err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// seed fills an empty database with a few rows to explore the API.
func (s *store) seed(ctx context.Context) error {
	ada := &User{Base: model.NewBase(), Username: "ada", Email: "ada@example.com"}
	alan := &User{Base: model.NewBase(), Username: "alan", Email: "alan@example.com"}
	for _, u := range []*User{ada, alan} {
		if err := s.createUser(ctx, u); err != nil {
			return err
		}
	}

	p := &Post{Base: model.NewBase(), Author: ada, Title: "Notes on the engine", Body: "...", Published: true}
	if err := s.createPost(ctx, p); err != nil {
		return err
	}
	c := &Comment{Base: model.NewBase(), Post: p, Author: alan, Body: "Fascinating.", Approved: true}
	return s.createComment(ctx, c)
}
