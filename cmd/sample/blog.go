package main

import (
	"github.com/bjaus/apikit/model"
	"github.com/bjaus/apikit/serialize"
)

// User writes posts and comments.
type User struct {
	model.Base
	Username string `json:"username" required:"true" minLength:"3" maxLength:"32" pattern:"^[a-z0-9_]+$"`
	Email    string `json:"email" required:"true" pattern:"^[^@\\s]+@[^@\\s]+$"`
}

func (u *User) String() string { return u.Username }

// Post is a blog entry.
type Post struct {
	model.Base
	Author    *User      `json:"author"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Published bool       `json:"published"`
	Comments  []*Comment `json:"comments"`
}

// Excerpt is the first line of the body, at most 80 characters.
func (p *Post) Excerpt() string {
	r := []rune(p.Body)
	for i, c := range r {
		if c == '\n' {
			r = r[:i]
			break
		}
	}
	if len(r) > 80 {
		r = r[:80]
	}
	return string(r)
}

// Comment is a reader's reply to a post.
type Comment struct {
	model.Base
	Post     *Post  `json:"post"`
	Author   *User  `json:"author"`
	Body     string `json:"body"`
	Approved bool   `json:"approved"`
}

func approved(e any) bool {
	c, ok := e.(*Comment)
	return ok && c.Approved
}

// Structures of the blog entities. The post detail nests approved
// comments; list views only reference the author.
var (
	userStructure = serialize.Struct("id", "username", "email", "date_created")

	commentStructure = serialize.Struct("id", "body", "date_created").
				Set("author", serialize.AsString).
				Set("post", serialize.AsIdentifier)

	postStructure = serialize.Struct("id", "title", "excerpt", "body", "published", "date_created", "date_updated").
			Set("author", serialize.Struct("id", "username")).
			Set("comments", serialize.Struct("id", "body").
				Set("author", serialize.AsString).
				Where(approved))

	postSummary = serialize.Struct("id", "title", "excerpt").
			Set("author", serialize.AsString)
)

func newSerializer(opts ...serialize.Option) (*serialize.Serializer, error) {
	s := serialize.New(opts...)
	if err := serialize.Register[User](s, userStructure); err != nil {
		return nil, err
	}
	if err := serialize.Register[Post](s, postStructure, serialize.Named("summary", postSummary)); err != nil {
		return nil, err
	}
	if err := serialize.Register[Comment](s, commentStructure); err != nil {
		return nil, err
	}
	return s, nil
}
