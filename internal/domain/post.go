package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxPostTitle = 200
	MaxPostBody  = 20000
)

type Post struct {
	ID        string       `json:"id"`
	SpaceID   string       `json:"space_id"`
	AuthorID  string       `json:"author_id"`
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	Pinned    bool         `json:"pinned"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Author    *ProfileCard `json:"author,omitempty"`
}

// NewPost trims and validates a post before it is persisted.
func NewPost(spaceID, authorID, title, body string) (*Post, error) {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > MaxPostBody {
		return nil, fmt.Errorf("%w: body exceeds %d characters", ErrInvalidInput, MaxPostBody)
	}
	if utf8.RuneCountInString(title) > MaxPostTitle {
		return nil, fmt.Errorf("%w: title exceeds %d characters", ErrInvalidInput, MaxPostTitle)
	}
	now := time.Now().UTC()
	return &Post{
		SpaceID:   spaceID,
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
