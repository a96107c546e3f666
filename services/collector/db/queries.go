package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Post struct {
	ID          int64
	Target      string
	Username    string
	Text        string
	Likes       int64
	CollectedAt int64
}

const createPost = `
INSERT INTO post (target, username, text, likes, collected_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (target, username, text)
DO UPDATE SET likes = excluded.likes, collected_at = excluded.collected_at
`

type CreatePostParams struct {
	Target      string
	Username    string
	Text        string
	Likes       int64
	CollectedAt int64
}

func (q *Queries) CreatePost(ctx context.Context, arg CreatePostParams) error {
	_, err := q.db.ExecContext(ctx, createPost,
		arg.Target,
		arg.Username,
		arg.Text,
		arg.Likes,
		arg.CollectedAt,
	)
	return err
}

const getPostsByTarget = `
SELECT id, target, username, text, likes, collected_at FROM post
WHERE target = ? AND likes > ?
ORDER BY likes DESC, id ASC
`

type GetPostsByTargetParams struct {
	Target   string
	MinLikes int64
}

func (q *Queries) GetPostsByTarget(ctx context.Context, arg GetPostsByTargetParams) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, getPostsByTarget, arg.Target, arg.MinLikes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		err := rows.Scan(&p.ID, &p.Target, &p.Username, &p.Text, &p.Likes, &p.CollectedAt)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

const countPostsByTarget = `
SELECT COUNT(*) FROM post WHERE target = ?
`

func (q *Queries) CountPostsByTarget(ctx context.Context, target string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPostsByTarget, target)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const deletePostsBefore = `
DELETE FROM post WHERE collected_at < ?
`

func (q *Queries) DeletePostsBefore(ctx context.Context, before int64) error {
	_, err := q.db.ExecContext(ctx, deletePostsBefore, before)
	return err
}
