package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/1Browser/backend/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (id, url, selector, origin, user_id, content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.URL, c.Selector, c.Origin, c.UserID, c.Content, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListByURL は指定URLのコメントをcreated_at降順で返す。
func (r *PostgresCommentRepo) ListByURL(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, selector, origin, user_id, content, created_at
		 FROM comments WHERE url = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		url, limit, page*limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*model.Comment{}
	for rows.Next() {
		c := &model.Comment{}
		var origin sql.NullString
		if err := rows.Scan(&c.ID, &c.URL, &c.Selector, &origin, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if origin.Valid {
			c.Origin = &origin.String
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
