package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/schoolnews/internal/model"
)

// PostgresArticleRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresArticleRepo struct {
	db DBTX
}

// NewPostgresArticleRepo はPostgresArticleRepoを生成する。
func NewPostgresArticleRepo(db DBTX) *PostgresArticleRepo {
	return &PostgresArticleRepo{db: db}
}

const articleColumns = `a.id, a.school_id, a.owner_id, a.content, a.created_at, a.updated_at`

func scanArticle(row interface{ Scan(dest ...any) error }) (*model.Article, error) {
	a := &model.Article{}
	err := row.Scan(&a.ID, &a.SchoolID, &a.OwnerID, &a.Content, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// queryArticles は記事一覧クエリを実行して結果を返す。
func queryArticles(ctx context.Context, db DBTX, query string, args ...any) ([]*model.Article, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var articles []*model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("記事行の読み取りに失敗しました: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("記事一覧の走査に失敗しました: %w", err)
	}
	return articles, nil
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresArticleRepo) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	a, err := scanArticle(r.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM articles a WHERE a.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	return a, nil
}

// List は全記事をID降順で返す。
func (r *PostgresArticleRepo) List(ctx context.Context) ([]*model.Article, error) {
	return queryArticles(ctx, r.db,
		`SELECT `+articleColumns+` FROM articles a ORDER BY a.id DESC`)
}

// ListBySchool は学校の記事をID降順で返す。
func (r *PostgresArticleRepo) ListBySchool(ctx context.Context, schoolID int64) ([]*model.Article, error) {
	return queryArticles(ctx, r.db,
		`SELECT `+articleColumns+` FROM articles a WHERE a.school_id = $1 ORDER BY a.id DESC`,
		schoolID,
	)
}

// Create は記事を作成し、採番されたIDをarticle.IDに設定する。
func (r *PostgresArticleRepo) Create(ctx context.Context, a *model.Article) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO articles (school_id, owner_id, content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.SchoolID, a.OwnerID, a.Content, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("記事の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateContent は記事本文を更新する。
func (r *PostgresArticleRepo) UpdateContent(ctx context.Context, a *model.Article) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE articles SET content = $2, updated_at = $3 WHERE id = $1`,
		a.ID, a.Content, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("記事の更新に失敗しました: %w", err)
	}
	return requireOneRow(result, "記事", a.ID)
}

// Delete は指定IDの記事を削除する。
func (r *PostgresArticleRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("記事の削除に失敗しました: %w", err)
	}
	return requireOneRow(result, "記事", id)
}

// compile-time interface check
var _ ArticleRepository = (*PostgresArticleRepo)(nil)
