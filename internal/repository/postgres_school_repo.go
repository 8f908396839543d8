package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/schoolnews/internal/model"
)

// PostgresSchoolRepo はPostgreSQLを使用した学校リポジトリ。
type PostgresSchoolRepo struct {
	db DBTX
}

// NewPostgresSchoolRepo はPostgresSchoolRepoを生成する。
func NewPostgresSchoolRepo(db DBTX) *PostgresSchoolRepo {
	return &PostgresSchoolRepo{db: db}
}

const schoolColumns = `id, owner_id, name, region, region_detail, created_at, updated_at`

func scanSchool(row interface{ Scan(dest ...any) error }) (*model.School, error) {
	s := &model.School{}
	err := row.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Region, &s.RegionDetail, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// FindByID は指定IDの学校を取得する。見つからない場合はnilを返す。
func (r *PostgresSchoolRepo) FindByID(ctx context.Context, id int64) (*model.School, error) {
	s, err := scanSchool(r.db.QueryRowContext(ctx,
		`SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("学校の取得に失敗しました: %w", err)
	}
	return s, nil
}

// List は全学校を名前の昇順で返す。同名の場合はID昇順。
func (r *PostgresSchoolRepo) List(ctx context.Context) ([]*model.School, error) {
	return r.query(ctx,
		`SELECT `+schoolColumns+` FROM schools ORDER BY name ASC, id ASC`)
}

// ListSubscribedBy は指定ユーザーが購読中の学校を名前の昇順で返す。
func (r *PostgresSchoolRepo) ListSubscribedBy(ctx context.Context, userID string) ([]*model.School, error) {
	return r.query(ctx,
		`SELECT s.id, s.owner_id, s.name, s.region, s.region_detail, s.created_at, s.updated_at
		 FROM schools s
		 JOIN subscriptions sub ON sub.school_id = s.id
		 WHERE sub.user_id = $1
		 ORDER BY s.name ASC, s.id ASC`,
		userID,
	)
}

func (r *PostgresSchoolRepo) query(ctx context.Context, query string, args ...any) ([]*model.School, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("学校一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var schools []*model.School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("学校行の読み取りに失敗しました: %w", err)
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("学校一覧の走査に失敗しました: %w", err)
	}
	return schools, nil
}

// CountByOwner は指定ユーザーが管理する学校数を返す。
func (r *PostgresSchoolRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schools WHERE owner_id = $1`, ownerID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("管理学校数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// Create は学校を作成し、採番されたIDをschool.IDに設定する。
func (r *PostgresSchoolRepo) Create(ctx context.Context, s *model.School) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO schools (owner_id, name, region, region_detail, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		s.OwnerID, s.Name, s.Region, s.RegionDetail, s.CreatedAt, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("学校の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は学校名と地域情報を更新する。
func (r *PostgresSchoolRepo) Update(ctx context.Context, s *model.School) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE schools SET name = $2, region = $3, region_detail = $4, updated_at = $5 WHERE id = $1`,
		s.ID, s.Name, s.Region, s.RegionDetail, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("学校の更新に失敗しました: %w", err)
	}
	return requireOneRow(result, "学校", s.ID)
}

// Delete は指定IDの学校を削除する。
func (r *PostgresSchoolRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM schools WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("学校の削除に失敗しました: %w", err)
	}
	return requireOneRow(result, "学校", id)
}

// requireOneRow は更新・削除の対象行が存在したことを確認する。
func requireOneRow(result sql.Result, kind string, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%sが見つかりません: %d", kind, id)
	}
	return nil
}

// compile-time interface check
var _ SchoolRepository = (*PostgresSchoolRepo)(nil)
