package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/models"
)

type SkillStore struct {
	pool *pgxpool.Pool
}

func NewSkillStore(pool *pgxpool.Pool) *SkillStore {
	return &SkillStore{pool: pool}
}

const skillColumns = `id, tenant_id, name, category, description, created_at, updated_at`

func scanSkill(row pgx.Row) (*models.Skill, error) {
	var sk models.Skill
	if err := row.Scan(
		&sk.ID,
		&sk.TenantID,
		&sk.Name,
		&sk.Category,
		&sk.Description,
		&sk.CreatedAt,
		&sk.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &sk, nil
}

func collectSkills(rows pgx.Rows) ([]models.Skill, error) {
	defer rows.Close()
	skills := make([]models.Skill, 0)
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		skills = append(skills, *sk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skills: %w", err)
	}
	return skills, nil
}

func (s *SkillStore) Create(ctx context.Context, tenantID uuid.UUID, name string, category, description *string) (*models.Skill, error) {
	query := `
		INSERT INTO skills (tenant_id, name, category, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + skillColumns

	sk, err := scanSkill(s.pool.QueryRow(ctx, query, tenantID, name, category, description))
	if err != nil {
		return nil, wrapWrite("insert skill", err)
	}
	return sk, nil
}

func (s *SkillStore) GetByID(ctx context.Context, tenantID, skillID uuid.UUID) (*models.Skill, error) {
	query := `SELECT ` + skillColumns + ` FROM skills WHERE tenant_id = $1 AND id = $2`

	sk, err := scanSkill(s.pool.QueryRow(ctx, query, tenantID, skillID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get skill: %w", err)
	}
	return sk, nil
}

func (s *SkillStore) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Skill, error) {
	query := `SELECT ` + skillColumns + ` FROM skills WHERE tenant_id = $1 AND lower(name) = lower($2)`

	sk, err := scanSkill(s.pool.QueryRow(ctx, query, tenantID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get skill by name: %w", err)
	}
	return sk, nil
}

func (s *SkillStore) List(ctx context.Context, tenantID uuid.UUID, filter models.SkillFilter) ([]models.Skill, error) {
	// LIMIT NULL is no limit.
	var limit *int
	if filter.Limit > 0 {
		limit = &filter.Limit
	}
	query := `
		SELECT ` + skillColumns + `
		FROM skills
		WHERE tenant_id = $1
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY name ASC
		LIMIT $3 OFFSET $4`

	rows, err := s.pool.Query(ctx, query, tenantID, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return collectSkills(rows)
}

func (s *SkillStore) Update(ctx context.Context, tenantID, skillID uuid.UUID, upd models.SkillUpdate) (*models.Skill, error) {
	query := `
		UPDATE skills
		SET name = COALESCE($3, name),
		    category = COALESCE($4, category),
		    description = COALESCE($5, description),
		    updated_at = now()
		WHERE tenant_id = $1 AND id = $2
		RETURNING ` + skillColumns

	sk, err := scanSkill(s.pool.QueryRow(ctx, query, tenantID, skillID, upd.Name, upd.Category, upd.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapWrite("update skill", err)
	}
	return sk, nil
}

func (s *SkillStore) Delete(ctx context.Context, tenantID, skillID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM skills WHERE tenant_id = $1 AND id = $2`, tenantID, skillID)
	if err != nil {
		return false, fmt.Errorf("delete skill: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *SkillStore) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Skill, error) {
	if len(ids) == 0 {
		return []models.Skill{}, nil
	}
	query := `SELECT ` + skillColumns + ` FROM skills WHERE tenant_id = $1 AND id = ANY($2)`

	rows, err := s.pool.Query(ctx, query, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("find skills: %w", err)
	}
	return collectSkills(rows)
}
