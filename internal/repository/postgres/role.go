package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/db"
	"github.com/lalith-99/slotbook/internal/models"
)

// RoleStore covers roles, the permission catalog and the role_permissions
// join table.
type RoleStore struct {
	pool *pgxpool.Pool
}

func NewRoleStore(pool *pgxpool.Pool) *RoleStore {
	return &RoleStore{pool: pool}
}

const (
	roleColumns       = `id, tenant_id, name, description, is_system, created_at, updated_at`
	permissionColumns = `id, name, resource, action, description`
)

func scanRole(row pgx.Row) (*models.Role, error) {
	var r models.Role
	if err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.Description, &r.IsSystem, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func collectPermissions(rows pgx.Rows) ([]models.Permission, error) {
	defer rows.Close()
	perms := make([]models.Permission, 0)
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return perms, nil
}

func (s *RoleStore) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions ORDER BY resource, action`)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (s *RoleStore) GetPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Permission, error) {
	if len(ids) == 0 {
		return []models.Permission{}, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get permissions: %w", err)
	}
	return collectPermissions(rows)
}

func (s *RoleStore) List(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+roleColumns+`
		FROM roles
		WHERE tenant_id = $1
		ORDER BY is_system DESC, name ASC`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.Role, 0)
	for rows.Next() {
		r, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func getRole(ctx context.Context, q querier, tenantID, roleID uuid.UUID) (*models.Role, error) {
	r, err := scanRole(q.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE tenant_id = $1 AND id = $2`, tenantID, roleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT p.id, p.name, p.resource, p.action, p.description
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.resource, p.action`, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role permissions: %w", err)
	}
	r.Permissions, err = collectPermissions(rows)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RoleStore) GetByID(ctx context.Context, tenantID, roleID uuid.UUID) (*models.Role, error) {
	return getRole(ctx, s.pool, tenantID, roleID)
}

func (s *RoleStore) GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error) {
	r, err := scanRole(s.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE tenant_id = $1 AND name = $2`, tenantID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get role by name: %w", err)
	}
	return r, nil
}

func grantPermissions(ctx context.Context, tx pgx.Tx, roleID uuid.UUID, permissionIDs []uuid.UUID, grantedBy *uuid.UUID) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id, granted_by)
		SELECT $1, p, $3 FROM unnest($2::uuid[]) AS p
		ON CONFLICT (role_id, permission_id) DO NOTHING`,
		roleID, permissionIDs, grantedBy)
	if err != nil {
		return wrapWrite("grant permissions", err)
	}
	return nil
}

func (s *RoleStore) Create(ctx context.Context, nr models.NewRole) (*models.Role, error) {
	var created *models.Role
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var id uuid.UUID
		err := tx.QueryRow(ctx, `
			INSERT INTO roles (tenant_id, name, description, is_system)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, nr.TenantID, nr.Name, nr.Description, nr.IsSystem).Scan(&id)
		if err != nil {
			return wrapWrite("insert role", err)
		}
		if err := grantPermissions(ctx, tx, id, nr.PermissionIDs, nr.CreatedBy); err != nil {
			return err
		}
		created, err = getRole(ctx, tx, nr.TenantID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *RoleStore) Update(ctx context.Context, tenantID, roleID uuid.UUID, changes models.RoleChanges) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if changes.Name != nil || changes.Description != nil {
			_, err := tx.Exec(ctx, `
				UPDATE roles
				SET name = COALESCE($3, name),
				    description = COALESCE($4, description),
				    updated_at = now()
				WHERE tenant_id = $1 AND id = $2 AND is_system = FALSE`,
				tenantID, roleID, changes.Name, changes.Description)
			if err != nil {
				return wrapWrite("update role", err)
			}
		}
		if err := grantPermissions(ctx, tx, roleID, changes.Grant, changes.GrantedBy); err != nil {
			return err
		}
		if len(changes.Revoke) > 0 {
			_, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = ANY($2)`,
				roleID, changes.Revoke)
			if err != nil {
				return fmt.Errorf("revoke permissions: %w", err)
			}
		}
		return nil
	})
}

func (s *RoleStore) Delete(ctx context.Context, tenantID, roleID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM roles WHERE tenant_id = $1 AND id = $2 AND is_system = FALSE`, tenantID, roleID)
	if err != nil {
		return false, fmt.Errorf("delete role: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UserRoleStore manages role assignments.
type UserRoleStore struct {
	pool *pgxpool.Pool
}

func NewUserRoleStore(pool *pgxpool.Pool) *UserRoleStore {
	return &UserRoleStore{pool: pool}
}

// Assign is idempotent: re-assigning refreshes assigned_at, assigner and
// expiry instead of failing on the (user_id, role_id) key.
func (s *UserRoleStore) Assign(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID, expiresAt *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_by, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, role_id)
		DO UPDATE SET assigned_by = EXCLUDED.assigned_by,
		              assigned_at = now(),
		              expires_at = EXCLUDED.expires_at`,
		userID, roleID, assignedBy, expiresAt)
	if err != nil {
		return wrapWrite("assign role", err)
	}
	return nil
}

func (s *UserRoleStore) Remove(ctx context.Context, userID, roleID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID); err != nil {
		return fmt.Errorf("remove role: %w", err)
	}
	return nil
}

func (s *UserRoleStore) ListActive(ctx context.Context, tenantID, userID uuid.UUID) ([]models.RoleAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.is_system, ur.assigned_at, ur.assigned_by, ur.expires_at
		FROM user_roles ur
		JOIN roles r ON ur.role_id = r.id
		WHERE ur.user_id = $1
		  AND r.tenant_id = $2
		  AND (ur.expires_at IS NULL OR ur.expires_at > now())
		ORDER BY r.is_system DESC, r.name ASC`, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list user roles: %w", err)
	}
	defer rows.Close()

	assignments := make([]models.RoleAssignment, 0)
	for rows.Next() {
		var a models.RoleAssignment
		if err := rows.Scan(&a.RoleID, &a.Name, &a.Description, &a.IsSystem, &a.AssignedAt, &a.AssignedBy, &a.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}
	return assignments, nil
}

func (s *UserRoleStore) ListPermissionNames(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN roles r ON ur.role_id = r.id
		JOIN role_permissions rp ON rp.role_id = r.id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		  AND r.tenant_id = $2
		  AND (ur.expires_at IS NULL OR ur.expires_at > now())
		ORDER BY p.name`, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list user permissions: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect user permissions: %w", err)
	}
	return names, nil
}

func (s *UserRoleStore) ListUserIDsByRole(ctx context.Context, tenantID, roleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ur.user_id
		FROM user_roles ur
		JOIN roles r ON ur.role_id = r.id
		WHERE r.tenant_id = $1
		  AND r.id = $2
		  AND (ur.expires_at IS NULL OR ur.expires_at > now())`, tenantID, roleID)
	if err != nil {
		return nil, fmt.Errorf("list role holders: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect role holders: %w", err)
	}
	return ids, nil
}
