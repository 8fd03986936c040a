package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/slotbook/internal/db"
	"github.com/lalith-99/slotbook/internal/models"
)

type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

func (s *TenantStore) GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	query := `SELECT id, name, created_at FROM tenants WHERE id = $1`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, tenantID).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// Bootstrap inserts the tenant, its admin user and its roles, then assigns
// the admin role, all in one transaction.
func (s *TenantStore) Bootstrap(ctx context.Context, b models.TenantBootstrap) (*models.Tenant, *models.User, error) {
	var (
		tenant models.Tenant
		user   *models.User
	)
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO tenants (name, created_at)
			VALUES ($1, now())
			RETURNING id, name, created_at`, b.TenantName).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt)
		if err != nil {
			return wrapWrite("insert tenant", err)
		}

		status := b.Admin.Status
		if status == "" {
			status = models.UserStatusActive
		}
		user, err = scanUser(tx.QueryRow(ctx, `
			INSERT INTO users (tenant_id, email, display_name, role, status, password_hash, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			RETURNING `+userColumns,
			tenant.ID, b.Admin.Email, b.Admin.DisplayName, b.Admin.Role, status, b.Admin.PasswordHash))
		if err != nil {
			return wrapWrite("insert user", err)
		}

		var adminRoleID uuid.UUID
		for _, nr := range b.Roles {
			var id uuid.UUID
			err := tx.QueryRow(ctx, `
				INSERT INTO roles (tenant_id, name, description, is_system)
				VALUES ($1, $2, $3, $4)
				RETURNING id`,
				tenant.ID, nr.Name, nr.Description, nr.IsSystem).Scan(&id)
			if err != nil {
				return wrapWrite("insert role "+nr.Name, err)
			}
			if err := grantPermissions(ctx, tx, id, nr.PermissionIDs, nil); err != nil {
				return err
			}
			if nr.Name == b.AdminRole {
				adminRoleID = id
			}
		}
		if adminRoleID == uuid.Nil {
			return fmt.Errorf("bootstrap tenant: admin role %q not among seeded roles", b.AdminRole)
		}

		if _, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`, user.ID, adminRoleID); err != nil {
			return wrapWrite("assign admin role", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &tenant, user, nil
}
