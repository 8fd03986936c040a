package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/models"
)

// Every tenant-owned lookup takes the tenant ID and filters by it in SQL.
// A row that exists under another tenant is indistinguishable from a
// missing one: single-row getters return nil, nil in both cases.

type TenantRepository interface {
	// Bootstrap writes a new tenant with its first user and roles in one
	// transaction. Nothing is left behind when any step fails.
	Bootstrap(ctx context.Context, b models.TenantBootstrap) (*models.Tenant, *models.User, error)
	GetByID(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
}

type UserRepository interface {
	Create(ctx context.Context, u models.NewUser) (*models.User, error)

	// GetByID returns a user by their ID, scoped to the tenant.
	GetByID(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) (*models.User, error)

	// GetByEmail looks a user up globally. Emails are unique across tenants.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	List(ctx context.Context, tenantID uuid.UUID) ([]models.User, error)
}

type SkillRepository interface {
	Create(ctx context.Context, tenantID uuid.UUID, name string, category, description *string) (*models.Skill, error)
	GetByID(ctx context.Context, tenantID, skillID uuid.UUID) (*models.Skill, error)

	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Skill, error)

	List(ctx context.Context, tenantID uuid.UUID, filter models.SkillFilter) ([]models.Skill, error)
	Update(ctx context.Context, tenantID, skillID uuid.UUID, upd models.SkillUpdate) (*models.Skill, error)
	Delete(ctx context.Context, tenantID, skillID uuid.UUID) (bool, error)

	// FindByIDs returns the subset of ids that are skills of the tenant.
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]models.Skill, error)
}

type CalendarRepository interface {
	// Create inserts the calendar and its skill links atomically.
	Create(ctx context.Context, cal models.NewCalendar) (*models.Calendar, error)
	GetByID(ctx context.Context, tenantID, calendarID uuid.UUID) (*models.Calendar, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.CalendarFilter) ([]models.Calendar, error)

	// ListActive returns every active calendar of the tenant with its skills.
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]models.Calendar, error)

	// Update returns nil, nil when the calendar does not exist.
	Update(ctx context.Context, tenantID, calendarID uuid.UUID, upd models.CalendarUpdate) (*models.Calendar, error)
	Delete(ctx context.Context, tenantID, calendarID uuid.UUID) (bool, error)
}

type AvailabilityRepository interface {
	Create(ctx context.Context, slot models.NewAvailabilitySlot) (*models.AvailabilitySlot, error)
	GetByID(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, error)
	ListByCalendar(ctx context.Context, calendarID uuid.UUID) ([]models.AvailabilitySlot, error)

	// ListForCalendars batches the template lookup for a search.
	ListForCalendars(ctx context.Context, calendarIDs []uuid.UUID) ([]models.AvailabilitySlot, error)

	// Update overwrites the mutable fields of slot.ID with slot's values.
	Update(ctx context.Context, slot models.AvailabilitySlot) (*models.AvailabilitySlot, error)
	Delete(ctx context.Context, slotID uuid.UUID) error
}

type AppointmentRepository interface {
	// Create inserts a pending appointment. A booking that would overlap
	// another pending or confirmed one on the calendar fails with a
	// conflict error from the store's exclusion constraint.
	Create(ctx context.Context, appt models.NewAppointment) (*models.Appointment, error)
	GetByID(ctx context.Context, tenantID, appointmentID uuid.UUID) (*models.Appointment, error)
	ListForCalendar(ctx context.Context, tenantID, calendarID uuid.UUID, window models.TimeRange) ([]models.Appointment, error)

	// FindConflicting returns pending or confirmed appointments on the
	// calendar overlapping [start, end). ignoreID excludes one appointment,
	// typically the one being moved.
	FindConflicting(ctx context.Context, calendarID uuid.UUID, start, end time.Time, ignoreID *uuid.UUID) ([]models.Appointment, error)

	// ListBlockingForCalendars returns pending or confirmed appointments on
	// any of the calendars overlapping [start, end).
	ListBlockingForCalendars(ctx context.Context, calendarIDs []uuid.UUID, start, end time.Time) ([]models.Appointment, error)

	// Update returns nil, nil when the appointment does not exist.
	Update(ctx context.Context, tenantID, appointmentID uuid.UUID, upd models.AppointmentUpdate) (*models.Appointment, error)
	Delete(ctx context.Context, tenantID, appointmentID uuid.UUID) (bool, error)
}

type GroupAppointmentRepository interface {
	// Create inserts the appointment, its providers and its participants in
	// one transaction. The group is created in status scheduled.
	Create(ctx context.Context, g models.NewGroupAppointment) (*models.GroupAppointment, error)

	// GetByID loads the group with its providers and participants.
	GetByID(ctx context.Context, tenantID, groupID uuid.UUID) (*models.GroupAppointment, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.GroupAppointmentFilter) ([]models.GroupAppointment, error)
	Update(ctx context.Context, tenantID, groupID uuid.UUID, upd models.GroupAppointmentUpdate) (*models.GroupAppointment, error)

	// UpdateProviderStatus reports false when the user is not a provider of
	// the group.
	UpdateProviderStatus(ctx context.Context, groupID, providerUserID uuid.UUID, status models.ProviderResponse) (bool, error)

	// UpdateParticipantStatus reports false when the user is not a
	// participant. A nil metadata keeps the stored one.
	UpdateParticipantStatus(ctx context.Context, groupID, participantUserID uuid.UUID, status models.ParticipantResponse, metadata map[string]any) (bool, error)
	Delete(ctx context.Context, tenantID, groupID uuid.UUID) (bool, error)
}

type WaitlistRepository interface {
	Create(ctx context.Context, entry models.NewWaitlistEntry) (*models.WaitlistEntry, error)
	GetByID(ctx context.Context, tenantID, entryID uuid.UUID) (*models.WaitlistEntry, error)
	List(ctx context.Context, tenantID uuid.UUID, filter models.WaitlistFilter) ([]models.WaitlistEntry, error)
	Update(ctx context.Context, tenantID, entryID uuid.UUID, upd models.WaitlistUpdate) (*models.WaitlistEntry, error)
	Delete(ctx context.Context, tenantID, entryID uuid.UUID) (bool, error)
}

type RoleRepository interface {
	// ListPermissions returns the global permission catalog.
	ListPermissions(ctx context.Context) ([]models.Permission, error)
	GetPermissionsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Permission, error)

	List(ctx context.Context, tenantID uuid.UUID) ([]models.Role, error)

	// GetByID loads the role with its permissions.
	GetByID(ctx context.Context, tenantID, roleID uuid.UUID) (*models.Role, error)
	GetByName(ctx context.Context, tenantID uuid.UUID, name string) (*models.Role, error)

	// Create inserts the role and its permission links atomically.
	Create(ctx context.Context, role models.NewRole) (*models.Role, error)

	// Update applies the changes to a non-system role atomically.
	Update(ctx context.Context, tenantID, roleID uuid.UUID, changes models.RoleChanges) error

	// Delete removes a non-system role. It reports false when no such role
	// exists or the role is a system role.
	Delete(ctx context.Context, tenantID, roleID uuid.UUID) (bool, error)
}

type UserRoleRepository interface {
	// Assign upserts the assignment, refreshing assigned_at and expiry.
	Assign(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID, expiresAt *time.Time) error
	Remove(ctx context.Context, userID, roleID uuid.UUID) error

	// ListActive returns the unexpired assignments of a user in the tenant.
	ListActive(ctx context.Context, tenantID, userID uuid.UUID) ([]models.RoleAssignment, error)

	// ListPermissionNames returns the distinct permissions granted by the
	// user's unexpired assignments.
	ListPermissionNames(ctx context.Context, tenantID, userID uuid.UUID) ([]string, error)

	// ListUserIDsByRole returns the current holders of a role.
	ListUserIDsByRole(ctx context.Context, tenantID, roleID uuid.UUID) ([]uuid.UUID, error)
}

type MetricsRepository interface {
	AppointmentCounts(ctx context.Context, tenantID uuid.UUID, window models.TimeRange) (models.AppointmentCounts, error)
	WaitlistCounts(ctx context.Context, tenantID uuid.UUID, window models.TimeRange) (models.WaitlistCounts, error)
	CalendarCounts(ctx context.Context, tenantID uuid.UUID) (active, total int, err error)
}

// TokenRepository is the durable record of revoked refresh tokens.
type TokenRepository interface {
	Revoke(ctx context.Context, jti, userID uuid.UUID, expiresAt time.Time) error

	// IsRevoked ignores rows whose expiry has passed.
	IsRevoked(ctx context.Context, jti uuid.UUID) (bool, error)

	// PurgeExpired deletes rows past their expiry and returns how many went.
	PurgeExpired(ctx context.Context) (int64, error)
}
