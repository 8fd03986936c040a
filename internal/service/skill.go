package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lalith-99/slotbook/internal/apperr"
	"github.com/lalith-99/slotbook/internal/cache"
	"github.com/lalith-99/slotbook/internal/models"
	"github.com/lalith-99/slotbook/internal/repository"
	"go.uber.org/zap"
)

type SkillService struct {
	skills repository.SkillRepository
	cache  cache.Cache
	logger *zap.Logger
}

func NewSkillService(skills repository.SkillRepository, c cache.Cache, logger *zap.Logger) *SkillService {
	if c == nil {
		c = cache.Noop{}
	}
	return &SkillService{skills: skills, cache: c, logger: logger}
}

func (s *SkillService) ensureNameFree(ctx context.Context, tenantID uuid.UUID, name string, self uuid.UUID) error {
	existing, err := s.skills.GetByName(ctx, tenantID, name)
	if err != nil {
		return fmt.Errorf("get skill by name: %w", err)
	}
	if existing != nil && existing.ID != self {
		return apperr.Conflict("skill with this name already exists")
	}
	return nil
}

func (s *SkillService) Create(ctx context.Context, tenantID uuid.UUID, name string, category, description *string) (*models.Skill, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.ensureNameFree(ctx, tenantID, name, uuid.Nil); err != nil {
		return nil, err
	}
	skill, err := s.skills.Create(ctx, tenantID, name, category, description)
	if err != nil {
		return nil, fmt.Errorf("create skill: %w", err)
	}
	return skill, nil
}

func (s *SkillService) Get(ctx context.Context, tenantID, skillID uuid.UUID) (*models.Skill, error) {
	skill, err := s.skills.GetByID(ctx, tenantID, skillID)
	if err != nil {
		return nil, fmt.Errorf("get skill: %w", err)
	}
	if skill == nil {
		return nil, apperr.NotFound("skill not found")
	}
	return skill, nil
}

func (s *SkillService) List(ctx context.Context, tenantID uuid.UUID, filter models.SkillFilter) ([]models.Skill, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, apperr.Validation("limit and offset must not be negative")
	}
	filter.Search = strings.TrimSpace(filter.Search)
	skills, err := s.skills.List(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// Update re-checks name uniqueness only when the name actually changes.
func (s *SkillService) Update(ctx context.Context, tenantID, skillID uuid.UUID, upd models.SkillUpdate) (*models.Skill, error) {
	current, err := s.Get(ctx, tenantID, skillID)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		if !strings.EqualFold(name, current.Name) {
			if err := s.ensureNameFree(ctx, tenantID, name, skillID); err != nil {
				return nil, err
			}
		}
		upd.Name = &name
	}

	updated, err := s.skills.Update(ctx, tenantID, skillID, upd)
	if err != nil {
		return nil, fmt.Errorf("update skill: %w", err)
	}
	if updated == nil {
		return nil, apperr.NotFound("skill not found")
	}
	return updated, nil
}

// Delete also detaches the skill from every calendar, so cached searches
// that required it are dropped.
func (s *SkillService) Delete(ctx context.Context, tenantID, skillID uuid.UUID) error {
	deleted, err := s.skills.Delete(ctx, tenantID, skillID)
	if err != nil {
		return fmt.Errorf("delete skill: %w", err)
	}
	if !deleted {
		return apperr.NotFound("skill not found")
	}
	invalidateAvailability(ctx, s.cache, s.logger, tenantID)
	return nil
}
