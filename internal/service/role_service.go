package service

import (
	"context"

	"membership-auth/internal/model"
)

type roleStore interface {
	Create(ctx context.Context, name string) (model.Role, error)
	FindByID(ctx context.Context, id int64) (model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	Update(ctx context.Context, id int64, name string) error
	Delete(ctx context.Context, id int64) error
}

type RoleService struct {
	roles roleStore
}

func NewRoleService(roles roleStore) *RoleService {
	return &RoleService{roles: roles}
}

func (s *RoleService) Create(ctx context.Context, name string) (model.Role, error) {
	return s.roles.Create(ctx, name)
}

func (s *RoleService) Get(ctx context.Context, id int64) (model.Role, error) {
	return s.roles.FindByID(ctx, id)
}

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	return s.roles.List(ctx)
}

func (s *RoleService) Update(ctx context.Context, id int64, name string) (model.Role, error) {
	if err := s.roles.Update(ctx, id, name); err != nil {
		return model.Role{}, err
	}
	return s.roles.FindByID(ctx, id)
}

func (s *RoleService) Delete(ctx context.Context, id int64) error {
	return s.roles.Delete(ctx, id)
}
