package gradelevel

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
)

type Service struct {
	store core.Store
}

func NewService(store core.Store) *Service {
	return &Service{store: store}
}

// Query returns all grade levels ordered by order_index.
func (svc *Service) Query(ctx context.Context) ([]GradeLevel, error) {
	var levels []GradeLevel
	err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Asc("order_index")), &levels)
	return levels, errors.Wrap(err, "selecting grade levels")
}

func (svc *Service) Get(ctx context.Context, id string) (GradeLevel, error) {
	var gl GradeLevel
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &gl)
	return gl, errors.Wrap(err, "getting grade level")
}

// Create appends a grade level after the last one.
func (svc *Service) Create(ctx context.Context, data Form) (GradeLevel, error) {
	if err := data.Validate(); err != nil {
		return GradeLevel{}, err
	}

	var last GradeLevel
	q := core.Query{Limit: 1}.OrderBy(core.Desc("order_index"))
	nextIndex := 1
	if err := svc.store.Get(ctx, Table, q, &last); err == nil {
		nextIndex = last.OrderIndex + 1
	} else if !core.IsNotFound(err) {
		return GradeLevel{}, errors.Wrap(err, "getting last grade level")
	}

	gl := GradeLevel{
		ID:          uuid.NewString(),
		Name:        data.Name,
		Description: core.NullString(data.Description),
		OrderIndex:  nextIndex,
		CreatedAt:   core.NowFunc().UTC(),
	}
	var created GradeLevel
	if err := svc.store.Insert(ctx, Table, gl, &created); err != nil {
		return GradeLevel{}, errors.Wrap(err, "inserting grade level")
	}
	return created, nil
}

func (svc *Service) Update(ctx context.Context, id string, data Form) (GradeLevel, error) {
	if err := data.Validate(); err != nil {
		return GradeLevel{}, err
	}
	patch := map[string]interface{}{
		"name":        data.Name,
		"description": core.NullString(data.Description),
	}
	var gl GradeLevel
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, patch, &gl)
	return gl, errors.Wrap(err, "updating grade level")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting grade level")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
