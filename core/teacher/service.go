package teacher

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

// Query returns all teachers, newest first.
func (svc *Service) Query(ctx context.Context) ([]Teacher, error) {
	var teachers []Teacher
	err := svc.store.Select(ctx, Table, core.Query{}.OrderBy(core.Desc("created_at")), &teachers)
	return teachers, errors.Wrap(err, "selecting teachers")
}

func (svc *Service) Get(ctx context.Context, id string) (Teacher, error) {
	var t Teacher
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("id", id)), &t)
	return t, errors.Wrap(err, "getting teacher")
}

// ForUser returns the teacher linked to the given auth user.
func (svc *Service) ForUser(ctx context.Context, userID string) (Teacher, error) {
	var t Teacher
	err := svc.store.Get(ctx, Table, core.Where(core.Eq("user_id", userID)), &t)
	return t, errors.Wrap(err, "getting teacher by user")
}

// Create adds a teacher with a generated teacher ID, hired today unless told otherwise.
func (svc *Service) Create(ctx context.Context, data Form) (Teacher, error) {
	if err := data.Validate(); err != nil {
		return Teacher{}, err
	}
	now := core.NowFunc().UTC()
	t := Teacher{
		ID:            uuid.NewString(),
		TeacherID:     core.NewCode(CodePrefix),
		FirstName:     data.FirstName,
		LastName:      data.LastName,
		Email:         data.Email,
		Phone:         core.NullString(data.Phone),
		Subject:       core.NullString(data.Subject),
		Qualification: core.NullString(data.Qualification),
		HireDate:      now.Format(core.DateLayout),
		Status:        StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if data.HireDate != "" {
		t.HireDate = data.HireDate
	}
	if data.Status != "" {
		t.Status = data.Status
	}
	var created Teacher
	if err := svc.store.Insert(ctx, Table, t, &created); err != nil {
		return Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return created, nil
}

func (svc *Service) Update(ctx context.Context, id string, data Form) (Teacher, error) {
	if err := data.Validate(); err != nil {
		return Teacher{}, err
	}
	var t Teacher
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, data.patch(), &t)
	return t, errors.Wrap(err, "updating teacher")
}

func (svc *Service) SetAvatar(ctx context.Context, id, url string) (Teacher, error) {
	patch := map[string]interface{}{"avatar_url": core.NullString(url), "updated_at": core.NowFunc().UTC()}
	var t Teacher
	err := svc.store.Update(ctx, Table, []core.Filter{core.Eq("id", id)}, patch, &t)
	return t, errors.Wrap(err, "setting teacher avatar")
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	n, err := svc.store.Delete(ctx, Table, []core.Filter{core.Eq("id", id)})
	if err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
