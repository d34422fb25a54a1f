package gradelevel

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
)

const Table = "grade_levels"

// GradeLevel is a row of the grade_levels table.
type GradeLevel struct {
	ID          string      `db:"id" json:"id"`
	Name        string      `db:"name" json:"name"`
	Description null.String `db:"description" json:"description"`
	OrderIndex  int         `db:"order_index" json:"order_index"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// Form is the create/edit grade level form.
type Form struct {
	Name        string `form:"name" json:"name" validate:"notblank"`
	Description string `form:"description" json:"description"`
}

func (f *Form) Validate() error {
	f.Name = core.CleanString(f.Name)
	f.Description = core.CleanString(f.Description)
	return core.Validate.Struct(f)
}

// Filter keeps the levels whose name or description contains search, case-insensitively.
func Filter(levels []GradeLevel, search string) []GradeLevel {
	search = core.CleanString(search)
	if search == "" {
		return levels
	}
	filtered := make([]GradeLevel, 0, len(levels))
	for _, gl := range levels {
		if core.ContainsFold(gl.Name, search) || (gl.Description.Valid && core.ContainsFold(gl.Description.String, search)) {
			filtered = append(filtered, gl)
		}
	}
	return filtered
}

// Name returns the name of the level with the given id, or "Unassigned".
func Name(levels []GradeLevel, id null.String) string {
	if id.Valid {
		for _, gl := range levels {
			if gl.ID == id.String {
				return gl.Name
			}
		}
	}
	return "Unassigned"
}
