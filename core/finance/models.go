package finance

import (
	"io"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/sheet"
)

const Table = "fees"

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
	StatusOverdue = "overdue"
)

// Fee is a row of the fees table.
type Fee struct {
	ID          string       `db:"id" json:"id"`
	StudentID   string       `db:"student_id" json:"student_id"`
	Description string       `db:"description" json:"description"`
	Amount      float64      `db:"amount" json:"amount"`
	DueDate     string       `db:"due_date" json:"due_date"`
	Status      string       `db:"status" json:"status"`
	PaidAmount  null.Float64 `db:"paid_amount" json:"paid_amount"`
	PaidDate    null.String  `db:"paid_date" json:"paid_date"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

func (f Fee) IsPaid() bool { return f.Status == StatusPaid }

// IsLate reports whether an unpaid fee is past its due date on day (YYYY-MM-DD).
func (f Fee) IsLate(day string) bool {
	return !f.IsPaid() && f.DueDate < day
}

// Form is the "add payment record" form.
type Form struct {
	StudentID   string  `form:"student_id" json:"student_id" validate:"required"`
	Description string  `form:"description" json:"description" validate:"notblank"`
	Amount      float64 `form:"amount" json:"amount" validate:"gt=0"`
	DueDate     string  `form:"due_date" json:"due_date" validate:"required,isodate"`
}

func (f *Form) Validate() error {
	f.StudentID = core.CleanString(f.StudentID)
	f.Description = core.CleanString(f.Description)
	f.DueDate = core.CleanString(f.DueDate)
	return core.Validate.Struct(f)
}

// Stats sums the fee amounts per status.
type Stats struct {
	Received float64
	Pending  float64
	Overdue  float64
}

func StatsOf(fees []Fee) Stats {
	var s Stats
	for _, f := range fees {
		switch f.Status {
		case StatusPaid:
			s.Received += f.Amount
		case StatusPending:
			s.Pending += f.Amount
		case StatusOverdue:
			s.Overdue += f.Amount
		}
	}
	return s
}

// CollectionRate is the received share of all billed amounts.
func (s Stats) CollectionRate() int {
	return core.PercentF(s.Received, s.Received+s.Pending+s.Overdue)
}

// Filter keeps the fees whose student name contains search, case-insensitively.
func Filter(fees []Fee, names map[string]string, search string) []Fee {
	search = core.CleanString(search)
	if search == "" {
		return fees
	}
	filtered := make([]Fee, 0, len(fees))
	for _, f := range fees {
		if core.ContainsFold(names[f.StudentID], search) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// Export writes the fees as an XLSX workbook. names maps student IDs to full names.
func Export(w io.Writer, fees []Fee, names map[string]string) error {
	return sheet.Write(w, Sheet(fees, names))
}

// Sheet lays the fees out as the "Fees" worksheet.
func Sheet(fees []Fee, names map[string]string) *sheet.Table {
	t := &sheet.Table{
		Name:   "Fees",
		Header: []string{"Student", "Description", "Amount", "Due Date", "Status", "Paid Amount", "Paid Date"},
	}
	for _, f := range fees {
		var paid interface{}
		if f.PaidAmount.Valid {
			paid = f.PaidAmount.Float64
		}
		t.Append(names[f.StudentID], f.Description, f.Amount, f.DueDate, f.Status, paid, f.PaidDate.String)
	}
	return t
}
