package attendance_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/attendance"
	"github.com/trezcool/schoolhub/core/sheet"
	"github.com/trezcool/schoolhub/storage/inmem"
)

func TestService_Mark(t *testing.T) {
	svc := attendance.NewService(inmem.Open())
	ctx := context.Background()

	_, err := svc.Mark(ctx, attendance.Mark{StudentID: "s1", Date: "04/01/2026", Status: "asleep"})
	assert.Equal(t, map[string]string{
		"date":   "must be a date (YYYY-MM-DD)",
		"status": "status must be one of [present absent late]",
	}, core.FieldErrors(err))

	rec, err := svc.Mark(ctx, attendance.Mark{StudentID: "s1", Date: "2026-01-04", Status: "Present"})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, rec.Status)

	again, err := svc.Mark(ctx, attendance.Mark{StudentID: "s1", Date: "2026-01-04", Status: "late", Notes: "bus"})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, "bus", again.Notes.String)

	_, err = svc.Mark(ctx, attendance.Mark{StudentID: "s2", Date: "2026-01-04", Status: "absent"})
	require.NoError(t, err)
	_, err = svc.Mark(ctx, attendance.Mark{StudentID: "s1", Date: "2026-01-05", Status: "present"})
	require.NoError(t, err)

	day, err := svc.Query(ctx, "2026-01-04", "")
	require.NoError(t, err)
	assert.Len(t, day, 2)

	all, err := svc.Query(ctx, "", "")
	require.NoError(t, err)
	if assert.Len(t, all, 3) {
		assert.Equal(t, "2026-01-05", all[0].Date)
	}

	mine, err := svc.ForStudents(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	updated, err := svc.SetStatus(ctx, rec.ID, attendance.StatusAbsent)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusAbsent, updated.Status)

	_, err = svc.SetStatus(ctx, rec.ID, "asleep")
	assert.Equal(t, map[string]string{"status": "invalid status"}, core.FieldErrors(err))

	require.NoError(t, svc.Delete(ctx, rec.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, rec.ID)))
}

func TestService_Mark_classAndDaily(t *testing.T) {
	svc := attendance.NewService(inmem.Open())
	ctx := context.Background()

	math, err := svc.Mark(ctx, attendance.Mark{StudentID: "s1", ClassID: "math", Date: "2026-01-04", Status: "absent"})
	require.NoError(t, err)
	daily, err := svc.Mark(ctx, attendance.Mark{StudentID: "s1", Date: "2026-01-04", Status: "present"})
	require.NoError(t, err)
	assert.NotEqual(t, math.ID, daily.ID)
	assert.False(t, daily.ClassID.Valid)

	again, err := svc.Mark(ctx, attendance.Mark{StudentID: "s1", Date: "2026-01-04", Status: "late"})
	require.NoError(t, err)
	assert.Equal(t, daily.ID, again.ID)

	rows, err := svc.Query(ctx, "2026-01-04", "math")
	require.NoError(t, err)
	if assert.Len(t, rows, 1) {
		assert.Equal(t, attendance.StatusAbsent, rows[0].Status)
	}
	all, err := svc.Query(ctx, "2026-01-04", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFilterAndStats(t *testing.T) {
	records := []attendance.Record{
		{ID: "1", StudentID: "s1", Status: attendance.StatusPresent},
		{ID: "2", StudentID: "s2", Status: attendance.StatusPresent},
		{ID: "3", StudentID: "s3", Status: attendance.StatusLate},
	}
	names := map[string]string{"s1": "Alex Johnson", "s2": "Emma Wilson", "s3": "Liam Brown"}

	assert.Len(t, attendance.Filter(records, names, "", attendance.StatusAll), 3)
	assert.Len(t, attendance.Filter(records, names, "", attendance.StatusPresent), 2)
	if got := attendance.Filter(records, names, "WIL", "all"); assert.Len(t, got, 1) {
		assert.Equal(t, "2", got[0].ID)
	}
	assert.Empty(t, attendance.Filter(records, names, "liam", attendance.StatusAbsent))

	stats := attendance.StatsOf(records)
	assert.Equal(t, attendance.Stats{Present: 2, Absent: 0, Late: 1, Total: 3}, stats)
	assert.Equal(t, 67, stats.PresentPercent())
	assert.Equal(t, 33, stats.LatePercent())
	assert.InDelta(t, 168.17, stats.RingDash(), 1e-9)
	assert.Equal(t, 0, attendance.StatsOf(nil).PresentPercent())
}

func TestExport(t *testing.T) {
	records := []attendance.Record{{StudentID: "s1", Date: "2026-01-04", Status: attendance.StatusLate}}
	var buf bytes.Buffer
	require.NoError(t, attendance.Export(&buf, records, map[string]string{"s1": "Alex Johnson"}, map[string]string{"s1": "Grade 5"}))

	rows, err := sheet.ReadFirst(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Alex Johnson", "Grade 5", "2026-01-04", "late"}, rows[1])
}
