package reservations

import (
	"context"
	"io"

	"schoolbooking/internal/domain"
	"schoolbooking/internal/pkg/xlsx"
)

var exportColumns = []string{
	"ID", "Resource", "User", "Date", "Start", "End", "Status", "Purpose", "Created at",
}

// Export writes the reservations matching q as an xlsx workbook. Admin only.
// An empty status filter exports every status.
func (s *Service) Export(ctx context.Context, actor domain.Actor, q ListQuery, out io.Writer) (int, error) {
	if !actor.IsAdmin() {
		return 0, ErrForbidden
	}
	if q.Status == "" {
		q.Status = "all"
	}
	list, err := s.List(ctx, actor, q)
	if err != nil {
		return 0, err
	}
	if err := s.writeWorkbook(list, out); err != nil {
		return 0, err
	}
	s.logger.Info().Int64("actor_id", actor.UserID).Int("rows", len(list)).Msg("reservations exported")
	return len(list), nil
}

func (s *Service) writeWorkbook(list []domain.Reservation, out io.Writer) error {
	w := xlsx.NewWriter()
	defer w.Close()

	if err := w.AddSheet("Reservations"); err != nil {
		return err
	}
	if err := w.WriteHeader(exportColumns); err != nil {
		return err
	}
	for _, r := range list {
		start := r.StartTime.In(s.loc)
		row := []any{
			r.ID,
			r.ResourceName,
			r.UserName,
			start.Format("2006-01-02"),
			start.Format("15:04"),
			r.EndTime.In(s.loc).Format("15:04"),
			string(r.Status),
			r.Purpose,
			r.CreatedAt.In(s.loc).Format("2006-01-02 15:04"),
		}
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	if err := w.SetColumnWidths(8, 28, 24, 12, 8, 8, 12, 40, 18); err != nil {
		return err
	}
	return w.Save(out)
}
