package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/librarydesk-backend/internal/members"
	"github.com/angelmondragon/librarydesk-backend/pkg/logger"
	"github.com/angelmondragon/librarydesk-backend/pkg/metrics"
	"go.uber.org/multierr"
)

// OverdueScanJobName identifies the overdue scan in logs and metrics.
const OverdueScanJobName = "overdue_scan"

type overdueCounter interface {
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}

type overdueMemberLister interface {
	ListWithOverdueLoans(ctx context.Context, now time.Time) ([]members.OverdueMember, error)
}

// OverdueScanJobParams configures the overdue scan.
type OverdueScanJobParams struct {
	Logger  *logger.Logger
	Loans   overdueCounter
	Members overdueMemberLister
	Metrics *metrics.CirculationMetrics
}

type overdueScanJob struct {
	logg    *logger.Logger
	loans   overdueCounter
	members overdueMemberLister
	metrics *metrics.CirculationMetrics
	now     func() time.Time
}

// NewOverdueScanJob builds the job that publishes the overdue gauge and
// logs every member holding overdue loans.
func NewOverdueScanJob(params OverdueScanJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Loans == nil {
		return nil, fmt.Errorf("loan counter required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("member lister required")
	}
	return &overdueScanJob{
		logg:    params.Logger,
		loans:   params.Loans,
		members: params.Members,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

func (j *overdueScanJob) Name() string { return OverdueScanJobName }

// Run keeps going after a failed step so the gauge and the member report are
// independent.
func (j *overdueScanJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var errs error

	count, err := j.loans.CountOverdue(ctx, now)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("count overdue loans: %w", err))
	} else {
		j.metrics.SetOverdue(count)
		j.logg.Info(j.logg.WithField(ctx, "overdue_loans", count), "overdue loans counted")
	}

	rows, err := j.members.ListWithOverdueLoans(ctx, now)
	if err != nil {
		return multierr.Append(errs, fmt.Errorf("list members with overdue loans: %w", err))
	}
	for _, row := range rows {
		memberCtx := j.logg.WithMemberID(ctx, row.ID.String())
		memberCtx = j.logg.WithFields(memberCtx, map[string]any{
			"member_name":   row.Name,
			"member_email":  row.Email,
			"overdue_count": row.OverdueCount,
		})
		j.logg.Warn(memberCtx, "member has overdue loans")
	}
	return errs
}
