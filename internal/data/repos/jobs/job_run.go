package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type JobRunRepo interface {
	Create(dbc dbctx.Context, rows []*jobs.JobRun) ([]*jobs.JobRun, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*jobs.JobRun, error)
	GetLatestByEntity(dbc dbctx.Context, ownerUserID string, entityType string, entityID uuid.UUID, jobType string) (*jobs.JobRun, error)
	ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*jobs.JobRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	HasRunnableForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobTypes ...string) (bool, error)
	CancelForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID) (int64, error)
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{
		db:  db,
		log: baseLog.With("repo", "JobRunRepo"),
	}
}

func (r *jobRunRepo) tx(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *jobRunRepo) Create(dbc dbctx.Context, rows []*jobs.JobRun) ([]*jobs.JobRun, error) {
	if len(rows) == 0 {
		return []*jobs.JobRun{}, nil
	}
	for _, j := range rows {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
	}
	if err := r.tx(dbc).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *jobRunRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*jobs.JobRun, error) {
	var out []*jobs.JobRun
	if err := r.tx(dbc).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *jobRunRepo) GetLatestByEntity(dbc dbctx.Context, ownerUserID string, entityType string, entityID uuid.UUID, jobType string) (*jobs.JobRun, error) {
	if ownerUserID == "" || entityID == uuid.Nil || entityType == "" || jobType == "" {
		return nil, nil
	}
	var out []*jobs.JobRun
	err := r.tx(dbc).
		Where("owner_user_id = ? AND entity_type = ? AND entity_id = ? AND job_type = ?", ownerUserID, entityType, entityID, jobType).
		Order("created_at DESC").
		Limit(1).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// ClaimNextRunnable picks the oldest queued job, a failed job whose retry
// delay has passed, or a running job whose heartbeat went stale, and marks
// it running in the same transaction.
func (r *jobRunRepo) ClaimNextRunnable(dbc dbctx.Context, maxAttempts int, retryDelay time.Duration, staleRunning time.Duration) (*jobs.JobRun, error) {
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *jobs.JobRun
	err := r.tx(dbc).Transaction(func(txx *gorm.DB) error {
		var job jobs.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < ?
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, jobs.StatusQueued, jobs.StatusFailed, maxAttempts, retryCutoff, jobs.StatusRunning, staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&jobs.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       jobs.StatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = jobs.StatusRunning
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.tx(dbc).
		Model(&jobs.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := r.tx(dbc).
		Model(&jobs.JobRun{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *jobRunRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return r.tx(dbc).
		Model(&jobs.JobRun{}).
		Where("id = ? AND status = ?", id, jobs.StatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

func (r *jobRunRepo) HasRunnableForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobTypes ...string) (bool, error) {
	if entityID == uuid.Nil || entityType == "" {
		return false, nil
	}
	q := r.tx(dbc).
		Model(&jobs.JobRun{}).
		Where("entity_type = ? AND entity_id = ? AND status IN ?",
			entityType, entityID, []string{jobs.StatusQueued, jobs.StatusRunning},
		)
	if len(jobTypes) > 0 {
		q = q.Where("job_type IN ?", jobTypes)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CancelForEntity stops every queued or running job for an entity; runtime
// updates skip canceled rows so in-flight handlers cannot resurrect them.
func (r *jobRunRepo) CancelForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID) (int64, error) {
	res := r.tx(dbc).
		Model(&jobs.JobRun{}).
		Where("entity_type = ? AND entity_id = ? AND status IN ?",
			entityType, entityID, []string{jobs.StatusQueued, jobs.StatusRunning},
		).
		Updates(map[string]interface{}{
			"status":     jobs.StatusCanceled,
			"stage":      jobs.StatusCanceled,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}
