package agentlog

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/domain/agentlog"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type AgentLogRepo interface {
	Create(dbc dbctx.Context, rows []*agentlog.AgentLog) error
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*agentlog.AgentLog, error)
}

type agentLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentLogRepo(db *gorm.DB, baseLog *logger.Logger) AgentLogRepo {
	return &agentLogRepo{db: db, log: baseLog.With("repo", "AgentLogRepo")}
}

func (r *agentLogRepo) Create(dbc dbctx.Context, rows []*agentlog.AgentLog) error {
	if len(rows) == 0 {
		return nil
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	return transaction.WithContext(dbc.Ctx).Create(&rows).Error
}

// ListByCourse returns rows oldest first. limit <= 0 means no limit.
func (r *agentLogRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID, limit int) ([]*agentlog.AgentLog, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Where("course_id = ?", courseID).Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*agentlog.AgentLog
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
