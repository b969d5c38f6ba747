package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/school-backend/internal/domain/agentlog"
	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/domain/user"
)

// Models lists every table the service owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		// identity
		&user.User{},
		&user.LearnerProfile{},
		&user.Settings{},

		// courses
		&learning.Course{},
		&learning.Lesson{},
		&learning.Assessment{},

		// audit + execution
		&agentlog.AgentLog{},
		&jobs.JobRun{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
