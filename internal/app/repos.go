package app

import (
	"gorm.io/gorm"

	agentlogrepo "github.com/yungbote/school-backend/internal/data/repos/agentlog"
	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

type Repos struct {
	User       userrepo.UserRepo
	Profile    userrepo.ProfileRepo
	Settings   userrepo.SettingsRepo
	Course     learningrepo.CourseRepo
	Lesson     learningrepo.LessonRepo
	Assessment learningrepo.AssessmentRepo
	AgentLog   agentlogrepo.AgentLogRepo
	JobRun     jobrepo.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       userrepo.NewUserRepo(db, log),
		Profile:    userrepo.NewProfileRepo(db, log),
		Settings:   userrepo.NewSettingsRepo(db, log),
		Course:     learningrepo.NewCourseRepo(db, log),
		Lesson:     learningrepo.NewLessonRepo(db, log),
		Assessment: learningrepo.NewAssessmentRepo(db, log),
		AgentLog:   agentlogrepo.NewAgentLogRepo(db, log),
		JobRun:     jobrepo.NewJobRunRepo(db, log),
	}
}
