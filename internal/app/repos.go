package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type Repos struct {
	User       repos.UserRepo
	Grant      repos.CapabilityGrantRepo
	Activity   repos.ActivityRepo
	Question   repos.QuestionRepo
	Request    repos.RequestRepo
	Reply      repos.ReplyRepo
	Comment    repos.CommentRepo
	Completion repos.CompletionRepo
	EventLog   repos.EventLogRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		Grant:      repos.NewCapabilityGrantRepo(db, log),
		Activity:   repos.NewActivityRepo(db, log),
		Question:   repos.NewQuestionRepo(db, log),
		Request:    repos.NewRequestRepo(db, log),
		Reply:      repos.NewReplyRepo(db, log),
		Comment:    repos.NewCommentRepo(db, log),
		Completion: repos.NewCompletionRepo(db, log),
		EventLog:   repos.NewEventLogRepo(db, log),
	}
}
