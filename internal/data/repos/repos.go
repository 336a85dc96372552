package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/repos/events"
	"github.com/yungbote/recommend-backend/internal/data/repos/recommend"
	"github.com/yungbote/recommend-backend/internal/data/repos/user"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type CapabilityGrantRepo = user.CapabilityGrantRepo

type ActivityRepo = recommend.ActivityRepo
type QuestionRepo = recommend.QuestionRepo
type QuestionContent = recommend.QuestionContent
type RequestRepo = recommend.RequestRepo
type ReplyRepo = recommend.ReplyRepo
type CommentRepo = recommend.CommentRepo
type CompletionRepo = recommend.CompletionRepo

type EventLogRepo = events.EventLogRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewCapabilityGrantRepo(db *gorm.DB, baseLog *logger.Logger) CapabilityGrantRepo {
	return user.NewCapabilityGrantRepo(db, baseLog)
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return recommend.NewActivityRepo(db, baseLog)
}
func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return recommend.NewQuestionRepo(db, baseLog)
}
func NewRequestRepo(db *gorm.DB, baseLog *logger.Logger) RequestRepo {
	return recommend.NewRequestRepo(db, baseLog)
}
func NewReplyRepo(db *gorm.DB, baseLog *logger.Logger) ReplyRepo {
	return recommend.NewReplyRepo(db, baseLog)
}
func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return recommend.NewCommentRepo(db, baseLog)
}
func NewCompletionRepo(db *gorm.DB, baseLog *logger.Logger) CompletionRepo {
	return recommend.NewCompletionRepo(db, baseLog)
}

func NewEventLogRepo(db *gorm.DB, baseLog *logger.Logger) EventLogRepo {
	return events.NewEventLogRepo(db, baseLog)
}
