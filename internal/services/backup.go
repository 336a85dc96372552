package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/yungbote/recommend-backend/internal/data/repos"
	types "github.com/yungbote/recommend-backend/internal/domain"
	"github.com/yungbote/recommend-backend/internal/domain/access"
	"github.com/yungbote/recommend-backend/internal/pkg/dbctx"
	"github.com/yungbote/recommend-backend/internal/pkg/secret"
	"github.com/yungbote/recommend-backend/internal/platform/logger"
)

const ArchiveVersion = 1

// Archive is the portable form of one activity. Ids are only meaningful
// inside the archive; Import assigns new ones.
type Archive struct {
	Version   int               `yaml:"version"`
	Activity  ArchiveActivity   `yaml:"activity"`
	Questions []ArchiveQuestion `yaml:"questions"`
	Requests  []ArchiveRequest  `yaml:"requests,omitempty"`
}

type ArchiveActivity struct {
	ID                        uuid.UUID        `yaml:"id"`
	Name                      string           `yaml:"name"`
	Intro                     string           `yaml:"intro"`
	IntroFormat               types.TextFormat `yaml:"intro_format"`
	Visible                   bool             `yaml:"visible"`
	Grade                     int              `yaml:"grade"`
	MaxRequests               int              `yaml:"max_requests"`
	RequiredRecommend         int              `yaml:"required_recommend"`
	CompletionOnlyAccepted    bool             `yaml:"completion_only_accepted"`
	RequestTemplateSubject    string           `yaml:"request_template_subject"`
	RequestTemplateBody       string           `yaml:"request_template_body"`
	RequestTemplateBodyFormat types.TextFormat `yaml:"request_template_body_format"`
}

type ArchiveQuestion struct {
	ID             uuid.UUID        `yaml:"id"`
	Type           string           `yaml:"type"`
	Question       string           `yaml:"question"`
	QuestionFormat types.TextFormat `yaml:"question_format"`
	AddInfo        string           `yaml:"add_info,omitempty"`
	SortOrder      int              `yaml:"sort_order"`
}

type ArchiveRequest struct {
	ID            uuid.UUID           `yaml:"id"`
	UserID        uuid.UUID           `yaml:"user_id"`
	Email         string              `yaml:"email"`
	Name          string              `yaml:"name"`
	Status        types.RequestStatus `yaml:"status"`
	Secret        string              `yaml:"secret"`
	TimeRequested time.Time           `yaml:"time_requested"`
	TimeCompleted *time.Time          `yaml:"time_completed,omitempty"`
	Replies       []ArchiveReply      `yaml:"replies,omitempty"`
}

type ArchiveReply struct {
	QuestionID uuid.UUID `yaml:"question_id"`
	Reply      *string   `yaml:"reply"`
}

func EncodeArchive(w io.Writer, a *Archive) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	return enc.Close()
}

func DecodeArchive(r io.Reader) (*Archive, error) {
	var a Archive
	if err := yaml.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: decode archive: %v", ErrInvalidInput, err)
	}
	if a.Version != ArchiveVersion {
		return nil, fmt.Errorf("%w: unsupported archive version %d", ErrInvalidInput, a.Version)
	}
	return &a, nil
}

type BackupService interface {
	Export(ctx context.Context, actor Actor, activityID uuid.UUID, includeUserData bool) (*Archive, error)
	Import(ctx context.Context, actor Actor, archive *Archive, courseID uuid.UUID) (*types.Activity, error)
}

type backupService struct {
	db           *gorm.DB
	log          *logger.Logger
	activityRepo repos.ActivityRepo
	questionRepo repos.QuestionRepo
	requestRepo  repos.RequestRepo
	replyRepo    repos.ReplyRepo
	userRepo     repos.UserRepo
	access       AccessService
	secrets      secret.Generator
}

func NewBackupService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activityRepo repos.ActivityRepo,
	questionRepo repos.QuestionRepo,
	requestRepo repos.RequestRepo,
	replyRepo repos.ReplyRepo,
	userRepo repos.UserRepo,
	accessService AccessService,
	secrets secret.Generator,
) BackupService {
	if secrets == nil {
		secrets = secret.New
	}
	return &backupService{
		db:           db,
		log:          baseLog.With("service", "BackupService"),
		activityRepo: activityRepo,
		questionRepo: questionRepo,
		requestRepo:  requestRepo,
		replyRepo:    replyRepo,
		userRepo:     userRepo,
		access:       accessService,
		secrets:      secrets,
	}
}

func (s *backupService) requireAdmin(ctx context.Context, actor Actor) error {
	ok, err := s.access.Can(ctx, actor, uuid.Nil, access.CapSiteAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *backupService) Export(ctx context.Context, actor Actor, activityID uuid.UUID, includeUserData bool) (*Archive, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	a, err := s.activityRepo.GetByID(dbc, activityID)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrNotFound)
	}
	out := &Archive{
		Version: ArchiveVersion,
		Activity: ArchiveActivity{
			ID:                        a.ID,
			Name:                      a.Name,
			Intro:                     a.Intro,
			IntroFormat:               a.IntroFormat,
			Visible:                   a.Visible,
			Grade:                     a.Grade,
			MaxRequests:               a.MaxRequests,
			RequiredRecommend:         a.RequiredRecommend,
			CompletionOnlyAccepted:    a.CompletionOnlyAccepted,
			RequestTemplateSubject:    a.RequestTemplateSubject,
			RequestTemplateBody:       a.RequestTemplateBody,
			RequestTemplateBodyFormat: a.RequestTemplateBodyFormat,
		},
	}

	questions, err := s.questionRepo.ListByActivity(dbc, activityID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	for i, q := range questions {
		out.Questions = append(out.Questions, ArchiveQuestion{
			ID:             q.ID,
			Type:           q.Type,
			Question:       q.Question,
			QuestionFormat: q.QuestionFormat,
			AddInfo:        q.AddInfo,
			SortOrder:      i,
		})
	}
	if !includeUserData {
		return out, nil
	}

	requests, err := s.requestRepo.ListByActivity(dbc, activityID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.ID)
	}
	replies, err := s.replyRepo.ListByRequestIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	byRequest := map[uuid.UUID][]ArchiveReply{}
	for _, r := range replies {
		byRequest[r.RequestID] = append(byRequest[r.RequestID], ArchiveReply{QuestionID: r.QuestionID, Reply: r.Reply})
	}
	for _, r := range requests {
		reps := byRequest[r.ID]
		sort.Slice(reps, func(i, j int) bool { return reps[i].QuestionID.String() < reps[j].QuestionID.String() })
		out.Requests = append(out.Requests, ArchiveRequest{
			ID:            r.ID,
			UserID:        r.UserID,
			Email:         r.Email,
			Name:          r.Name,
			Status:        r.Status,
			Secret:        r.Secret,
			TimeRequested: r.TimeRequested,
			TimeCompleted: r.TimeCompleted,
			Replies:       reps,
		})
	}
	return out, nil
}

func (s *backupService) Import(ctx context.Context, actor Actor, archive *Archive, courseID uuid.UUID) (*types.Activity, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	if archive == nil || courseID == uuid.Nil {
		return nil, fmt.Errorf("%w: archive and course required", ErrInvalidInput)
	}
	src := archive.Activity
	activity := &types.Activity{
		CourseID:                  courseID,
		Name:                      src.Name,
		Intro:                     src.Intro,
		IntroFormat:               src.IntroFormat,
		Visible:                   src.Visible,
		Grade:                     src.Grade,
		MaxRequests:               src.MaxRequests,
		RequiredRecommend:         src.RequiredRecommend,
		CompletionOnlyAccepted:    src.CompletionOnlyAccepted,
		RequestTemplateSubject:    src.RequestTemplateSubject,
		RequestTemplateBody:       src.RequestTemplateBody,
		RequestTemplateBodyFormat: src.RequestTemplateBodyFormat,
	}
	if err := validateActivity(activity); err != nil {
		return nil, err
	}

	questions := append([]ArchiveQuestion(nil), archive.Questions...)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].SortOrder < questions[j].SortOrder })

	var skipped int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.activityRepo.Create(dbc, []*types.Activity{activity}); err != nil {
			return fmt.Errorf("create activity: %w", err)
		}

		questionIDs := map[uuid.UUID]uuid.UUID{}
		for i, q := range questions {
			row := &types.Question{
				ActivityID:     activity.ID,
				Type:           q.Type,
				Question:       q.Question,
				QuestionFormat: q.QuestionFormat,
				AddInfo:        q.AddInfo,
				SortOrder:      i,
			}
			if _, err := s.questionRepo.Create(dbc, []*types.Question{row}); err != nil {
				return fmt.Errorf("create question: %w", err)
			}
			questionIDs[q.ID] = row.ID
		}

		if len(archive.Requests) == 0 {
			return nil
		}
		userIDs := make([]uuid.UUID, 0, len(archive.Requests))
		for _, r := range archive.Requests {
			userIDs = append(userIDs, r.UserID)
		}
		users, err := s.userRepo.GetByIDs(dbc, userIDs)
		if err != nil {
			return fmt.Errorf("load users: %w", err)
		}
		known := map[uuid.UUID]bool{}
		for _, u := range users {
			known[u.ID] = true
		}

		for _, r := range archive.Requests {
			if !known[r.UserID] {
				skipped++
				continue
			}
			req := &types.Request{
				ActivityID:    activity.ID,
				UserID:        r.UserID,
				Email:         r.Email,
				Name:          r.Name,
				Status:        r.Status,
				TimeRequested: r.TimeRequested.UTC(),
				TimeCompleted: r.TimeCompleted,
			}
			token, err := s.freeSecret(dbc, r.Secret)
			if err != nil {
				return err
			}
			req.Secret = token
			if _, err := s.requestRepo.Create(dbc, []*types.Request{req}); err != nil {
				return fmt.Errorf("create request: %w", err)
			}

			replies := make([]*types.Reply, 0, len(r.Replies))
			for _, rep := range r.Replies {
				qid, ok := questionIDs[rep.QuestionID]
				if !ok {
					continue
				}
				replies = append(replies, &types.Reply{
					ActivityID: activity.ID,
					RequestID:  req.ID,
					QuestionID: qid,
					Reply:      rep.Reply,
				})
			}
			if _, err := s.replyRepo.Create(dbc, replies); err != nil {
				return fmt.Errorf("create replies: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Activity imported", "activity_id", activity.ID, "course_id", courseID, "skipped_requests", skipped)
	return activity, nil
}

// freeSecret keeps the archived secret unless it is empty or already taken.
func (s *backupService) freeSecret(dbc dbctx.Context, archived string) (string, error) {
	candidate := archived
	for attempt := 0; attempt < maxSecretAttempts; attempt++ {
		if candidate != "" {
			existing, err := s.requestRepo.GetBySecret(dbc, candidate)
			if err != nil {
				return "", fmt.Errorf("check secret: %w", err)
			}
			if existing == nil {
				return candidate, nil
			}
		}
		next, err := s.secrets()
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		candidate = next
	}
	return "", fmt.Errorf("no free secret after %d attempts", maxSecretAttempts)
}
