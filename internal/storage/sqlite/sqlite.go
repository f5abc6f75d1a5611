// Package sqlite is a GORM-backed implementation of storage.Store.
package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/minhtq/quizchat/internal/domain"
	"github.com/minhtq/quizchat/internal/storage"
)

type Store struct {
	db *gorm.DB
}

type chatMessageModel struct {
	Seq       int64  `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;size:36"`
	UserID    string `gorm:"index;size:36"`
	UserName  string
	Content   string
	Timestamp time.Time
}

func (chatMessageModel) TableName() string { return "chat_messages" }

type privateMessageModel struct {
	Seq          int64  `gorm:"primaryKey;autoIncrement"`
	ID           string `gorm:"uniqueIndex;size:36"`
	FromUserID   string `gorm:"index;size:36"`
	FromUserName string
	ToUserID     string `gorm:"index;size:36"`
	Content      string
	Timestamp    time.Time
}

func (privateMessageModel) TableName() string { return "private_messages" }

type discussionMessageModel struct {
	Seq       int64  `gorm:"primaryKey;autoIncrement"`
	ID        string `gorm:"uniqueIndex;size:36"`
	QuizID    string `gorm:"index;size:36"`
	UserID    string `gorm:"size:36"`
	UserName  string
	Content   string
	Timestamp time.Time
}

func (discussionMessageModel) TableName() string { return "discussion_messages" }

type discussionModel struct {
	ID              string `gorm:"primaryKey;size:36"`
	QuizID          string `gorm:"uniqueIndex;size:36"`
	QuizTitle       string
	QuizDescription string
	AddedBy         string `gorm:"size:36"`
	AddedByName     string
	AddedAt         time.Time `gorm:"index"`
}

func (discussionModel) TableName() string { return "quiz_discussions" }

type userModel struct {
	ID   string `gorm:"primaryKey;size:36"`
	Name string
	Role string
}

func (userModel) TableName() string { return "users" }

type quizModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	Title       string
	Description string
}

func (quizModel) TableName() string { return "quizzes" }

// NewStore opens a SQLite database at the provided path. ":memory:" works
// and is what the tests use.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&chatMessageModel{},
		&privateMessageModel{},
		&discussionMessageModel{},
		&discussionModel{},
		&userModel{},
		&quizModel{},
	)
}

func stamp(id *string, ts *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if ts.IsZero() {
		*ts = time.Now()
	}
}

func (s *Store) AppendChat(ctx context.Context, msg *storage.ChatMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}
	stamp(&msg.ID, &msg.Timestamp)
	model := chatMessageModel{
		ID:        msg.ID,
		UserID:    string(msg.UserID),
		UserName:  msg.UserName,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *Store) ListChat(ctx context.Context, limit int) ([]storage.ChatMessage, error) {
	var models []chatMessageModel
	err := s.db.WithContext(ctx).Order("seq DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]storage.ChatMessage, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		out = append(out, storage.ChatMessage{
			ID:        m.ID,
			UserID:    domain.UserID(m.UserID),
			UserName:  m.UserName,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}

func (s *Store) DeleteChatMessage(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&chatMessageModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAllChat(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&chatMessageModel{})
	return res.RowsAffected, res.Error
}

func (s *Store) AppendPrivate(ctx context.Context, msg *storage.PrivateMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}
	stamp(&msg.ID, &msg.Timestamp)
	model := privateMessageModel{
		ID:           msg.ID,
		FromUserID:   string(msg.FromUserID),
		FromUserName: msg.FromUserName,
		ToUserID:     string(msg.ToUserID),
		Content:      msg.Content,
		Timestamp:    msg.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func threadScope(db *gorm.DB, a, b domain.UserID) *gorm.DB {
	return db.Where(
		"(from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)",
		string(a), string(b), string(b), string(a),
	)
}

func (s *Store) ListPrivateThread(ctx context.Context, a, b domain.UserID, limit int) ([]storage.PrivateMessage, error) {
	var models []privateMessageModel
	err := threadScope(s.db.WithContext(ctx), a, b).Order("seq DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]storage.PrivateMessage, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		out = append(out, storage.PrivateMessage{
			ID:           m.ID,
			FromUserID:   domain.UserID(m.FromUserID),
			FromUserName: m.FromUserName,
			ToUserID:     domain.UserID(m.ToUserID),
			Content:      m.Content,
			Timestamp:    m.Timestamp,
		})
	}
	return out, nil
}

func (s *Store) DeletePrivateThread(ctx context.Context, a, b domain.UserID) (int64, error) {
	res := threadScope(s.db.WithContext(ctx), a, b).Delete(&privateMessageModel{})
	return res.RowsAffected, res.Error
}

func (s *Store) AddDiscussion(ctx context.Context, quizID string, addedBy domain.UserID) (*storage.DiscussionEntry, error) {
	var entry *storage.DiscussionEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quiz quizModel
		if err := tx.First(&quiz, "id = ?", quizID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		var existing discussionModel
		err := tx.First(&existing, "quiz_id = ?", quizID).Error
		if err == nil {
			return storage.ErrAlreadyExists
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		var adder userModel
		if err := tx.First(&adder, "id = ?", string(addedBy)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		model := discussionModel{
			ID:              uuid.NewString(),
			QuizID:          quizID,
			QuizTitle:       quiz.Title,
			QuizDescription: quiz.Description,
			AddedBy:         string(addedBy),
			AddedByName:     adder.Name,
			AddedAt:         time.Now(),
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		entry = entryFromModel(model, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func entryFromModel(m discussionModel, count int64) *storage.DiscussionEntry {
	return &storage.DiscussionEntry{
		ID:              m.ID,
		QuizID:          m.QuizID,
		QuizTitle:       m.QuizTitle,
		QuizDescription: m.QuizDescription,
		AddedBy:         domain.UserID(m.AddedBy),
		AddedByName:     m.AddedByName,
		AddedAt:         m.AddedAt,
		MessageCount:    count,
	}
}

func (s *Store) GetDiscussion(ctx context.Context, quizID string) (*storage.DiscussionEntry, error) {
	var model discussionModel
	if err := s.db.WithContext(ctx).First(&model, "quiz_id = ?", quizID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&discussionMessageModel{}).Where("quiz_id = ?", quizID).Count(&count).Error; err != nil {
		return nil, err
	}
	return entryFromModel(model, count), nil
}

func (s *Store) ListDiscussions(ctx context.Context, page, size int) (*storage.DiscussionPage, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	var total int64
	if err := s.db.WithContext(ctx).Model(&discussionModel{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var models []discussionModel
	err := s.db.WithContext(ctx).
		Order("added_at DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	items := make([]storage.DiscussionEntry, 0, len(models))
	for _, m := range models {
		var count int64
		if err := s.db.WithContext(ctx).Model(&discussionMessageModel{}).Where("quiz_id = ?", m.QuizID).Count(&count).Error; err != nil {
			return nil, err
		}
		items = append(items, *entryFromModel(m, count))
	}
	pages := int((total + int64(size) - 1) / int64(size))
	return &storage.DiscussionPage{Items: items, Total: total, Page: page, Size: size, Pages: pages}, nil
}

// RemoveDiscussion deletes the entry and cascades to its messages.
// Authorization is the caller's concern.
func (s *Store) RemoveDiscussion(ctx context.Context, quizID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("quiz_id = ?", quizID).Delete(&discussionModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return tx.Where("quiz_id = ?", quizID).Delete(&discussionMessageModel{}).Error
	})
}

func (s *Store) AppendDiscussionMessage(ctx context.Context, msg *storage.DiscussionMessage) error {
	if msg == nil {
		return errors.New("nil message")
	}
	stamp(&msg.ID, &msg.Timestamp)
	model := discussionMessageModel{
		ID:        msg.ID,
		QuizID:    msg.QuizID,
		UserID:    string(msg.UserID),
		UserName:  msg.UserName,
		Content:   msg.Content,
		Timestamp: msg.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *Store) ListDiscussionMessages(ctx context.Context, quizID string, limit int) ([]storage.DiscussionMessage, error) {
	var models []discussionMessageModel
	err := s.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("seq DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]storage.DiscussionMessage, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		m := models[i]
		out = append(out, storage.DiscussionMessage{
			ID:        m.ID,
			QuizID:    m.QuizID,
			UserID:    domain.UserID(m.UserID),
			UserName:  m.UserName,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var model userModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &domain.User{ID: domain.UserID(model.ID), Name: model.Name, Role: model.Role}, nil
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	model := userModel{ID: string(user.ID), Name: user.Name, Role: user.Role}
	return s.db.WithContext(ctx).Create(&model).Error
}

func (s *Store) GetQuiz(ctx context.Context, id string) (*storage.Quiz, error) {
	var model quizModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &storage.Quiz{ID: model.ID, Title: model.Title, Description: model.Description}, nil
}

func (s *Store) CreateQuiz(ctx context.Context, quiz *storage.Quiz) error {
	if quiz == nil {
		return errors.New("nil quiz")
	}
	model := quizModel{ID: quiz.ID, Title: quiz.Title, Description: quiz.Description}
	return s.db.WithContext(ctx).Create(&model).Error
}
