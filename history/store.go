// Package history persists conversation threads in SQLite.
package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kamrul1157024/terminal-ai/llm"
)

// recentThreadLimit bounds List so selection UIs stay usable.
const recentThreadLimit = 30

// ErrThreadNotFound reports an operation against a missing thread id.
var ErrThreadNotFound = errors.New("thread not found")

// PersistenceError wraps a store read/write failure. Callers surface it but
// keep the in-memory session alive.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Thread is a persisted, named conversation.
type Thread struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []llm.Message
}

// ThreadInfo is the summary row returned by List.
type ThreadInfo struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

type threadRecord struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Messages  []messageRecord `gorm:"foreignKey:ThreadID;constraint:OnDelete:CASCADE"`
}

func (threadRecord) TableName() string { return "threads" }

type messageRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	ThreadID  string `gorm:"index;not null"`
	Role      string `gorm:"not null"`
	Content   string
	CreatedAt time.Time
}

func (messageRecord) TableName() string { return "messages" }

// Store is the durable repository of threads.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the thread database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &PersistenceError{Op: "open", Err: err}
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &PersistenceError{Op: "open", Err: err}
	}
	if err := db.AutoMigrate(&threadRecord{}, &messageRecord{}); err != nil {
		return nil, &PersistenceError{Op: "migrate", Err: err}
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a private in-memory store, used by tests.
func OpenInMemory() (*Store, error) {
	return Open(":memory:")
}

// Create allocates a new empty thread. The name defaults to a
// timestamp-derived label when empty.
func (s *Store) Create(name string) (*Thread, error) {
	now := time.Now()
	if name == "" {
		name = "Chat " + now.Format("Jan 02 15:04")
	}

	record := threadRecord{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}
	return &Thread{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt}, nil
}

// Get loads a thread and its messages in creation order. Returns
// ErrThreadNotFound for a missing id.
func (s *Store) Get(id string) (*Thread, error) {
	var record threadRecord
	err := s.db.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get", Err: err}
	}

	var rows []messageRecord
	if err := s.db.Where("thread_id = ?", id).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, &PersistenceError{Op: "get", Err: err}
	}

	thread := &Thread{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt}
	for _, row := range rows {
		thread.Messages = append(thread.Messages, decodeMessage(row.Role, row.Content))
	}
	return thread, nil
}

// List returns summaries of the most recently updated threads, newest
// first, bounded to the recent window.
func (s *Store) List() ([]ThreadInfo, error) {
	var records []threadRecord
	if err := s.db.Order("updated_at DESC").Limit(recentThreadLimit).Find(&records).Error; err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}

	infos := make([]ThreadInfo, 0, len(records))
	for _, record := range records {
		var count int64
		if err := s.db.Model(&messageRecord{}).Where("thread_id = ?", record.ID).Count(&count).Error; err != nil {
			return nil, &PersistenceError{Op: "list", Err: err}
		}
		infos = append(infos, ThreadInfo{
			ID:           record.ID,
			Name:         record.Name,
			CreatedAt:    record.CreatedAt,
			UpdatedAt:    record.UpdatedAt,
			MessageCount: int(count),
		})
	}
	return infos, nil
}

// Update replaces the thread's full message sequence and bumps UpdatedAt,
// as a single transaction (delete then reinsert) so an interrupted write
// never leaves a partial message set.
func (s *Store) Update(id string, messages []llm.Message) (*Thread, error) {
	var record threadRecord

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&record, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("thread_id = ?", id).Delete(&messageRecord{}).Error; err != nil {
			return err
		}

		now := time.Now()
		for i, msg := range messages {
			role, content := encodeMessage(msg)
			row := messageRecord{
				ThreadID:  id,
				Role:      role,
				Content:   content,
				CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		record.UpdatedAt = now
		return tx.Save(&record).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	thread := &Thread{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt}
	thread.Messages = append(thread.Messages, messages...)
	return thread, nil
}

// Rename changes the thread's user-facing name.
func (s *Store) Rename(id, newName string) (*Thread, error) {
	var record threadRecord
	err := s.db.First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "rename", Err: err}
	}

	record.Name = newName
	record.UpdatedAt = time.Now()
	if err := s.db.Save(&record).Error; err != nil {
		return nil, &PersistenceError{Op: "rename", Err: err}
	}
	return &Thread{ID: record.ID, Name: record.Name, CreatedAt: record.CreatedAt, UpdatedAt: record.UpdatedAt}, nil
}

// Delete removes a thread and all its messages atomically. Returns false
// without error when the id does not exist.
func (s *Store) Delete(id string) (bool, error) {
	deleted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&threadRecord{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		deleted = true
		return tx.Where("thread_id = ?", id).Delete(&messageRecord{}).Error
	})
	if err != nil {
		return false, &PersistenceError{Op: "delete", Err: err}
	}
	return deleted, nil
}
