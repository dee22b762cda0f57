package laundry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/zulandar/condobot/internal/models"
)

// FileStateStore keeps the state in a JSON file.
type FileStateStore struct {
	Path string
}

// Load reads the state file. A missing file is an empty state.
func (f *FileStateStore) Load(_ context.Context) (State, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("laundry: read %s: %w", f.Path, err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("laundry: parse %s: %w", f.Path, err)
	}
	return st, nil
}

// Save writes the state through a temporary file and a rename, so a crash
// never leaves a truncated file behind.
func (f *FileStateStore) Save(_ context.Context, st State) error {
	if st.Queue == nil {
		st.Queue = []QueueEntry{}
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("laundry: encode state: %w", err)
	}
	dir := filepath.Dir(f.Path)
	tmp, err := os.CreateTemp(dir, ".laundry-*.json")
	if err != nil {
		return fmt.Errorf("laundry: save %s: %w", f.Path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("laundry: save %s: %w", f.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("laundry: save %s: %w", f.Path, err)
	}
	if err := os.Rename(tmp.Name(), f.Path); err != nil {
		return fmt.Errorf("laundry: save %s: %w", f.Path, err)
	}
	return nil
}

// DBStateStore keeps the state in the laundry tables. The caller migrates
// the schema.
type DBStateStore struct {
	DB *gorm.DB
}

// Load reads the reservation row and the queue in position order.
func (d *DBStateStore) Load(ctx context.Context) (State, error) {
	tx := d.DB.WithContext(ctx)

	var st State
	var rows []models.LaundryReservation
	if err := tx.Order("id").Limit(1).Find(&rows).Error; err != nil {
		return State{}, fmt.Errorf("laundry: load reservation: %w", err)
	}
	if len(rows) > 0 {
		r := rows[0]
		st.Reservation = &Reservation{
			Holder:       r.Holder,
			Conversation: r.ConversationID,
			Start:        r.StartedAt,
			End:          r.EndsAt,
		}
	}

	var entries []models.LaundryQueueEntry
	if err := tx.Order("position").Find(&entries).Error; err != nil {
		return State{}, fmt.Errorf("laundry: load queue: %w", err)
	}
	for _, e := range entries {
		st.Queue = append(st.Queue, QueueEntry{Participant: e.ParticipantID, Conversation: e.ConversationID})
	}
	return st, nil
}

// Save replaces the stored state in one transaction.
func (d *DBStateStore) Save(ctx context.Context, st State) error {
	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.LaundryReservation{}).Error; err != nil {
			return fmt.Errorf("laundry: clear reservation: %w", err)
		}
		if r := st.Reservation; r != nil {
			row := models.LaundryReservation{
				ID:             1,
				Holder:         r.Holder,
				ConversationID: r.Conversation,
				StartedAt:      r.Start,
				EndsAt:         r.End,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("laundry: save reservation: %w", err)
			}
		}

		if err := tx.Where("1 = 1").Delete(&models.LaundryQueueEntry{}).Error; err != nil {
			return fmt.Errorf("laundry: clear queue: %w", err)
		}
		for i, e := range st.Queue {
			row := models.LaundryQueueEntry{
				Position:       i + 1,
				ParticipantID:  e.Participant,
				ConversationID: e.Conversation,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("laundry: save queue entry %d: %w", i+1, err)
			}
		}
		return nil
	})
}
