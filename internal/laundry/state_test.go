package laundry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zulandar/condobot/internal/db"
)

func sampleState() State {
	return State{
		Reservation: &Reservation{
			Holder:       alice,
			Conversation: laundryGroup,
			Start:        epoch,
			End:          epoch.Add(2 * time.Hour),
		},
		Queue: []QueueEntry{
			{Participant: bob, Conversation: laundryGroup},
			{Participant: carol, Conversation: "laundry2@g.us"},
		},
	}
}

func assertSameState(t *testing.T, got, want State) {
	t.Helper()
	if (got.Reservation == nil) != (want.Reservation == nil) {
		t.Fatalf("reservation = %+v, want %+v", got.Reservation, want.Reservation)
	}
	if want.Reservation != nil {
		g, w := got.Reservation, want.Reservation
		if g.Holder != w.Holder || g.Conversation != w.Conversation || !g.Start.Equal(w.Start) || !g.End.Equal(w.End) {
			t.Errorf("reservation = %+v, want %+v", *g, *w)
		}
	}
	if len(got.Queue) != len(want.Queue) {
		t.Fatalf("queue = %+v, want %+v", got.Queue, want.Queue)
	}
	for i := range want.Queue {
		if got.Queue[i] != want.Queue[i] {
			t.Errorf("queue[%d] = %+v, want %+v", i, got.Queue[i], want.Queue[i])
		}
	}
}

func TestFileStateStore_MissingFile(t *testing.T) {
	s := &FileStateStore{Path: filepath.Join(t.TempDir(), "lavanderia.json")}
	st, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if st.Reservation != nil || len(st.Queue) != 0 {
		t.Errorf("state = %+v, want empty", st)
	}
}

func TestFileStateStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lavanderia.json")
	s := &FileStateStore{Path: path}

	want := sampleState()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{`"lavagemAtiva"`, `"filaDeEspera"`, `"fim"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("state file missing %s:\n%s", key, data)
		}
	}

	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameState(t, got, want)

	if err := s.Save(ctx, State{}); err != nil {
		t.Fatalf("Save empty: %v", err)
	}
	got, _ = s.Load(ctx)
	assertSameState(t, got, State{})

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the state file", len(entries))
	}
}

func TestFileStateStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lavanderia.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	s := &FileStateStore{Path: path}
	if _, err := s.Load(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "state.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func TestDBStateStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s := &DBStateStore{DB: setupDB(t)}

	empty, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load empty: %v", err)
	}
	assertSameState(t, empty, State{})

	want := sampleState()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	assertSameState(t, got, want)

	// Overwrite with a shorter queue and no reservation.
	next := State{Queue: []QueueEntry{{Participant: carol, Conversation: laundryGroup}}}
	if err := s.Save(ctx, next); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ = s.Load(ctx)
	assertSameState(t, got, next)
}

func TestDBStateStore_WithManager(t *testing.T) {
	ctx := context.Background()
	store := &DBStateStore{DB: setupDB(t)}
	m, err := NewManager(ManagerOpts{Notifier: &recordingNotifier{}, Store: store})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	m.Start(ctx, alice, laundryGroup)
	m.Enqueue(ctx, bob, laundryGroup)

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Reservation == nil || got.Reservation.Holder != alice || len(got.Queue) != 1 {
		t.Errorf("persisted = %+v", got)
	}
}
