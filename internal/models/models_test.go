package models

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestLaundryReservation_Fields(t *testing.T) {
	typ := reflect.TypeOf(LaundryReservation{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "Holder", "size:64")
	assertGormTag(t, typ, "Holder", "not null")
	assertGormTag(t, typ, "ConversationID", "size:64")
	assertGormTag(t, typ, "StartedAt", "not null")
	assertGormTag(t, typ, "EndsAt", "not null")

	assertFieldType(t, typ, "ID", "uint")
	assertFieldType(t, typ, "StartedAt", "time.Time")
	assertFieldType(t, typ, "EndsAt", "time.Time")
	assertFieldType(t, typ, "UpdatedAt", "time.Time")
}

func TestLaundryQueueEntry_Fields(t *testing.T) {
	typ := reflect.TypeOf(LaundryQueueEntry{})

	assertGormTag(t, typ, "ID", "primaryKey")
	assertGormTag(t, typ, "ID", "autoIncrement")
	assertGormTag(t, typ, "Position", "index")
	assertGormTag(t, typ, "ParticipantID", "uniqueIndex")
	assertGormTag(t, typ, "ParticipantID", "size:64")
	assertGormTag(t, typ, "ConversationID", "size:64")

	assertFieldType(t, typ, "Position", "int")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestLaundryReservation_Instantiation(t *testing.T) {
	start := time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC)
	r := LaundryReservation{
		Holder:         "5511900000001@s.whatsapp.net",
		ConversationID: "laundry@g.us",
		StartedAt:      start,
		EndsAt:         start.Add(2 * time.Hour),
	}
	if got := r.EndsAt.Sub(r.StartedAt); got != 2*time.Hour {
		t.Errorf("duration = %v, want 2h", got)
	}
}

func TestLaundryQueueEntry_Instantiation(t *testing.T) {
	e := LaundryQueueEntry{Position: 1, ParticipantID: "p@s.whatsapp.net", ConversationID: "laundry@g.us"}
	if e.ID != 0 {
		t.Errorf("ID = %d, want zero before insert", e.ID)
	}
	if e.Position != 1 {
		t.Errorf("Position = %d, want 1", e.Position)
	}
}
