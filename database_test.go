package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

func TestGormLogsThroughZerolog(t *testing.T) {
	db := setupTestDB(t)

	var buf bytes.Buffer
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var u User
	if err := db.Where("email = ?", "nobody@example.com").First(&u).Error; !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("missing row was logged: %s", buf.String())
	}

	var n int
	if err := db.Raw("SELECT id FROM no_such_table").Scan(&n).Error; err == nil {
		t.Fatal("expected an error for an unknown table")
	}
	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("store error not logged as a zerolog JSON line: %q", line)
	}
	if entry["component"] != "gorm" || entry["level"] != "warn" {
		t.Errorf("entry = %v", entry)
	}
	if msg, _ := entry["message"].(string); !strings.Contains(msg, "no_such_table") {
		t.Errorf("message = %q", msg)
	}
}
