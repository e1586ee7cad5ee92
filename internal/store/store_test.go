package store

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/youssef-attai/flask-chat-app/internal/db"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=postgres password=postgres dbname=flaskchatapp port=5432 sslmode=disable TimeZone=UTC"
	}
	gdb, err := db.Connect(dsn)
	if err != nil {
		t.Skipf("skip: db not available: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Skipf("skip: migrate failed: %v", err)
	}
	if err := gdb.Exec("DELETE FROM messages").Error; err != nil {
		t.Fatalf("truncate messages: %v", err)
	}
	return gdb
}

func TestAppend_MonotonicUnderClockRegression(t *testing.T) {
	s := New(testDB(t))

	// A clock that runs backwards must not produce regressing stamps.
	ticks := []int64{100, 50, 75}
	i := 0
	s.nowFn = func() int64 {
		ts := ticks[i%len(ticks)]
		i++
		return ts
	}

	for _, text := range []string{"first", "second", "third"} {
		if _, err := s.Append(text, 1); err != nil {
			t.Fatalf("Append(%q) error = %v", text, err)
		}
	}

	msgs, err := s.ListOrdered()
	if err != nil {
		t.Fatalf("ListOrdered() error = %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("log size = %d, want 3", len(msgs))
	}
	wantTexts := []string{"first", "second", "third"}
	for i, m := range msgs {
		if m.Text != wantTexts[i] {
			t.Errorf("position %d holds %q, want %q", i, m.Text, wantTexts[i])
		}
		if i > 0 && m.Timestamp < msgs[i-1].Timestamp {
			t.Errorf("timestamps regress at %d: %d < %d", i, m.Timestamp, msgs[i-1].Timestamp)
		}
	}
}

func TestAppend_TimestampTieBreaksByInsertionOrder(t *testing.T) {
	s := New(testDB(t))
	s.nowFn = func() int64 { return 1000 }

	for i := 0; i < 5; i++ {
		if _, err := s.Append(fmt.Sprintf("msg-%d", i), 1); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	msgs, err := s.ListOrdered()
	if err != nil {
		t.Fatalf("ListOrdered() error = %v", err)
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("msg-%d", i); m.Text != want {
			t.Errorf("position %d holds %q, want %q", i, m.Text, want)
		}
	}
}

func TestAppend_Concurrent(t *testing.T) {
	s := New(testDB(t))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, err := s.Append(fmt.Sprintf("c-%d", n), uint(n%3+1)); err != nil {
				t.Errorf("Append() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	msgs, err := s.ListOrdered()
	if err != nil {
		t.Fatalf("ListOrdered() error = %v", err)
	}
	if len(msgs) != 20 {
		t.Fatalf("log size = %d, want 20 (no partial or lost appends)", len(msgs))
	}
	for i, m := range msgs {
		if m.Text == "" || m.UserID == 0 || m.ID == 0 {
			t.Errorf("record %d is incomplete: %+v", i, m)
		}
		if i > 0 && m.Timestamp < msgs[i-1].Timestamp {
			t.Errorf("timestamps regress at %d", i)
		}
	}
}

func TestNew_RecoversWatermarkAfterRestart(t *testing.T) {
	gdb := testDB(t)

	s1 := New(gdb)
	s1.nowFn = func() int64 { return 5000 }
	if _, err := s1.Append("before restart", 1); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// A fresh store over the same log must not stamp below the recorded maximum.
	s2 := New(gdb)
	s2.nowFn = func() int64 { return 10 }
	msg, err := s2.Append("after restart", 1)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if msg.Timestamp < 5000 {
		t.Errorf("timestamp after restart = %d, want >= 5000", msg.Timestamp)
	}

	msgs, err := s2.ListOrdered()
	if err != nil {
		t.Fatalf("ListOrdered() error = %v", err)
	}
	if msgs[len(msgs)-1].Text != "after restart" {
		t.Errorf("log tail = %q, want the post-restart append", msgs[len(msgs)-1].Text)
	}
}
