package service

import (
	"errors"
	"testing"

	"github.com/youssef-attai/flask-chat-app/internal/models"
)

type fakeStore struct {
	msgs []models.Message
	fail bool
}

func (f *fakeStore) Append(text string, userID uint) (models.Message, error) {
	msg := models.Message{ID: uint(len(f.msgs) + 1), Text: text, UserID: userID, Timestamp: int64(len(f.msgs) + 1)}
	f.msgs = append(f.msgs, msg)
	return msg, nil
}

func (f *fakeStore) ListOrdered() ([]models.Message, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	out := make([]models.Message, len(f.msgs))
	copy(out, f.msgs)
	return out, nil
}

type fakeDirectory struct {
	users map[uint]models.User
	hits  int
}

func (f *fakeDirectory) FindByID(id uint) (models.User, error) {
	f.hits++
	u, ok := f.users[id]
	if !ok {
		return models.User{}, errors.New("record not found")
	}
	return u, nil
}

func (f *fakeDirectory) FindByUsername(name string) (models.User, error) {
	for _, u := range f.users {
		if u.Username == name {
			return u, nil
		}
	}
	return models.User{}, errors.New("record not found")
}

func TestHistory_OrderedAndResolved(t *testing.T) {
	st := &fakeStore{}
	dir := &fakeDirectory{users: map[uint]models.User{
		1: {ID: 1, Username: "youssef"},
		2: {ID: 2, Username: "omar"},
	}}
	svc := NewMessageService(st, dir)

	st.Append("hello", 1)
	st.Append("hi", 2)
	st.Append("how are you", 1)

	out, err := svc.History()
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("History() len = %d, want 3", len(out))
	}
	wantUsers := []string{"youssef", "omar", "youssef"}
	for i, dto := range out {
		if dto.User.Username != wantUsers[i] {
			t.Errorf("message %d resolved to %q, want %q", i, dto.User.Username, wantUsers[i])
		}
		if i > 0 && dto.Timestamp < out[i-1].Timestamp {
			t.Errorf("timestamps regress at %d", i)
		}
	}
	// Two distinct senders, two directory lookups.
	if dir.hits != 2 {
		t.Errorf("directory lookups = %d, want 2", dir.hits)
	}
}

func TestHistory_Empty(t *testing.T) {
	svc := NewMessageService(&fakeStore{}, &fakeDirectory{users: map[uint]models.User{}})
	out, err := svc.History()
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(out) != 0 {
		t.Errorf("History() len = %d, want 0", len(out))
	}
}

func TestHistory_StoreError(t *testing.T) {
	svc := NewMessageService(&fakeStore{fail: true}, &fakeDirectory{})
	if _, err := svc.History(); err == nil {
		t.Error("History() should propagate store errors")
	}
}

func TestHistory_UnresolvableUser(t *testing.T) {
	st := &fakeStore{}
	st.Append("hello", 9)
	svc := NewMessageService(st, &fakeDirectory{users: map[uint]models.User{}})
	if _, err := svc.History(); err == nil {
		t.Error("History() should fail when a userId cannot be resolved")
	}
}
