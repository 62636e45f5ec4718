package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	topic := &Topic{Name: "Persisted"}
	if err := s.CreateTopic(ctx, topic); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	point := &Point{TopicID: topic.ID, Description: "still here"}
	if err := s.CreatePoint(ctx, point); err != nil {
		t.Fatalf("failed to create point: %v", err)
	}
	s.Close()

	// A fresh instance over the same directory sees everything.
	reopened, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer reopened.Close()

	fetched, err := reopened.GetTopic(ctx, topic.ID)
	if err != nil {
		t.Fatalf("failed to get topic: %v", err)
	}
	if fetched == nil {
		t.Fatal("topic lost across reopen")
	}
	if fetched.Count != 1 {
		t.Errorf("topic count = %d, want 1", fetched.Count)
	}
	if got, _ := reopened.GetPoint(ctx, point.ID); got == nil {
		t.Error("point lost across reopen")
	}
}

func TestJSONStoreWritesOneFilePerEntity(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if err := s.CreateTopic(ctx, &Topic{Name: "F"}); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	if err := s.CreateUser(ctx, &User{Name: "U"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	for _, name := range []string{"topics.json", "users.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "comments.json")); !os.IsNotExist(err) {
		t.Error("comments.json should not exist before any comment is written")
	}
}

func TestJSONStoreReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	topic := &Topic{Name: "Original"}
	if err := s.CreateTopic(ctx, topic); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}

	fetched, _ := s.GetTopic(ctx, topic.ID)
	fetched.Name = "Mutated"

	again, _ := s.GetTopic(ctx, topic.ID)
	if again.Name != "Original" {
		t.Errorf("caller mutation leaked into the store: name = %q", again.Name)
	}
}

func TestJSONStoreTopicCascade(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	topic := &Topic{Name: "Doomed"}
	if err := s.CreateTopic(ctx, topic); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}
	survivor := &Topic{Name: "Survivor"}
	if err := s.CreateTopic(ctx, survivor); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}

	doomed := &Point{TopicID: topic.ID, Description: "p"}
	if err := s.CreatePoint(ctx, doomed); err != nil {
		t.Fatalf("failed to create point: %v", err)
	}
	kept := &Point{TopicID: survivor.ID, Description: "kept"}
	if err := s.CreatePoint(ctx, kept); err != nil {
		t.Fatalf("failed to create point: %v", err)
	}
	comment := &Comment{PointID: doomed.ID, Content: "c"}
	if err := s.CreateComment(ctx, comment); err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}

	if err := s.DeleteTopic(ctx, topic.ID); err != nil {
		t.Fatalf("failed to delete topic: %v", err)
	}

	if got, _ := s.GetPoint(ctx, doomed.ID); got != nil {
		t.Error("point under deleted topic should be gone")
	}
	if got, _ := s.GetComment(ctx, comment.ID); got != nil {
		t.Error("comment under deleted topic should be gone")
	}
	if got, _ := s.GetPoint(ctx, kept.ID); got == nil {
		t.Error("point under surviving topic should remain")
	}
}

func TestJSONStorePointsTopOrderIsInsertion(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	topic := &Topic{Name: "Ordered"}
	if err := s.CreateTopic(ctx, topic); err != nil {
		t.Fatalf("failed to create topic: %v", err)
	}

	// Insert with timestamps out of order; top order still follows insertion.
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	first := &Point{TopicID: topic.ID, Description: "first", CreatedAt: base.Add(time.Hour)}
	second := &Point{TopicID: topic.ID, Description: "second", CreatedAt: base}
	for _, p := range []*Point{first, second} {
		if err := s.CreatePoint(ctx, p); err != nil {
			t.Fatalf("failed to create point: %v", err)
		}
	}

	points, _, err := s.ListPoints(ctx, topic.ID, ListOptions{Sort: SortTop})
	if err != nil {
		t.Fatalf("failed to list points: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].ID != first.ID || points[1].ID != second.ID {
		t.Errorf("top order should be insertion order: got %q, %q", points[0].Description, points[1].Description)
	}
}

func TestJSONStoreDuplicateEmailCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	first := &User{Provider: ProviderLocal, Email: "Mixed@Example.com"}
	if err := s.CreateUser(ctx, first); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	second := &User{Provider: ProviderLocal, Email: "mixed@example.com"}
	if err := s.CreateUser(ctx, second); err != nil {
		t.Fatalf("duplicate email should refuse, not error: %v", err)
	}
	if second.ID != "" {
		t.Errorf("refused user ID = %q, want empty", second.ID)
	}
}
