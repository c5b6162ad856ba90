package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/arifmahmud/uptimebot/internal/domain"
	"github.com/arifmahmud/uptimebot/internal/repo"
)

func TestMemoryStore_CreateAndListByOwner(t *testing.T) {
	ctx := context.Background()
	s := New()

	tgt := &domain.Target{OwnerID: 42, URL: "https://example.com"}
	if err := s.CreateTarget(ctx, tgt); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	if tgt.ID == "" {
		t.Fatalf("expected target ID to be set")
	}
	if tgt.Status != domain.StatusUnknown {
		t.Fatalf("new target should start UNKNOWN, got %s", tgt.Status)
	}

	all, err := s.ListTargetsByOwner(ctx, 42)
	if err != nil {
		t.Fatalf("ListTargetsByOwner: %v", err)
	}
	if len(all) != 1 || all[0].URL != "https://example.com" {
		t.Fatalf("unexpected listing: %+v", all)
	}

	none, err := s.ListTargetsByOwner(ctx, 7)
	if err != nil || len(none) != 0 {
		t.Fatalf("other owner should see nothing: %v %v", none, err)
	}
}

func TestMemoryStore_ListActiveSkipsUnconfigured(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := &domain.Target{OwnerID: 1, URL: "https://a"}
	b := &domain.Target{OwnerID: 1, URL: "https://b"}
	for _, tgt := range []*domain.Target{a, b} {
		if err := s.CreateTarget(ctx, tgt); err != nil {
			t.Fatalf("CreateTarget: %v", err)
		}
	}
	if err := s.SetTargetInterval(ctx, a.ID, 5); err != nil {
		t.Fatalf("SetTargetInterval: %v", err)
	}

	active, err := s.ListActiveTargets(ctx)
	if err != nil {
		t.Fatalf("ListActiveTargets: %v", err)
	}
	if len(active) != 1 || active[0].ID != a.ID {
		t.Fatalf("want only the configured target, got %+v", active)
	}
}

func TestMemoryStore_UpdateAfterProbe_NoopWhenDeleted(t *testing.T) {
	ctx := context.Background()
	s := New()

	tgt := &domain.Target{OwnerID: 1, URL: "https://a"}
	if err := s.CreateTarget(ctx, tgt); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	if err := s.DeleteTarget(ctx, tgt.ID); err != nil {
		t.Fatalf("DeleteTarget: %v", err)
	}

	// probe result lands after the delete: silently dropped
	if err := s.UpdateAfterProbe(ctx, tgt.ID, 1, domain.StatusUp, time.Now()); err != nil {
		t.Fatalf("UpdateAfterProbe on deleted target must be a no-op, got %v", err)
	}
	if _, err := s.GetTarget(ctx, tgt.ID); err != repo.ErrNotFound {
		t.Fatalf("target must not be resurrected, got %v", err)
	}

	// same for history appends
	if err := s.AppendHistory(ctx, &domain.HistoryEntry{TargetID: tgt.ID, Up: true}); err != nil {
		t.Fatalf("AppendHistory on deleted target must be a no-op, got %v", err)
	}
	h, _ := s.RecentHistory(ctx, tgt.ID, 10)
	if len(h) != 0 {
		t.Fatalf("no orphan history wanted, got %+v", h)
	}
}

func TestMemoryStore_RecentHistoryOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	tgt := &domain.Target{OwnerID: 1, URL: "https://a"}
	if err := s.CreateTarget(ctx, tgt); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}

	base := time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, up := range []bool{true, false, true} {
		e := &domain.HistoryEntry{TargetID: tgt.ID, Up: up, CheckedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	got, err := s.RecentHistory(ctx, tgt.ID, 3)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	var ups []bool
	for _, e := range got {
		ups = append(ups, e.Up)
	}
	if diff := cmp.Diff([]bool{true, false, true}, ups); diff != "" {
		t.Fatalf("history order mismatch (-want +got):\n%s", diff)
	}

	// limit keeps the most recent entries, still oldest-first
	got, err = s.RecentHistory(ctx, tgt.ID, 2)
	if err != nil {
		t.Fatalf("RecentHistory: %v", err)
	}
	if len(got) != 2 || got[0].Up != false || got[1].Up != true {
		t.Fatalf("want last two entries oldest-first, got %+v", got)
	}
}

func TestMemoryStore_DeleteCascadesHistory(t *testing.T) {
	ctx := context.Background()
	s := New()

	tgt := &domain.Target{OwnerID: 1, URL: "https://a"}
	if err := s.CreateTarget(ctx, tgt); err != nil {
		t.Fatalf("CreateTarget: %v", err)
	}
	_ = s.AppendHistory(ctx, &domain.HistoryEntry{TargetID: tgt.ID, Up: true, CheckedAt: time.Now()})

	if err := s.DeleteTarget(ctx, tgt.ID); err != nil {
		t.Fatalf("DeleteTarget: %v", err)
	}
	if err := s.DeleteTarget(ctx, tgt.ID); err != repo.ErrNotFound {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	h, _ := s.RecentHistory(ctx, tgt.ID, 10)
	if len(h) != 0 {
		t.Fatalf("history should be purged, got %+v", h)
	}
}

func TestMemoryStore_RedeemCode_SingleUseUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateCode(ctx, "AC-TESTCODE"); err != nil {
		t.Fatalf("CreateCode: %v", err)
	}
	if _, err := s.EnsureUser(ctx, 100); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if _, err := s.EnsureUser(ctx, 200); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, uid := range []int64{100, 200} {
		wg.Add(1)
		go func(i int, uid int64) {
			defer wg.Done()
			ok, err := s.RedeemCode(ctx, uid, "AC-TESTCODE")
			if err != nil {
				t.Errorf("RedeemCode: %v", err)
			}
			results[i] = ok
		}(i, uid)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("want exactly one successful redemption, got %v", results)
	}

	// second attempt by anyone fails
	ok, _ := s.RedeemCode(ctx, 100, "AC-TESTCODE")
	if ok {
		t.Fatalf("consumed code must stay consumed")
	}
}

func TestMemoryStore_RedeemUnknownCode(t *testing.T) {
	s := New()
	ok, err := s.RedeemCode(context.Background(), 1, "AC-NOPE")
	if err != nil || ok {
		t.Fatalf("unknown code must be invalid: ok=%v err=%v", ok, err)
	}
}
