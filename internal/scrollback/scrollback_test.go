package scrollback

import (
	"fmt"
	"testing"
)

func TestNewStoreEmpty(t *testing.T) {
	s := New()
	if got := s.Len(); got != 0 {
		t.Errorf("new store Len() = %d, want 0", got)
	}
	if got := s.All(); len(got) != 0 {
		t.Errorf("new store All() returned %d lines, want 0", len(got))
	}
}

func TestAppendAssignsSequentialIDs(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		got := s.Append(Info(fmt.Sprintf("line %d", i)))
		if got.ID != int64(i+1) {
			t.Errorf("line %d got id %d, want %d", i, got.ID, i+1)
		}
	}
}

func TestOrderIsAppendSequenceNotTimestamp(t *testing.T) {
	s := New()
	a := Info("first")
	b := Info("second")
	// Give the second line an earlier timestamp; order must not change.
	b.Time = a.Time.Add(-1000)
	s.Append(a)
	s.Append(b)

	all := s.All()
	if all[0].Text != "first" || all[1].Text != "second" {
		t.Errorf("lines out of append order: %q, %q", all[0].Text, all[1].Text)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s := New()
	s.Append(Info("a"))
	s.Append(Error("b"))

	for i := 0; i < 3; i++ {
		s.Clear()
		if got := s.Len(); got != 0 {
			t.Fatalf("after Clear #%d Len() = %d, want 0", i+1, got)
		}
	}
}

func TestIDsSurviveClear(t *testing.T) {
	s := New()
	s.Append(Info("a"))
	s.Clear()
	got := s.Append(Info("b"))
	if got.ID != 2 {
		t.Errorf("id after clear = %d, want 2", got.ID)
	}
}

func TestResetIDsHook(t *testing.T) {
	s := New()
	s.Append(Info("a"))
	s.Clear()
	s.resetIDs()
	got := s.Append(Info("b"))
	if got.ID != 1 {
		t.Errorf("id after resetIDs = %d, want 1", got.ID)
	}
}

func TestWindow(t *testing.T) {
	s := New()
	for i := 0; i < 10; i++ {
		s.Append(Info(fmt.Sprintf("line %d", i)))
	}

	tests := []struct {
		name      string
		offset    int
		size      int
		wantLen   int
		wantFirst string
	}{
		{"middle", 3, 4, 4, "line 3"},
		{"clamped end", 8, 5, 2, "line 8"},
		{"past end", 12, 3, 0, ""},
		{"negative offset", -2, 3, 3, "line 0"},
		{"zero size", 4, 0, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Window(tt.offset, tt.size)
			if len(got) != tt.wantLen {
				t.Fatalf("Window(%d, %d) returned %d lines, want %d",
					tt.offset, tt.size, len(got), tt.wantLen)
			}
			if tt.wantLen > 0 && got[0].Text != tt.wantFirst {
				t.Errorf("first line = %q, want %q", got[0].Text, tt.wantFirst)
			}
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	s := New()
	s.Append(Info("original"))
	all := s.All()
	all[0].Text = "mutated"
	if got := s.All()[0].Text; got != "original" {
		t.Error("All did not return a copy; mutation leaked into store")
	}
}

func TestAppendAll(t *testing.T) {
	s := New()
	stored := s.AppendAll([]Line{Info("a"), Error("b")})
	if len(stored) != 2 {
		t.Fatalf("AppendAll returned %d lines, want 2", len(stored))
	}
	if stored[0].ID != 1 || stored[1].ID != 2 {
		t.Errorf("AppendAll ids = %d, %d, want 1, 2", stored[0].ID, stored[1].ID)
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindInfo, "info"},
		{KindSuccess, "success"},
		{KindError, "error"},
		{KindCommand, "command"},
		{KindSystem, "system"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
