package pagination

import (
	"errors"
	"math"
	"testing"
)

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		perPage   int
		wantFirst int
		wantLast  int
		wantErr   bool
	}{
		{"first page", 1, 15, 0, 15, false},
		{"second page of ten", 2, 10, 10, 20, false},
		{"single item pages", 5, 1, 4, 5, false},
		{"page zero", 0, 10, 0, 0, true},
		{"negative page", -1, 10, 0, 0, true},
		{"zero per page", 1, 0, 0, 0, true},
		{"index overflow", math.MaxInt/10 + 2, 10, 0, 0, true},
		{"last index overflow", math.MaxInt/10 + 1, 10, 0, 0, true},
		{"largest page", math.MaxInt / 10, 10, math.MaxInt/10*10 - 10, math.MaxInt / 10 * 10, false},
		{"huge page size", 1, math.MaxInt - 1, 0, math.MaxInt - 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWindow(tt.page, tt.perPage)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPage) {
					t.Errorf("NewWindow() error = %v, want ErrInvalidPage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewWindow() unexpected error: %v", err)
			}
			if w.FirstIndex != tt.wantFirst || w.LastIndex != tt.wantLast {
				t.Errorf("NewWindow() = [%d, %d], want [%d, %d]", w.FirstIndex, w.LastIndex, tt.wantFirst, tt.wantLast)
			}
			if rows := w.LastIndex - w.FirstIndex + 1; rows != tt.perPage+1 {
				t.Errorf("window selects %d rows, want %d", rows, tt.perPage+1)
			}
		})
	}
}

func TestWindow_Next(t *testing.T) {
	w, _ := NewWindow(1, 10)
	next := w.Next()

	if next.Page != 2 || next.FirstIndex != 10 || next.LastIndex != 20 {
		t.Errorf("Next() = %+v", next)
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name        string
		rows        []int
		perPage     int
		wantLen     int
		wantHasMore bool
	}{
		{"sentinel present", []int{1, 2, 3, 4}, 3, 3, true},
		{"exactly one page", []int{1, 2, 3}, 3, 3, false},
		{"short page", []int{1}, 3, 1, false},
		{"empty", nil, 3, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, hasMore := Trim(tt.rows, tt.perPage)
			if len(items) != tt.wantLen || hasMore != tt.wantHasMore {
				t.Errorf("Trim() = (%v, %v), want len %d hasMore %v", items, hasMore, tt.wantLen, tt.wantHasMore)
			}
		})
	}

	items, _ := Trim([]string{"a", "b", "sentinel"}, 2)
	if items[len(items)-1] != "b" {
		t.Errorf("Trim() kept the sentinel: %v", items)
	}
}
