package entity

import "testing"

func TestNewPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		page  int
		limit int
		want  Page
	}{
		{name: "first page", page: 1, limit: 10, want: Page{Offset: 0, Limit: 10}},
		{name: "third page", page: 3, limit: 20, want: Page{Offset: 40, Limit: 20}},
		{name: "zero page", page: 0, limit: 5, want: Page{Offset: 0, Limit: 5}},
		{name: "default limit", page: 2, limit: 0, want: Page{Offset: 10, Limit: 10}},
		{name: "clamped limit", page: 1, limit: 1000, want: Page{Offset: 0, Limit: 100}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := NewPage(tc.page, tc.limit); got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}
