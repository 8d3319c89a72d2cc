package course

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilter(t *testing.T) {
	courses := []Course{
		{ID: "1", Title: "Complete Web Development Bootcamp", InstructorName: "Sarah Johnson", CategoryName: "Web Development"},
		{ID: "2", Title: "Data Science with Python", InstructorName: "Michael Chen", CategoryName: "Data Science"},
		{ID: "3", Title: "Digital Marketing Mastery", InstructorName: "Emma Rodriguez", CategoryName: "Marketing"},
	}

	ids := func(cs []Course) []string {
		out := []string{}
		for _, c := range cs {
			out = append(out, c.ID)
		}
		return out
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty matches all", Filter{}, []string{"1", "2", "3"}},
		{"all category", Filter{Category: "all"}, []string{"1", "2", "3"}},
		{"title search is case insensitive", Filter{Search: "PYTHON"}, []string{"2"}},
		{"instructor search", Filter{Search: "emma"}, []string{"3"}},
		{"category only", Filter{Category: "Marketing"}, []string{"3"}},
		{"search and category", Filter{Search: "data", Category: "Web Development"}, []string{}},
		{"no match", Filter{Search: "cooking"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(tt.filter.Apply(courses))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAverageRating(t *testing.T) {
	if got := AverageRating(nil); got != 0 {
		t.Fatalf("expected 0 for no reviews, got %v", got)
	}
	rs := []Review{{Rating: 5}, {Rating: 4}, {Rating: 3}}
	if got := AverageRating(rs); got != 4 {
		t.Fatalf("expected 4, got %v", got)
	}
}
