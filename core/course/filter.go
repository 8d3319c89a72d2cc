package course

import "strings"

// AllCategories is the category value matching every course.
const AllCategories = "all"

// Filter narrows a catalog listing the way the course browser does: a
// case-insensitive search over title and instructor name plus an exact
// category name.
type Filter struct {
	Search   string
	Category string
}

func (f Filter) Match(c Course) bool {
	if cat := strings.TrimSpace(f.Category); cat != "" && !strings.EqualFold(cat, AllCategories) && !strings.EqualFold(cat, c.CategoryName) {
		return false
	}

	term := strings.ToLower(strings.TrimSpace(f.Search))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Title), term) ||
		strings.Contains(strings.ToLower(c.InstructorName), term)
}

func (f Filter) Apply(cs []Course) []Course {
	out := make([]Course, 0, len(cs))
	for _, c := range cs {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}
