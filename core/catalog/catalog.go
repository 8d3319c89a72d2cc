// Package catalog is the course browser: published courses annotated with
// the viewer's enrollment state.
package catalog

import (
	"github.com/irsalhamdi/course-market/core/course"
	"github.com/irsalhamdi/course-market/core/enrollment"
)

type Item struct {
	course.Course
	EnrollmentState enrollment.State `json:"enrollmentState"`
	CTA             string           `json:"cta"`
}

type Listing struct {
	Courses []Item `json:"courses"`
	Total   int    `json:"total"`
	Count   int    `json:"count"`
}

// Build filters cs and classifies each remaining course for the snapshot's
// viewer. Total counts courses before filtering.
func Build(cs []course.Course, f course.Filter, snap enrollment.Snapshot) Listing {
	matched := f.Apply(cs)

	items := make([]Item, len(matched))
	for i, c := range matched {
		st := snap.Classify(c.ID)
		items[i] = Item{Course: c, EnrollmentState: st, CTA: st.CTA()}
	}

	return Listing{
		Courses: items,
		Total:   len(cs),
		Count:   len(items),
	}
}
