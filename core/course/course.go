package course

import "time"

type Course struct {
	ID              string    `json:"id" db:"course_id"`
	Title           string    `json:"title" db:"title"`
	Description     string    `json:"description" db:"description"`
	Price           int       `json:"price" db:"price"`
	PriceINR        int       `json:"priceInr" db:"price_inr"`
	ThumbnailURL    string    `json:"thumbnailUrl" db:"thumbnail_url"`
	CategoryID      *string   `json:"categoryId" db:"category_id"`
	InstructorID    *string   `json:"instructorId" db:"instructor_id"`
	IsPublished     bool      `json:"isPublished" db:"is_published"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
	Version         int       `json:"-" db:"version"`
	CategoryName    string    `json:"categoryName" db:"category_name"`
	CategoryIcon    string    `json:"categoryIcon" db:"category_icon"`
	CategoryColor   string    `json:"categoryColor" db:"category_color"`
	InstructorName  string    `json:"instructorName" db:"instructor_name"`
	EnrollmentCount int       `json:"enrollmentCount" db:"enrollment_count"`
}

type CourseNew struct {
	Title        string  `json:"title" validate:"required,max=200"`
	Description  string  `json:"description" validate:"required"`
	Price        int     `json:"price" validate:"gte=0"`
	PriceINR     int     `json:"priceInr" validate:"required,gte=1"`
	ThumbnailURL string  `json:"thumbnailUrl" validate:"omitempty,url"`
	CategoryID   *string `json:"categoryId" validate:"omitempty,uuid"`
	InstructorID *string `json:"instructorId" validate:"omitempty,uuid"`
	IsPublished  bool    `json:"isPublished"`
}

type CourseUp struct {
	Title        *string `json:"title" validate:"omitempty,max=200"`
	Description  *string `json:"description"`
	Price        *int    `json:"price" validate:"omitempty,gte=0"`
	PriceINR     *int    `json:"priceInr" validate:"omitempty,gte=1"`
	ThumbnailURL *string `json:"thumbnailUrl" validate:"omitempty,url"`
	CategoryID   *string `json:"categoryId" validate:"omitempty,uuid"`
	InstructorID *string `json:"instructorId" validate:"omitempty,uuid"`
	IsPublished  *bool   `json:"isPublished"`
}

type Lesson struct {
	ID              string `json:"id" db:"lesson_id"`
	CourseID        string `json:"courseId" db:"course_id"`
	Index           int    `json:"index" db:"index"`
	Title           string `json:"title" db:"title"`
	DurationMinutes int    `json:"durationMinutes" db:"duration_minutes"`
}

type Review struct {
	ID           string    `json:"id" db:"review_id"`
	CourseID     string    `json:"courseId" db:"course_id"`
	UserID       string    `json:"userId" db:"user_id"`
	Rating       int       `json:"rating" db:"rating"`
	Comment      string    `json:"comment" db:"comment"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	ReviewerName string    `json:"reviewerName" db:"reviewer_name"`
}

type Detail struct {
	Course
	Lessons       []Lesson `json:"lessons"`
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"averageRating"`
}

// AverageRating is zero when there are no reviews.
func AverageRating(rs []Review) float64 {
	if len(rs) == 0 {
		return 0
	}
	var sum int
	for _, r := range rs {
		sum += r.Rating
	}
	return float64(sum) / float64(len(rs))
}

type LessonNew struct {
	Index           int    `json:"index" validate:"gte=0"`
	Title           string `json:"title" validate:"required,max=200"`
	DurationMinutes int    `json:"durationMinutes" validate:"gte=0"`
}

type ReviewNew struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=4000"`
}
