package category

type Category struct {
	ID          string `json:"id" db:"category_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Icon        string `json:"icon" db:"icon"`
	Color       string `json:"color" db:"color"`
	CourseCount int    `json:"courseCount" db:"course_count"`
}

type CategoryNew struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Icon        string `json:"icon" validate:"max=16"`
	Color       string `json:"color" validate:"max=64"`
}
