package category

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/course-market/database"
	"github.com/jmoiron/sqlx"
)

var ErrNameTaken = errors.New("category name already exists")

func Create(ctx context.Context, db sqlx.ExtContext, c Category) error {
	const q = `
	INSERT INTO categories
		(category_id, name, description, icon, color)
	VALUES
		(:category_id, :name, :description, :icon, :color)`

	if err := database.NamedExecContext(ctx, db, q, c); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrNameTaken
		}
		return fmt.Errorf("inserting category: %w", err)
	}
	return nil
}

// List returns every category with the number of published courses in it.
func List(ctx context.Context, db sqlx.ExtContext) ([]Category, error) {
	const q = `
	SELECT
		cat.category_id, cat.name, cat.description, cat.icon, cat.color,
		COUNT(c.course_id) AS course_count
	FROM categories cat
	LEFT JOIN courses c ON c.category_id = cat.category_id AND c.is_published
	GROUP BY cat.category_id
	ORDER BY cat.name`

	var cats []Category
	if err := database.NamedQuerySlice(ctx, db, q, struct{}{}, &cats); err != nil {
		return nil, fmt.Errorf("selecting categories: %w", err)
	}
	return cats, nil
}
