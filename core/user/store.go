package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/irsalhamdi/course-market/database"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already registered")
)

func Create(ctx context.Context, db sqlx.ExtContext, u User) error {
	const q = `
	INSERT INTO users
		(user_id, email, password_hash, role, created_at, updated_at)
	VALUES
		(:user_id, :email, :password_hash, :role, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, u); err != nil {
		if errors.Is(err, database.ErrDBDuplicatedEntry) {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func CreateProfile(ctx context.Context, db sqlx.ExtContext, p Profile) error {
	const q = `
	INSERT INTO profiles
		(profile_id, first_name, last_name, bio, avatar_url, created_at, updated_at)
	VALUES
		(:profile_id, :first_name, :last_name, :bio, :avatar_url, :created_at, :updated_at)`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}
	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	in := struct {
		ID string `db:"user_id"`
	}{id}

	const q = `
	SELECT *
	FROM users
	WHERE user_id = :user_id`

	var u User
	if err := database.NamedQueryStruct(ctx, db, q, in, &u); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user[%s]: %w", id, err)
	}
	return u, nil
}

func FetchByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	in := struct {
		Email string `db:"email"`
	}{email}

	const q = `
	SELECT *
	FROM users
	WHERE email = :email`

	var u User
	if err := database.NamedQueryStruct(ctx, db, q, in, &u); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("selecting user by email: %w", err)
	}
	return u, nil
}

func FetchProfile(ctx context.Context, db sqlx.ExtContext, id string) (Profile, error) {
	in := struct {
		ID string `db:"profile_id"`
	}{id}

	const q = `
	SELECT *
	FROM profiles
	WHERE profile_id = :profile_id`

	var p Profile
	if err := database.NamedQueryStruct(ctx, db, q, in, &p); err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("selecting profile[%s]: %w", id, err)
	}
	return p, nil
}

func UpdateProfile(ctx context.Context, db sqlx.ExtContext, p Profile) error {
	const q = `
	UPDATE profiles
	SET
		first_name = :first_name,
		last_name = :last_name,
		bio = :bio,
		updated_at = :updated_at
	WHERE profile_id = :profile_id`

	if err := database.NamedExecContext(ctx, db, q, p); err != nil {
		return fmt.Errorf("updating profile[%s]: %w", p.ID, err)
	}
	return nil
}
