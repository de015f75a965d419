package auth

import "context"

// UserStorage defines the persistence operations required by the
// authentication services. Implementations must return ErrUserNotFound
// for missing users and ErrEmailAlreadyExists on email conflicts.
type UserStorage interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	MarkUserVerified(ctx context.Context, id string) error
}
