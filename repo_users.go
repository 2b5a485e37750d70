package auth

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the persistence surface for account records
type Users interface {
	UserStore

	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository builds the bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return a.GetByUsernameTx(ctx, a.db, username)
}

func (a *users) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	return a.getByColumn(ctx, tx, "username", username)
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.getByColumn(ctx, tx, "email", email)
}

func (a *users) getByColumn(ctx context.Context, tx bun.IDB, column, value string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, ErrAccountNotFound.Clone().
				WithMetadata(map[string]any{column: value})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user record")
	}

	return record, nil
}

// Save is insert-or-update. A zero ID means a fresh signup; the record
// gets a deterministic UUID derived from the email before insert.
func (a *users) Save(ctx context.Context, user *User) (*User, error) {
	return a.SaveTx(ctx, a.db, user)
}

func (a *users) SaveTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user.ID == uuid.Nil {
		prepareUserDefaults(user)
		return a.Repository.CreateTx(ctx, tx, user)
	}

	now := time.Now()
	user.UpdatedAt = &now

	_, err := tx.NewUpdate().
		Model(user).
		WherePK().
		Exec(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user record")
	}

	return user, nil
}

func prepareUserDefaults(user *User) {
	if user.ID == uuid.Nil {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		} else {
			user.ID = uuid.New()
		}
	}
}
