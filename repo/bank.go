package repo

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"alphabot/model"
)

// account is the wire form of one credit account in the Realtime Database.
type account struct {
	Balance   int64 `json:"balance"`
	CreatedAt int64 `json:"createdAt"`
}

// FirebaseBank stores credit accounts under accounts/<userID> in the
// Firebase Realtime Database. Balance updates are read-modify-write
// serialized by a process-local mutex; the bot is the only writer.
type FirebaseBank struct {
	app    *firebase.App
	client *db.Client

	mu sync.Mutex
}

// NewFirebaseBank creates a bank backed by the Realtime Database at
// databaseURL, authenticated with the given service account key file.
func NewFirebaseBank(ctx context.Context, serviceAccountKeyPath, databaseURL string) (*FirebaseBank, error) {
	opt := option.WithCredentialsFile(serviceAccountKeyPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{DatabaseURL: databaseURL}, opt)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting database client: %w", err)
	}
	return &FirebaseBank{app: app, client: client}, nil
}

func (fb *FirebaseBank) ref(userID int64) *db.Ref {
	return fb.client.NewRef("accounts").Child(strconv.FormatInt(userID, 10))
}

// get returns the stored account, or nil if the user has none yet.
func (fb *FirebaseBank) get(ctx context.Context, userID int64) (*account, error) {
	var acct *account
	if err := fb.ref(userID).Get(ctx, &acct); err != nil {
		return nil, fmt.Errorf("reading account %d: %w", userID, err)
	}
	return acct, nil
}

// EnsureAccount creates the user's account with a zero balance if it
// does not exist.
func (fb *FirebaseBank) EnsureAccount(ctx context.Context, userID int64) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	acct, err := fb.get(ctx, userID)
	if err != nil {
		return err
	}
	if acct != nil {
		return nil
	}
	fresh := &account{Balance: 0, CreatedAt: time.Now().Unix()}
	if err := fb.ref(userID).Set(ctx, fresh); err != nil {
		return fmt.Errorf("creating account %d: %w", userID, err)
	}
	return nil
}

func (fb *FirebaseBank) Balance(ctx context.Context, userID int64) (int64, error) {
	acct, err := fb.get(ctx, userID)
	if err != nil {
		return 0, err
	}
	if acct == nil {
		return 0, nil
	}
	return acct.Balance, nil
}

func (fb *FirebaseBank) CanSpend(ctx context.Context, userID int64, amount int64) (bool, error) {
	bal, err := fb.Balance(ctx, userID)
	if err != nil {
		return false, err
	}
	return bal >= amount, nil
}

func (fb *FirebaseBank) Withdraw(ctx context.Context, userID int64, amount int64) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	acct, err := fb.get(ctx, userID)
	if err != nil {
		return err
	}
	if acct == nil || acct.Balance < amount {
		return model.ErrInsufficientCredit
	}
	acct.Balance -= amount
	if err := fb.ref(userID).Set(ctx, acct); err != nil {
		return fmt.Errorf("updating account %d: %w", userID, err)
	}
	return nil
}

func (fb *FirebaseBank) Deposit(ctx context.Context, userID int64, amount int64) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	acct, err := fb.get(ctx, userID)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &account{CreatedAt: time.Now().Unix()}
	}
	acct.Balance += amount
	if err := fb.ref(userID).Set(ctx, acct); err != nil {
		return fmt.Errorf("updating account %d: %w", userID, err)
	}
	return nil
}
