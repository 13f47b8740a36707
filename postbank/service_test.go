package postbank

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"alphabot/model"
	"alphabot/repo"
)

// memBank is an in-memory Bank for tests. New accounts start empty,
// like the production bank.
type memBank struct {
	balances map[int64]int64
}

func newMemBank() *memBank {
	return &memBank{balances: make(map[int64]int64)}
}

func (b *memBank) EnsureAccount(ctx context.Context, userID int64) error {
	if _, ok := b.balances[userID]; !ok {
		b.balances[userID] = 0
	}
	return nil
}

func (b *memBank) Balance(ctx context.Context, userID int64) (int64, error) {
	return b.balances[userID], nil
}

func (b *memBank) CanSpend(ctx context.Context, userID int64, amount int64) (bool, error) {
	return b.balances[userID] >= amount, nil
}

func (b *memBank) Withdraw(ctx context.Context, userID int64, amount int64) error {
	if b.balances[userID] < amount {
		return model.ErrInsufficientCredit
	}
	b.balances[userID] -= amount
	return nil
}

func (b *memBank) Deposit(ctx context.Context, userID int64, amount int64) error {
	b.balances[userID] += amount
	return nil
}

func newTestService(t *testing.T) (*Service, *memBank) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := repo.CreatePostSchema(db); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	bank := newMemBank()
	return NewService(db, bank), bank
}

// longFeedback is comfortably past the minimum review length.
var longFeedback = strings.Repeat("Solid arrangement, the bridge lands well. ", 5)

func TestSubmitPostRequiresURL(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.SubmitPost(context.Background(), 1, "listen to my new track"); !errors.Is(err, model.ErrNoURL) {
		t.Fatalf("SubmitPost without a link = %v, want %v", err, model.ErrNoURL)
	}
}

func TestSubmitPostChargesOneCredit(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 1

	id, err := svc.SubmitPost(ctx, 1, "new track: https://example.com/track1")
	if err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}
	if id == 0 {
		t.Fatal("SubmitPost returned post id 0")
	}
	if bank.balances[1] != 0 {
		t.Fatalf("poster balance = %d, want 0 after paying the post cost", bank.balances[1])
	}

	// Broke now, so the next post is refused and nothing is recorded.
	if _, err := svc.SubmitPost(ctx, 1, "https://example.com/track2"); !errors.Is(err, model.ErrInsufficientCredit) {
		t.Fatalf("broke SubmitPost = %v, want %v", err, model.ErrInsufficientCredit)
	}
	posts, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1", len(posts))
	}
}

// failingWithdrawBank approves the spend check but errors on the actual
// withdrawal, like a ledger that went away mid-request.
type failingWithdrawBank struct {
	*memBank
	withdrawErr error
}

func (b *failingWithdrawBank) Withdraw(ctx context.Context, userID int64, amount int64) error {
	return b.withdrawErr
}

func TestSubmitPostRemovesRowWhenChargeFails(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := repo.CreatePostSchema(db); err != nil {
		t.Fatalf("creating schema: %v", err)
	}
	bank := &failingWithdrawBank{memBank: newMemBank(), withdrawErr: errors.New("ledger offline")}
	bank.balances[1] = 1
	svc := NewService(db, bank)
	ctx := context.Background()

	if _, err := svc.SubmitPost(ctx, 1, "https://example.com/track"); !errors.Is(err, bank.withdrawErr) {
		t.Fatalf("SubmitPost = %v, want the withdraw error", err)
	}
	posts, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("uncharged post left behind: %+v", posts)
	}

	// The link is free to submit again once the ledger recovers.
	bank.withdrawErr = nil
	if _, err := svc.SubmitPost(ctx, 1, "https://example.com/track"); err != nil {
		t.Fatalf("resubmission after recovery failed: %v", err)
	}
}

func TestSubmitPostRejectsDuplicateLink(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 1

	if _, err := svc.SubmitPost(ctx, 1, "https://example.com/track"); err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}
	bank.balances[2] = 5
	if _, err := svc.SubmitPost(ctx, 2, "check https://example.com/track out"); !errors.Is(err, model.ErrDuplicateLink) {
		t.Fatalf("duplicate SubmitPost = %v, want %v", err, model.ErrDuplicateLink)
	}
	if bank.balances[2] != 5 {
		t.Fatalf("duplicate post charged the user: balance = %d, want 5", bank.balances[2])
	}
}

func TestGiveFeedbackPaysReviewerOnce(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 1

	postID, err := svc.SubmitPost(ctx, 1, "https://example.com/track")
	if err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}

	ownerID, err := svc.GiveFeedback(ctx, 2, postID, longFeedback)
	if err != nil {
		t.Fatalf("GiveFeedback failed: %v", err)
	}
	if ownerID != 1 {
		t.Fatalf("owner = %d, want 1", ownerID)
	}
	if bank.balances[2] != 1 {
		t.Fatalf("reviewer balance = %d, want 1 after the reward", bank.balances[2])
	}

	if _, err := svc.GiveFeedback(ctx, 2, postID, longFeedback); !errors.Is(err, model.ErrAlreadyReviewed) {
		t.Fatalf("repeat GiveFeedback = %v, want %v", err, model.ErrAlreadyReviewed)
	}
	if bank.balances[2] != 1 {
		t.Fatalf("repeat review changed the balance to %d", bank.balances[2])
	}
}

func TestGiveFeedbackRejections(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 1

	postID, err := svc.SubmitPost(ctx, 1, "https://example.com/track")
	if err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}

	if _, err := svc.GiveFeedback(ctx, 1, postID, longFeedback); !errors.Is(err, model.ErrOwnPost) {
		t.Errorf("self-review = %v, want %v", err, model.ErrOwnPost)
	}
	if _, err := svc.GiveFeedback(ctx, 2, postID+99, longFeedback); !errors.Is(err, model.ErrUnknownPost) {
		t.Errorf("unknown post = %v, want %v", err, model.ErrUnknownPost)
	}
	if _, err := svc.GiveFeedback(ctx, 2, postID, "nice"); !errors.Is(err, model.ErrFeedbackTooShort) {
		t.Errorf("short review = %v, want %v", err, model.ErrFeedbackTooShort)
	}
	if bank.balances[2] != 0 {
		t.Errorf("rejected reviews changed the balance to %d", bank.balances[2])
	}
}

func TestRecentOrderingAndReviewCounts(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 5

	first, err := svc.SubmitPost(ctx, 1, "https://example.com/a")
	if err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}
	if _, err := svc.SubmitPost(ctx, 1, "https://example.com/b"); err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}
	if _, err := svc.GiveFeedback(ctx, 2, first, longFeedback); err != nil {
		t.Fatalf("GiveFeedback failed: %v", err)
	}
	if _, err := svc.GiveFeedback(ctx, 3, first, longFeedback); err != nil {
		t.Fatalf("GiveFeedback failed: %v", err)
	}

	posts, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	if posts[0].Link != "https://example.com/a" || posts[1].Link != "https://example.com/b" {
		t.Fatalf("batch not oldest first: %q then %q", posts[0].Link, posts[1].Link)
	}
	if posts[0].Reviews != 2 || posts[1].Reviews != 0 {
		t.Fatalf("review counts = %d, %d, want 2, 0", posts[0].Reviews, posts[1].Reviews)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 5

	for _, link := range []string{"https://x.test/1", "https://x.test/2", "https://x.test/3"} {
		if _, err := svc.SubmitPost(ctx, 1, link); err != nil {
			t.Fatalf("SubmitPost(%s) failed: %v", link, err)
		}
	}

	posts, err := svc.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}
	// The limit keeps the newest posts, still presented oldest first.
	if posts[0].Link != "https://x.test/2" || posts[1].Link != "https://x.test/3" {
		t.Fatalf("limited batch = %q then %q", posts[0].Link, posts[1].Link)
	}
}

func TestNeedingFeedbackFiltersReviewedPosts(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 5

	reviewed, err := svc.SubmitPost(ctx, 1, "https://example.com/a")
	if err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}
	if _, err := svc.SubmitPost(ctx, 1, "https://example.com/b"); err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}
	if _, err := svc.GiveFeedback(ctx, 2, reviewed, longFeedback); err != nil {
		t.Fatalf("GiveFeedback failed: %v", err)
	}

	posts, err := svc.NeedingFeedback(ctx, 10)
	if err != nil {
		t.Fatalf("NeedingFeedback failed: %v", err)
	}
	if len(posts) != 1 || posts[0].Link != "https://example.com/b" {
		t.Fatalf("NeedingFeedback = %+v, want only the unreviewed post", posts)
	}
}

func TestEditLink(t *testing.T) {
	svc, bank := newTestService(t)
	ctx := context.Background()
	bank.balances[1] = 1

	postID, err := svc.SubmitPost(ctx, 1, "https://example.com/old")
	if err != nil {
		t.Fatalf("SubmitPost failed: %v", err)
	}

	if err := svc.EditLink(ctx, 2, postID, "https://example.com/new"); !errors.Is(err, model.ErrNotOwner) {
		t.Errorf("edit by stranger = %v, want %v", err, model.ErrNotOwner)
	}
	if err := svc.EditLink(ctx, 1, postID, "no link in here"); !errors.Is(err, model.ErrNoURL) {
		t.Errorf("edit without a link = %v, want %v", err, model.ErrNoURL)
	}
	if err := svc.EditLink(ctx, 1, postID+99, "https://example.com/new"); !errors.Is(err, model.ErrUnknownPost) {
		t.Errorf("edit of unknown post = %v, want %v", err, model.ErrUnknownPost)
	}

	if err := svc.EditLink(ctx, 1, postID, "moved to https://example.com/new"); err != nil {
		t.Fatalf("EditLink failed: %v", err)
	}
	posts, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if posts[0].Link != "https://example.com/new" {
		t.Fatalf("link after edit = %q", posts[0].Link)
	}
}

func TestBalanceCreatesAccount(t *testing.T) {
	svc, bank := newTestService(t)

	got, err := svc.Balance(context.Background(), 9)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	if got != 0 {
		t.Fatalf("fresh balance = %d, want 0", got)
	}
	if _, ok := bank.balances[9]; !ok {
		t.Fatal("Balance did not create the account")
	}
}
