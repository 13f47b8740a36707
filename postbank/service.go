// Package postbank implements the credit-economy feedback ledger: users
// spend one credit to post a link and earn one credit back for each
// sufficiently long review they leave on someone else's post.
package postbank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	"alphabot/model"
)

// MinFeedbackLength is the number of characters a review must reach
// before it earns a credit.
const MinFeedbackLength = 140

// PostCost and FeedbackReward are both one credit, which keeps the
// economy closed: every post eventually funds its own reviews.
const (
	PostCost       = 1
	FeedbackReward = 1
)

// Bank is the slice of the economy ledger this plugin consumes.
type Bank interface {
	EnsureAccount(ctx context.Context, userID int64) error
	Balance(ctx context.Context, userID int64) (int64, error)
	CanSpend(ctx context.Context, userID int64, amount int64) (bool, error)
	Withdraw(ctx context.Context, userID int64, amount int64) error
	Deposit(ctx context.Context, userID int64, amount int64) error
}

// Post is one submitted link with its review count.
type Post struct {
	ID        int64
	UserID    int64
	Link      string
	Reviews   int
	CreatedAt time.Time
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

type Service struct {
	db   *sql.DB
	bank Bank
}

func NewService(db *sql.DB, bank Bank) *Service {
	return &Service{db: db, bank: bank}
}

// SubmitPost extracts the first URL from text and records it as a new
// post, charging the poster one credit. Duplicate links are rejected.
func (s *Service) SubmitPost(ctx context.Context, userID int64, text string) (int64, error) {
	link := urlPattern.FindString(text)
	if link == "" {
		return 0, model.ErrNoURL
	}

	if err := s.bank.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}
	ok, err := s.bank.CanSpend(ctx, userID, PostCost)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, model.ErrInsufficientCredit
	}

	var existing int64
	err = s.db.QueryRowContext(ctx, `SELECT id FROM post WHERE link = ?`, link).Scan(&existing)
	if err == nil {
		return 0, model.ErrDuplicateLink
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("checking for duplicate link: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO post (user_id, link, created_at)
		VALUES (?, ?, ?)
	`, userID, link, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("inserting post: %w", err)
	}
	postID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading post id: %w", err)
	}

	if err := s.bank.Withdraw(ctx, userID, PostCost); err != nil {
		// The post must not stand if the poster could not be charged.
		if _, delErr := s.db.ExecContext(ctx, `DELETE FROM post WHERE id = ?`, postID); delErr != nil {
			return 0, errors.Join(err, fmt.Errorf("removing uncharged post %d: %w", postID, delErr))
		}
		return 0, err
	}
	return postID, nil
}

// GiveFeedback records a review and pays the reviewer one credit. It
// returns the post owner's user ID so the caller can notify them. Owners
// cannot review themselves, reviews below MinFeedbackLength earn nothing,
// and each reviewer gets exactly one paid review per post.
func (s *Service) GiveFeedback(ctx context.Context, reviewerID, postID int64, text string) (ownerID int64, err error) {
	if err := s.bank.EnsureAccount(ctx, reviewerID); err != nil {
		return 0, err
	}

	err = s.db.QueryRowContext(ctx, `SELECT user_id FROM post WHERE id = ?`, postID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrUnknownPost
	}
	if err != nil {
		return 0, fmt.Errorf("looking up post %d: %w", postID, err)
	}
	if ownerID == reviewerID {
		return 0, model.ErrOwnPost
	}
	if utf8.RuneCountInString(text) < MinFeedbackLength {
		return 0, model.ErrFeedbackTooShort
	}

	var seen bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM review WHERE post_id = ? AND reviewer_id = ?)
	`, postID, reviewerID).Scan(&seen)
	if err != nil {
		return 0, fmt.Errorf("checking prior review: %w", err)
	}
	if seen {
		return 0, model.ErrAlreadyReviewed
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO review (post_id, reviewer_id, created_at)
		VALUES (?, ?, ?)
	`, postID, reviewerID, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("inserting review: %w", err)
	}

	if err := s.bank.Deposit(ctx, reviewerID, FeedbackReward); err != nil {
		return 0, err
	}
	return ownerID, nil
}

// Recent returns the latest posts, oldest of the batch first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Post, error) {
	return s.listPosts(ctx, limit, false)
}

// NeedingFeedback returns the latest posts that have no reviews yet,
// oldest of the batch first.
func (s *Service) NeedingFeedback(ctx context.Context, limit int) ([]Post, error) {
	return s.listPosts(ctx, limit, true)
}

func (s *Service) listPosts(ctx context.Context, limit int, unreviewedOnly bool) ([]Post, error) {
	query := `
		SELECT p.id, p.user_id, p.link, p.created_at, COUNT(r.post_id)
		FROM post p
		LEFT JOIN review r ON r.post_id = p.id
		GROUP BY p.id`
	if unreviewedOnly {
		query += `
		HAVING COUNT(r.post_id) = 0`
	}
	query += `
		ORDER BY p.id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var p Post
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.UserID, &p.Link, &createdAt, &p.Reviews); err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		p.CreatedAt = time.Unix(createdAt, 0)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	// Newest rows come back first; present the batch oldest first.
	for i, j := 0, len(posts)-1; i < j; i, j = i+1, j-1 {
		posts[i], posts[j] = posts[j], posts[i]
	}
	return posts, nil
}

// EditLink replaces the link on an existing post. Only the owner may edit.
func (s *Service) EditLink(ctx context.Context, userID, postID int64, text string) error {
	link := urlPattern.FindString(text)
	if link == "" {
		return model.ErrNoURL
	}

	var ownerID int64
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM post WHERE id = ?`, postID).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrUnknownPost
	}
	if err != nil {
		return fmt.Errorf("looking up post %d: %w", postID, err)
	}
	if ownerID != userID {
		return model.ErrNotOwner
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE post SET link = ? WHERE id = ?`, link, postID); err != nil {
		return fmt.Errorf("updating post %d: %w", postID, err)
	}
	return nil
}

// Balance reports the user's credit balance, creating the account on
// first contact.
func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	if err := s.bank.EnsureAccount(ctx, userID); err != nil {
		return 0, err
	}
	return s.bank.Balance(ctx, userID)
}
