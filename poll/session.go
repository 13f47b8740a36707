package poll

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"alphabot/model"
)

// reactionPace is the delay between attaching consecutive vote reactions,
// keeping the burst under the platform's rate limit.
var reactionPace = 200 * time.Millisecond

// Session owns one poll's lifecycle from announcement to result message.
// It also keeps the per-voter selection ledger used to retract replaced
// votes while the poll is open; final tallies come from the platform's
// reaction counts, never from the ledger.
//
// Methods are safe for concurrent use. The bot SDK delivers updates on
// separate goroutines and the expiry timer fires on its own.
type Session struct {
	platform Platform
	registry *Registry

	channelID   int64
	initiatorID int64
	spec        *Spec

	mu         sync.Mutex
	messageID  int
	selections map[int64][]string // voter -> held symbols, oldest first
	timer      *time.Timer
	open       bool
	closed     bool
}

func NewSession(platform Platform, registry *Registry, channelID, initiatorID int64, spec *Spec) *Session {
	return &Session{
		platform:    platform,
		registry:    registry,
		channelID:   channelID,
		initiatorID: initiatorID,
		spec:        spec,
		selections:  make(map[int64][]string),
	}
}

func (s *Session) ChannelID() int64 { return s.channelID }

// Start posts the announcement, attaches one reaction per answer in
// submission order, and arms the expiry timer. The caller must have
// registered the session first and should deregister it if Start fails.
func (s *Session) Start(ctx context.Context) error {
	msgID, err := s.platform.SendMessage(ctx, s.channelID, s.openText())
	if err != nil {
		return fmt.Errorf("posting poll announcement: %w", err)
	}

	for _, ans := range s.spec.Answers {
		if err := s.platform.AddReaction(ctx, s.channelID, msgID, ans.Symbol); err != nil {
			return fmt.Errorf("attaching reaction %s: %w", ans.Symbol, err)
		}
		time.Sleep(reactionPace)
	}

	// The timer must not die with the start request's context.
	timerCtx := context.WithoutCancel(ctx)

	s.mu.Lock()
	s.messageID = msgID
	s.open = true
	s.timer = time.AfterFunc(s.spec.Duration, func() {
		if err := s.close(timerCtx, true); err != nil && !errors.Is(err, model.ErrPollClosed) {
			log.Error().Err(err).Int64("channel", s.channelID).Msg("error closing expired poll")
		}
	})
	s.mu.Unlock()

	log.Info().
		Int64("channel", s.channelID).
		Int64("initiator", s.initiatorID).
		Int("answers", len(s.spec.Answers)).
		Dur("duration", s.spec.Duration).
		Msg("poll started")
	return nil
}

// HandleVote records one reaction-vote event. Events for other messages,
// symbols outside this poll, or a closed poll are ignored. When the voter
// already holds the maximum number of selections, the oldest one is
// retracted on the platform to make room.
func (s *Session) HandleVote(ctx context.Context, voterID int64, messageID int, symbol string) {
	s.mu.Lock()
	if !s.open || s.closed || messageID != s.messageID || !s.ownsSymbol(symbol) {
		s.mu.Unlock()
		return
	}
	held := s.selections[voterID]
	for _, sym := range held {
		if sym == symbol {
			// Voter already holds this symbol.
			s.mu.Unlock()
			return
		}
	}
	var evicted string
	if len(held) >= s.spec.MaxSelections {
		evicted = held[0]
		held = held[1:]
	}
	s.selections[voterID] = append(held, symbol)
	msgID := s.messageID
	s.mu.Unlock()

	if evicted != "" {
		if err := s.platform.RemoveReaction(ctx, s.channelID, msgID, voterID, evicted); err != nil {
			log.Warn().Err(err).
				Int64("voter", voterID).
				Str("symbol", evicted).
				Msg("could not retract replaced vote")
		}
	}
}

// Stop closes the poll before its timer expires. Only the initiating user
// may stop it; anyone else gets ErrNotInitiator and the poll stays open.
// A stop that arrives while Start is still posting the announcement gets
// ErrNoPoll so the session cannot close around messageID zero.
func (s *Session) Stop(ctx context.Context, requesterID int64) error {
	if requesterID != s.initiatorID {
		return model.ErrNotInitiator
	}
	s.mu.Lock()
	if !s.open && !s.closed {
		s.mu.Unlock()
		return model.ErrNoPoll
	}
	s.mu.Unlock()
	return s.close(ctx, false)
}

// close performs the Closing transition exactly once. The loser of a race
// between the expiry timer and an explicit stop gets ErrPollClosed. The
// session leaves the registry even when a platform call fails mid-close.
func (s *Session) close(ctx context.Context, expired bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.ErrPollClosed
	}
	s.closed = true
	s.open = false
	if !expired && s.timer != nil {
		s.timer.Stop()
	}
	msgID := s.messageID
	s.mu.Unlock()

	defer s.registry.Remove(s)

	counts, err := s.platform.ReactionCounts(ctx, s.channelID, msgID)
	if err != nil {
		return fmt.Errorf("fetching final reaction counts: %w", err)
	}
	for i := range s.spec.Answers {
		// The platform count includes the bot's own reservation reaction.
		if n := counts[s.spec.Answers[i].Symbol] - 1; n > 0 {
			s.spec.Answers[i].Votes = n
		}
	}

	if err := s.platform.ClearReactions(ctx, s.channelID, msgID); err != nil {
		log.Warn().Err(err).Int64("channel", s.channelID).Msg("could not clear poll reactions")
	}

	if _, err := s.platform.SendMessage(ctx, s.channelID, s.resultText()); err != nil {
		return fmt.Errorf("posting poll results: %w", err)
	}

	log.Info().Int64("channel", s.channelID).Bool("expired", expired).Msg("poll closed")
	return nil
}

func (s *Session) ownsSymbol(symbol string) bool {
	for _, ans := range s.spec.Answers {
		if ans.Symbol == symbol {
			return true
		}
	}
	return false
}

func (s *Session) openText() string {
	var b strings.Builder
	b.WriteString("POLL STARTED!\n\n")
	b.WriteString(s.spec.Question)
	b.WriteString("\n\n")
	for _, ans := range s.spec.Answers {
		b.WriteString(ans.Display)
		b.WriteByte('\n')
	}
	b.WriteString("\nReact with a symbol to vote!")
	if s.spec.MaxSelections > 1 {
		fmt.Fprintf(&b, " You may pick up to %d.", s.spec.MaxSelections)
	}
	fmt.Fprintf(&b, "\nPoll closes in %d seconds.", int(s.spec.Duration/time.Second))
	return b.String()
}

func (s *Session) resultText() string {
	max := 0
	for _, ans := range s.spec.Answers {
		if ans.Votes > max {
			max = ans.Votes
		}
	}

	var b strings.Builder
	b.WriteString("POLL ENDED!\n\n")
	b.WriteString(s.spec.Question)
	b.WriteString("\n\n")
	for _, ans := range s.spec.Answers {
		if max > 0 && ans.Votes == max {
			fmt.Fprintf(&b, "🏆 %s - %d votes\n", ans.Display, ans.Votes)
		} else {
			fmt.Fprintf(&b, "%s - %d votes\n", ans.Display, ans.Votes)
		}
	}
	return b.String()
}
