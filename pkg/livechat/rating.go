package livechat

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

const (
	PositiveSuffix = "(thanks for rating 👍)"
	NegativeSuffix = "(feedback recorded 👎)"
)

// Rate submits feedback for the bot message at ratingIndex and, once the
// backend accepts it, annotates that entry. A message may be rated again; the
// newer suffix replaces the older one.
func (r *Reconciler) Rate(ctx context.Context, ratingIndex int, value Rating) error {
	if !value.Valid() {
		return ErrInvalidRating
	}
	if !r.hasRateable(ratingIndex) {
		return ErrUnknownMessage
	}

	err := r.api.RateMessage(ctx, r.sessionID, RateRequest{MsgIdx: ratingIndex, Rating: value})
	if err != nil {
		r.logger.Error("rate message failed", zap.Int("msg_idx", ratingIndex), zap.Error(err))
		return err
	}

	r.update(func() []Entry {
		if r.closed {
			return nil
		}
		r.ratings[ratingIndex] = value

		for i := range r.entries {
			e := r.entries[i]
			if e.RatingIndex == nil || *e.RatingIndex != ratingIndex {
				continue
			}
			v := value
			e.Rating = &v
			e.Text = annotate(e.Text, value)
			r.entries[i] = e
			return r.commitLocked()
		}
		return nil
	})
	return nil
}

func (r *Reconciler) hasRateable(ratingIndex int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Sender == SenderBot && e.RatingIndex != nil && *e.RatingIndex == ratingIndex {
			return true
		}
	}
	return false
}

// annotate appends the acknowledgement for value, dropping any earlier one.
func annotate(text string, value Rating) string {
	base := strings.TrimSuffix(strings.TrimSuffix(text, " "+PositiveSuffix), " "+NegativeSuffix)
	if value == RatingUp {
		return base + " " + PositiveSuffix
	}
	return base + " " + NegativeSuffix
}
