package livechat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ratedTranscript(t *testing.T, api *fakeAPI) *Reconciler {
	t.Helper()
	r := newTestReconciler(api)
	r.Merge([]ServerMessage{
		{Role: "user", Text: "hi"},
		{Role: "bot", Text: "hello"},
		{Role: "bot", Text: "how can I help?"},
	})
	return r
}

func TestRate_AnnotatesOnlyMatchingEntry(t *testing.T) {
	api := &fakeAPI{}
	r := ratedTranscript(t, api)

	require.NoError(t, r.Rate(context.Background(), 2, RatingUp))

	got := r.Transcript()
	require.Len(t, got, 4)
	assert.Equal(t, "hello", got[2].Text)
	assert.Nil(t, got[2].Rating)
	assert.Equal(t, "how can I help? "+PositiveSuffix, got[3].Text)
	require.NotNil(t, got[3].Rating)
	assert.Equal(t, RatingUp, *got[3].Rating)

	require.Len(t, api.rated, 1)
	assert.Equal(t, RateRequest{MsgIdx: 2, Rating: RatingUp}, api.rated[0])
}

func TestRate_ReRatingReplacesSuffix(t *testing.T) {
	r := ratedTranscript(t, &fakeAPI{})

	require.NoError(t, r.Rate(context.Background(), 1, RatingUp))
	require.NoError(t, r.Rate(context.Background(), 1, RatingDown))

	assert.Equal(t, "hello "+NegativeSuffix, r.Transcript()[2].Text)
}

func TestRate_FailureLeavesTranscript(t *testing.T) {
	r := ratedTranscript(t, &fakeAPI{rateErr: errors.New("down")})
	before := r.Transcript()

	assert.Error(t, r.Rate(context.Background(), 1, RatingUp))
	assert.Equal(t, before, r.Transcript())
}

func TestRate_Preconditions(t *testing.T) {
	api := &fakeAPI{}
	r := ratedTranscript(t, api)

	assert.ErrorIs(t, r.Rate(context.Background(), 1, Rating(5)), ErrInvalidRating)
	assert.ErrorIs(t, r.Rate(context.Background(), 0, RatingUp), ErrUnknownMessage)
	assert.ErrorIs(t, r.Rate(context.Background(), 9, RatingUp), ErrUnknownMessage)
	assert.Empty(t, api.rated)
}

func TestRate_SurvivesLaterMerge(t *testing.T) {
	r := ratedTranscript(t, &fakeAPI{})
	require.NoError(t, r.Rate(context.Background(), 1, RatingUp))
	rev := r.Revision()

	// Server has not recorded the rating yet: the local overlay keeps it.
	r.Merge([]ServerMessage{
		{Role: "user", Text: "hi"},
		{Role: "bot", Text: "hello"},
		{Role: "bot", Text: "how can I help?"},
	})
	assert.Equal(t, rev, r.Revision())

	// Server now reports the rating itself.
	down := RatingDown
	r.Merge([]ServerMessage{
		{Role: "user", Text: "hi"},
		{Role: "bot", Text: "hello", Rating: &down},
		{Role: "bot", Text: "how can I help?"},
	})
	assert.Equal(t, "hello "+NegativeSuffix, r.Transcript()[2].Text)
}

func TestAnnotate(t *testing.T) {
	tests := []struct {
		text  string
		value Rating
		want  string
	}{
		{"ok", RatingUp, "ok " + PositiveSuffix},
		{"ok", RatingDown, "ok " + NegativeSuffix},
		{"ok " + PositiveSuffix, RatingDown, "ok " + NegativeSuffix},
		{"ok " + NegativeSuffix, RatingDown, "ok " + NegativeSuffix},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, annotate(tt.text, tt.value))
	}
}
