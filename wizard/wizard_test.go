package wizard

import (
	"testing"

	apperrors "kydx-console/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart(t *testing.T) {
	tests := []struct {
		name      string
		questions []string
		seed      []string
		wantErr   error
		wantQs    []string
		wantSeed  []string
	}{
		{
			name:      "two_questions",
			questions: []string{"Which metric?", "Which period?"},
			wantQs:    []string{"Which metric?", "Which period?"},
		},
		{
			name:      "blank_questions_dropped",
			questions: []string{"  ", "Title?", ""},
			wantQs:    []string{"Title?"},
		},
		{
			name:      "seeded",
			questions: []string{"Which metric?"},
			seed:      []string{"/charts/a.txt", ""},
			wantQs:    []string{"Which metric?"},
			wantSeed:  []string{"/charts/a.txt"},
		},
		{
			name:    "empty",
			wantErr: ErrEmptyQuestionSet,
		},
		{
			name:      "all_blank",
			questions: []string{" ", "\n"},
			wantErr:   ErrEmptyQuestionSet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := Start(Visualization, tt.questions, tt.seed)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, apperrors.IsEmptyResult(err))
				assert.False(t, st.Active)
				return
			}
			require.NoError(t, err)
			assert.True(t, st.Active)
			assert.Equal(t, 0, st.Cursor)
			assert.Empty(t, st.Answers)
			assert.Equal(t, tt.wantQs, st.Questions)
			assert.Equal(t, tt.wantSeed, st.Seed)

			q, ok := st.Current()
			require.True(t, ok)
			assert.Equal(t, tt.wantQs[0], q)
		})
	}
}

func TestSubmitAnswerWalksQuestions(t *testing.T) {
	st, err := Start(Visualization, []string{"Which metric?", "Which period?"}, nil)
	require.NoError(t, err)

	step, err := SubmitAnswer(st, "revenue")
	require.NoError(t, err)
	assert.False(t, step.Done)
	require.NotNil(t, step.Emit)
	assert.Equal(t, "Which period?", step.Emit.Text)
	assert.Equal(t, 1, step.Next.Cursor)
	assert.Equal(t, []string{"revenue"}, step.Next.Answers)
	assert.True(t, step.Next.Active)

	// The input state is a value and stays untouched.
	assert.Equal(t, 0, st.Cursor)
	assert.Empty(t, st.Answers)

	step, err = SubmitAnswer(step.Next, "Q1")
	require.NoError(t, err)
	assert.True(t, step.Done)
	assert.Nil(t, step.Emit)
	assert.False(t, step.Next.Active)
	assert.Equal(t, 2, step.Next.Cursor)
	assert.Equal(t, []string{"revenue", "Q1"}, step.Next.AllAnswers())

	_, err = SubmitAnswer(step.Next, "extra")
	assert.ErrorIs(t, err, ErrInactive)
}

func TestCursorInvariant(t *testing.T) {
	questions := []string{"a?", "b?", "c?", "d?"}
	st, err := Start(Infograph, questions, []string{"seed"})
	require.NoError(t, err)

	for i := range questions {
		require.Equal(t, len(st.Answers), st.Cursor)
		require.LessOrEqual(t, st.Cursor, len(st.Questions))
		assert.Equal(t, len(questions)-i, st.Remaining())

		step, err := SubmitAnswer(st, "answer")
		require.NoError(t, err)
		require.Equal(t, st.Cursor+1, step.Next.Cursor)
		st = step.Next
	}

	assert.Equal(t, len(questions), st.Cursor)
	assert.False(t, st.Active)
	assert.Equal(t, "seed", st.AllAnswers()[0])
	assert.Len(t, st.AllAnswers(), len(questions)+1)
}

func TestPrompt(t *testing.T) {
	st, err := Start(Infograph, []string{"What should the title be?"}, nil)
	require.NoError(t, err)

	msg, ok := st.Prompt()
	require.True(t, ok)
	assert.Equal(t, "What should the title be?", msg.Text)
	assert.False(t, msg.IsUser())

	_, ok = State{}.Prompt()
	assert.False(t, ok)
}
