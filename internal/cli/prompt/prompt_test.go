package prompt

import (
	"errors"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// script replaces the prompt runner with canned answers.
func script(t *testing.T, answers ...any) *[]*promptui.Prompt {
	t.Helper()
	var seen []*promptui.Prompt
	prev := runner
	runner = func(p *promptui.Prompt) (string, error) {
		seen = append(seen, p)
		require.NotEmpty(t, answers, "unexpected prompt %v", p.Label)
		next := answers[0]
		answers = answers[1:]
		if err, ok := next.(error); ok {
			return "", err
		}
		s := next.(string)
		if p.Validate != nil {
			if err := p.Validate(s); err != nil {
				return "", err
			}
		}
		return s, nil
	}
	t.Cleanup(func() { runner = prev })
	return &seen
}

func TestConfirm(t *testing.T) {
	script(t, "y")
	ok, err := Confirm("Delete?")
	require.NoError(t, err)
	assert.True(t, ok)

	script(t, promptui.ErrAbort)
	ok, err = Confirm("Delete?")
	require.NoError(t, err)
	assert.False(t, ok)

	script(t, promptui.ErrInterrupt)
	_, err = Confirm("Delete?")
	assert.ErrorIs(t, err, ErrAborted)
}

func TestConfirmWithForce(t *testing.T) {
	seen := script(t)
	ok, err := ConfirmWithForce("Delete?", true)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, *seen)
}

func TestNewPassword(t *testing.T) {
	seen := script(t, "correct-horse", "correct-horse")
	password, err := NewPassword(8)
	require.NoError(t, err)
	assert.Equal(t, "correct-horse", password)
	require.Len(t, *seen, 2)
	assert.Equal(t, '*', (*seen)[0].Mask)

	script(t, "correct-horse", "battery")
	_, err = NewPassword(8)
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	script(t, "short")
	_, err = NewPassword(8)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrAborted))

	script(t, promptui.ErrInterrupt)
	_, err = NewPassword(8)
	assert.ErrorIs(t, err, ErrAborted)
}
