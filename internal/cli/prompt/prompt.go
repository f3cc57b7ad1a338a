// Package prompt asks for confirmations and passwords on the terminal.
package prompt

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
)

var (
	// ErrAborted is returned when the user interrupts a prompt.
	ErrAborted = errors.New("aborted")

	// ErrPasswordMismatch is returned when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// runner runs a prompt. Tests replace it.
var runner = func(p *promptui.Prompt) (string, error) { return p.Run() }

// Confirm asks a yes/no question. Declining returns false and no error.
func Confirm(label string) (bool, error) {
	_, err := runner(&promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	case errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, ErrAborted
	default:
		return false, err
	}
}

// ConfirmWithForce returns true without asking when force is set.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label)
}

// NewPassword asks for a password of at least minLength characters and
// its confirmation.
func NewPassword(minLength int) (string, error) {
	password, err := runner(&promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(input string) error {
			if len(input) < minLength {
				return fmt.Errorf("password must be at least %d characters", minLength)
			}
			return nil
		},
	})
	if err != nil {
		return "", wrapError(err)
	}

	confirm, err := runner(&promptui.Prompt{Label: "Confirm password", Mask: '*'})
	if err != nil {
		return "", wrapError(err)
	}
	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

func wrapError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, promptui.ErrEOF) {
		return ErrAborted
	}
	return err
}
