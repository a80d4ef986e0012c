package dialog

import (
	"context"
	"errors"

	"github.com/charmbracelet/huh"
)

// Terminal draws dialogs on the controlling terminal with huh.
type Terminal struct {
	run func(ctx context.Context, form *huh.Form) error
}

func NewTerminal() *Terminal {
	return &Terminal{run: func(ctx context.Context, form *huh.Form) error {
		return form.RunWithContext(ctx)
	}}
}

func (t *Terminal) Confirm(ctx context.Context, title, message string) (bool, error) {
	var ok bool
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(message).
			Affirmative(answerYes).
			Negative(answerNo).
			Value(&ok),
	))
	if err := t.run(ctx, form); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func (t *Terminal) PromptText(ctx context.Context, title, message, initial string) (string, bool, error) {
	value := initial
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Description(message).
			Value(&value),
	))
	if err := t.run(ctx, form); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}
