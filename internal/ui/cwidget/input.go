package cwidget

import (
	"errors"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

var ErrEmptyQuery = errors.New("type something to look for")

// Input is an entry with a caption and an inline validation message.
type Input[T any] struct {
	widget.BaseWidget

	labelWidget *widget.Label
	entryWidget *widget.Entry
	errorWidget *widget.Label

	LabelText   string
	Placeholder string

	OnSubmitted func(T)

	Validator func(string) (T, error)
}

// NewQueryInput validates to the trimmed text; blank input is rejected.
func NewQueryInput(label, placeholder string, onSubmitted func(string)) *Input[string] {
	input := newInput(label, placeholder, onSubmitted)

	input.Validator = func(s string) (string, error) {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", ErrEmptyQuery
		}
		return s, nil
	}

	return input
}

func newInput[T any](label, placeholder string, onSubmitted func(T)) *Input[T] {
	input := &Input[T]{
		LabelText:   label,
		Placeholder: placeholder,
		OnSubmitted: onSubmitted,
	}

	input.labelWidget = widget.NewLabel(label)
	input.labelWidget.TextStyle = fyne.TextStyle{Bold: true}

	input.entryWidget = widget.NewEntry()
	input.entryWidget.SetPlaceHolder(placeholder)

	input.errorWidget = widget.NewLabel("")
	input.errorWidget.Hidden = true
	input.errorWidget.TextStyle = fyne.TextStyle{Italic: true}
	input.errorWidget.Importance = widget.DangerImportance

	input.entryWidget.OnChanged = func(string) {
		input.SetError(nil)
	}
	input.entryWidget.OnSubmitted = func(string) {
		input.Submit()
	}

	input.ExtendBaseWidget(input)

	return input
}

// Submit validates the current text and calls OnSubmitted when it passes.
func (item *Input[T]) Submit() {
	res, err := item.Validator(item.entryWidget.Text)
	item.SetError(err)

	if err == nil && item.OnSubmitted != nil {
		item.OnSubmitted(res)
	}
}

func (item *Input[T]) CreateRenderer() fyne.WidgetRenderer {
	c := container.NewVBox(
		item.labelWidget,
		item.entryWidget,
		item.errorWidget,
	)

	return widget.NewSimpleRenderer(c)
}

func (item *Input[T]) SetError(err error) {
	item.errorWidget.Hidden = err == nil
	if err != nil {
		item.errorWidget.SetText(err.Error())
	}
	item.errorWidget.Refresh()
}

func (item *Input[T]) SetText(text string) {
	item.entryWidget.SetText(text)
}

func (item *Input[T]) Text() string {
	return item.entryWidget.Text
}
