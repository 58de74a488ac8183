package cwidget

import (
	"testing"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
)

func TestQueryInputSubmitsTrimmedText(t *testing.T) {
	test.NewTempApp(t)

	var got []string
	input := NewQueryInput("Query", "Type query", func(s string) {
		got = append(got, s)
	})

	input.SetText("  apple  ")
	input.Submit()

	assert.Equal(t, []string{"apple"}, got)
	assert.True(t, input.errorWidget.Hidden)
}

func TestQueryInputRejectsBlank(t *testing.T) {
	test.NewTempApp(t)

	called := false
	input := NewQueryInput("Query", "Type query", func(string) { called = true })

	input.SetText(" \t ")
	input.Submit()

	assert.False(t, called)
	assert.False(t, input.errorWidget.Hidden)
	assert.Equal(t, ErrEmptyQuery.Error(), input.errorWidget.Text)

	input.SetText("pear")
	assert.True(t, input.errorWidget.Hidden, "editing clears the error")
}

func TestQueryInputEnterSubmits(t *testing.T) {
	test.NewTempApp(t)

	var got string
	input := NewQueryInput("Query", "Type query", func(s string) { got = s })

	test.Type(input.entryWidget, "banana")
	input.entryWidget.OnSubmitted(input.Text())

	assert.Equal(t, "banana", got)
}
