package confirm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeleteListQuestion(t *testing.T) {
	assert.Equal(t, "Are you sure you want to delete this list?", DeleteListQuestion(0))
	assert.Equal(t, "This list contains 1 card(s). Are you sure you want to delete it?", DeleteListQuestion(1))
	assert.Equal(t, "This list contains 12 card(s). Are you sure you want to delete it?", DeleteListQuestion(12))
}

func TestQuestions(t *testing.T) {
	assert.Equal(t, `Delete board "Alpha" and all of its cards?`, DeleteBoardQuestion("Alpha"))
	assert.Equal(t, `Delete card "Fix login"?`, DeleteCardQuestion("Fix login"))
}

func TestStartResetsAnswer(t *testing.T) {
	m := New(80)
	*m.ok = true
	m.Start("Sure?", "", "action")
	assert.False(t, *m.ok)
	assert.Equal(t, "action", m.action)
	assert.Contains(t, m.View(), "Sure?")
}
