package settings

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsClosed(t *testing.T) {
	s := Default()
	assert.False(t, s.IsOpen)
	assert.Equal(t, DefaultClosedMessage, s.Message())
	assert.Equal(t, "settings/voting", Ref().Path())
}

func TestValidateClosedMessage(t *testing.T) {
	assert.NoError(t, ValidateClosedMessage("Results on Friday"))
	assert.ErrorIs(t, ValidateClosedMessage("   "), ErrInvalidMessage)
	assert.ErrorIs(t, ValidateClosedMessage(strings.Repeat("m", 501)), ErrInvalidMessage)
	assert.NoError(t, ValidateAnnouncement(""))
}
