// Package settings holds the global voting switch.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gravadigital/campus-awards-api/internal/storage/document"
)

const (
	Collection = "settings"
	VotingID   = "voting"

	// DefaultClosedMessage is shown while voting has never been opened.
	DefaultClosedMessage = "Voting is currently closed. Please check back later."
	MessageMaxLength     = 500
)

var ErrInvalidMessage = errors.New("invalid message")

// VotingSettings is the singleton that gates vote submission.
type VotingSettings struct {
	IsOpen              bool       `json:"isOpen"`
	OpenedAt            *time.Time `json:"openedAt"`
	ClosedAt            *time.Time `json:"closedAt"`
	ClosedMessage       string     `json:"closedMessage"`
	AnnouncementMessage string     `json:"announcementMessage"`
	UpdatedAt           *time.Time `json:"updatedAt,omitempty"`
}

// Default is the state persisted when no settings exist yet.
func Default() *VotingSettings {
	return &VotingSettings{
		IsOpen:        false,
		ClosedMessage: DefaultClosedMessage,
	}
}

// Ref addresses the settings document.
func Ref() document.Ref {
	return document.Doc(Collection, VotingID)
}

// Message returns the text shown to voters while voting is closed.
func (s *VotingSettings) Message() string {
	if s.ClosedMessage == "" {
		return DefaultClosedMessage
	}
	return s.ClosedMessage
}

// ValidateClosedMessage requires a non-empty message within the length limit.
func ValidateClosedMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("%w: closed message is required", ErrInvalidMessage)
	}
	return ValidateAnnouncement(msg)
}

// ValidateAnnouncement enforces the message length limit; empty clears it.
func ValidateAnnouncement(msg string) error {
	if utf8.RuneCountInString(msg) > MessageMaxLength {
		return fmt.Errorf("%w: message must be at most %d characters", ErrInvalidMessage, MessageMaxLength)
	}
	return nil
}
