package services

import "errors"

var (
	// ErrNoAgentAvailable is returned by auto-assignment when no team member is online.
	ErrNoAgentAvailable = errors.New("no agent available")

	// ErrContactHasOpenConversations blocks contact deletion while non-closed
	// conversations still reference it.
	ErrContactHasOpenConversations = errors.New("contact has open conversations")
)
