package service

import (
	"errors"

	"github.com/mmynk/settlebot/internal/storage"
)

// Lookup errors are the storage sentinels, re-exported so callers of the
// service layer need not import storage.
var (
	ErrUnknownTeam         = storage.ErrUnknownTeam
	ErrUnknownUser         = storage.ErrUnknownUser
	ErrDuplicateMembership = storage.ErrDuplicateMembership
	ErrUnknownProduct      = storage.ErrUnknownProduct
	ErrRosterChanged       = storage.ErrRosterChanged
)

var (
	// ErrInvalidProduct is returned for a non-positive quantity or total price.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrAlreadySettled is returned when a settlement trigger finds the team gone.
	ErrAlreadySettled = errors.New("team already settled")
	// ErrContactMissing is returned when settlement starts before every member sent contact info.
	ErrContactMissing = errors.New("not every member sent contact info")
)
