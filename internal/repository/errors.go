package repository

import "errors"

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrSlotTaken means the conditional write lost: the slot key already
	// has an active claimant.
	ErrSlotTaken = errors.New("slot already taken")
	// ErrStatusChanged means a compare-and-set status update found the row
	// in a different state than expected.
	ErrStatusChanged = errors.New("status changed concurrently")
)
