// Copyright 2023 the u-root Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ahb

import (
	"errors"
)

var (
	// ErrUnsupported is returned for features or silicon revisions that
	// are not implemented or could not be matched.
	ErrUnsupported = errors.New("not supported")
	// ErrNotPresent is returned when the hardware is absent.
	ErrNotPresent = errors.New("not present")
	// ErrIO is returned when a transport level access did not complete.
	ErrIO = errors.New("i/o failure")
	// ErrLock is returned when an exclusive session could not be
	// acquired or released.
	ErrLock = errors.New("lock failure")
	// ErrNotFound is returned when no device node matches.
	ErrNotFound = errors.New("no matching device")
	// ErrNoPayload is returned when a matched device carries no data.
	ErrNoPayload = errors.New("no match data")
)
