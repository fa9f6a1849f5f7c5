// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package member

import "errors"

// ErrNotFound is returned when a requested member does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is returned when the email uniqueness constraint is
// violated.
var ErrEmailTaken = errors.New("email already registered")
