// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package blob defines the profile-photo storage contract. The
// registration core only ever holds the opaque reference a Store
// returns; it never touches file bytes.
package blob

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// MaxPhotoBytes is the largest accepted upload.
const MaxPhotoBytes = 5 << 20 // 5 MiB

// Sentinel failures a Store distinguishes for callers.
var (
	ErrTooLarge = errors.New("file exceeds maximum size")
	ErrBadType  = errors.New("unsupported file type")
)

// allowedMIMETypes are the accepted upload content types.
var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
}

// Store persists an uploaded photo and returns an opaque reference to it.
type Store interface {
	// Store saves the file bytes and returns a reference usable later to
	// locate the photo. Returns ErrTooLarge or ErrBadType (possibly
	// wrapped) when the upload violates the contract.
	Store(ctx context.Context, data []byte, mimeType string) (string, error)
}

// CheckConstraints validates size and content type against the upload
// contract. Shared by every Store implementation so the rules cannot
// drift between backends.
func CheckConstraints(size int, mimeType string) error {
	if size > MaxPhotoBytes {
		return oops.Code("BLOB_TOO_LARGE").
			With("size", size).
			With("max", MaxPhotoBytes).
			Wrap(ErrTooLarge)
	}
	if _, ok := allowedMIMETypes[mimeType]; !ok {
		return oops.Code("BLOB_BAD_TYPE").
			With("mime_type", mimeType).
			Wrap(ErrBadType)
	}
	return nil
}

// Extension returns the file extension for an accepted MIME type.
func Extension(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
