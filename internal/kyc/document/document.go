// Package document implements the document upload step: one slot per document
// type, media and size checks, image previews and the submit gate.
package document

import (
	"fmt"
	"slices"

	"bharatkyc/internal/kyc/models"
	dErrors "bharatkyc/pkg/domain-errors"
)

// Type is a supported identity document.
type Type string

const (
	AadhaarFront   Type = "aadhaarFront"
	AadhaarBack    Type = "aadhaarBack"
	PAN            Type = "pan"
	Passport       Type = "passport"
	VoterID        Type = "voterId"
	DrivingLicense Type = "drivingLicense"
)

// Types is the fixed enumeration order used for display and auto-advance.
var Types = []Type{AadhaarFront, AadhaarBack, PAN, Passport, VoterID, DrivingLicense}

// ParseType validates an untrusted document type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !slices.Contains(Types, t) {
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown document type %q", s))
	}
	return t, nil
}

// LabelKey is the translation key of the document's display name.
func (t Type) LabelKey() string {
	return "documents." + string(t)
}

const (
	MediaJPEG = "image/jpeg"
	MediaPNG  = "image/png"
	MediaPDF  = "application/pdf"

	// MaxFileSize is the largest accepted upload, in bytes.
	MaxFileSize = 5 * 1024 * 1024
)

var acceptedMedia = []string{MediaJPEG, MediaPNG, MediaPDF}

// File is a file the user selected.
type File struct {
	Name      string
	MediaType string
	Size      int64
	Data      []byte
}

// IsImage reports whether the file gets a preview.
func (f File) IsImage() bool {
	return f.MediaType == MediaJPEG || f.MediaType == MediaPNG
}

// Validate applies the media type and size rules.
func Validate(f File) error {
	if !slices.Contains(acceptedMedia, f.MediaType) {
		return models.NewNoticeError(dErrors.CodeUnsupportedMedia,
			fmt.Sprintf("media type %q is not accepted", f.MediaType),
			"errors.invalidFileType", "errors.onlyJpgPngPdf", nil)
	}
	if f.Size > MaxFileSize {
		return models.NewNoticeError(dErrors.CodePayloadTooLarge,
			fmt.Sprintf("file is %d bytes, limit is %d", f.Size, MaxFileSize),
			"errors.fileTooLarge", "errors.maxFileSize", map[string]string{"size": "5MB"})
	}
	return nil
}

// Slot holds at most one file for a document type. Uploaded is true iff a
// file is attached.
type Slot struct {
	Type     Type
	File     *File
	Preview  *Preview
	Uploaded bool
}

// Upload is the step's state. Not safe for concurrent use.
type Upload struct {
	slots  map[Type]*Slot
	active Type
}

// NewUpload mounts the step with every slot empty and the first type active.
func NewUpload() *Upload {
	u := &Upload{slots: make(map[Type]*Slot, len(Types)), active: Types[0]}
	for _, t := range Types {
		u.slots[t] = &Slot{Type: t}
	}
	return u
}

// Active is the slot currently shown.
func (u *Upload) Active() Type { return u.active }

// Slot returns a copy of a slot.
func (u *Upload) Slot(t Type) Slot { return *u.slots[t] }

// Slots returns copies of every slot in enumeration order.
func (u *Upload) Slots() []Slot {
	out := make([]Slot, 0, len(Types))
	for _, t := range Types {
		out = append(out, *u.slots[t])
	}
	return out
}

// Attach stores an already validated file (and its preview, for images),
// then advances the active selector to the next type if one remains.
func (u *Upload) Attach(t Type, f File, preview *Preview) {
	file := f
	u.slots[t] = &Slot{Type: t, File: &file, Preview: preview, Uploaded: true}
	if i := slices.Index(Types, t); i < len(Types)-1 {
		u.active = Types[i+1]
	}
}

// SelectFile is Validate plus Attach, decoding the preview inline.
func (u *Upload) SelectFile(t Type, f File) error {
	if err := Validate(f); err != nil {
		return err
	}
	var preview *Preview
	if f.IsImage() {
		preview = BuildPreview(f)
	}
	u.Attach(t, f, preview)
	return nil
}

// RemoveFile clears a slot. Removing an empty slot is a no-op.
func (u *Upload) RemoveFile(t Type) {
	u.slots[t] = &Slot{Type: t}
}

// SetActive selects the slot shown to the user.
func (u *Upload) SetActive(t Type) {
	u.active = t
}

// UploadedTypes lists the filled slots in enumeration order.
func (u *Upload) UploadedTypes() []Type {
	var out []Type
	for _, t := range Types {
		if u.slots[t].Uploaded {
			out = append(out, t)
		}
	}
	return out
}

// Submit succeeds when at least one slot is filled.
func (u *Upload) Submit() error {
	if len(u.UploadedTypes()) == 0 {
		return models.NewNoticeError(dErrors.CodeValidation, "no documents uploaded",
			"errors.noDocuments", "errors.uploadAtLeastOne", nil)
	}
	return nil
}
