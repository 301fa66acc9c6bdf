package models

import (
	"time"

	"github.com/google/uuid"
)

// LegalityVerdict is the outcome of the optional is-this-a-legal-document check.
type LegalityVerdict struct {
	IsLegal bool   `json:"is_legal"`
	Reason  string `json:"reason"`
}

// DocumentFile describes the staged upload a DocumentContext was extracted from.
type DocumentFile struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	Pages       int       `json:"pages"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// DocumentContext is the per-session input to every prompt.
// It is replaced, never mutated, when a new document or language is chosen.
type DocumentContext struct {
	Text     string           `json:"-"`
	Language Language         `json:"language"`
	Legality *LegalityVerdict `json:"legality,omitempty"`
	File     *DocumentFile    `json:"file,omitempty"`
}

func (d DocumentContext) HasText() bool {
	return d.Text != ""
}

// WithLegality returns a copy carrying the verdict.
func (d DocumentContext) WithLegality(v LegalityVerdict) DocumentContext {
	d.Legality = &v
	return d
}

// WithLanguage returns a copy in another language.
func (d DocumentContext) WithLanguage(l Language) DocumentContext {
	d.Language = l
	return d
}

// Blocked reports whether a completed legality check rejected the document.
func (d DocumentContext) Blocked() bool {
	return d.Legality != nil && !d.Legality.IsLegal
}
