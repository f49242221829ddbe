package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/guregu/null/v5"
)

// Document is a file attached to a phase. Documents are not versioned.
type Document struct {
	ID          string      `json:"id"`
	PhaseID     string      `json:"phase_id"`
	Name        string      `json:"name"`
	Description null.String `json:"description"`
	Kind        string      `json:"kind"`
	FileName    string      `json:"file_name"`
	ContentType string      `json:"content_type"`
	SizeBytes   null.Int    `json:"size_bytes"`
	UploadedBy  string      `json:"uploaded_by"`
	// SupplierVisible shares the document with the phase's supplier.
	SupplierVisible bool      `json:"supplier_visible"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate checks the document before it is stored.
func (d *Document) Validate() error {
	if d.PhaseID == "" || d.Name == "" || d.FileName == "" {
		return errors.New("document needs a phase, name and file name")
	}
	if d.UploadedBy == "" {
		return errors.New("document needs an uploader")
	}
	return nil
}
