// Package cosmetic holds the client-side data model shared by the capture,
// upload, detection and registration components.
package cosmetic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// FileScheme prefixes local photo references produced by the camera.
	FileScheme = "file://"
	// DefaultMIMEType is the type every captured photo is uploaded with.
	DefaultMIMEType = "image/jpeg"
)

// PhotoRef is an opaque platform file handle plus the metadata attached to its upload part.
type PhotoRef struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	MIMEType string `json:"type"`
}

// NewPhotoRef builds a reference for a photo written by the camera at path.
func NewPhotoRef(path, name string) PhotoRef {
	uri := path
	if !strings.Contains(path, "://") {
		uri = FileScheme + path
	}
	return PhotoRef{URI: uri, Name: name, MIMEType: DefaultMIMEType}
}

// ID is a server identifier. The service has emitted both numbers and strings
// for the same field, so decoding accepts either and keeps the canonical text.
type ID string

// UnmarshalJSON accepts a JSON string or number. null decodes to the empty ID.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cosmetic id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Int64 reports the numeric form of the identifier when it has one.
func (id ID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (id ID) String() string { return string(id) }

// IsZero reports whether no identifier was provided.
func (id ID) IsZero() bool { return id == "" }

// Source tags which backend matching strategy produced a detection.
type Source string

const (
	SourceModel  Source = "model"
	SourceHash   Source = "hash"
	SourcePython Source = "python"
	SourceAHash  Source = "ahash"
)

// Candidate is one ranked entry of a detection response.
type Candidate struct {
	ID    ID      `json:"candidateId"`
	Score float64 `json:"score"`
}

// UnmarshalJSON accepts both the candidateId and product_id shapes of the contract.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var raw struct {
		CandidateID ID      `json:"candidateId"`
		ProductID   ID      `json:"product_id"`
		Score       float64 `json:"score"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = raw.CandidateID
	if c.ID.IsZero() {
		c.ID = raw.ProductID
	}
	c.Score = raw.Score
	return nil
}

// DetectionResult is the interpreted response of the detect endpoint.
type DetectionResult struct {
	DetectedID   ID          `json:"detectedId"`
	BestDistance *float64    `json:"bestDistance,omitempty"`
	Candidates   []Candidate `json:"top5,omitempty"`
	Source       Source      `json:"source,omitempty"`
}

// PhotoMeta describes one stored photo of a catalog entry.
type PhotoMeta struct {
	StorageKey   string `json:"storageKey"`
	OriginalName string `json:"originalName"`
	MIMEType     string `json:"mimeType"`
}

// UnmarshalJSON accepts the storageKey and s3Key spellings.
func (p *PhotoMeta) UnmarshalJSON(data []byte) error {
	var raw struct {
		StorageKey   string `json:"storageKey"`
		S3Key        string `json:"s3Key"`
		OriginalName string `json:"originalName"`
		MIMEType     string `json:"mimeType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.StorageKey = firstNonEmpty(raw.StorageKey, raw.S3Key)
	p.OriginalName = raw.OriginalName
	p.MIMEType = raw.MIMEType
	return nil
}

// Record is a persisted catalog entry. It is created server-side.
type Record struct {
	ID        ID          `json:"id"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"createdAt"`
	Photos    []PhotoMeta `json:"photos"`
}

// UnmarshalJSON accepts the id/name and cosmeticId/cosmeticName spellings.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           ID          `json:"id"`
		CosmeticID   ID          `json:"cosmeticId"`
		Name         string      `json:"name"`
		CosmeticName string      `json:"cosmeticName"`
		CreatedAt    timestamp   `json:"createdAt"`
		CreatedAtOld timestamp   `json:"created_at"`
		Photos       []PhotoMeta `json:"photos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = raw.ID
	if r.ID.IsZero() {
		r.ID = raw.CosmeticID
	}
	r.Name = firstNonEmpty(raw.Name, raw.CosmeticName)
	r.CreatedAt = raw.CreatedAt.or(raw.CreatedAtOld)
	r.Photos = raw.Photos
	return nil
}

// Summary is one entry of the signed-in user's catalog list.
type Summary struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	Thumbnail string    `json:"thumbnail"`
	CreatedAt time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts createdAt and created_at.
func (s *Summary) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           ID        `json:"id"`
		Name         string    `json:"name"`
		Thumbnail    string    `json:"thumbnail"`
		CreatedAt    timestamp `json:"createdAt"`
		CreatedAtOld timestamp `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.ID = raw.ID
	s.Name = raw.Name
	s.Thumbnail = raw.Thumbnail
	s.CreatedAt = raw.CreatedAt.or(raw.CreatedAtOld)
	return nil
}

// User is the account returned by the auth service.
type User struct {
	ID    ID     `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// timestamp tolerates empty strings and null, which the service emits for legacy rows.
type timestamp struct{ time.Time }

func (t *timestamp) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if s == "null" || s == `""` || s == "" {
		return nil
	}
	return t.Time.UnmarshalJSON(data)
}

func (t timestamp) or(other timestamp) time.Time {
	if t.IsZero() {
		return other.Time
	}
	return t.Time
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
