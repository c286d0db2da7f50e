package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/viewlulu/internal/cosmetic"
	"github.com/example/viewlulu/internal/repository"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// render writes v in the requested format. text renders the human form.
func render(w io.Writer, format string, v any, text func(io.Writer) error) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		_, err = w.Write(data)
		return err
	case outputText, "":
		return text(w)
	default:
		return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
}

type candidateView struct {
	ID    string  `json:"id" yaml:"id"`
	Score float64 `json:"score" yaml:"score"`
}

type detectionView struct {
	RequestID    string          `json:"request_id" yaml:"request_id"`
	Photo        string          `json:"photo" yaml:"photo"`
	DetectedID   string          `json:"detected_id" yaml:"detected_id"`
	Source       string          `json:"source,omitempty" yaml:"source,omitempty"`
	BestDistance *float64        `json:"best_distance,omitempty" yaml:"best_distance,omitempty"`
	Candidates   []candidateView `json:"candidates,omitempty" yaml:"candidates,omitempty"`
}

func newDetectionView(requestID string, photo cosmetic.PhotoRef, result cosmetic.DetectionResult) detectionView {
	view := detectionView{
		RequestID:    requestID,
		Photo:        photo.URI,
		DetectedID:   result.DetectedID.String(),
		Source:       string(result.Source),
		BestDistance: result.BestDistance,
	}
	for _, c := range result.Candidates {
		view.Candidates = append(view.Candidates, candidateView{ID: c.ID.String(), Score: c.Score})
	}
	return view
}

type photoView struct {
	StorageKey   string `json:"storage_key" yaml:"storage_key"`
	OriginalName string `json:"original_name,omitempty" yaml:"original_name,omitempty"`
	MIMEType     string `json:"mime_type,omitempty" yaml:"mime_type,omitempty"`
	URL          string `json:"url,omitempty" yaml:"url,omitempty"`
}

type recordView struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	CreatedAt time.Time   `json:"created_at" yaml:"created_at"`
	Photos    []photoView `json:"photos" yaml:"photos"`
}

func newRecordView(record cosmetic.Record, photoURL func(cosmetic.PhotoMeta) string) recordView {
	view := recordView{ID: record.ID.String(), Name: record.Name, CreatedAt: record.CreatedAt, Photos: []photoView{}}
	for _, p := range record.Photos {
		pv := photoView{StorageKey: p.StorageKey, OriginalName: p.OriginalName, MIMEType: p.MIMEType}
		if photoURL != nil {
			pv.URL = photoURL(p)
		}
		view.Photos = append(view.Photos, pv)
	}
	return view
}

type summaryView struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Thumbnail string    `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type logView struct {
	RequestID    string    `json:"request_id" yaml:"request_id"`
	DetectedID   string    `json:"detected_id" yaml:"detected_id"`
	Source       string    `json:"source,omitempty" yaml:"source,omitempty"`
	BestDistance *float64  `json:"best_distance,omitempty" yaml:"best_distance,omitempty"`
	Candidates   int       `json:"candidates" yaml:"candidates"`
	Photo        string    `json:"photo,omitempty" yaml:"photo,omitempty"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

func newLogView(log repository.DetectionLog) logView {
	return logView{
		RequestID:    log.RequestID,
		DetectedID:   log.DetectedID,
		Source:       log.Source,
		BestDistance: log.BestDistance,
		Candidates:   log.CandidateCount,
		Photo:        log.PhotoName,
		CreatedAt:    log.CreatedAt,
	}
}

func formatDistance(d *float64) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *d)
}
