package cosmetic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhotoRefAddsFileScheme(t *testing.T) {
	ref := NewPhotoRef("/data/cam/1.jpg", "cosmetic_1.jpg")
	assert.Equal(t, "file:///data/cam/1.jpg", ref.URI)
	assert.Equal(t, DefaultMIMEType, ref.MIMEType)

	content := NewPhotoRef("content://media/1", "x.jpg")
	assert.Equal(t, "content://media/1", content.URI)
}

func TestIDAcceptsStringsAndNumbers(t *testing.T) {
	cases := map[string]ID{
		`"42"`:   "42",
		`42`:     "42",
		`" 7 "`:  "7",
		`null`:   "",
		`"abc"`:  "abc",
		`1.5e3`:  "1.5e3",
	}
	for in, want := range cases {
		var id ID
		require.NoError(t, json.Unmarshal([]byte(in), &id), in)
		assert.Equal(t, want, id, in)
	}

	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{}`), &id))
}

func TestIDInt64(t *testing.T) {
	n, ok := ID("42").Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = ID("abc").Int64()
	assert.False(t, ok)
}

func TestDetectionResultDecodesBothCandidateShapes(t *testing.T) {
	body := `{"detectedId": 9, "bestDistance": 0.12, "source": "python",
		"top5": [{"candidateId": "9", "score": 0.9}, {"product_id": 3, "score": 0.4}]}`

	var result DetectionResult
	require.NoError(t, json.Unmarshal([]byte(body), &result))

	assert.Equal(t, ID("9"), result.DetectedID)
	require.NotNil(t, result.BestDistance)
	assert.InDelta(t, 0.12, *result.BestDistance, 1e-9)
	assert.Equal(t, SourcePython, result.Source)
	require.Len(t, result.Candidates, 2)
	assert.Equal(t, ID("9"), result.Candidates[0].ID)
	assert.Equal(t, ID("3"), result.Candidates[1].ID)
}

func TestRecordDecodesLegacySpellings(t *testing.T) {
	body := `{"cosmeticId": 5, "cosmeticName": "Lip tint", "createdAt": "2025-01-02T03:04:05Z",
		"photos": [{"s3Key": "a/1.jpg", "originalName": "1.jpg", "mimeType": "image/jpeg"}]}`

	var record Record
	require.NoError(t, json.Unmarshal([]byte(body), &record))

	assert.Equal(t, ID("5"), record.ID)
	assert.Equal(t, "Lip tint", record.Name)
	assert.Equal(t, 2025, record.CreatedAt.Year())
	require.Len(t, record.Photos, 1)
	assert.Equal(t, "a/1.jpg", record.Photos[0].StorageKey)
}

func TestSummaryAcceptsSnakeCaseTimestamp(t *testing.T) {
	var summary Summary
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"n","thumbnail":"t","created_at":"2024-06-01T00:00:00Z"}`), &summary))
	assert.Equal(t, 2024, summary.CreatedAt.Year())

	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"created_at":""}`), &summary))
	assert.True(t, summary.CreatedAt.IsZero())
}
