package comments

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"enip/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
comments:
  - timestamp: 2020-11-04T02:15:00-05:00
    submittedBy: desk@example.test
    office: p
    race: pa
    title: Mail ballots outstanding
    body: Philadelphia has not reported mail ballots.
  - timestamp: 2020-11-04T01:00:00Z
    office: N
    title: Polls closed
  - timestamp: 2020-11-04T00:30:00Z
    office: H
    race: PA-04
    body: Too early to call.
`

func TestLoad(t *testing.T) {
	t.Run("parses and normalises entries", func(t *testing.T) {
		comments, err := Load(strings.NewReader(sample))
		require.NoError(t, err)
		require.Len(t, comments, 3)

		assert.Equal(t, "P", comments[0].OfficeID)
		assert.Equal(t, "PA", comments[0].Race)
		assert.Equal(t, time.Date(2020, 11, 4, 7, 15, 0, 0, time.UTC), comments[0].Timestamp)
		assert.Equal(t, "desk@example.test", comments[0].SubmittedBy)

		assert.Equal(t, models.NationalCommentOffice, comments[1].OfficeID)
		assert.Equal(t, models.NationalCommentRace, comments[1].Race)

		assert.Equal(t, "PA-04", comments[2].Race)
	})

	t.Run("empty document", func(t *testing.T) {
		comments, err := Load(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, comments)
	})

	t.Run("rejects unknown offices", func(t *testing.T) {
		_, err := Load(strings.NewReader("comments:\n  - timestamp: 2020-11-04T00:00:00Z\n    office: G\n    race: PA\n    title: x\n"))
		assert.ErrorContains(t, err, "unknown office")
	})

	t.Run("rejects missing race", func(t *testing.T) {
		_, err := Load(strings.NewReader("comments:\n  - timestamp: 2020-11-04T00:00:00Z\n    office: S\n    title: x\n"))
		assert.ErrorContains(t, err, "race is required")
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		_, err := Load(strings.NewReader("comments:\n  - timestamp: 2020-11-04T00:00:00Z\n    office: N\n    titel: x\n"))
		assert.Error(t, err)
	})

	t.Run("rejects empty comments", func(t *testing.T) {
		_, err := Load(strings.NewReader("comments:\n  - timestamp: 2020-11-04T00:00:00Z\n    office: N\n"))
		assert.ErrorContains(t, err, "title or body")
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	comments, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, comments, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
