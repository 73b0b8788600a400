package comments

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"enip/models"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of an editorial comments export
type File struct {
	Comments []Entry `yaml:"comments"`
}

// Entry is one comment as editors write it
type Entry struct {
	Timestamp   time.Time `yaml:"timestamp"`
	SubmittedBy string    `yaml:"submittedBy"`
	Office      string    `yaml:"office"`
	Race        string    `yaml:"race"`
	Title       string    `yaml:"title"`
	Body        string    `yaml:"body"`
}

// LoadFile reads a comments file from disk
func LoadFile(path string) ([]models.Comment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open comments file: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses and validates a comments document
func Load(r io.Reader) ([]models.Comment, error) {
	var file File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse comments: %w", err)
	}

	out := make([]models.Comment, 0, len(file.Comments))
	for i, e := range file.Comments {
		c, err := e.toModel()
		if err != nil {
			return nil, fmt.Errorf("comment %d: %w", i+1, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (e Entry) toModel() (models.Comment, error) {
	office := strings.ToUpper(strings.TrimSpace(e.Office))
	race := strings.ToUpper(strings.TrimSpace(e.Race))

	switch office {
	case models.NationalCommentOffice:
		if race == "" {
			race = models.NationalCommentRace
		}
	case string(models.OfficePresident), string(models.OfficeSenate), string(models.OfficeHouse):
		if race == "" {
			return models.Comment{}, fmt.Errorf("race is required for office %s", office)
		}
	default:
		return models.Comment{}, fmt.Errorf("unknown office %q", e.Office)
	}

	if e.Timestamp.IsZero() {
		return models.Comment{}, fmt.Errorf("timestamp is required")
	}
	if strings.TrimSpace(e.Title) == "" && strings.TrimSpace(e.Body) == "" {
		return models.Comment{}, fmt.Errorf("title or body is required")
	}

	return models.Comment{
		Timestamp:   e.Timestamp.UTC(),
		SubmittedBy: e.SubmittedBy,
		OfficeID:    office,
		Race:        race,
		Title:       e.Title,
		Body:        e.Body,
	}, nil
}
