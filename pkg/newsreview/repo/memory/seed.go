package memory

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// Seed is the YAML fixture format used to populate a Repository for local
// runs.
type Seed struct {
	SensitiveWords []string      `yaml:"sensitive_words"`
	Users          []seedUser    `yaml:"users"`
	Authors        []seedAuthor  `yaml:"authors"`
	Channels       []seedChannel `yaml:"channels"`
	Drafts         []seedDraft   `yaml:"drafts"`
}

type seedUser struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type seedAuthor struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	UserID int64  `yaml:"user_id"`
}

type seedChannel struct {
	ID   int64  `yaml:"id"`
	Name string `yaml:"name"`
}

type seedDraft struct {
	ID          int64     `yaml:"id"`
	UserID      int64     `yaml:"user_id"`
	Title       string    `yaml:"title"`
	Content     string    `yaml:"content"`
	Layout      int16     `yaml:"layout"`
	Images      []string  `yaml:"images"`
	ChannelID   int64     `yaml:"channel_id"`
	PublishTime time.Time `yaml:"publish_time"`
	Status      int16     `yaml:"status"`
}

// LoadSeed decodes a YAML seed and stores its records.
func (r *Repository) LoadSeed(in io.Reader) error {
	var seed Seed
	dec := yaml.NewDecoder(in)
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil && err != io.EOF {
		return fmt.Errorf("decode seed: %w", err)
	}

	if len(seed.SensitiveWords) > 0 {
		r.SetSensitiveWords(seed.SensitiveWords...)
	}
	for _, u := range seed.Users {
		r.PutUser(&newsreview.User{ID: u.ID, Name: u.Name})
	}
	for _, a := range seed.Authors {
		r.PutAuthor(&newsreview.Author{ID: a.ID, Name: a.Name, UserID: a.UserID})
	}
	for _, c := range seed.Channels {
		r.PutChannel(&newsreview.Channel{ID: c.ID, Name: c.Name})
	}
	now := time.Now().UTC()
	for _, d := range seed.Drafts {
		r.PutDraft(&newsreview.Draft{
			ID:          d.ID,
			UserID:      d.UserID,
			Title:       d.Title,
			Content:     d.Content,
			Layout:      newsreview.Layout(d.Layout),
			Images:      d.Images,
			ChannelID:   d.ChannelID,
			PublishTime: d.PublishTime,
			Status:      newsreview.Status(d.Status),
			CreatedAt:   now,
			SubmittedAt: now,
		})
	}
	return nil
}

// LoadSeedFile reads a YAML seed from path.
func (r *Repository) LoadSeedFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()
	return r.LoadSeed(f)
}
