package article

import (
	"errors"
	"time"

	"github.com/Jerry0022/PYCO/internal/record"
)

// Partition is the storage partition of articles.
const Partition = "Article"

// Article is a published piece of text.
type Article struct {
	ID        string
	Title     string
	Body      string
	Author    string
	Published time.Time
}

// RecordID implements record.Identifiable. Articles keep the identifier they
// were created with, so editing one does not change its identity.
func (a Article) RecordID() string { return a.ID }

// Descriptor is the registered type descriptor of Article.
var Descriptor = record.MustRegister(record.Descriptor[Article]{
	Name: Partition,
	Fields: []record.Field[Article]{
		record.Text("id", func(a Article) string { return a.ID }),
		record.Text("title", func(a Article) string { return a.Title }),
		record.Text("body", func(a Article) string { return a.Body }),
		record.Text("author", func(a Article) string { return a.Author }),
		record.Timestamp("published", func(a Article) time.Time { return a.Published }),
	},
	New: func(args record.Args) (Article, error) {
		a := Article{
			ID:        args.Text("id"),
			Title:     args.Text("title"),
			Body:      args.Text("body"),
			Author:    args.Text("author"),
			Published: args.Time("published"),
		}
		if a.ID == "" {
			return Article{}, errors.New("article: id is required")
		}
		return a, nil
	},
})

// Draft holds the user supplied part of a new article.
type Draft struct {
	Title     string
	Body      string
	Author    string
	Published time.Time
}

// New assigns an identifier from gen to d. A zero publication time is
// replaced by now, truncated to the millisecond precision articles are
// stored with.
func New(gen IDGenerator, d Draft, now time.Time) (Article, error) {
	if d.Title == "" {
		return Article{}, errors.New("article: title is required")
	}
	published := d.Published
	if published.IsZero() {
		published = now
	}
	return Article{
		ID:        gen.Generate(),
		Title:     d.Title,
		Body:      d.Body,
		Author:    d.Author,
		Published: published.UTC().Truncate(time.Millisecond),
	}, nil
}
