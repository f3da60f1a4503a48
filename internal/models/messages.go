package models

import (
	"io"
	"path"
	"strings"
)

type Attachment struct {
	URL  string
	Name string
}

// IsImage reports whether the attachment is rendered inline rather than as a download link.
func (a Attachment) IsImage() bool {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(a.Name), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif":
		return true
	}
	return false
}

// Message mirrors one entry of the backend message list. SentAt is kept as the
// server sent it: it is only displayed, ordering follows the list order.
type Message struct {
	ID       int64  `json:"id"`
	Author   string `json:"auteur"`
	Body     string `json:"contenu"`
	SentAt   string `json:"date_envoi"`
	FileURL  string `json:"fichier_url,omitempty"`
	FileName string `json:"fichier_nom,omitempty"`
}

func (m Message) Attachment() (Attachment, bool) {
	if m.FileURL == "" {
		return Attachment{}, false
	}
	name := m.FileName
	if name == "" {
		name = "file"
	}
	return Attachment{URL: m.FileURL, Name: name}, true
}

type Upload struct {
	Name    string `validate:"required"`
	Content io.Reader
}

// Draft is the composed, not yet sent input. It is only reset after a confirmed send.
type Draft struct {
	Text string
	File *Upload
}

func (d *Draft) Trimmed() string {
	return strings.TrimSpace(d.Text)
}

func (d *Draft) IsEmpty() bool {
	return d.Trimmed() == "" && d.File == nil
}

func (d *Draft) Reset() {
	d.Text = ""
	d.File = nil
}
