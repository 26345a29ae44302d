package services

import (
	"net/url"

	"github.com/oe/sunrain-sub001/internal/models"
)

// LinkFormatter produces a monetizable link for a catalog item.
// ok is false when no such link can be built, in which case the native URL is used.
type LinkFormatter interface {
	GenerateURL(id string, kind models.ContentType) (link string, ok bool)
}

// AppleMusicLinks builds affiliate-tagged music.apple.com links.
type AppleMusicLinks struct {
	Storefront string
	Token      string // affiliate token, sent as the "at" parameter
}

func (l AppleMusicLinks) GenerateURL(id string, kind models.ContentType) (string, bool) {
	if l.Token == "" || id == "" || !kind.Valid() {
		return "", false
	}

	storefront := l.Storefront
	if storefront == "" {
		storefront = defaultStorefront
	}

	u := url.URL{
		Scheme:   "https",
		Host:     "music.apple.com",
		Path:     "/" + storefront + "/" + string(kind) + "/" + id,
		RawQuery: url.Values{"at": {l.Token}}.Encode(),
	}
	return u.String(), true
}
