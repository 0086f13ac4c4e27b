// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestHome(t *testing.T) {
	_, h := testSetup(t)

	w := executeHandler(t, h.Home, newGetRequest(t, "/", nil))
	assertStatusCode(t, w, http.StatusOK)
	home := unmarshalData[HomeResponse](t, w)
	if home.Site != "Buurthuis Test" || home.Notice != nil || home.Upcoming != 0 {
		t.Errorf("empty home = %+v", home)
	}

	n := createTestNotice(t, h, "Gesloten")
	executeHandler(t, h.ActivateNotice, newJSONRequest(t, http.MethodPost, "/beheer/notices/x/activate", "", idParam(n.ID)))
	start := time.Now().Add(24 * time.Hour).UTC().Format(time.RFC3339)
	w = executeHandler(t, h.CreateActivity, newJSONRequest(t, http.MethodPost, "/beheer/activities",
		`{"title":"Koffieochtend","starts_at":"`+start+`"}`, nil))
	assertStatusCode(t, w, http.StatusCreated)

	w = executeHandler(t, h.Home, newGetRequest(t, "/", nil))
	home = unmarshalData[HomeResponse](t, w)
	if home.Notice == nil || home.Notice.ID != n.ID || home.Upcoming != 1 {
		t.Errorf("home = %+v", home)
	}
}

func TestPublicNewsletters_PublishedOnly(t *testing.T) {
	_, h := testSetup(t)

	for _, body := range []string{
		`{"title":"Concept","body_markdown":"nog niet af"}`,
		`{"title":"Juni","body_markdown":"klaar","published":true}`,
	} {
		w := executeHandler(t, h.CreateNewsletter, newJSONRequest(t, http.MethodPost, "/beheer/newsletters", body, nil))
		assertStatusCode(t, w, http.StatusCreated)
	}

	w := executeHandler(t, h.PublicNewsletters, newGetRequest(t, "/nieuwsbrief", nil))
	assertStatusCode(t, w, http.StatusOK)
	items, meta := unmarshalList[NewsletterResponse](t, w)
	if len(items) != 1 || items[0].Slug != "juni" || meta == nil || meta.Page != 1 {
		t.Errorf("public newsletters = %+v, meta = %+v", items, meta)
	}

	tests := []struct {
		slug     string
		wantCode int
	}{
		{"juni", http.StatusOK},
		{"concept", http.StatusNotFound},
		{"bestaat-niet", http.StatusNotFound},
		{"Geen Slug", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			w := executeHandler(t, h.PublicNewsletter, newGetRequest(t, "/nieuwsbrief/x", map[string]string{"slug": tt.slug}))
			assertStatusCode(t, w, tt.wantCode)
		})
	}
}

func TestPublicAlbums(t *testing.T) {
	db, h := testSetup(t)
	img := createTestMedia(t, db, "plein.jpg", "image/jpeg")

	w := executeHandler(t, h.CreateAlbum, newJSONRequest(t, http.MethodPost, "/beheer/albums", `{"title":"Straatfeest","published":true}`, nil))
	album := unmarshalData[AlbumResponse](t, w)
	executeHandler(t, h.CreateAlbum, newJSONRequest(t, http.MethodPost, "/beheer/albums", `{"title":"Verborgen"}`, nil))
	executeHandler(t, h.AddPhoto, newJSONRequest(t, http.MethodPost, "/beheer/albums/x/photos",
		`{"media_id":`+strconv.FormatInt(img.ID, 10)+`}`, idParam(album.ID)))

	w = executeHandler(t, h.PublicAlbums, newGetRequest(t, "/fotoalbum", nil))
	if items, _ := unmarshalList[AlbumResponse](t, w); len(items) != 1 || items[0].Slug != "straatfeest" {
		t.Errorf("public albums = %+v", items)
	}

	w = executeHandler(t, h.PublicAlbum, newGetRequest(t, "/fotoalbum/straatfeest", map[string]string{"slug": "straatfeest"}))
	assertStatusCode(t, w, http.StatusOK)
	if got := unmarshalData[AlbumResponse](t, w); len(got.Photos) != 1 {
		t.Errorf("photos = %+v", got.Photos)
	}

	w = executeHandler(t, h.PublicAlbum, newGetRequest(t, "/fotoalbum/verborgen", map[string]string{"slug": "verborgen"}))
	assertStatusCode(t, w, http.StatusNotFound)
}

func TestPublicActivities(t *testing.T) {
	_, h := testSetup(t)

	past := time.Now().Add(-48 * time.Hour).UTC().Format(time.RFC3339)
	soon := time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339)
	later := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	for _, body := range []string{
		`{"title":"Voorbij","starts_at":"` + past + `"}`,
		`{"title":"Later","starts_at":"` + later + `"}`,
		`{"title":"Straks","starts_at":"` + soon + `"}`,
	} {
		w := executeHandler(t, h.CreateActivity, newJSONRequest(t, http.MethodPost, "/beheer/activities", body, nil))
		assertStatusCode(t, w, http.StatusCreated)
	}

	w := executeHandler(t, h.PublicActivities, newGetRequest(t, "/activiteiten", nil))
	assertStatusCode(t, w, http.StatusOK)
	items := unmarshalData[[]ActivityResponse](t, w)
	if len(items) != 2 || items[0].Title != "Straks" || items[1].Title != "Later" {
		t.Errorf("upcoming = %+v", items)
	}

	w = executeHandler(t, h.PublicActivities, newGetRequest(t, "/activiteiten?limit=1", nil))
	if items := unmarshalData[[]ActivityResponse](t, w); len(items) != 1 {
		t.Errorf("limited upcoming = %d, want 1", len(items))
	}
}
