// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/vcms-go/internal/middleware"
	"github.com/olegiv/vcms-go/internal/model"
)

// RouteOptions carries the per-route middleware built by the caller.
type RouteOptions struct {
	// CollectLimiter rate limits POST /api/analytics per IP. Nil disables it.
	CollectLimiter *middleware.IPRateLimiter
	// UploadsDir is served under /uploads/. Empty disables it.
	UploadsDir string
}

// Mount registers the public pages, the /api endpoints and the /beheer area
// on r. Access to /beheer itself is decided by middleware.Gate, which the
// caller installs on the router before calling Mount.
func (h *Handler) Mount(r chi.Router, opts RouteOptions) {
	r.Get("/", h.Home)
	r.Get("/nieuwsbrief", h.PublicNewsletters)
	r.Get("/nieuwsbrief/{slug}", h.PublicNewsletter)
	r.Get("/fotoalbum", h.PublicAlbums)
	r.Get("/fotoalbum/{slug}", h.PublicAlbum)
	r.Get("/activiteiten", h.PublicActivities)

	if opts.UploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(uploadsFS{http.Dir(opts.UploadsDir)}))
		r.Handle("/uploads/*", fs)
	}

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if opts.CollectLimiter != nil {
				r.Use(opts.CollectLimiter.SilentMiddleware())
			}
			r.Post("/analytics", h.Collect)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if h.login != nil {
					r.Use(h.login.Middleware())
				}
				r.Post("/login", h.Login)
			})
			r.Post("/logout", h.Logout)
			r.Get("/session", h.Session)
		})

		r.Get("/link-preview", h.LinkPreview)
	})

	r.Route("/beheer", func(r chi.Router) {
		r.Use(middleware.RequireRole(model.Role.CanManage))

		r.Get("/analytics/summary", h.AnalyticsSummary)
		r.Get("/analytics/sessions/{sessionID}", h.AnalyticsSession)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
			r.Put("/{id}", h.UpdateUser)
			r.Delete("/{id}", h.DeleteUser)
		})

		r.Route("/volunteers", func(r chi.Router) {
			r.Get("/", h.ListVolunteers)
			r.Post("/", h.CreateVolunteer)
			r.Get("/{id}", h.GetVolunteer)
			r.Put("/{id}", h.UpdateVolunteer)
			r.Delete("/{id}", h.DeleteVolunteer)
		})

		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.ListContacts)
			r.Post("/", h.CreateContact)
			r.Get("/{id}", h.GetContact)
			r.Put("/{id}", h.UpdateContact)
			r.Delete("/{id}", h.DeleteContact)
		})

		r.Route("/activities", func(r chi.Router) {
			r.Get("/", h.ListActivities)
			r.Post("/", h.CreateActivity)
			r.Get("/{id}", h.GetActivity)
			r.Put("/{id}", h.UpdateActivity)
			r.Delete("/{id}", h.DeleteActivity)
		})

		r.Route("/notices", func(r chi.Router) {
			r.Get("/", h.ListNotices)
			r.Post("/", h.CreateNotice)
			r.Get("/{id}", h.GetNotice)
			r.Put("/{id}", h.UpdateNotice)
			r.Delete("/{id}", h.DeleteNotice)
			r.Post("/{id}/activate", h.ActivateNotice)
			r.Post("/{id}/deactivate", h.DeactivateNotice)
		})

		r.Route("/newsletters", func(r chi.Router) {
			r.Get("/", h.ListNewsletters)
			r.Post("/", h.CreateNewsletter)
			r.Get("/{id}", h.GetNewsletter)
			r.Put("/{id}", h.UpdateNewsletter)
			r.Delete("/{id}", h.DeleteNewsletter)
		})

		r.Route("/albums", func(r chi.Router) {
			r.Get("/", h.ListAlbums)
			r.Post("/", h.CreateAlbum)
			r.Get("/{id}", h.GetAlbum)
			r.Put("/{id}", h.UpdateAlbum)
			r.Delete("/{id}", h.DeleteAlbum)
			r.Post("/{id}/photos", h.AddPhoto)
			r.Delete("/{id}/photos/{photoID}", h.RemovePhoto)
		})

		r.Route("/media", func(r chi.Router) {
			r.Get("/", h.ListMedia)
			r.Post("/", h.UploadMedia)
			r.Get("/{id}", h.GetMedia)
			r.Delete("/{id}", h.DeleteMedia)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireDeveloper())
			r.Get("/events", h.ListEvents)
			r.Get("/jobs", h.ListJobs)
			r.Post("/jobs/{name}/run", h.RunJob)
		})
	})
}

// uploadsFS serves files but never directory listings.
type uploadsFS struct {
	fs http.FileSystem
}

func (u uploadsFS) Open(name string) (http.File, error) {
	f, err := u.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
