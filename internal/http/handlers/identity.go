package handlers

import (
	"net/http"

	"timetracker/internal/service"
)

// Authentication is owned by an external collaborator; by the time a request
// reaches this process its identity has been validated and is carried in
// headers. Missing identity means the request never went through the
// authenticating front.
const (
	headerUserID = "X-User-ID"
	headerRole   = "X-Role"

	roleAdmin = "admin"
)

func identityFrom(r *http.Request) (service.Identity, bool) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		return service.Identity{}, false
	}
	return service.Identity{
		UserID:   userID,
		Elevated: r.Header.Get(headerRole) == roleAdmin,
	}, true
}
