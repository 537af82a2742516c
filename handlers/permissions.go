package handlers

import (
	"net/http"

	"github.com/camden-git/siteguard/permissions"
)

// ListPermissionDefinitions serves the statically defined permission groups.
func ListPermissionDefinitions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, permissions.DefinedPermissionGroups)
}
