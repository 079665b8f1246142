package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Profile maintenance paths. These sit outside the session protocol core:
// the protocol only ever reads credential records, so updates are a plain
// merge of profile fields and deletion removes the record outright. Both
// routes run behind the same gate as GET.

// HandleUpdateUser serves POST /users/{id} with a partial profile body.
func (a *App) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var fields map[string]interface{}
	if err := decodeBody(r, &fields); err != nil || len(fields) == 0 {
		writeErr(w, badRequestErr("/users/%s requires a non-empty JSON body", id))
		return
	}
	// identity and password digest are not updatable through this path
	delete(fields, "_id")
	delete(fields, "pwd")

	n, err := a.Store.UpdateUser(id, fields)
	if err != nil {
		writeErr(w, internalErr(err, "updating user %s", id))
		return
	}
	if n == 0 {
		writeErr(w, notFoundErr("user %s not found", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteUser serves DELETE /users/{id}.
func (a *App) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := a.Store.DeleteUser(id); err != nil {
		writeErr(w, internalErr(err, "deleting user %s", id))
		return
	}
	w.WriteHeader(http.StatusOK)
}
