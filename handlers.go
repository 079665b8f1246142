package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// App wires the transport surface to the session protocol and the store.
type App struct {
	Store    Store
	Sessions *Sessions
}

// requestLocation is the canonical location of the addressed resource:
// the request URL without its query string.
func requestLocation(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, r.Host, r.URL.Path)
}

// decodeBody decodes an optional JSON request body into dst. An empty body
// is not an error; a malformed one is.
func decodeBody(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

// HandleRegister serves PUT /users/{id}?pwd={secret} with the profile
// fields as the JSON body. 201 with the minted token on success, 303 with
// the canonical location when the identity already exists.
func (a *App) HandleRegister(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	secret := r.URL.Query().Get("pwd")
	if secret == "" {
		writeErr(w, badRequestErr("/users/%s requires a 'pwd' password query parameter", id))
		return
	}

	var profile map[string]interface{}
	if err := decodeBody(r, &profile); err != nil {
		writeErr(w, badRequestErr("invalid request body"))
		return
	}

	w.Header().Set("Location", requestLocation(r))
	tokenID, err := a.Sessions.Register(id, secret, profile)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": statusCreated, "authToken": tokenID})
}

// HandleLogin serves PUT /users/{id}/auth with body {"pw": secret}.
func (a *App) HandleLogin(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var body struct {
		Pw string `json:"pw"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeErr(w, badRequestErr("invalid request body"))
		return
	}

	tokenID, err := a.Sessions.Login(id, body.Pw)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": statusOK, "authToken": tokenID})
}

// HandleGetUser serves GET /users/{id}. RequireAuth has already run the
// gate; the admitted document carries no password digest.
func (a *App) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	doc := authedDocFrom(r.Context())
	if doc == nil {
		writeErr(w, errors.New("no authenticated document in context"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
