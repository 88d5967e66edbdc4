package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/pkg/errors"

	"github.com/nssnepal/membership/internal/services"
)

func childError(w http.ResponseWriter, r *http.Request, back string, err error) {
	if _, _, ok := formErrors(err); ok {
		http.Redirect(w, r, back+"?error=invalid_child", http.StatusSeeOther)
		return
	}
	serviceError(w, r, err)
}

// POST /members/{id}/children
func ChildAdd(w http.ResponseWriter, r *http.Request) {
	memberID, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := fmt.Sprintf("/members/%d", memberID)
	in, err := childForm(r)
	if err == nil {
		_, err = services.AddChild(conn(r), memberID, in)
	}
	if err != nil {
		childError(w, r, back, err)
		return
	}
	http.Redirect(w, r, back+"?ok=child_saved", http.StatusSeeOther)
}

// POST /members/{id}/children/update
func ChildUpdate(w http.ResponseWriter, r *http.Request) {
	memberID, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	back := fmt.Sprintf("/members/%d", memberID)
	in, err := childForm(r)
	if err == nil && in.ID == 0 {
		http.Error(w, "missing child_id", http.StatusBadRequest)
		return
	}
	if err == nil {
		_, err = services.UpdateChild(conn(r), memberID, in)
	}
	if err != nil {
		childError(w, r, back, err)
		return
	}
	http.Redirect(w, r, back+"?ok=child_saved", http.StatusSeeOther)
}

// POST /members/{id}/children/delete
func ChildDelete(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	memberID, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	childID, _ := strconv.ParseUint(r.FormValue("child_id"), 10, 64)
	if childID == 0 {
		http.Error(w, "missing child_id", http.StatusBadRequest)
		return
	}
	err := services.DeleteChild(conn(r), memberID, uint(childID))
	if errors.Is(err, services.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/members/%d?ok=child_deleted", memberID), http.StatusSeeOther)
}
