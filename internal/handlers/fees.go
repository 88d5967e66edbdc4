package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/pkg/errors"

	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

func feeChoices(data map[string]any) map[string]any {
	data["Types"] = models.MembershipTypes
	data["Frequencies"] = models.PaymentFrequencies
	return data
}

// GET /fees
func FeesIndex(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fees, err := services.ListFees(conn(r), false)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "fees/list.tmpl", map[string]any{
			"Title": "Membership Fees",
			"Fees":  fees,
		})
	}
}

// GET /fees/new
func FeeNewForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, t, "fees/form.tmpl", feeChoices(map[string]any{
			"Title":  "Add Fee Structure",
			"Form":   services.FeeInput{IsActive: true},
			"Action": "/fees",
		}))
	}
}

// POST /fees
func FeeCreate(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := feeForm(r)
		if err == nil {
			if _, err = services.CreateFee(conn(r), in); err == nil {
				http.Redirect(w, r, "/fees?ok=fee_saved", http.StatusSeeOther)
				return
			}
		}
		fields, general, ok := formErrors(err)
		if !ok {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "fees/form.tmpl", feeChoices(map[string]any{
			"Title":          "Add Fee Structure",
			"Form":           in,
			"Action":         "/fees",
			"Errors":         fields,
			"NonFieldErrors": general,
		}))
	}
}

// GET /fees/{id}/edit
func FeeEditForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		f, err := services.GetFee(conn(r), id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "fees/form.tmpl", feeChoices(map[string]any{
			"Title": "Edit Fee Structure",
			"Form": services.FeeInput{
				MembershipType:   f.MembershipType,
				PaymentFrequency: f.PaymentFrequency,
				Amount:           f.Amount,
				Description:      f.Description,
				IsActive:         f.IsActive,
			},
			"Fee":    f,
			"Action": fmt.Sprintf("/fees/%d", f.ID),
		}))
	}
}

// POST /fees/{id}
func FeeUpdate(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		in, err := feeForm(r)
		if err == nil {
			if _, err = services.UpdateFee(conn(r), id, in); err == nil {
				http.Redirect(w, r, "/fees?ok=fee_saved", http.StatusSeeOther)
				return
			}
		}
		fields, general, ok := formErrors(err)
		if !ok {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "fees/form.tmpl", feeChoices(map[string]any{
			"Title":          "Edit Fee Structure",
			"Form":           in,
			"Action":         fmt.Sprintf("/fees/%d", id),
			"Errors":         fields,
			"NonFieldErrors": general,
		}))
	}
}

// GET /fees/{id}/delete
func FeeDeleteForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		f, err := services.GetFee(conn(r), id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "fees/delete.tmpl", map[string]any{
			"Title": "Delete Fee Structure",
			"Fee":   f,
		})
	}
}

// POST /fees/{id}/delete
func FeeDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	err := services.DeleteFee(conn(r), id)
	switch {
	case err == nil:
		http.Redirect(w, r, "/fees?ok=fee_deleted", http.StatusSeeOther)
	case errors.Is(err, services.ErrFeeInUse):
		http.Redirect(w, r, "/fees?error=fee_in_use", http.StatusSeeOther)
	default:
		serviceError(w, r, err)
	}
}

type feeJSON struct {
	ID               uint    `json:"id"`
	MembershipType   string  `json:"membership_type"`
	PaymentFrequency string  `json:"payment_frequency"`
	Amount           float64 `json:"amount"`
	Label            string  `json:"label"`
}

// GET /fees.json
// Active fees for the payment form, which narrows the fee select to the chosen member's terms.
func FeesJSON(w http.ResponseWriter, r *http.Request) {
	fees, err := services.ListFees(conn(r), true)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	out := make([]feeJSON, 0, len(fees))
	for _, f := range fees {
		out = append(out, feeJSON{
			ID:               f.ID,
			MembershipType:   f.MembershipType,
			PaymentFrequency: f.PaymentFrequency,
			Amount:           f.Amount,
			Label:            feeLabel(f),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func feeLabel(f models.MembershipFee) string {
	return fmt.Sprintf("%s - %s (NPR %.2f)",
		models.Label(models.MembershipTypes, f.MembershipType),
		models.Label(models.PaymentFrequencies, f.PaymentFrequency),
		f.Amount)
}
