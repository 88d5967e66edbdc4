package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

// paymentFormData loads the select options for the payment form. Editing an
// existing payment narrows the fees to the member's own terms.
func paymentFormData(gdb *gorm.DB, data map[string]any, member *models.Member) (map[string]any, error) {
	members, err := services.ActiveMembers(gdb)
	if err != nil {
		return nil, err
	}
	fees, err := services.ListFees(gdb, true)
	if err != nil {
		return nil, err
	}
	if member != nil {
		var own []models.MembershipFee
		for _, f := range fees {
			if f.MembershipType == member.MembershipType && f.PaymentFrequency == member.PaymentFrequency {
				own = append(own, f)
			}
		}
		fees = own
	}
	data["Members"] = members
	data["Fees"] = fees
	data["Modes"] = models.PaymentModes
	return data, nil
}

// GET /payments
func PaymentsList(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := services.PaymentFilter{
			Q:    strings.TrimSpace(q.Get("q")),
			Mode: strings.TrimSpace(q.Get("payment_mode")),
			From: queryDate(r, "start_date"),
			To:   queryDate(r, "end_date"),
		}
		if id, err := strconv.ParseUint(q.Get("member_id"), 10, 64); err == nil {
			f.MemberID = uint(id)
		}
		payments, total, err := services.ListPayments(conn(r), f)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "payments/list.tmpl", map[string]any{
			"Title":       "Payments",
			"Payments":    payments,
			"TotalAmount": total,
			"Filter":      f,
			"StartDate":   q.Get("start_date"),
			"EndDate":     q.Get("end_date"),
			"Modes":       models.PaymentModes,
		})
	}
}

// GET /payments/new?member_id=
func PaymentNewForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gdb := conn(r)
		in := services.PaymentInput{
			PaymentDate: today(),
			PaymentMode: models.ModeCash,
		}
		if u := CurrentUser(r); u != nil {
			in.CollectedBy = u.DisplayName()
		}
		if id, err := strconv.ParseUint(r.URL.Query().Get("member_id"), 10, 64); err == nil && id > 0 {
			m, err := services.GetMember(gdb, uint(id))
			if err != nil {
				serviceError(w, r, err)
				return
			}
			in.MemberID = m.ID
			if fee, err := services.FeeFor(gdb, m.MembershipType, m.PaymentFrequency); err == nil {
				in.MembershipFeeID = fee.ID
				in.Amount = fee.Amount
			}
		}

		data, err := paymentFormData(gdb, map[string]any{
			"Title":  "Record Payment",
			"Form":   in,
			"Action": "/payments",
		}, nil)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "payments/form.tmpl", data)
	}
}

// POST /payments
func PaymentCreate(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gdb := conn(r)
		in, err := paymentForm(r)
		if err == nil {
			var p models.Payment
			if p, err = services.RecordPayment(gdb, in); err == nil {
				redirectFlash(w, r, fmt.Sprintf("/payments/%d/receipt", p.ID), "ok",
					"Payment recorded successfully! Receipt Number: "+p.ReceiptNumber)
				return
			}
		}
		fields, general, ok := formErrors(err)
		if !ok {
			internalError(w, r, err)
			return
		}
		data, err := paymentFormData(gdb, map[string]any{
			"Title":          "Record Payment",
			"Form":           in,
			"Action":         "/payments",
			"Errors":         fields,
			"NonFieldErrors": general,
		}, nil)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "payments/form.tmpl", data)
	}
}

func inputFromPayment(p models.Payment) services.PaymentInput {
	return services.PaymentInput{
		MemberID:             p.MemberID,
		MembershipFeeID:      p.MembershipFeeID,
		Amount:               p.Amount,
		PaymentDate:          p.PaymentDate,
		PaymentMode:          p.PaymentMode,
		TransactionReference: p.TransactionReference,
		CollectedBy:          p.CollectedBy,
		Remarks:              p.Remarks,
	}
}

// GET /payments/{id}/edit
func PaymentEditForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		gdb := conn(r)
		p, err := services.GetPayment(gdb, id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		data, err := paymentFormData(gdb, map[string]any{
			"Title":   "Edit Payment " + p.ReceiptNumber,
			"Form":    inputFromPayment(p),
			"Payment": p,
			"Action":  fmt.Sprintf("/payments/%d", p.ID),
		}, &p.Member)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "payments/form.tmpl", data)
	}
}

// POST /payments/{id}
func PaymentUpdate(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		gdb := conn(r)
		current, err := services.GetPayment(gdb, id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		in, err := paymentForm(r)
		if err == nil {
			var p models.Payment
			if p, err = services.UpdatePayment(gdb, id, in); err == nil {
				redirectFlash(w, r, fmt.Sprintf("/payments/%d/receipt", p.ID), "ok",
					fmt.Sprintf("Payment %s updated successfully!", p.ReceiptNumber))
				return
			}
		}
		fields, general, ok := formErrors(err)
		if !ok {
			serviceError(w, r, err)
			return
		}
		data, err := paymentFormData(gdb, map[string]any{
			"Title":          "Edit Payment " + current.ReceiptNumber,
			"Form":           in,
			"Payment":        current,
			"Action":         fmt.Sprintf("/payments/%d", id),
			"Errors":         fields,
			"NonFieldErrors": general,
		}, &current.Member)
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "payments/form.tmpl", data)
	}
}

// GET /payments/{id}/delete
func PaymentDeleteForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		p, err := services.GetPayment(conn(r), id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "payments/delete.tmpl", map[string]any{
			"Title":   "Delete Payment " + p.ReceiptNumber,
			"Payment": p,
		})
	}
}

// POST /payments/{id}/delete
func PaymentDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	receipt, err := services.DeletePayment(conn(r), id)
	if errors.Is(err, services.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		internalError(w, r, err)
		return
	}
	redirectFlash(w, r, "/payments", "ok", fmt.Sprintf("Payment %s has been deleted.", receipt))
}

// GET /payments/{id}/receipt
func PaymentReceipt(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		p, err := services.GetPayment(conn(r), id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "payments/receipt.tmpl", map[string]any{
			"Title":     "Receipt " + p.ReceiptNumber,
			"Payment":   p,
			"PrintDate": timeNow(),
		})
	}
}
