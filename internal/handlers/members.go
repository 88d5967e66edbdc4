package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/nssnepal/membership/internal/membership"
	"github.com/nssnepal/membership/internal/models"
	"github.com/nssnepal/membership/internal/services"
)

type memberRow struct {
	models.Member
	Status membership.Result
}

func memberFilter(r *http.Request) services.MemberFilter {
	q := r.URL.Query()
	return services.MemberFilter{
		Q:      strings.TrimSpace(q.Get("q")),
		Type:   strings.TrimSpace(q.Get("type")),
		Status: strings.TrimSpace(q.Get("status")),
	}
}

func memberChoices(data map[string]any) map[string]any {
	data["Types"] = models.MembershipTypes
	data["Frequencies"] = models.PaymentFrequencies
	data["Genders"] = models.Genders
	return data
}

func inputFromMember(m models.Member) services.MemberInput {
	return services.MemberInput{
		Name:                     m.Name,
		DateOfBirth:              m.DateOfBirth,
		Gender:                   m.Gender,
		Phone:                    m.Phone,
		Email:                    m.Email,
		Address:                  m.Address,
		FatherName:               m.FatherName,
		GrandfatherName:          m.GrandfatherName,
		SpouseName:               m.SpouseName,
		CitizenshipNumber:        m.CitizenshipNumber,
		CitizenshipIssueDate:     m.CitizenshipIssueDate,
		CitizenshipIssueDistrict: m.CitizenshipIssueDistrict,
		MembershipType:           m.MembershipType,
		PaymentFrequency:         m.PaymentFrequency,
		MembershipNumber:         m.MembershipNumber,
		JoinDate:                 m.JoinDate,
		IsActive:                 m.IsActive,
	}
}

// GET /members
func MembersList(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := memberFilter(r)
		members, err := services.ListMembers(conn(r), f)
		if err != nil {
			internalError(w, r, err)
			return
		}
		day := today()
		rows := make([]memberRow, 0, len(members))
		for _, m := range members {
			rows = append(rows, memberRow{Member: m, Status: membership.Status(membership.FromMember(m), day)})
		}
		render(w, r, t, "members/list.tmpl", memberChoices(map[string]any{
			"Title":  "Members",
			"Rows":   rows,
			"Filter": f,
		}))
	}
}

// GET /members/new
func MemberNewForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(w, r, t, "members/form.tmpl", memberChoices(map[string]any{
			"Title": "Add Member",
			"Form": services.MemberInput{
				MembershipType:   models.TypeRegular,
				PaymentFrequency: models.FreqAnnual,
				JoinDate:         today(),
				IsActive:         true,
			},
			"Action": "/members",
			"IsNew":  true,
		}))
	}
}

// POST /members
func MemberCreate(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, kids, err := memberForm(r)
		if err == nil {
			var m models.Member
			m, err = services.CreateMember(conn(r), in, kids)
			if err == nil {
				redirectFlash(w, r, fmt.Sprintf("/members/%d", m.ID), "ok",
					fmt.Sprintf("Member %s added successfully! Membership Number: %s", m.Name, m.MembershipNumber))
				return
			}
		}
		fields, general, ok := formErrors(err)
		if !ok {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "members/form.tmpl", memberChoices(map[string]any{
			"Title":          "Add Member",
			"Form":           in,
			"Children":       kids,
			"Action":         "/members",
			"IsNew":          true,
			"Errors":         fields,
			"NonFieldErrors": general,
		}))
	}
}

// GET /members/{id}
func MemberShow(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		gdb := conn(r)
		m, err := services.GetMember(gdb, id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		payments, total, err := services.ListPayments(gdb, services.PaymentFilter{MemberID: m.ID})
		if err != nil {
			internalError(w, r, err)
			return
		}

		in := membership.FromMember(m)
		res := membership.Status(in, today())
		render(w, r, t, "members/show.tmpl", memberChoices(map[string]any{
			"Title":     m.Name,
			"Member":    m,
			"Payments":  payments,
			"TotalPaid": total,
			"Status":    res,
			"Badge":     membership.BadgeFor(in, res, len(payments) > 0),
			"NextDue":   membership.NextDueDate(m.MembershipType, m.PaymentFrequency, m.JoinDate, m.LastPaymentDate),
		}))
	}
}

// GET /members/{id}/edit
func MemberEditForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		m, err := services.GetMember(conn(r), id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		render(w, r, t, "members/form.tmpl", memberChoices(map[string]any{
			"Title":  "Edit " + m.Name,
			"Form":   inputFromMember(m),
			"Member": m,
			"Action": fmt.Sprintf("/members/%d", m.ID),
		}))
	}
}

// POST /members/{id}
func MemberUpdate(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		gdb := conn(r)
		current, err := services.GetMember(gdb, id)
		if err != nil {
			serviceError(w, r, err)
			return
		}

		in, _, err := memberForm(r)
		if err == nil {
			var m models.Member
			m, err = services.UpdateMember(gdb, id, in)
			if err == nil {
				redirectFlash(w, r, fmt.Sprintf("/members/%d", m.ID), "ok",
					fmt.Sprintf("Member %s updated successfully!", m.Name))
				return
			}
		}
		fields, general, ok := formErrors(err)
		if !ok {
			serviceError(w, r, err)
			return
		}
		in.MembershipNumber = current.MembershipNumber
		render(w, r, t, "members/form.tmpl", memberChoices(map[string]any{
			"Title":          "Edit " + current.Name,
			"Form":           in,
			"Member":         current,
			"Action":         fmt.Sprintf("/members/%d", id),
			"Errors":         fields,
			"NonFieldErrors": general,
		}))
	}
}

// GET /members/{id}/delete
func MemberDeleteForm(t *template.Template) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlID(r, "id")
		if !ok {
			http.NotFound(w, r)
			return
		}
		gdb := conn(r)
		m, err := services.GetMember(gdb, id)
		if err != nil {
			serviceError(w, r, err)
			return
		}
		payments, _, err := services.ListPayments(gdb, services.PaymentFilter{MemberID: m.ID})
		if err != nil {
			internalError(w, r, err)
			return
		}
		render(w, r, t, "members/delete.tmpl", map[string]any{
			"Title":        "Delete " + m.Name,
			"Member":       m,
			"PaymentCount": len(payments),
		})
	}
}

// POST /members/{id}/delete
func MemberDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r, "id")
	if !ok {
		http.NotFound(w, r)
		return
	}
	gdb := conn(r)
	m, err := services.GetMember(gdb, id)
	if err != nil {
		serviceError(w, r, err)
		return
	}
	if err := services.DeleteMember(gdb, id); err != nil {
		serviceError(w, r, err)
		return
	}
	redirectFlash(w, r, "/members", "ok", fmt.Sprintf("Member %s has been permanently deleted.", m.Name))
}
