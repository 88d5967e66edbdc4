package web

import (
	"crypto/sha256"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nssnepal/membership/internal/config"
	"github.com/nssnepal/membership/internal/handlers"
	"github.com/nssnepal/membership/templates"
)

func Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	tmpl := mustParseTemplates()

	// Probes
	r.Get("/healthz", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(app chi.Router) {
		if config.Conf.GetBool("csrf") {
			app.Use(csrfProtect())
		}
		app.Use(handlers.LoadUser)
		app.Use(handlers.ApprovalGate)

		// --- Accounts (public) ---
		limiter := handlers.NewLoginLimiter(config.Conf.GetInt("loginRate"))
		app.Get("/login", handlers.LoginForm(tmpl))
		app.With(limiter.Limit).Post("/login", handlers.LoginSubmit)
		app.Get("/register", handlers.RegisterForm(tmpl))
		app.Post("/register", handlers.RegisterSubmit(tmpl))
		app.Get("/logout", handlers.Logout)
		app.Post("/logout", handlers.Logout)
		app.With(handlers.RequireLogin).Get("/pending", handlers.Pending(tmpl))

		// --- Signed-in and approved ---
		app.Group(func(ag chi.Router) {
			ag.Use(handlers.RequireLogin)

			ag.Get("/", handlers.Dashboard(tmpl))

			// Members
			ag.Route("/members", func(mr chi.Router) {
				mr.Get("/", handlers.MembersList(tmpl))
				mr.Post("/", handlers.MemberCreate(tmpl))
				mr.Get("/new", handlers.MemberNewForm(tmpl))
				mr.Get("/export.csv", handlers.MembersCSV)
				mr.Get("/import", handlers.MemberImportForm(tmpl))
				mr.Post("/import", handlers.MemberImportSubmit(tmpl))
				mr.Get("/import/template", handlers.MemberImportTemplate)

				mr.Get("/{id}", handlers.MemberShow(tmpl))
				mr.Post("/{id}", handlers.MemberUpdate(tmpl))
				mr.Get("/{id}/edit", handlers.MemberEditForm(tmpl))
				mr.Get("/{id}/delete", handlers.MemberDeleteForm(tmpl))
				mr.Post("/{id}/delete", handlers.MemberDelete)

				mr.Post("/{id}/children", handlers.ChildAdd)
				mr.Post("/{id}/children/update", handlers.ChildUpdate)
				mr.Post("/{id}/children/delete", handlers.ChildDelete)
			})

			// Fees
			ag.Get("/fees.json", handlers.FeesJSON)
			ag.Route("/fees", func(fr chi.Router) {
				fr.Get("/", handlers.FeesIndex(tmpl))
				fr.Post("/", handlers.FeeCreate(tmpl))
				fr.Get("/new", handlers.FeeNewForm(tmpl))
				fr.Get("/{id}/edit", handlers.FeeEditForm(tmpl))
				fr.Post("/{id}", handlers.FeeUpdate(tmpl))
				fr.Get("/{id}/delete", handlers.FeeDeleteForm(tmpl))
				fr.Post("/{id}/delete", handlers.FeeDelete)
			})

			// Payments
			ag.Route("/payments", func(pr chi.Router) {
				pr.Get("/", handlers.PaymentsList(tmpl))
				pr.Post("/", handlers.PaymentCreate(tmpl))
				pr.Get("/new", handlers.PaymentNewForm(tmpl))
				pr.Get("/{id}/edit", handlers.PaymentEditForm(tmpl))
				pr.Post("/{id}", handlers.PaymentUpdate(tmpl))
				pr.Get("/{id}/delete", handlers.PaymentDeleteForm(tmpl))
				pr.Post("/{id}/delete", handlers.PaymentDelete)
				pr.Get("/{id}/receipt", handlers.PaymentReceipt(tmpl))
				pr.Get("/{id}/receipt.png", handlers.ReceiptQR)
			})

			// Reports
			ag.Route("/reports", func(rr chi.Router) {
				rr.Get("/revenue", handlers.RevenueReport(tmpl))
				rr.Get("/renewal-required", handlers.RenewalReport(tmpl))
				rr.Get("/membership-expiry", handlers.ExpiryReport(tmpl))
				rr.Get("/new-members", handlers.NewMembersReport(tmpl))
			})

			// User approval (staff only)
			ag.Route("/users", func(ur chi.Router) {
				ur.Use(handlers.RequireStaff)
				ur.Get("/", handlers.UsersList(tmpl))
				ur.Post("/", handlers.UsersBulk)
				ur.Get("/{id}", handlers.UserDetail(tmpl))
				ur.Post("/{id}/approve", handlers.UserApprove)
				ur.Post("/{id}/unapprove", handlers.UserUnapprove)
			})
		})
	})

	return r
}

// csrfProtect derives the 32-byte token key from the configured secret.
func csrfProtect() func(http.Handler) http.Handler {
	key := sha256.Sum256([]byte(config.Conf.GetString("secretKey")))
	return csrf.Protect(key[:],
		csrf.Secure(config.Conf.GetBool("secureCookies")),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("csrf rejected", "path", r.URL.Path, "reason", csrf.FailureReason(r))
			http.Error(w, "forbidden: invalid or missing form token, reload the page and try again", http.StatusForbidden)
		})),
	)
}

func mustParseTemplates() *template.Template {
	p := template.New("").Funcs(templateFuncs())
	p = template.Must(p.ParseFS(templates.FS, "layouts/*.tmpl"))
	p = template.Must(p.ParseFS(templates.FS, "partials/*.tmpl"))
	return p
}
