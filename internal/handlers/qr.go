package handlers

import (
	"fmt"
	"net/http"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/nssnepal/membership/internal/services"
)

// receiptQRText is what a scanned receipt reads back: enough to match it
// against the payment list without a network round trip.
func receiptQRText(receipt, membershipNumber string, amount float64, paidOn string) string {
	return fmt.Sprintf("%s|%s|NPR %.2f|%s", receipt, membershipNumber, amount, paidOn)
}

// GET /payments/{id}/receipt.png
func ReceiptQR(w http.ResponseWriter, r *http.Request) {
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

	text := receiptQRText(p.ReceiptNumber, p.Member.MembershipNumber, p.Amount, p.PaymentDate.Format("2006-01-02"))
	png, err := qrcode.Encode(text, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
