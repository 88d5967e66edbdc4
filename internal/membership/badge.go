package membership

import "fmt"

// Badge is how the member page renders a status.
type Badge struct {
	Class string
	Icon  string
	Text  string
}

// BadgeFor picks the member-detail badge. hasPaid distinguishes "never paid"
// from "paid, no expiry date set", which Status folds together as PENDING.
func BadgeFor(in Input, res Result, hasPaid bool) Badge {
	switch {
	case !hasPaid:
		return Badge{"bg-secondary", "bi-x-circle", "No Payment Made"}
	case NeverExpires(in.Type, in.Frequency):
		return Badge{"bg-success", "bi-infinity", res.Display}
	case res.Code == Pending:
		return Badge{"bg-warning", "bi-calendar-x", "No Expiry Date Set"}
	case res.Code == Expired:
		return Badge{"bg-danger", "bi-exclamation-triangle-fill", fmt.Sprintf("Expired (%d days ago)", *res.DaysOverdue)}
	case res.Code == Expiring && *res.DaysRemaining <= 7:
		return Badge{"bg-danger", "bi-exclamation-circle-fill", fmt.Sprintf("Expiring Soon (%d days left)", *res.DaysRemaining)}
	case res.Code == Expiring:
		return Badge{"bg-warning", "bi-clock-fill", fmt.Sprintf("Expiring in %d days", *res.DaysRemaining)}
	default:
		return Badge{"bg-success", "bi-check-circle-fill", fmt.Sprintf("Active (%d days remaining)", *res.DaysRemaining)}
	}
}
