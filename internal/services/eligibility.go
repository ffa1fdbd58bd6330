package services

import (
	"context"
	"fmt"
	"time"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

// UnlimitedLoans is the MaxLoans value for users without a borrowing cap.
const UnlimitedLoans = -1

// Eligibility is the derived borrowing verdict for one user at one instant.
type Eligibility struct {
	CanBorrow       bool   `json:"canBorrow"`
	CurrentLoans    int    `json:"currentLoans"`
	MaxLoans        int    `json:"maxLoans"`
	HasOverdueBooks bool   `json:"hasOverdueBooks"`
	OverdueCount    int    `json:"overdueCount"`
	Reason          string `json:"reason,omitempty"`
}

type EligibilityService struct {
	store Store
	now   Clock
}

func NewEligibilityService(store Store, now Clock) *EligibilityService {
	if now == nil {
		now = time.Now
	}
	return &EligibilityService{store: store, now: now}
}

// CanBorrow evaluates whether the user may take another book right now.
func (s *EligibilityService) CanBorrow(ctx context.Context, userID string) (*Eligibility, error) {
	return evaluateEligibility(s.store.Repositories(ctx), userID, s.now())
}

// evaluateEligibility reads through repos, so Lend can call it with
// transaction-bound repositories and see a consistent snapshot.
func evaluateEligibility(repos *database.Repositories, userID string, now time.Time) (*Eligibility, error) {
	user, err := repos.Users.GetByID(userID)
	if err != nil {
		return nil, notFoundOr(err, "User not found")
	}

	active, err := repos.Loans.ActiveForBorrower(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active loans: %w", err)
	}

	return decideEligibility(user, active, now), nil
}

// decideEligibility applies the borrowing rules. Overdue loans block everyone,
// admins included; otherwise admins are unlimited and users are capped by tier.
func decideEligibility(user *entities.User, active []entities.Loan, now time.Time) *Eligibility {
	overdue := 0
	for i := range active {
		if active[i].IsOverdue(now) {
			overdue++
		}
	}

	e := &Eligibility{
		CurrentLoans:    len(active),
		HasOverdueBooks: overdue > 0,
		OverdueCount:    overdue,
	}

	if user.IsAdmin() {
		e.MaxLoans = UnlimitedLoans
	} else {
		e.MaxLoans = user.Tier.BorrowLimit()
	}

	switch {
	case overdue > 0:
		e.Reason = fmt.Sprintf("User has %d overdue book(s)", overdue)
	case user.IsAdmin():
		e.CanBorrow = true
	case e.CurrentLoans < e.MaxLoans:
		e.CanBorrow = true
	default:
		e.Reason = fmt.Sprintf("User has reached borrowing limit (%d/%d)", e.CurrentLoans, e.MaxLoans)
	}

	return e
}
