package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/entities"
)

func TestDecideEligibility(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	current := entities.Loan{DueAt: now.Add(24 * time.Hour)}
	overdue := entities.Loan{DueAt: now.Add(-time.Hour)}

	tests := []struct {
		name      string
		user      entities.User
		loans     []entities.Loan
		canBorrow bool
		maxLoans  int
		reason    string
	}{
		{"tier1 under limit", entities.User{Tier: entities.Tier1}, []entities.Loan{current, current}, true, 3, ""},
		{"tier2 at limit", entities.User{Tier: entities.Tier2}, []entities.Loan{current, current, current}, false, 3, "User has reached borrowing limit (3/3)"},
		{"tier3 at limit", entities.User{Tier: entities.Tier3}, []entities.Loan{current, current}, false, 2, "User has reached borrowing limit (2/2)"},
		{"tier4 empty", entities.User{Tier: entities.Tier4}, nil, true, 1, ""},
		{"tier4 at limit", entities.User{Tier: entities.Tier4}, []entities.Loan{current}, false, 1, "User has reached borrowing limit (1/1)"},
		{"unknown tier", entities.User{Tier: "GOLD"}, []entities.Loan{current}, false, 1, "User has reached borrowing limit (1/1)"},
		{"admin unlimited", entities.User{Role: entities.RoleAdmin, Tier: entities.Tier4}, []entities.Loan{current, current, current, current}, true, -1, ""},
		{"overdue blocks user", entities.User{Tier: entities.Tier1}, []entities.Loan{overdue}, false, 3, "User has 1 overdue book(s)"},
		{"overdue blocks admin", entities.User{Role: entities.RoleAdmin}, []entities.Loan{overdue, overdue, current}, false, -1, "User has 2 overdue book(s)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := decideEligibility(&tt.user, tt.loans, now)

			assert.Equal(t, tt.canBorrow, e.CanBorrow)
			assert.Equal(t, tt.maxLoans, e.MaxLoans)
			assert.Equal(t, len(tt.loans), e.CurrentLoans)
			assert.Equal(t, tt.reason, e.Reason)
			assert.Equal(t, e.OverdueCount > 0, e.HasOverdueBooks)
		})
	}
}

func TestDecideEligibility_DueExactlyNowIsNotOverdue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := decideEligibility(&entities.User{Tier: entities.Tier1}, []entities.Loan{{DueAt: now}}, now)

	assert.True(t, e.CanBorrow)
	assert.Zero(t, e.OverdueCount)
}

func TestEligibilityService_CanBorrow(t *testing.T) {
	db := setupTestStore(t)
	clock := newTestClock()
	loans := newLoanService(db, clock, nil)
	svc := NewEligibilityService(db, clock.Now)
	ctx := context.Background()

	user := createUser(t, db, entities.RoleUser, entities.Tier3)
	for i := 0; i < 2; i++ {
		book := createBook(t, db, nil)
		_, err := loans.Lend(ctx, "", book.ID, user.ID, 14)
		require.NoError(t, err)
	}

	e, err := svc.CanBorrow(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, e.CanBorrow)
	assert.Equal(t, 2, e.CurrentLoans)
	assert.Equal(t, 2, e.MaxLoans)
	assert.Equal(t, "User has reached borrowing limit (2/2)", e.Reason)
}

func TestEligibilityService_UnknownUser(t *testing.T) {
	db := setupTestStore(t)
	svc := NewEligibilityService(db, nil)

	_, err := svc.CanBorrow(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, "User not found", err.Error())
}
