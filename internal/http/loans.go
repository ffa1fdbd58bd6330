package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/services"
)

type LoansController struct {
	loans LoanService
}

func NewLoansController(loans LoanService) *LoansController {
	return &LoansController{loans: loans}
}

type lendRequest struct {
	BookID     string `json:"bookId" binding:"required"`
	BorrowerID string `json:"borrowerId" binding:"required"`
	// Days defaults to the configured loan length when omitted.
	Days int `json:"days" binding:"omitempty,min=1,max=365"`
}

// List handles GET /api/v1/loans?bookId=&borrowerId=&overdue=true
func (lc *LoansController) List(c *gin.Context) {
	filter := services.LoanFilter{
		BookID:     c.Query("bookId"),
		BorrowerID: c.Query("borrowerId"),
	}
	if raw := c.Query("overdue"); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			respondBadRequest(c, "overdue must be true or false")
			return
		}
		filter.Overdue = overdue
	}

	lc.respondList(c, filter)
}

// Overdue handles GET /api/v1/loans/overdue
func (lc *LoansController) Overdue(c *gin.Context) {
	lc.respondList(c, services.LoanFilter{Overdue: true})
}

func (lc *LoansController) respondList(c *gin.Context, filter services.LoanFilter) {
	loans, err := lc.loans.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err, "list loans")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: loans, Count: len(loans)})
}

// Get handles GET /api/v1/loans/:id
func (lc *LoansController) Get(c *gin.Context) {
	loan, err := lc.loans.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get loan")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// Lend handles POST /api/v1/loans
func (lc *LoansController) Lend(c *gin.Context) {
	var req lendRequest
	if !bindJSON(c, &req) {
		return
	}

	loan, err := lc.loans.Lend(c.Request.Context(), auth.GetUserID(c), req.BookID, req.BorrowerID, req.Days)
	if err != nil {
		respondServiceError(c, err, "lend book")
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// Return handles PATCH /api/v1/loans/:id/return. When an X-User-Id header is
// present, only that member's own loans, loans of books they own, or any loan
// for an admin may be returned.
func (lc *LoansController) Return(c *gin.Context) {
	loan, err := lc.loans.ReturnLoan(c.Request.Context(), c.Param("id"), auth.GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "return loan")
		return
	}
	c.JSON(http.StatusOK, loan)
}

// Delete handles DELETE /api/v1/loans/:id
func (lc *LoansController) Delete(c *gin.Context) {
	if err := lc.loans.Delete(c.Request.Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		respondServiceError(c, err, "delete loan")
		return
	}
	c.Status(http.StatusNoContent)
}
