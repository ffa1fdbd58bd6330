package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/services"
)

type UsersController struct {
	users       UserService
	eligibility EligibilityChecker
}

func NewUsersController(users UserService, eligibility EligibilityChecker) *UsersController {
	return &UsersController{users: users, eligibility: eligibility}
}

type createUserRequest struct {
	Name    string             `json:"name" binding:"required,max=255"`
	Email   string             `json:"email" binding:"required,email"`
	Role    *entities.UserRole `json:"role" binding:"omitempty,oneof=USER ADMIN"`
	Tier    *entities.UserTier `json:"tier" binding:"omitempty,oneof=TIER_1 TIER_2 TIER_3 TIER_4"`
	Phone   *string            `json:"phone" binding:"omitempty,max=50"`
	Address *string            `json:"address" binding:"omitempty,max=500"`
}

type updateUserRequest struct {
	Name    *string            `json:"name" binding:"omitempty,min=1,max=255"`
	Email   *string            `json:"email" binding:"omitempty,email"`
	Role    *entities.UserRole `json:"role" binding:"omitempty,oneof=USER ADMIN"`
	Tier    *entities.UserTier `json:"tier" binding:"omitempty,oneof=TIER_1 TIER_2 TIER_3 TIER_4"`
	Phone   *string            `json:"phone" binding:"omitempty,max=50"`
	Address *string            `json:"address" binding:"omitempty,max=500"`
}

// List handles GET /api/v1/users?q=&email=&role=&tier=
func (uc *UsersController) List(c *gin.Context) {
	users, err := uc.users.List(c.Request.Context(), services.UserFilter{
		Query: c.Query("q"),
		Email: c.Query("email"),
		Role:  entities.UserRole(c.Query("role")),
		Tier:  entities.UserTier(c.Query("tier")),
	})
	if err != nil {
		respondServiceError(c, err, "list users")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: users, Count: len(users)})
}

// Get handles GET /api/v1/users/:id
func (uc *UsersController) Get(c *gin.Context) {
	user, err := uc.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Create handles POST /api/v1/users
func (uc *UsersController) Create(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.Create(c.Request.Context(), services.UserInput{
		Name:    &req.Name,
		Email:   &req.Email,
		Role:    req.Role,
		Tier:    req.Tier,
		Phone:   optional(req.Phone),
		Address: optional(req.Address),
	})
	if err != nil {
		respondServiceError(c, err, "create user")
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Update handles PATCH /api/v1/users/:id
func (uc *UsersController) Update(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := uc.users.Update(c.Request.Context(), c.Param("id"), services.UserInput{
		Name:    req.Name,
		Email:   req.Email,
		Role:    req.Role,
		Tier:    req.Tier,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondServiceError(c, err, "update user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /api/v1/users/:id
func (uc *UsersController) Delete(c *gin.Context) {
	if err := uc.users.Delete(c.Request.Context(), c.Param("id"), auth.GetUserID(c)); err != nil {
		respondServiceError(c, err, "delete user")
		return
	}
	c.Status(http.StatusNoContent)
}

// Loans handles GET /api/v1/users/:id/loans
func (uc *UsersController) Loans(c *gin.Context) {
	loans, err := uc.users.Loans(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "list user loans")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: loans, Count: len(loans)})
}

// Books handles GET /api/v1/users/:id/books
func (uc *UsersController) Books(c *gin.Context) {
	books, err := uc.users.OwnedBooks(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "list user books")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: books, Count: len(books)})
}

// CanBorrow handles GET /api/v1/users/:id/can-borrow
func (uc *UsersController) CanBorrow(c *gin.Context) {
	eligibility, err := uc.eligibility.CanBorrow(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "check eligibility")
		return
	}
	c.JSON(http.StatusOK, eligibility)
}
