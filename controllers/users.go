package controllers

import (
	"net/http"

	"dost-pmns-api/models"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

// ListUsers returns accounts filtered by role, province and status.
func ListUsers(c *gin.Context) {
	list, err := services.NewUserService(nil).List(services.UserFilter{
		Role:     c.Query("role"),
		Province: c.Query("province"),
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func CreateUser(c *gin.Context) {
	var req services.CreateUserInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := services.NewUserService(nil).Create(req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "User created successfully", user)
}

func GetUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := services.NewUserService(nil).Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", user)
}

func UpdateUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateUserInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := services.NewUserService(nil).Update(id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "User updated successfully", user)
}

func DeleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := services.NewUserService(nil).Delete(currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "User deleted successfully", nil)
}

// ListProponents is province scoped for psto users.
func ListProponents(c *gin.Context) {
	list, err := services.NewUserService(nil).ListProponents(currentUser(c), c.Query("province"), c.Query("status"), queryPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func PendingProponents(c *gin.Context) {
	list, err := services.NewUserService(nil).PendingProponents(currentUser(c), queryPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func ActivateProponent(c *gin.Context) {
	setProponentStatus(c, models.UserStatusActive, "Proponent activated")
}

func DeactivateProponent(c *gin.Context) {
	setProponentStatus(c, models.UserStatusInactive, "Proponent deactivated")
}

func setProponentStatus(c *gin.Context, status, message string) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	user, err := services.NewUserService(nil).SetProponentStatus(c.Request.Context(), currentUser(c), id, status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, message, user)
}
