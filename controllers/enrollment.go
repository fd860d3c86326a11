package controllers

import (
	"net/http"

	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

func EnrollProponent(c *gin.Context) {
	var req services.EnrollInput
	if !bindJSON(c, &req) {
		return
	}
	e, err := services.NewEnrollmentService(nil).Enroll(currentUser(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Enrolled successfully", e)
}

func ListEnrollments(c *gin.Context) {
	list, err := services.NewEnrollmentService(nil).List(c.Request.Context(), currentUser(c), services.EnrollmentFilter{
		Program: c.Query("program"),
		Status:  c.Query("status"),
		Page:    queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func WithdrawEnrollment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	e, err := services.NewEnrollmentService(nil).Withdraw(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Enrollment withdrawn", e)
}
