package controllers

import (
	"net/http"

	"dost-pmns-api/apperror"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Register handles proponent self-registration
func Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := services.NewAuthService(nil).Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Registration successful. Your account is pending activation by your provincial office.", user)
}

// Login handles user authentication
func Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := services.NewAuthService(nil).Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Login successful", result)
}

// GetProfile returns the current user
func GetProfile(c *gin.Context) {
	respondOK(c, http.StatusOK, "", currentUser(c))
}

// ChangePassword handles password change
func ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.NewPassword != req.ConfirmPassword {
		respondError(c, apperror.Validation(apperror.FieldError{Field: "confirmPassword", Message: "Passwords do not match"}))
		return
	}
	if err := services.NewAuthService(nil).ChangePassword(currentUser(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Password changed successfully", nil)
}

// ForgotPassword always answers the same way for unknown emails.
func ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := services.NewAuthService(nil).ForgotPassword(req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "If an account exists for this email, a password reset link has been sent.", result)
}

func ResetPassword(c *gin.Context) {
	var req services.ResetPasswordInput
	if !bindJSON(c, &req) {
		return
	}
	if err := services.NewAuthService(nil).ResetPassword(req); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Password has been reset. You can now log in.", nil)
}
