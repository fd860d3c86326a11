package controllers

import (
	"net/http"
	"strconv"

	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

// GetNotifications lists the caller's notifications, newest first.
func GetNotifications(c *gin.Context) {
	unreadOnly, _ := strconv.ParseBool(c.Query("unreadOnly"))
	list, err := services.NewNotificationService(nil).List(currentUser(c).ID, unreadOnly, queryPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func GetUnreadCount(c *gin.Context) {
	n, err := services.NewNotificationService(nil).UnreadCount(currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"count": n})
}

func MarkNotificationRead(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	n, err := services.NewNotificationService(nil).MarkRead(currentUser(c).ID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Notification marked as read", n)
}

func MarkAllNotificationsRead(c *gin.Context) {
	updated, err := services.NewNotificationService(nil).MarkAllRead(currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "All notifications marked as read", gin.H{"updated": updated})
}

func DeleteNotification(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := services.NewNotificationService(nil).Delete(currentUser(c).ID, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Notification deleted", nil)
}
