package controllers

import (
	"net/http"

	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

type CreateMeetingRequest struct {
	TNAID        uint                        `json:"tnaId" binding:"required"`
	Title        string                      `json:"title" binding:"required"`
	Description  string                      `json:"description"`
	ScheduledAt  string                      `json:"scheduledAt" binding:"required"`
	Location     string                      `json:"location"`
	MeetingType  string                      `json:"meetingType"`
	MeetingLink  string                      `json:"meetingLink"`
	Agenda       []string                    `json:"agenda"`
	Participants []services.ParticipantInput `json:"participants"`
}

type UpdateMeetingRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	ScheduledAt *string  `json:"scheduledAt"`
	Location    *string  `json:"location"`
	MeetingType *string  `json:"meetingType"`
	MeetingLink *string  `json:"meetingLink"`
	Agenda      []string `json:"agenda"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

func CreateMeeting(c *gin.Context) {
	var req CreateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	at, err := parseDate("scheduledAt", req.ScheduledAt)
	if err != nil {
		respondError(c, err)
		return
	}
	meeting, err := services.NewMeetingService(nil).Create(c.Request.Context(), currentUser(c), services.CreateMeetingInput{
		TNAID:        req.TNAID,
		Title:        req.Title,
		Description:  req.Description,
		ScheduledAt:  at,
		Location:     req.Location,
		MeetingType:  req.MeetingType,
		MeetingLink:  req.MeetingLink,
		Agenda:       req.Agenda,
		Participants: req.Participants,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "RTEC meeting scheduled", meeting)
}

func ListMeetings(c *gin.Context) {
	list, err := services.NewMeetingService(nil).List(currentUser(c), services.MeetingFilter{
		Status:        c.Query("status"),
		TNAID:         queryUint(c, "tnaId"),
		ApplicationID: queryUint(c, "applicationId"),
		Page:          queryPage(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", list)
}

func GetMeeting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	meeting, err := services.NewMeetingService(nil).Get(currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", meeting)
}

func UpdateMeeting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req UpdateMeetingRequest
	if !bindJSON(c, &req) {
		return
	}
	at, err := parseOptionalDate("scheduledAt", req.ScheduledAt)
	if err != nil {
		respondError(c, err)
		return
	}
	meeting, err := services.NewMeetingService(nil).Update(c.Request.Context(), currentUser(c), id, services.UpdateMeetingInput{
		Title:       req.Title,
		Description: req.Description,
		ScheduledAt: at,
		Location:    req.Location,
		MeetingType: req.MeetingType,
		MeetingLink: req.MeetingLink,
		Agenda:      req.Agenda,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "RTEC meeting updated", meeting)
}

func AddMeetingParticipant(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.ParticipantInput
	if !bindJSON(c, &req) {
		return
	}
	meeting, err := services.NewMeetingService(nil).AddParticipant(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, "Participant added", meeting)
}

func RespondToMeeting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	participantID, ok := paramID(c, "participantId")
	if !ok {
		return
	}
	var req services.RespondInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := services.NewMeetingService(nil).Respond(c.Request.Context(), currentUser(c), id, participantID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Response recorded", p)
}

func RecordAttendance(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	participantID, ok := paramID(c, "participantId")
	if !ok {
		return
	}
	var req services.AttendanceInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := services.NewMeetingService(nil).Attendance(currentUser(c), id, participantID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "Attendance recorded", p)
}

func PostponeMeeting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	meeting, err := services.NewMeetingService(nil).Postpone(c.Request.Context(), currentUser(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "RTEC meeting postponed", meeting)
}

func CancelMeeting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	meeting, err := services.NewMeetingService(nil).Cancel(c.Request.Context(), currentUser(c), id, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "RTEC meeting cancelled", meeting)
}

func CompleteMeeting(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.CompleteMeetingInput
	if !bindJSON(c, &req) {
		return
	}
	meeting, err := services.NewMeetingService(nil).Complete(c.Request.Context(), currentUser(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "RTEC meeting completed", meeting)
}
