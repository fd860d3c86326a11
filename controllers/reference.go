package controllers

import (
	"net/http"

	"dost-pmns-api/models"
	"dost-pmns-api/services"

	"github.com/gin-gonic/gin"
)

// ListPrograms returns the programs with their required application fields.
func ListPrograms(c *gin.Context) {
	programs, err := services.NewReferenceService(nil).ListPrograms()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", programs)
}

func GetProgram(c *gin.Context) {
	program, err := services.NewReferenceService(nil).GetProgram(c.Param("program"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", program)
}

func ListProvinces(c *gin.Context) {
	respondOK(c, http.StatusOK, "", models.Provinces)
}

func ListPSTOOffices(c *gin.Context) {
	offices, err := services.NewReferenceService(nil).ListPSTOOffices()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "", offices)
}

// SavePSTOOffice creates or updates the office of the given province.
func SavePSTOOffice(c *gin.Context) {
	var req services.PSTOOfficeInput
	if !bindJSON(c, &req) {
		return
	}
	office, err := services.NewReferenceService(nil).SavePSTOOffice(req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, "PSTO office saved", office)
}
