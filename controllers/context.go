package controllers

import (
	"net/http"

	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// clinicFromContext resolves the authenticated clinic ID set by the auth
// middleware. On failure it writes the error response and returns false.
func clinicFromContext(c *gin.Context) (uuid.UUID, bool) {
	clinicID, exists := c.Get("clinicId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "Clinic ID not found in context")
		return uuid.Nil, false
	}
	clinicUUID, err := uuid.Parse(clinicID.(string))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Invalid clinic ID format")
		return uuid.Nil, false
	}
	return clinicUUID, true
}

// uuidParam parses a :id style path parameter. On failure it writes the
// error response and returns false.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}
