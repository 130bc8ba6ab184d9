package controllers

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"clinicpro-backend/config"
	"clinicpro-backend/models"
	"clinicpro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Email         string       `json:"email" binding:"required,email"`
	Phone         string       `json:"phone" binding:"required"`
	Name          string       `json:"name" binding:"required"`
	Password      string       `json:"password" binding:"required,min=8"`
	ClinicName    string       `json:"clinicName" binding:"required"`
	ClinicAddress string       `json:"clinicAddress"`
	WorkingHours  models.JSONB `json:"workingHours"`
}

type LoginInput struct {
	Identifier string `json:"identifier" binding:"required"` // Can be email or phone
	Password   string `json:"password" binding:"required"`
}

// Register creates a clinic and its owner account in one step
func Register(c *gin.Context) {
	var input RegisterInput

	// Bind and validate input
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	// Check if email or phone already exists
	var existingUser models.User
	result := config.DB.Where("email = ? OR phone = ?", input.Email, input.Phone).First(&existingUser)

	if result.Error == nil {
		utils.RespondWithError(c, http.StatusConflict, "Email or phone already registered")
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		return
	}

	clinic := models.Clinic{
		ID:           uuid.New(),
		Name:         input.ClinicName,
		Address:      input.ClinicAddress,
		Phone:        input.Phone,
		WorkingHours: input.WorkingHours,
	}

	// Set default working hours if not provided
	if clinic.WorkingHours == nil {
		clinic.WorkingHours = models.JSONB{
			"monday":    map[string]interface{}{"open": "08:00", "close": "17:00", "closed": false},
			"tuesday":   map[string]interface{}{"open": "08:00", "close": "17:00", "closed": false},
			"wednesday": map[string]interface{}{"open": "08:00", "close": "17:00", "closed": false},
			"thursday":  map[string]interface{}{"open": "08:00", "close": "17:00", "closed": false},
			"friday":    map[string]interface{}{"open": "08:00", "close": "17:00", "closed": false},
			"saturday":  map[string]interface{}{"open": "09:00", "close": "13:00", "closed": false},
			"sunday":    map[string]interface{}{"open": "09:00", "close": "13:00", "closed": true},
		}
	}

	newUser := models.User{
		Email:    input.Email,
		Phone:    input.Phone,
		Name:     input.Name,
		Password: input.Password, // Will be hashed in BeforeCreate hook
		Role:     "owner",
		ClinicID: clinic.ID,
	}

	// Create clinic and owner together
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&clinic).Error; err != nil {
			return err
		}
		return tx.Create(&newUser).Error
	})
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create account")
		return
	}

	// Generate token
	token, err := utils.GenerateToken(newUser.ID.String(), clinic.ID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	expiryHours := 24
	if env := os.Getenv("JWT_EXPIRY_HOURS"); env != "" {
		if h, err := strconv.Atoi(env); err == nil {
			expiryHours = h
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":     token,
		"expiresAt": time.Now().Add(time.Duration(expiryHours) * time.Hour).Unix(),
		"user": gin.H{
			"id":       newUser.ID,
			"name":     newUser.Name,
			"email":    newUser.Email,
			"role":     newUser.Role,
			"clinicId": clinic.ID,
		},
	})
}

// Login authenticates a user by email or phone
func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var user models.User
	if err := config.DB.Where("email = ? OR phone = ?", input.Identifier, input.Identifier).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !user.IsActive {
		utils.RespondWithError(c, http.StatusUnauthorized, "Account is disabled")
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	config.DB.Model(&user).Update("last_login", now)

	token, err := utils.GenerateToken(user.ID.String(), user.ClinicID.String())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"id":       user.ID,
			"name":     user.Name,
			"email":    user.Email,
			"role":     user.Role,
			"clinicId": user.ClinicID,
		},
	})
}

// Me returns the authenticated user with their clinic
func Me(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var user models.User
	if err := config.DB.Preload("Clinic").First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       user.ID,
		"name":     user.Name,
		"email":    user.Email,
		"phone":    user.Phone,
		"role":     user.Role,
		"clinicId": user.ClinicID,
		"clinic": gin.H{
			"name":     user.Clinic.Name,
			"address":  user.Clinic.Address,
			"currency": user.Clinic.Currency,
		},
	})
}
