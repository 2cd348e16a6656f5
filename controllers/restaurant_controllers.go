package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/utils"
)

type RestaurantController struct {
	DB *gorm.DB
}

func NewRestaurantController(db *gorm.DB) *RestaurantController {
	return &RestaurantController{DB: db}
}

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func (rc *RestaurantController) GetProfile(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("restaurant not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Restaurant profile", restaurant)
}

type restaurantInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
}

func (rc *RestaurantController) UpdateProfile(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("restaurant not found"))
		return
	}

	var input restaurantInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	restaurant.Name = input.Name
	restaurant.Description = input.Description
	restaurant.Address = input.Address
	restaurant.Phone = input.Phone
	restaurant.Email = input.Email
	if err := rc.DB.Save(&restaurant).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Restaurant updated", restaurant)
}

func (rc *RestaurantController) GetOpeningHours(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("restaurant not found"))
		return
	}

	hours, err := restaurant.Hours()
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Opening hours", hours)
}

func (rc *RestaurantController) UpdateOpeningHours(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var hours map[string]models.DaySchedule
	if err := c.ShouldBindJSON(&hours); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	validDays := map[string]bool{
		"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
		"friday": true, "saturday": true, "sunday": true,
	}
	for day, schedule := range hours {
		if !validDays[day] {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown day: %s", day))
			return
		}
		if schedule.Closed {
			continue
		}
		if !hhmmPattern.MatchString(schedule.Open) || !hhmmPattern.MatchString(schedule.Close) {
			utils.RespondError(c, http.StatusBadRequest,
				fmt.Errorf("hours for %s must use HH:MM format", day))
			return
		}
		if schedule.Open >= schedule.Close {
			utils.RespondError(c, http.StatusBadRequest,
				fmt.Errorf("opening time for %s must come before closing time", day))
			return
		}
	}

	raw, err := json.Marshal(hours)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	result := rc.DB.Model(&models.Restaurant{}).
		Where("id = ?", restaurantID).
		Update("opening_hours", string(raw))
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("restaurant not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Opening hours updated", hours)
}

// GetPublicMenu serves the customer-facing restaurant page: profile plus
// available menu items grouped per category. No auth required.
func (rc *RestaurantController) GetPublicMenu(c *gin.Context) {
	restaurantID, err := strconv.Atoi(c.Param("restaurant_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid restaurant id"))
		return
	}

	var restaurant models.Restaurant
	if err := rc.DB.First(&restaurant, restaurantID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("restaurant not found"))
		return
	}

	var categories []models.Category
	rc.DB.Where("restaurant_id = ?", restaurantID).
		Order("sort_order ASC, name ASC").Find(&categories)

	var items []models.MenuItem
	rc.DB.Where("restaurant_id = ? AND available = ?", restaurantID, true).
		Order("name ASC").Find(&items)

	itemsByCategory := make(map[uint][]models.MenuItem)
	for _, item := range items {
		itemsByCategory[item.CategoryID] = append(itemsByCategory[item.CategoryID], item)
	}

	type categoryMenu struct {
		models.Category
		Items []models.MenuItem `json:"items"`
	}
	menu := make([]categoryMenu, 0, len(categories))
	for _, cat := range categories {
		entries := itemsByCategory[cat.ID]
		if len(entries) == 0 {
			continue
		}
		menu = append(menu, categoryMenu{Category: cat, Items: entries})
	}

	utils.RespondJSON(c, http.StatusOK, "Restaurant menu", gin.H{
		"restaurant": restaurant,
		"menu":       menu,
	})
}
