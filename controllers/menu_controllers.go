package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/utils"
)

type MenuController struct {
	DB        *gorm.DB
	UploadDir string
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db, UploadDir: "public/uploads"}
}

type menuItemInput struct {
	CategoryID  uint    `json:"category_id" binding:"required"`
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gt=0"`
	Available   *bool   `json:"available"`
}

func (mc *MenuController) CreateMenuItem(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var input menuItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var category models.Category
	if err := mc.DB.Where("id = ? AND restaurant_id = ?", input.CategoryID, restaurantID).First(&category).Error; err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("category not found"))
		return
	}

	available := true
	if input.Available != nil {
		available = *input.Available
	}

	item := models.MenuItem{
		RestaurantID: restaurantID,
		CategoryID:   input.CategoryID,
		Name:         input.Name,
		Description:  input.Description,
		Price:        input.Price,
		Available:    available,
	}
	if err := mc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Menu item created: %s at %s (restaurant %d)",
		item.Name, utils.FormatCurrency(item.Price), restaurantID)
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

func (mc *MenuController) GetAllMenuItems(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	query := mc.DB.Where("restaurant_id = ?", restaurantID)
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if available := c.Query("available"); available != "" {
		query = query.Where("available = ?", available == "true")
	}

	var items []models.MenuItem
	if err := query.Order("name ASC").Find(&items).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) GetMenuItemByID(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu item id"))
		return
	}

	var item models.MenuItem
	if err := mc.DB.Where("id = ? AND restaurant_id = ?", id, restaurantID).First(&item).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu item detail", item)
}

func (mc *MenuController) UpdateMenuItem(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu item id"))
		return
	}

	var item models.MenuItem
	if err := mc.DB.Where("id = ? AND restaurant_id = ?", id, restaurantID).First(&item).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	var input menuItemInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if input.CategoryID != item.CategoryID {
		var category models.Category
		if err := mc.DB.Where("id = ? AND restaurant_id = ?", input.CategoryID, restaurantID).First(&category).Error; err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("category not found"))
			return
		}
	}

	item.CategoryID = input.CategoryID
	item.Name = input.Name
	item.Description = input.Description
	item.Price = input.Price
	if input.Available != nil {
		item.Available = *input.Available
	}
	if err := mc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

// SetAvailability flips the sold-out flag without touching the rest of the item.
func (mc *MenuController) SetAvailability(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu item id"))
		return
	}

	var body struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	result := mc.DB.Model(&models.MenuItem{}).
		Where("id = ? AND restaurant_id = ?", id, restaurantID).
		Update("available", *body.Available)
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Availability updated", gin.H{"available": *body.Available})
}

func (mc *MenuController) UploadMenuItemImage(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu item id"))
		return
	}

	var item models.MenuItem
	if err := mc.DB.Where("id = ? AND restaurant_id = ?", id, restaurantID).First(&item).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("image file is required"))
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		utils.RespondError(c, http.StatusBadRequest, errors.New("only jpg, jpeg, png or webp images are accepted"))
		return
	}

	filename := fmt.Sprintf("menu-%d-%s%s", item.ID, uuid.New().String()[:8], ext)
	dst := filepath.Join(mc.UploadDir, filename)
	if err := c.SaveUploadedFile(file, dst); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	imageURL := "/uploads/" + filename
	item.ImageURL = &imageURL
	if err := mc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Image uploaded", item)
}

func (mc *MenuController) DeleteMenuItem(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("item_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid menu item id"))
		return
	}

	result := mc.DB.Where("id = ? AND restaurant_id = ?", id, restaurantID).Delete(&models.MenuItem{})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("menu item not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
