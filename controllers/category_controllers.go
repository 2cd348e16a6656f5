package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
	"github.com/mesafacil/backoffice/utils"
)

type CategoryController struct {
	DB *gorm.DB
}

func NewCategoryController(db *gorm.DB) *CategoryController {
	return &CategoryController{DB: db}
}

type categoryInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	SortOrder   int    `json:"sort_order"`
}

func (cc *CategoryController) CreateCategory(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var input categoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category := models.Category{
		RestaurantID: restaurantID,
		Name:         input.Name,
		Description:  input.Description,
		SortOrder:    input.SortOrder,
	}
	if err := cc.DB.Create(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Category created", category)
}

func (cc *CategoryController) GetAllCategories(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	var categories []models.Category
	if err := cc.DB.Where("restaurant_id = ?", restaurantID).
		Order("sort_order ASC, name ASC").Find(&categories).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "List of categories", categories)
}

func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("category_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid category id"))
		return
	}

	var category models.Category
	if err := cc.DB.Where("id = ? AND restaurant_id = ?", id, restaurantID).First(&category).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("category not found"))
		return
	}

	var input categoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	category.Name = input.Name
	category.Description = input.Description
	category.SortOrder = input.SortOrder
	if err := cc.DB.Save(&category).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Category updated", category)
}

func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	restaurantID, ok := restaurantFromContext(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("missing restaurant scope"))
		return
	}

	id, err := strconv.Atoi(c.Param("category_id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid category id"))
		return
	}

	var count int64
	cc.DB.Model(&models.MenuItem{}).Where("category_id = ? AND restaurant_id = ?", id, restaurantID).Count(&count)
	if count > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("category still has menu items"))
		return
	}

	result := cc.DB.Where("id = ? AND restaurant_id = ?", id, restaurantID).Delete(&models.Category{})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, errors.New("category not found"))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Category deleted", nil)
}
