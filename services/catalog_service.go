package services

import (
	"gorm.io/gorm"

	"github.com/mesafacil/backoffice/models"
)

// CatalogItem is the read-only projection of a menu item the order engine
// validates against. Client-supplied prices are never trusted over this.
type CatalogItem struct {
	ID        uint
	Name      string
	Price     float64
	Available bool
}

// MenuCatalogGateway resolves menu items scoped to one restaurant.
type MenuCatalogGateway interface {
	LookupItems(restaurantID uint, itemIDs []uint) ([]CatalogItem, error)
}

type GormMenuCatalog struct {
	db *gorm.DB
}

func NewGormMenuCatalog(db *gorm.DB) *GormMenuCatalog {
	return &GormMenuCatalog{db: db}
}

func (g *GormMenuCatalog) LookupItems(restaurantID uint, itemIDs []uint) ([]CatalogItem, error) {
	var rows []models.MenuItem
	if err := g.db.
		Where("restaurant_id = ? AND id IN ?", restaurantID, itemIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]CatalogItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, CatalogItem{
			ID:        row.ID,
			Name:      row.Name,
			Price:     row.Price,
			Available: row.Available,
		})
	}
	return items, nil
}
