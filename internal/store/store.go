// Package store is the kiosk's product database. It supplies the matching
// catalog and the lexicons used for line scoring, and answers the
// recommendation queries shown after a product was identified.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrNotFound is returned by lookups that match no product.
var ErrNotFound = errors.New("product not found")

// Product is one row of the products table.
type Product struct {
	ID             uint   `gorm:"primaryKey" json:"id"`
	Name           string `gorm:"not null" json:"name"`
	Brand          string `json:"brand"`
	Price          string `json:"price"`
	Image          string `json:"image"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	Category       string `json:"category"`
	SkinTypes      string `json:"skin_types"`
	PersonalColors string `json:"personal_colors"`
	Number         string `json:"number"`
}

// TableName pins the table name used by the original kiosk database.
func (Product) TableName() string { return "products" }

// DisplayName is the brand followed by the product name.
func (p Product) DisplayName() string {
	return strings.TrimSpace(p.Brand + " " + p.Name)
}

// FirstPersonalColor returns the first comma separated personal color.
func (p Product) FirstPersonalColor() string {
	return firstListItem(p.PersonalColors)
}

// FirstSkinType returns the first comma separated skin type.
func (p Product) FirstSkinType() string {
	return firstListItem(p.SkinTypes)
}

func firstListItem(s string) string {
	first, _, _ := strings.Cut(s, ",")
	return strings.TrimSpace(first)
}

// Store wraps the gorm handle.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if needed) the sqlite database at path, migrates the
// schema and, when seed is set, inserts the sample products into an empty
// table.
func Open(ctx context.Context, path string, seed bool) (*Store, error) {
	if path == "" {
		path = MemoryPath
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open product database %s: %w", path, err)
	}
	if path == MemoryPath {
		// Every pooled connection would otherwise get its own empty database.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	s := New(db)
	if err := s.Migrate(ctx); err != nil {
		return nil, err
	}
	if seed {
		if err := s.SeedIfEmpty(ctx); err != nil {
			return nil, err
		}
	}
	slog.Debug("Product database ready", "path", path, "seed", seed)
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate creates or updates the products table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Product{}); err != nil {
		return fmt.Errorf("failed to migrate products: %w", err)
	}
	return nil
}

// SeedIfEmpty inserts SampleProducts when the table has no rows.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Product{}).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if n > 0 {
		return nil
	}
	rows := SampleProducts()
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}

// Insert adds products and returns them with their assigned IDs.
func (s *Store) Insert(ctx context.Context, products []Product) ([]Product, error) {
	if len(products) == 0 {
		return nil, nil
	}
	if err := s.db.WithContext(ctx).Create(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to insert products: %w", err)
	}
	return products, nil
}

// Import inserts one product per catalog entry, mapping known columns.
func (s *Store) Import(ctx context.Context, cat catalog.Catalog) (int, error) {
	products := make([]Product, 0, len(cat))
	for _, e := range cat {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		desc := e.Attr("description")
		if desc == "" {
			desc = e.Attr("desc")
		}
		image := e.Attr("image")
		if image == "" {
			image = e.Attr("image_path")
		}
		products = append(products, Product{
			Name:           e.Name,
			Brand:          e.Attr("brand"),
			Price:          e.Attr("price"),
			Image:          image,
			Description:    desc,
			Type:           e.Attr("type"),
			Category:       e.Attr("category"),
			SkinTypes:      e.Attr("skin_types"),
			PersonalColors: e.Attr("personal_colors"),
			Number:         e.Attr("number"),
		})
	}
	inserted, err := s.Insert(ctx, products)
	return len(inserted), err
}

// All returns every product in insertion order.
func (s *Store) All(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := s.db.WithContext(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

// Catalog exposes the products as a matching catalog. Entry names are
// "brand name" so printed brand names contribute to the match.
func (s *Store) Catalog(ctx context.Context) (catalog.Catalog, error) {
	products, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	cat := make(catalog.Catalog, 0, len(products))
	for _, p := range products {
		cat = append(cat, catalog.NewEntry(p.DisplayName(), p.Attributes()))
	}
	return cat, nil
}

// Attributes flattens the product into catalog row data.
func (p Product) Attributes() map[string]string {
	return map[string]string{
		"id":              strconv.FormatUint(uint64(p.ID), 10),
		"name":            p.Name,
		"brand":           p.Brand,
		"price":           p.Price,
		"image":           p.Image,
		"description":     p.Description,
		"type":            p.Type,
		"category":        p.Category,
		"skin_types":      p.SkinTypes,
		"personal_colors": p.PersonalColors,
		"number":          p.Number,
	}
}

// AllBrands returns the distinct non-empty brand names.
func (s *Store) AllBrands(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&Product{}).
		Where("brand IS NOT NULL AND brand <> ''").
		Distinct().Order("brand").Pluck("brand", &out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return out, nil
}

// AllProductNames returns the distinct non-empty product names.
func (s *Store) AllProductNames(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&Product{}).
		Where("name IS NOT NULL AND name <> ''").
		Distinct().Order("name").Pluck("name", &out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list product names: %w", err)
	}
	return out, nil
}

// ProductsByName finds products whose name, or brand plus name, contains
// the query with spaces and case ignored.
func (s *Store) ProductsByName(ctx context.Context, name string, limit int) ([]Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	like := "%" + strings.ReplaceAll(name, " ", "") + "%"
	var out []Product
	err := s.db.WithContext(ctx).
		Where("REPLACE(LOWER(name), ' ', '') LIKE LOWER(?) OR REPLACE(LOWER(brand || ' ' || name), ' ', '') LIKE LOWER(?)", like, like).
		Order("id").Limit(limitOrDefault(limit, 1)).Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up product %q: %w", name, err)
	}
	return out, nil
}

// ProductByName returns the first ProductsByName hit.
func (s *Store) ProductByName(ctx context.Context, name string) (Product, error) {
	rows, err := s.ProductsByName(ctx, name, 1)
	if err != nil {
		return Product{}, err
	}
	if len(rows) == 0 {
		return Product{}, ErrNotFound
	}
	return rows[0], nil
}

// ProductsByFilter filters on personal color and skin type substrings. An
// empty result falls back to the first limit products so the kiosk always
// has something to show.
func (s *Store) ProductsByFilter(ctx context.Context, personalColor, skinType string, limit int) ([]Product, error) {
	limit = limitOrDefault(limit, 9)
	q := s.db.WithContext(ctx).Model(&Product{})
	if personalColor != "" {
		q = q.Where("personal_colors LIKE ?", "%"+personalColor+"%")
	}
	if skinType != "" {
		q = q.Where("skin_types LIKE ?", "%"+skinType+"%")
	}
	var out []Product
	if err := q.Order("id").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to filter products: %w", err)
	}
	if len(out) > 0 {
		return out, nil
	}
	return s.first(ctx, limit)
}

// BeautyData returns recommendations for a personal color, or simply the
// first products when no color is known.
func (s *Store) BeautyData(ctx context.Context, personalColor string, limit int) ([]Product, error) {
	rows, err := s.ProductsByFilter(ctx, personalColor, "", limit)
	if err != nil {
		slog.Warn("Filtered lookup failed, using first products", "error", err)
		return s.first(ctx, limitOrDefault(limit, 9))
	}
	return rows, nil
}

func (s *Store) first(ctx context.Context, limit int) ([]Product, error) {
	var out []Product
	if err := s.db.WithContext(ctx).Order("id").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return out, nil
}

func limitOrDefault(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
