package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Card is the display form of a recommended product.
type Card struct {
	Name           string `json:"name"`
	Price          *int   `json:"price"`
	ImagePath      string `json:"image_path"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	Category       string `json:"category"`
	SkinTypes      string `json:"skin_types"`
	PersonalColors string `json:"personal_colors"`
	Number         string `json:"number,omitempty"`
}

// Recommendations groups cards by makeup section.
type Recommendations struct {
	Cushion    []Card `json:"쿠션"`
	Foundation []Card `json:"파운데이션"`
	Lip        []Card `json:"립"`
	Eye        []Card `json:"아이"`
}

var (
	cushionTypes    = []string{"쿠션"}
	foundationTypes = []string{"파운데", "파데"}
	lipTypes        = []string{"립", "틴트", "립스틱", "글로스", "플럼퍼"}
	eyeTypes        = []string{"아이", "섀도우", "마스카라", "아이라이너", "브로우"}
)

// RecommendByTypes builds per-section recommendations from a face analysis.
// Base makeup (cushion, foundation) filters on skin type and a shade number
// within plus or minus one; color makeup (lip, eye) filters on personal
// color. A section with no filtered hit falls back to its type alone.
func (s *Store) RecommendByTypes(ctx context.Context, personalColor, skinType, number string, perSection int) (Recommendations, error) {
	perSection = limitOrDefault(perSection, 6)

	low, high, hasRange := numberRange(number)
	base := func(types []string) ([]Product, error) {
		q := s.typeQuery(ctx, types).
			Where("skin_types LIKE ? OR skin_types IS NULL OR skin_types = ''", "%"+skinType+"%")
		if hasRange {
			q = q.Where("number IS NULL OR number = '' OR CAST(number AS REAL) BETWEEN ? AND ?", low, high)
		}
		return s.pickSection(ctx, q, types, perSection)
	}
	color := func(types []string) ([]Product, error) {
		pattern := ""
		if personalColor != "" {
			pattern = "%" + personalColor + "%"
		}
		q := s.typeQuery(ctx, types).
			Where("personal_colors LIKE ? OR personal_colors IS NULL OR personal_colors = ''", pattern)
		return s.pickSection(ctx, q, types, perSection)
	}

	var rec Recommendations
	var err error
	if rec.Cushion, err = sectionCards(base(cushionTypes)); err != nil {
		return rec, err
	}
	if rec.Foundation, err = sectionCards(base(foundationTypes)); err != nil {
		return rec, err
	}
	if rec.Lip, err = sectionCards(color(lipTypes)); err != nil {
		return rec, err
	}
	if rec.Eye, err = sectionCards(color(eyeTypes)); err != nil {
		return rec, err
	}
	return rec, nil
}

// typeQuery matches rows whose type contains any of the given words.
func (s *Store) typeQuery(ctx context.Context, types []string) *gorm.DB {
	clauses := make([]string, len(types))
	args := make([]any, len(types))
	for i, t := range types {
		clauses[i] = "type LIKE ?"
		args[i] = "%" + t + "%"
	}
	return s.db.WithContext(ctx).Model(&Product{}).Where(strings.Join(clauses, " OR "), args...)
}

func (s *Store) pickSection(ctx context.Context, q *gorm.DB, types []string, limit int) ([]Product, error) {
	var rows []Product
	if err := q.Order("id").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s recommendations: %w", types[0], err)
	}
	if len(rows) > 0 {
		return rows, nil
	}
	if err := s.typeQuery(ctx, types).Order("id").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s fallback: %w", types[0], err)
	}
	return rows, nil
}

func sectionCards(rows []Product, err error) ([]Card, error) {
	if err != nil {
		return nil, err
	}
	cards := make([]Card, 0, len(rows))
	for _, p := range rows {
		cards = append(cards, p.Card())
	}
	return cards, nil
}

// Card converts the product to its display form. Non numeric prices become nil.
func (p Product) Card() Card {
	var price *int
	if v, err := strconv.Atoi(p.Price); err == nil && v >= 0 {
		price = &v
	}
	return Card{
		Name:           p.Name,
		Price:          price,
		ImagePath:      p.Image,
		Description:    p.Description,
		Type:           p.Type,
		Category:       p.Category,
		SkinTypes:      p.SkinTypes,
		PersonalColors: p.PersonalColors,
		Number:         p.Number,
	}
}

func numberRange(number string) (low, high float64, ok bool) {
	x, err := strconv.ParseFloat(strings.TrimSpace(number), 64)
	if err != nil {
		return 0, 0, false
	}
	return x - 1, x + 1, true
}
