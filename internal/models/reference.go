package models

import "errors"

// ErrNotFound is returned by repositories when a lookup has no match.
var ErrNotFound = errors.New("not found")

// ReferenceKind identifies one of the reference collections a product can point to.
type ReferenceKind string

const (
	KindCategory    ReferenceKind = "category"
	KindRite        ReferenceKind = "rite"
	KindObedience   ReferenceKind = "obedience"
	KindDegreeOrder ReferenceKind = "degree_order"
)

// ReferenceKinds lists every kind in facet order.
var ReferenceKinds = []ReferenceKind{KindCategory, KindRite, KindObedience, KindDegreeOrder}

// Loge types.
const (
	LogeSymbolique  = "Loge Symbolique"
	LogeHautsGrades = "Loge Hauts Grades"
)

// Reference is a category, rite or obedience.
type Reference struct {
	ID       string `json:"id" validate:"omitempty,uuid"`
	Name     string `json:"name" validate:"required,max=200"`
	Slug     string `json:"slug" validate:"required,max=200"`
	Code     string `json:"code,omitempty" validate:"max=50"`
	IsActive bool   `json:"is_active"`
	Order    int    `json:"order"`
}

// DegreeOrder is a ranked Masonic degree, classified into a loge type.
type DegreeOrder struct {
	ID       string `json:"id" validate:"omitempty,uuid"`
	Name     string `json:"name" validate:"required,max=200"`
	Level    int    `json:"level" validate:"gte=0"`
	LogeType string `json:"loge_type" validate:"oneof='Loge Symbolique' 'Loge Hauts Grades'"`
	IsActive bool   `json:"is_active"`
}
