package services

import (
	"context"
	"fmt"
	"log/slog"

	"regalia/internal/models"
)

// SeedDemoCatalog fills an empty store with a small regalia catalog.
func SeedDemoCatalog(ctx context.Context, indexer *ProductIndexer) error {
	const op = "services.SeedDemoCatalog"

	refs := map[string]*models.Reference{
		"tabliers": {Name: "Tabliers", Slug: "tabliers", IsActive: true, Order: 1},
		"cordons":  {Name: "Cordons & Sautoirs", Slug: "cordons", IsActive: true, Order: 2},
		"bijoux":   {Name: "Bijoux", Slug: "bijoux", IsActive: true, Order: 3},
		"gants":    {Name: "Gants", Slug: "gants", IsActive: true, Order: 4},
		"reaa":     {Name: "Rite Écossais Ancien et Accepté", Slug: "reaa", Code: "REAA", IsActive: true},
		"rf":       {Name: "Rite Français", Slug: "rite-francais", Code: "RF", IsActive: true},
		"godf":     {Name: "Grand Orient de France", Slug: "godf", Code: "GODF", IsActive: true},
		"glnf":     {Name: "Grande Loge Nationale Française", Slug: "glnf", Code: "GLNF", IsActive: true},
	}
	kinds := map[string]models.ReferenceKind{
		"tabliers": models.KindCategory,
		"cordons":  models.KindCategory,
		"bijoux":   models.KindCategory,
		"gants":    models.KindCategory,
		"reaa":     models.KindRite,
		"rf":       models.KindRite,
		"godf":     models.KindObedience,
		"glnf":     models.KindObedience,
	}
	for key, ref := range refs {
		if err := indexer.SaveReference(ctx, kinds[key], ref); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	degrees := map[string]*models.DegreeOrder{
		"apprenti":  {Name: "Apprenti", Level: 1, LogeType: models.LogeSymbolique, IsActive: true},
		"compagnon": {Name: "Compagnon", Level: 2, LogeType: models.LogeSymbolique, IsActive: true},
		"maitre":    {Name: "Maître", Level: 3, LogeType: models.LogeSymbolique, IsActive: true},
		"rosecroix": {Name: "Chevalier Rose-Croix", Level: 18, LogeType: models.LogeHautsGrades, IsActive: true},
		"kadosh":    {Name: "Chevalier Kadosh", Level: 30, LogeType: models.LogeHautsGrades, IsActive: true},
	}
	for _, d := range degrees {
		if err := indexer.SaveDegreeOrder(ctx, d); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	id := func(key string) []string { return []string{refs[key].ID} }
	degree := func(keys ...string) []string {
		out := make([]string, 0, len(keys))
		for _, k := range keys {
			out = append(out, degrees[k].ID)
		}
		return out
	}
	price := func(v float64) *float64 { return &v }

	products := []models.Product{
		{
			Name:             "Tablier de Maître REAA",
			Slug:             "tablier-maitre-reaa",
			ShortDescription: "Tablier brodé main, bordure rouge",
			Description:      "Tablier de Maître en satin, broderies au fil d'or.",
			Price:            189,
			CompareAtPrice:   price(229),
			StockQuantity:    6,
			IsActive:         true,
			Featured:         true,
			CategoryIDs:      id("tabliers"),
			RiteIDs:          id("reaa"),
			ObedienceIDs:     id("glnf"),
			DegreeOrderIDs:   degree("maitre"),
			Sizes:            []string{"Standard"},
			Colors:           []string{"Blanc", "Rouge"},
			Materials:        []string{"Satin", "Fil d'or"},
			Tags:             []string{"broderie", "maître"},
			Images: []models.ProductImage{
				{URL: "/img/tablier-maitre-reaa-1.jpg"},
				{URL: "/img/tablier-maitre-reaa-2.jpg"},
				{URL: "/img/tablier-maitre-reaa-3.jpg"},
			},
		},
		{
			Name:             "Tablier d'Apprenti",
			Slug:             "tablier-apprenti",
			ShortDescription: "Tablier en peau d'agneau",
			Price:            59,
			StockQuantity:    20,
			IsActive:         true,
			CategoryIDs:      id("tabliers"),
			RiteIDs:          id("rf"),
			ObedienceIDs:     id("godf"),
			DegreeOrderIDs:   degree("apprenti"),
			Sizes:            []string{"Standard"},
			Colors:           []string{"Blanc"},
			Materials:        []string{"Cuir"},
			Images:           []models.ProductImage{{URL: "/img/tablier-apprenti.jpg"}},
		},
		{
			Name:             "Sautoir Rose-Croix",
			Slug:             "sautoir-rose-croix",
			ShortDescription: "Sautoir moiré rouge, bijou pélican",
			Price:            145,
			AllowBackorders:  true,
			IsActive:         true,
			CategoryIDs:      id("cordons"),
			RiteIDs:          id("reaa"),
			DegreeOrderIDs:   degree("rosecroix"),
			Colors:           []string{"Rouge"},
			Materials:        []string{"Moire"},
			Images:           []models.ProductImage{{URL: "/img/sautoir-rose-croix.jpg"}},
		},
		{
			Name:           "Cordon de Kadosh",
			Slug:           "cordon-kadosh",
			Price:          120,
			StockQuantity:  2,
			IsActive:       true,
			CategoryIDs:    id("cordons"),
			RiteIDs:        id("reaa"),
			DegreeOrderIDs: degree("kadosh"),
			Colors:         []string{"Noir"},
			Materials:      []string{"Moire"},
		},
		{
			Name:           "Bijou d'équerre et compas",
			Slug:           "bijou-equerre-compas",
			Price:          39,
			StockQuantity:  50,
			IsActive:       true,
			CategoryIDs:    id("bijoux"),
			DegreeOrderIDs: degree("apprenti", "compagnon", "maitre", "rosecroix"),
			Colors:         []string{"Doré"},
			Materials:      []string{"Laiton"},
		},
		{
			Name:        "Gants blancs en coton",
			Slug:        "gants-blancs-coton",
			Price:       12,
			IsActive:    true,
			CategoryIDs: id("gants"),
			Sizes:       []string{"S", "M", "L", "XL"},
			Colors:      []string{"Blanc"},
			Materials:   []string{"Coton"},
		},
	}
	for i := range products {
		if err := indexer.SaveProduct(ctx, &products[i]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	slog.Info("demo catalog seeded", "op", op, "products", len(products))
	return nil
}
