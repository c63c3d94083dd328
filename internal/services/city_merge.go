package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/inventra/internal/models"
	"github.com/charlesng35/inventra/pkg/metrics"
)

// MergeReport describes a duplicate city merge run.
type MergeReport struct {
	DryRun      bool         `json:"dry_run"`
	Groups      []MergeGroup `json:"groups"`
	MergedCount int          `json:"merged_count"`
}

// MergeGroup is a set of cities sharing one canonical name.
type MergeGroup struct {
	Canonical string        `json:"canonical"`
	Cities    []MergeCity   `json:"cities"`
	Kept      MergeCity     `json:"kept"`
	Merged    []MergeResult `json:"merged"`
}

// MergeCity summarises a city row at scan time.
type MergeCity struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Buildings int64  `json:"buildings"`
	Items     int64  `json:"items"`
}

// MergeResult reports what happened (or would happen) to one duplicate.
type MergeResult struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	BuildingsMoved   int64  `json:"buildings_moved"`
	BuildingsMerged  int64  `json:"buildings_merged"`
	ItemsRepointed   int64  `json:"items_repointed"`
	TextItemsUpdated int64  `json:"text_items_updated"`
	Error            string `json:"error,omitempty"`
}

// MergeDuplicateCities groups cities by canonical name and folds every
// duplicate into one survivor: the member already spelled canonically, else
// the first by name. Each duplicate merges in its own transaction; a failed
// duplicate is reported and the run continues. With dryRun nothing is written.
func (s *CatalogService) MergeDuplicateCities(ctx context.Context, dryRun bool) (*MergeReport, error) {
	ctx = ensureContext(ctx)
	db := s.db.WithContext(ctx)

	var cities []models.City
	if err := db.Order("name ASC").Order("created_at ASC").Find(&cities).Error; err != nil {
		return nil, fmt.Errorf("catalog service: load cities: %w", err)
	}

	groups := make(map[string][]models.City)
	var order []string
	for _, city := range cities {
		canonical := NormalizeCityName(city.Name)
		if _, seen := groups[canonical]; !seen {
			order = append(order, canonical)
		}
		groups[canonical] = append(groups[canonical], city)
	}
	sort.Strings(order)

	report := &MergeReport{DryRun: dryRun, Groups: []MergeGroup{}}
	var errs error

	for _, canonical := range order {
		members := groups[canonical]
		if len(members) < 2 {
			continue
		}

		group := MergeGroup{Canonical: canonical}
		for _, city := range members {
			summary, err := s.summariseCity(db, city)
			if err != nil {
				return nil, err
			}
			group.Cities = append(group.Cities, summary)
		}

		primary := members[0]
		for _, city := range members {
			if city.Name == canonical {
				primary = city
				break
			}
		}
		for _, summary := range group.Cities {
			if summary.ID == primary.ID {
				group.Kept = summary
			}
		}

		var survivor map[string]bool
		if dryRun {
			names, err := s.buildingNames(db, primary.ID)
			if err != nil {
				return nil, err
			}
			survivor = names
		}

		for _, duplicate := range members {
			if duplicate.ID == primary.ID {
				continue
			}

			var result MergeResult
			var err error
			if dryRun {
				result, err = s.planMerge(db, survivor, duplicate)
			} else {
				err = db.Transaction(func(tx *gorm.DB) error {
					var txErr error
					result, txErr = s.mergeCity(tx, primary, duplicate)
					return txErr
				})
			}
			if err != nil {
				result = MergeResult{ID: duplicate.ID, Name: duplicate.Name, Error: err.Error()}
				errs = multierr.Append(errs, fmt.Errorf("merge %q into %q: %w", duplicate.Name, primary.Name, err))
				s.log.Warn("city merge failed",
					zap.String("duplicate", duplicate.Name),
					zap.String("primary", primary.Name),
					zap.Error(err))
			} else if !dryRun {
				report.MergedCount++
				metrics.CitiesMerged.Inc()
				s.log.Info("city merged",
					zap.String("duplicate", duplicate.Name),
					zap.String("primary", primary.Name),
					zap.Int64("buildings_moved", result.BuildingsMoved),
					zap.Int64("buildings_merged", result.BuildingsMerged),
					zap.Int64("text_items_updated", result.TextItemsUpdated))
			}
			group.Merged = append(group.Merged, result)
		}

		report.Groups = append(report.Groups, group)
	}

	return report, errs
}

func (s *CatalogService) summariseCity(db *gorm.DB, city models.City) (MergeCity, error) {
	summary := MergeCity{ID: city.ID, Name: city.Name}
	if err := db.Model(&models.Building{}).Where("city_id = ?", city.ID).Count(&summary.Buildings).Error; err != nil {
		return summary, fmt.Errorf("catalog service: count buildings: %w", err)
	}
	if err := db.Model(&models.Item{}).
		Joins("JOIN buildings ON buildings.id = items.building_ref_id").
		Where("buildings.city_id = ?", city.ID).
		Count(&summary.Items).Error; err != nil {
		return summary, fmt.Errorf("catalog service: count items: %w", err)
	}
	return summary, nil
}

func (s *CatalogService) buildingNames(db *gorm.DB, cityID string) (map[string]bool, error) {
	var names []string
	if err := db.Model(&models.Building{}).Where("city_id = ?", cityID).Pluck("name", &names).Error; err != nil {
		return nil, fmt.Errorf("catalog service: load buildings: %w", err)
	}
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set, nil
}

// planMerge computes the counts mergeCity would produce without writing.
// survivor holds the primary's building names as earlier duplicates in the
// run would leave them; reparented names are added to it.
func (s *CatalogService) planMerge(db *gorm.DB, survivor map[string]bool, duplicate models.City) (MergeResult, error) {
	result := MergeResult{ID: duplicate.ID, Name: duplicate.Name}

	var buildings []models.Building
	if err := db.Where("city_id = ?", duplicate.ID).Find(&buildings).Error; err != nil {
		return result, fmt.Errorf("load buildings: %w", err)
	}
	var merged []string
	for _, building := range buildings {
		if !survivor[building.Name] {
			survivor[building.Name] = true
			result.BuildingsMoved++
			continue
		}
		var items int64
		if err := db.Model(&models.Item{}).Where("building_ref_id = ?", building.ID).Count(&items).Error; err != nil {
			return result, fmt.Errorf("count building items: %w", err)
		}
		result.BuildingsMerged++
		result.ItemsRepointed += items
		merged = append(merged, building.ID)
	}

	text := db.Model(&models.Item{}).Where("city = ?", duplicate.Name)
	if len(merged) > 0 {
		text = text.Where("building_ref_id IS NULL OR building_ref_id NOT IN ?", merged)
	}
	if err := text.Count(&result.TextItemsUpdated).Error; err != nil {
		return result, fmt.Errorf("count text items: %w", err)
	}
	return result, nil
}

// mergeCity folds duplicate into primary on tx. Colliding buildings hand
// their items to the primary's building of the same name, refreshing the
// items' location snapshot, and are then removed; the rest are reparented.
func (s *CatalogService) mergeCity(tx *gorm.DB, primary, duplicate models.City) (MergeResult, error) {
	result := MergeResult{ID: duplicate.ID, Name: duplicate.Name}

	var buildings []models.Building
	if err := tx.Where("city_id = ?", duplicate.ID).Find(&buildings).Error; err != nil {
		return result, fmt.Errorf("load buildings: %w", err)
	}

	for _, building := range buildings {
		var existing models.Building
		err := tx.Where("city_id = ? AND name = ?", primary.ID, building.Name).Limit(1).Find(&existing).Error
		if err != nil {
			return result, fmt.Errorf("check building collision: %w", err)
		}

		if existing.ID == "" {
			if err := tx.Model(&models.Building{}).Where("id = ?", building.ID).
				Update("city_id", primary.ID).Error; err != nil {
				return result, fmt.Errorf("reparent building %q: %w", building.Name, err)
			}
			result.BuildingsMoved++
			continue
		}

		moved := tx.Model(&models.Item{}).Where("building_ref_id = ?", building.ID).Updates(map[string]any{
			"building_ref_id": existing.ID,
			"city":            primary.Name,
			"building":        existing.Name,
			"address":         existing.Address,
			"lat":             existing.Lat,
			"lng":             existing.Lng,
		})
		if moved.Error != nil {
			return result, fmt.Errorf("repoint items of %q: %w", building.Name, moved.Error)
		}
		result.ItemsRepointed += moved.RowsAffected

		if err := tx.Delete(&models.Building{}, "id = ?", building.ID).Error; err != nil {
			return result, fmt.Errorf("delete duplicate building %q: %w", building.Name, err)
		}
		result.BuildingsMerged++
	}

	text := tx.Model(&models.Item{}).Where("city = ?", duplicate.Name).Update("city", primary.Name)
	if text.Error != nil {
		return result, fmt.Errorf("update text items: %w", text.Error)
	}
	result.TextItemsUpdated = text.RowsAffected

	if err := tx.Delete(&models.City{}, "id = ?", duplicate.ID).Error; err != nil {
		return result, fmt.Errorf("delete duplicate city: %w", err)
	}
	return result, nil
}
