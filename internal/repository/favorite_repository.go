package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/leaflens/leaflens-host/internal/models"
)

type FavoriteRepository interface {
	Add(ctx context.Context, fav models.Favorite) (models.Favorite, error)
	ListByUser(ctx context.Context, userID string) ([]models.Favorite, error)
	Delete(ctx context.Context, userID, favoriteID string) error
}

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

const favoriteColumns = `id, user_id, name, scientific_name, description, care_guide, fun_facts, image, saved_at`

func scanFavorite(row rowScanner) (models.Favorite, error) {
	var (
		fav       models.Favorite
		careGuide []byte
		funFacts  pq.StringArray
	)
	err := row.Scan(
		&fav.ID,
		&fav.UserID,
		&fav.Name,
		&fav.ScientificName,
		&fav.Description,
		&careGuide,
		&funFacts,
		&fav.Image,
		&fav.SavedAt,
	)
	if err != nil {
		return models.Favorite{}, err
	}
	if len(careGuide) > 0 {
		if err := json.Unmarshal(careGuide, &fav.CareGuide); err != nil {
			return models.Favorite{}, fmt.Errorf("decode care guide: %w", err)
		}
	}
	fav.FunFacts = []string(funFacts)
	if fav.FunFacts == nil {
		fav.FunFacts = []string{}
	}
	return fav, nil
}

func (r *favoriteRepository) Add(ctx context.Context, fav models.Favorite) (models.Favorite, error) {
	careGuide, err := json.Marshal(fav.CareGuide)
	if err != nil {
		return models.Favorite{}, fmt.Errorf("encode care guide: %w", err)
	}
	funFacts := fav.FunFacts
	if funFacts == nil {
		funFacts = []string{}
	}

	query := `
		INSERT INTO leaflens.favorites (user_id, name, scientific_name, description, care_guide, fun_facts, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + favoriteColumns
	return scanFavorite(r.db.QueryRowContext(ctx, query,
		fav.UserID, fav.Name, fav.ScientificName, fav.Description, careGuide, pq.Array(funFacts), fav.Image))
}

func (r *favoriteRepository) ListByUser(ctx context.Context, userID string) ([]models.Favorite, error) {
	query := `SELECT ` + favoriteColumns + ` FROM leaflens.favorites WHERE user_id = $1 ORDER BY saved_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	favorites := make([]models.Favorite, 0)
	for rows.Next() {
		fav, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		favorites = append(favorites, fav)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return favorites, nil
}

func (r *favoriteRepository) Delete(ctx context.Context, userID, favoriteID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM leaflens.favorites WHERE id = $1 AND user_id = $2`, favoriteID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
