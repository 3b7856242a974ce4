// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marqueehq/marquee/internal/digest"
	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/rating"
)

// ratingUpdateAttempts bounds the optimistic retry loop in ApplyRating.
const ratingUpdateAttempts = 3

// MoviesRepository provides persistence for movie entities.
type MoviesRepository struct {
	pool *pgxpool.Pool
}

const movieColumns = `
	id,
	title,
	original_title,
	language,
	synopsis,
	situation,
	popularity,
	votes_quantity,
	rating_percentage,
	rating_version,
	trailer_url,
	poster_url,
	budget,
	revenue,
	release_date,
	duration_in_minutes,
	genre,
	created_at,
	updated_at,
	deleted_at
`

// MovieCreateParams bundles the fields accepted when creating a movie.
type MovieCreateParams struct {
	Title             string
	OriginalTitle     *string
	Language          *string
	Synopsis          *string
	Situation         models.MovieSituation
	Popularity        float64
	TrailerURL        *string
	PosterURL         *string
	Budget            *int64
	Revenue           *int64
	ReleaseDate       *time.Time
	DurationInMinutes *int
	Genres            []string
}

// MovieUpdateParams bundles the optional fields of a movie update. Nil
// fields keep their current value.
type MovieUpdateParams struct {
	Title             *string
	OriginalTitle     *string
	Language          *string
	Synopsis          *string
	Situation         *models.MovieSituation
	Popularity        *float64
	TrailerURL        *string
	PosterURL         *string
	Budget            *int64
	Revenue           *int64
	ReleaseDate       *time.Time
	DurationInMinutes *int
	Genres            []string
}

// MovieListFilters encapsulates search and pagination options. Range
// filters (duration, release date) apply only when both ends are set.
type MovieListFilters struct {
	Search        string
	Situation     *models.MovieSituation
	Genre         *string
	DurationStart *int
	DurationEnd   *int
	ReleaseStart  *time.Time
	ReleaseEnd    *time.Time
	Page          int
	ItemsPerPage  int
}

// MovieListResult is the paginated payload.
type MovieListResult struct {
	Items      []models.Movie
	Total      int64
	Page       int
	TotalPages int64
}

// Create inserts a movie and returns the stored entity. An active movie
// with the same title yields ErrDuplicate.
func (r *MoviesRepository) Create(ctx context.Context, params MovieCreateParams) (models.Movie, error) {
	started := time.Now()
	situation := params.Situation
	if situation == "" {
		situation = models.SituationUpcoming
	}
	genres := params.Genres
	if genres == nil {
		genres = []string{}
	}

	query := fmt.Sprintf(`
		INSERT INTO movies (
			title, original_title, language, synopsis, situation, popularity,
			trailer_url, poster_url, budget, revenue, release_date,
			duration_in_minutes, genre
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING %s
	`, movieColumns)

	row := r.pool.QueryRow(ctx, query,
		params.Title, params.OriginalTitle, params.Language, params.Synopsis,
		situation, params.Popularity, params.TrailerURL, params.PosterURL,
		params.Budget, params.Revenue, params.ReleaseDate,
		params.DurationInMinutes, genres)

	movie, err := scanMovie(row)
	metrics.RecordDBQuery("INSERT", "movies", time.Since(started), err)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Movie{}, ErrDuplicate
		}
		return models.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	return movie, nil
}

// GetByID fetches an active movie by its identifier.
func (r *MoviesRepository) GetByID(ctx context.Context, id string) (models.Movie, error) {
	query := fmt.Sprintf(`SELECT %s FROM movies WHERE id = $1 AND deleted_at IS NULL`, movieColumns)
	movie, err := scanMovie(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		return models.Movie{}, fmt.Errorf("get movie: %w", err)
	}
	return movie, nil
}

// List returns active movies matching the filters, ordered by title
// ascending, plus the total count before pagination.
func (r *MoviesRepository) List(ctx context.Context, filters MovieListFilters) (MovieListResult, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.ItemsPerPage < 1 {
		filters.ItemsPerPage = 10
	}

	where, args := buildMovieWhere(filters)

	countQuery := "SELECT COUNT(*) FROM movies" + where
	var total int64
	started := time.Now()
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	metrics.RecordDBQuery("SELECT", "movies", time.Since(started), err)
	if err != nil {
		return MovieListResult{}, fmt.Errorf("count movies: %w", err)
	}

	offset := (filters.Page - 1) * filters.ItemsPerPage
	listQuery := fmt.Sprintf("SELECT %s FROM movies%s ORDER BY title ASC LIMIT %d OFFSET %d",
		movieColumns, where, filters.ItemsPerPage, offset)

	started = time.Now()
	rows, err := r.pool.Query(ctx, listQuery, args...)
	metrics.RecordDBQuery("SELECT", "movies", time.Since(started), err)
	if err != nil {
		return MovieListResult{}, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	items := make([]models.Movie, 0, filters.ItemsPerPage)
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return MovieListResult{}, fmt.Errorf("scan movie: %w", err)
		}
		items = append(items, movie)
	}
	if err := rows.Err(); err != nil {
		return MovieListResult{}, err
	}

	totalPages := (total + int64(filters.ItemsPerPage) - 1) / int64(filters.ItemsPerPage)
	return MovieListResult{
		Items:      items,
		Total:      total,
		Page:       filters.Page,
		TotalPages: totalPages,
	}, nil
}

// buildMovieWhere constructs the WHERE clause and args for List. Split out
// so the dynamic SQL can be tested without a database.
func buildMovieWhere(filters MovieListFilters) (string, []interface{}) {
	where := []string{"deleted_at IS NULL"}
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + search + "%"
		p1, p2, p3 := arg(pattern), arg(pattern), arg(pattern)
		where = append(where, fmt.Sprintf(
			"(title ILIKE %s OR original_title ILIKE %s OR synopsis ILIKE %s)", p1, p2, p3))
	}
	if filters.Situation != nil {
		where = append(where, fmt.Sprintf("situation = %s", arg(string(*filters.Situation))))
	}
	if filters.Genre != nil && strings.TrimSpace(*filters.Genre) != "" {
		where = append(where, fmt.Sprintf("%s = ANY(genre)", arg(strings.TrimSpace(*filters.Genre))))
	}
	if filters.DurationStart != nil && filters.DurationEnd != nil {
		where = append(where, fmt.Sprintf("duration_in_minutes >= %s", arg(*filters.DurationStart)))
		where = append(where, fmt.Sprintf("duration_in_minutes <= %s", arg(*filters.DurationEnd)))
	}
	if filters.ReleaseStart != nil && filters.ReleaseEnd != nil {
		where = append(where, fmt.Sprintf("release_date >= %s", arg(*filters.ReleaseStart)))
		where = append(where, fmt.Sprintf("release_date <= %s", arg(*filters.ReleaseEnd)))
	}

	return " WHERE " + strings.Join(where, " AND "), args
}

// Update modifies the provided fields of an active movie and returns the
// stored entity. A nil Genres slice keeps the current genres.
func (r *MoviesRepository) Update(ctx context.Context, id string, params MovieUpdateParams) (models.Movie, error) {
	query := fmt.Sprintf(`
		UPDATE movies
		SET title = COALESCE($2, title),
			original_title = COALESCE($3, original_title),
			language = COALESCE($4, language),
			synopsis = COALESCE($5, synopsis),
			situation = COALESCE($6, situation),
			popularity = COALESCE($7, popularity),
			trailer_url = COALESCE($8, trailer_url),
			poster_url = COALESCE($9, poster_url),
			budget = COALESCE($10, budget),
			revenue = COALESCE($11, revenue),
			release_date = COALESCE($12, release_date),
			duration_in_minutes = COALESCE($13, duration_in_minutes),
			genre = COALESCE($14, genre),
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING %s
	`, movieColumns)

	var situation *string
	if params.Situation != nil {
		s := string(*params.Situation)
		situation = &s
	}

	started := time.Now()
	row := r.pool.QueryRow(ctx, query, id,
		params.Title, params.OriginalTitle, params.Language, params.Synopsis,
		situation, params.Popularity, params.TrailerURL, params.PosterURL,
		params.Budget, params.Revenue, params.ReleaseDate,
		params.DurationInMinutes, params.Genres)

	movie, err := scanMovie(row)
	metrics.RecordDBQuery("UPDATE", "movies", time.Since(started), err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Movie{}, ErrNotFound
		}
		if isUniqueViolation(err) {
			return models.Movie{}, ErrDuplicate
		}
		return models.Movie{}, fmt.Errorf("update movie: %w", err)
	}
	return movie, nil
}

// SoftDelete marks a movie as deleted. Deleted movies disappear from every
// read path, including the release digest.
func (r *MoviesRepository) SoftDelete(ctx context.Context, id string) error {
	started := time.Now()
	tag, err := r.pool.Exec(ctx,
		`UPDATE movies SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	metrics.RecordDBQuery("UPDATE", "movies", time.Since(started), err)
	if err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyRating folds a rating submission into a movie's aggregate under
// optimistic concurrency: the write only lands if rating_version is
// unchanged since the read, otherwise the read-apply-write is retried.
func (r *MoviesRepository) ApplyRating(ctx context.Context, id string, sub rating.Submission) (models.Movie, error) {
	for attempt := 0; attempt < ratingUpdateAttempts; attempt++ {
		var current rating.State
		var version int64
		err := r.pool.QueryRow(ctx,
			`SELECT votes_quantity, rating_percentage, rating_version
			 FROM movies WHERE id = $1 AND deleted_at IS NULL`, id).
			Scan(&current.Votes, &current.Percentage, &version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.Movie{}, ErrNotFound
			}
			return models.Movie{}, fmt.Errorf("read rating state: %w", err)
		}

		next, err := rating.Apply(current, sub)
		if err != nil {
			metrics.RecordRatingRejection(err)
			return models.Movie{}, err
		}

		tag, err := r.pool.Exec(ctx,
			`UPDATE movies
			 SET votes_quantity = $2,
				 rating_percentage = $3,
				 rating_version = rating_version + 1,
				 updated_at = now()
			 WHERE id = $1 AND rating_version = $4 AND deleted_at IS NULL`,
			id, next.Votes, next.Percentage, version)
		if err != nil {
			return models.Movie{}, fmt.Errorf("write rating state: %w", err)
		}
		if tag.RowsAffected() == 1 {
			metrics.RatingsApplied.Inc()
			return r.GetByID(ctx, id)
		}

		// Lost the race; another submission landed first.
		metrics.RatingRetries.Inc()
	}

	metrics.RatingsRejected.WithLabelValues("conflict").Inc()
	return models.Movie{}, ErrConcurrentUpdate
}

// MoviesReleasedBetween returns the digest projection of active movies whose
// release date falls within [start, end], ordered by title ascending.
func (r *MoviesRepository) MoviesReleasedBetween(ctx context.Context, start, end time.Time) ([]digest.Item, error) {
	started := time.Now()
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, genre, situation, release_date, votes_quantity, rating_percentage,
			   COALESCE(poster_url, '')
		FROM movies
		WHERE deleted_at IS NULL AND release_date >= $1 AND release_date <= $2
		ORDER BY title ASC
	`, start, end)
	metrics.RecordDBQuery("SELECT", "movies", time.Since(started), err)
	if err != nil {
		return nil, fmt.Errorf("query released movies: %w", err)
	}
	defer rows.Close()

	var items []digest.Item
	for rows.Next() {
		var (
			item       digest.Item
			votes      int64
			percentage float64
		)
		err := rows.Scan(&item.ID, &item.Title, &item.Genres, &item.Situation,
			&item.ReleaseDate, &votes, &percentage, &item.PosterURL)
		if err != nil {
			return nil, fmt.Errorf("scan released movie: %w", err)
		}
		// An unrated movie carries no rating line in the digest.
		if votes > 0 {
			item.RatingPercentage = &percentage
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanMovie(row pgx.Row) (models.Movie, error) {
	var m models.Movie
	err := row.Scan(
		&m.ID,
		&m.Title,
		&m.OriginalTitle,
		&m.Language,
		&m.Synopsis,
		&m.Situation,
		&m.Popularity,
		&m.VotesQuantity,
		&m.RatingPercentage,
		&m.RatingVersion,
		&m.TrailerURL,
		&m.PosterURL,
		&m.Budget,
		&m.Revenue,
		&m.ReleaseDate,
		&m.DurationInMinutes,
		&m.Genres,
		&m.CreatedAt,
		&m.UpdatedAt,
		&m.DeletedAt,
	)
	if err != nil {
		return models.Movie{}, err
	}
	return m, nil
}
