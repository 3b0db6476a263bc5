package views

import (
	"strconv"
	"strings"

	"github.com/vidtube/backend/internal/apperr"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a window of a listing. Page numbers start at 1.
type Page struct {
	Number int
	Limit  int
}

// Offset returns the number of rows preceding the page.
func (p Page) Offset() int { return (p.Number - 1) * p.Limit }

// ParsePage reads page and limit query parameters. Missing values take the
// defaults and limits above MaxPageSize are clamped.
func ParsePage(rawPage, rawLimit string) (Page, error) {
	page := Page{Number: 1, Limit: DefaultPageSize}

	if rawPage = strings.TrimSpace(rawPage); rawPage != "" {
		n, err := strconv.Atoi(rawPage)
		if err != nil || n < 1 {
			return Page{}, apperr.Validation("page must be a positive integer")
		}
		page.Number = n
	}
	if rawLimit = strings.TrimSpace(rawLimit); rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			return Page{}, apperr.Validation("limit must be a positive integer")
		}
		page.Limit = min(n, MaxPageSize)
	}
	return page, nil
}

func totalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// paginate sets the page totals from the number of matching videos.
func (p *VideoPage) paginate(total int64) {
	p.TotalVideos = total
	p.TotalPages = totalPages(total, p.Limit)
	p.HasNextPage = p.Page < p.TotalPages
}

var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"updatedAt": "v.updated_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

// VideoListQuery filters and orders the public video listing.
type VideoListQuery struct {
	Page     Page
	Search   string
	SortBy   string
	SortType string
	OwnerID  string
}

// args accumulates positional parameters for a statement.
type args []any

func (a *args) add(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// escapeLike escapes the LIKE metacharacters in a user-supplied search term.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func (q VideoListQuery) orderBy() (string, error) {
	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = "createdAt"
	}
	column, ok := videoSortColumns[sortBy]
	if !ok {
		return "", apperr.Validation("sortBy must be one of createdAt, updatedAt, views, duration, title")
	}

	direction := "DESC"
	switch strings.ToLower(q.SortType) {
	case "", "desc":
	case "asc":
		direction = "ASC"
	default:
		return "", apperr.Validation("sortType must be asc or desc")
	}
	return column + " " + direction + ", v.id " + direction, nil
}

// where renders the listing predicates. Videos are visible when published or
// owned by the viewer.
func (q VideoListQuery) where(viewerID string, a *args) string {
	clauses := []string{"(v.is_published OR v.owner_id = " + a.add(nullableID(viewerID)) + ")"}
	if q.OwnerID != "" {
		clauses = append(clauses, "v.owner_id = "+a.add(q.OwnerID))
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		p := a.add("%" + escapeLike(term) + "%")
		clauses = append(clauses, "(v.title ILIKE "+p+" OR v.description ILIKE "+p+")")
	}
	return strings.Join(clauses, " AND ")
}

// buildVideoList renders the page query and its arguments.
func buildVideoList(q VideoListQuery, viewerID string) (string, []any, error) {
	order, err := q.orderBy()
	if err != nil {
		return "", nil, err
	}

	var a args
	where := q.where(viewerID, &a)
	limit := a.add(q.Page.Limit)
	offset := a.add(q.Page.Offset())

	sql := `SELECT ` + videoSummaryColumns + `, COUNT(*) OVER()
        FROM videos v
        JOIN accounts o ON o.id = v.owner_id
        WHERE ` + where + `
        ORDER BY ` + order + `
        LIMIT ` + limit + ` OFFSET ` + offset
	return sql, a, nil
}

// buildVideoCount renders a count over the same predicates, used when the
// requested page lies past the last row.
func buildVideoCount(q VideoListQuery, viewerID string) (string, []any) {
	var a args
	where := q.where(viewerID, &a)
	return `SELECT COUNT(*) FROM videos v WHERE ` + where, a
}

func nullableID(id string) any {
	if id == "" {
		return nil
	}
	return id
}
