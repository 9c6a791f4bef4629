package sheets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"offerdesk/internal/models"
)

// ErrInvalidIndex is returned for a negative or out-of-range row position
var ErrInvalidIndex = errors.New("invalid row index")

const (
	offerColumns  = 6 // A..F
	postColumns   = 7 // A..G
	configColumns = 2 // A..B
)

// SheetNames are the titles of the three tables
type SheetNames struct {
	Offers   string
	Schedule string
	Config   string
}

// Gateway maps the spreadsheet tables to typed records. Row identity is
// positional: data index i lives on sheet row i+2 under the header.
type Gateway struct {
	store          ValueStore
	names          SheetNames
	onUnauthorized func(context.Context)
}

// NewGateway creates a gateway. onUnauthorized, when not nil, is called
// each time Google rejects the access token.
func NewGateway(store ValueStore, names SheetNames, onUnauthorized func(context.Context)) *Gateway {
	return &Gateway{store: store, names: names, onUnauthorized: onUnauthorized}
}

// ReadOffers returns all loan offers
func (g *Gateway) ReadOffers(ctx context.Context) ([]models.LoanOffer, error) {
	rows, err := g.readTable(ctx, g.names.Offers, "A:F", offerColumns)
	if err != nil {
		return nil, err
	}
	offers := make([]models.LoanOffer, 0, len(rows))
	for _, row := range rows {
		offers = append(offers, models.LoanOffer{
			ID:          row[0],
			Name:        row[1],
			Type:        row[2],
			AffLink:     row[3],
			Status:      row[4],
			Description: row[5],
		})
	}
	return offers, nil
}

// AppendOffer assigns the next sequential id and appends the offer. The id
// is derived from the current row count, so concurrent appends may collide.
func (g *Gateway) AppendOffer(ctx context.Context, offer models.LoanOffer) (models.LoanOffer, error) {
	existing, err := g.ReadOffers(ctx)
	if err != nil {
		return models.LoanOffer{}, err
	}
	offer.ID = strconv.Itoa(len(existing) + 1)

	rng := a1(g.names.Offers, "A:F")
	if err := g.check(ctx, g.store.Append(ctx, rng, [][]interface{}{offer.Row()})); err != nil {
		return models.LoanOffer{}, err
	}
	return offer, nil
}

// ReadPosts returns all scheduled posts in sheet order
func (g *Gateway) ReadPosts(ctx context.Context) ([]models.ScheduledPost, error) {
	rows, err := g.readTable(ctx, g.names.Schedule, "A:G", postColumns)
	if err != nil {
		return nil, err
	}
	posts := make([]models.ScheduledPost, 0, len(rows))
	for _, row := range rows {
		posts = append(posts, models.ScheduledPost{
			Date:       row[0],
			Time:       row[1],
			Content:    row[2],
			ButtonLink: row[3],
			ImageLink:  row[4],
			Status:     row[5],
			ExactTime:  row[6],
		})
	}
	return posts, nil
}

// AppendPost adds a post at the end of the schedule
func (g *Gateway) AppendPost(ctx context.Context, post models.ScheduledPost) error {
	rng := a1(g.names.Schedule, "A:G")
	return g.check(ctx, g.store.Append(ctx, rng, [][]interface{}{post.Row()}))
}

// UpdatePost overwrites the post at index
func (g *Gateway) UpdatePost(ctx context.Context, index int, post models.ScheduledPost) error {
	if index < 0 {
		return ErrInvalidIndex
	}
	row := index + 2
	rng := a1(g.names.Schedule, fmt.Sprintf("A%d:G%d", row, row))
	return g.check(ctx, g.store.Write(ctx, rng, [][]interface{}{post.Row()}))
}

// DeletePost removes the post at index; later posts shift up
func (g *Gateway) DeletePost(ctx context.Context, index int) error {
	if index < 0 {
		return ErrInvalidIndex
	}
	return g.check(ctx, g.store.DeleteRow(ctx, g.names.Schedule, int64(index)+1))
}

// WritePosts replaces the whole schedule
func (g *Gateway) WritePosts(ctx context.Context, posts []models.ScheduledPost) error {
	rows := make([][]interface{}, 0, len(posts))
	for _, post := range posts {
		rows = append(rows, post.Row())
	}
	return g.replaceTable(ctx, g.names.Schedule, "A:G", "A", "G", postColumns, rows)
}

// ReadConfig returns the key/value rows of the config sheet
func (g *Gateway) ReadConfig(ctx context.Context) ([]models.ConfigItem, error) {
	rows, err := g.readTable(ctx, g.names.Config, "A:B", configColumns)
	if err != nil {
		return nil, err
	}
	items := make([]models.ConfigItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.ConfigItem{Key: row[0], Value: row[1]})
	}
	return items, nil
}

// WriteConfig replaces the config rows below the header
func (g *Gateway) WriteConfig(ctx context.Context, items []models.ConfigItem) error {
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.Row())
	}
	return g.replaceTable(ctx, g.names.Config, "A:B", "A", "B", configColumns, rows)
}

// readTable reads a table, drops the header row and pads every row to width
func (g *Gateway) readTable(ctx context.Context, sheet, cols string, width int) ([][]string, error) {
	values, err := g.store.Read(ctx, a1(sheet, cols))
	if err := g.check(ctx, err); err != nil {
		return nil, err
	}
	if len(values) <= 1 {
		return nil, nil
	}

	rows := make([][]string, 0, len(values)-1)
	for _, raw := range values[1:] {
		row := make([]string, width)
		for i := 0; i < width && i < len(raw); i++ {
			row[i] = cellString(raw[i])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// replaceTable writes rows from sheet row 2 and clears rows left over from a
// longer previous table.
func (g *Gateway) replaceTable(ctx context.Context, sheet, cols, first, last string, width int, rows [][]interface{}) error {
	existing, err := g.readTable(ctx, sheet, cols, width)
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		rng := a1(sheet, fmt.Sprintf("%s2:%s", first, last))
		if err := g.check(ctx, g.store.Write(ctx, rng, rows)); err != nil {
			return err
		}
	}

	if len(existing) > len(rows) {
		start := len(rows) + 2
		end := len(existing) + 1
		rng := a1(sheet, fmt.Sprintf("%s%d:%s%d", first, start, last, end))
		if err := g.check(ctx, g.store.Clear(ctx, rng)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) check(ctx context.Context, err error) error {
	if errors.Is(err, ErrUnauthorized) && g.onUnauthorized != nil {
		g.onUnauthorized(ctx)
	}
	return err
}

func cellString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		return fmt.Sprint(value)
	}
}

// a1 builds an A1 range, quoting sheet titles that need it
func a1(sheet, cells string) string {
	for _, r := range sheet {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
		}
	}
	return sheet + "!" + cells
}
