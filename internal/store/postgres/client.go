package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/store"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/pkg/logger"
)

var (
	// ErrLodgeNotFound covers zero matches and ambiguous matches alike:
	// both mean the caller could not be pointed at exactly one lodge.
	ErrLodgeNotFound = errors.New("lodge not found")
	ErrTopicNotFound = errors.New("knowledge topic not found")
	// ErrBadPredicate is returned for predicates over columns the query
	// layer does not expose for filtering.
	ErrBadPredicate = errors.New("invalid filter predicate")
)

var lodgeFilterColumns = map[string]bool{
	"malaria_zone":        true,
	"communal_pool":       true,
	"spa":                 true,
	"family_friendly":     true,
	"photography_focused": true,
	"key_wildlife":        true,
	"ideal_for":           true,
	"activities_included": true,
	"activities_optional": true,
	"vibe":                true,
	"style":               true,
	"luxury_tier":         true,
}

var roomFilterColumns = map[string]bool{
	"private_pool":   true,
	"family_suite":   true,
	"outdoor_shower": true,
	"description":    true,
}

const lodgeColumns = `id, name, country, region, vibe, style, luxury_tier,
	malaria_zone, communal_pool, spa, family_friendly, photography_focused,
	rooms_total, airport_transfer_minutes, key_wildlife, ideal_for,
	activities_included, activities_optional`

const lodgeSummaryColumns = `id, name, country, region, vibe, style, luxury_tier,
	family_friendly, rooms_total, airport_transfer_minutes`

const roomColumns = `r.id, r.lodge_id, l.name AS lodge_name, r.name, r.description,
	r.available_count, r.private_pool, r.family_suite, r.outdoor_shower`

type Client struct {
	db *sqlx.DB
}

func NewClient(dsn string, maxOpenConns, maxIdleConns int) (*Client, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	logger.Info("Postgres client initialized",
		zap.Int("max_open_conns", maxOpenConns),
	)

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// ResolveLodgeByName maps a free-text lodge reference to exactly one id.
// The query is stripped to alphanumerics and spaces, then matched as a
// case-insensitive contains pattern. Zero or multiple hits are both
// ErrLodgeNotFound.
func (c *Client) ResolveLodgeByName(ctx context.Context, name string) (int64, error) {
	cleaned := sanitizeName(name)
	if cleaned == "" {
		return 0, ErrLodgeNotFound
	}

	var ids []int64
	err := c.db.SelectContext(ctx, &ids,
		`SELECT id FROM lodges WHERE name ILIKE $1 ORDER BY name`,
		"%"+cleaned+"%",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve lodge name: %w", err)
	}

	if len(ids) != 1 {
		logger.Debug("Lodge name did not resolve uniquely",
			zap.String("query", cleaned),
			zap.Int("matches", len(ids)),
		)
		return 0, ErrLodgeNotFound
	}

	return ids[0], nil
}

func (c *Client) GetLodge(ctx context.Context, id int64) (*models.Lodge, error) {
	var lodge models.Lodge
	err := c.db.GetContext(ctx, &lodge,
		fmt.Sprintf(`SELECT %s FROM lodges WHERE id = $1`, lodgeColumns), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLodgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lodge: %w", err)
	}
	return &lodge, nil
}

func (c *Client) GetLodgeSummary(ctx context.Context, id int64) (*models.LodgeSummary, error) {
	var summary models.LodgeSummary
	err := c.db.GetContext(ctx, &summary,
		fmt.Sprintf(`SELECT %s FROM lodges WHERE id = $1`, lodgeSummaryColumns), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLodgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lodge summary: %w", err)
	}
	return &summary, nil
}

// ListLodges returns lodges ordered by name; an empty country lists all.
func (c *Client) ListLodges(ctx context.Context, country string) ([]models.LodgeSummary, error) {
	query := fmt.Sprintf(`SELECT %s FROM lodges`, lodgeSummaryColumns)
	args := []interface{}{}

	if country != "" {
		query += ` WHERE country = $1`
		args = append(args, country)
	}
	query += ` ORDER BY name`

	var lodges []models.LodgeSummary
	if err := c.db.SelectContext(ctx, &lodges, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list lodges: %w", err)
	}
	return lodges, nil
}

func (c *Client) FilterLodges(ctx context.Context, pred store.Predicate) ([]models.LodgeSummary, error) {
	if !lodgeFilterColumns[pred.Column] {
		return nil, fmt.Errorf("%w: lodge column %q", ErrBadPredicate, pred.Column)
	}

	fragment, args, err := pred.Fragment(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPredicate, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM lodges WHERE %s ORDER BY name`,
		lodgeSummaryColumns, fragment)

	var lodges []models.LodgeSummary
	if err := c.db.SelectContext(ctx, &lodges, query, args...); err != nil {
		return nil, fmt.Errorf("failed to filter lodges: %w", err)
	}
	return lodges, nil
}

func (c *Client) ListRoomTypes(ctx context.Context, lodgeID int64) ([]models.RoomType, error) {
	query := fmt.Sprintf(`SELECT %s FROM room_types r
		JOIN lodges l ON l.id = r.lodge_id
		WHERE r.lodge_id = $1 ORDER BY r.name`, roomColumns)

	var rooms []models.RoomType
	if err := c.db.SelectContext(ctx, &rooms, query, lodgeID); err != nil {
		return nil, fmt.Errorf("failed to list room types: %w", err)
	}
	return rooms, nil
}

// FilterRoomTypes filters rooms across all lodges; results carry the
// parent lodge name and are ordered by lodge then room for stable
// grouped output.
func (c *Client) FilterRoomTypes(ctx context.Context, pred store.Predicate) ([]models.RoomType, error) {
	if !roomFilterColumns[pred.Column] {
		return nil, fmt.Errorf("%w: room column %q", ErrBadPredicate, pred.Column)
	}

	qualified := pred
	qualified.Column = "r." + pred.Column
	fragment, args, err := qualified.Fragment(1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPredicate, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM room_types r
		JOIN lodges l ON l.id = r.lodge_id
		WHERE %s ORDER BY l.name, r.name`, roomColumns, fragment)

	var rooms []models.RoomType
	if err := c.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("failed to filter room types: %w", err)
	}
	return rooms, nil
}

func (c *Client) GetKnowledgeEntry(ctx context.Context, topic string) (*models.KnowledgeEntry, error) {
	var entry models.KnowledgeEntry
	err := c.db.GetContext(ctx, &entry,
		`SELECT topic, content, keywords FROM knowledge_base WHERE topic = $1`, topic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTopicNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge entry: %w", err)
	}
	return &entry, nil
}

// SearchKnowledge returns entries whose keyword set overlaps the given
// keywords, ordered by topic and capped at limit.
func (c *Client) SearchKnowledge(ctx context.Context, keywords []string, limit int) ([]models.KnowledgeEntry, error) {
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	var entries []models.KnowledgeEntry
	err := c.db.SelectContext(ctx, &entries,
		`SELECT topic, content, keywords FROM knowledge_base
		 WHERE keywords && $1 ORDER BY topic LIMIT $2`,
		pq.StringArray(keywords), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge base: %w", err)
	}
	return entries, nil
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
