// Package retrieval assembles the grounding context passed to the
// generation service when no action produced a reply. It tries a lodge
// entity match first and degrades to keyword search over the knowledge
// base; it never returns an empty context and never returns an error.
package retrieval

import (
	"context"
	"fmt"
	"strings"

	prose "github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/catalog"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/pkg/logger"
)

// NoContextPlaceholder is handed to the model verbatim when nothing
// matched. It has to be an explicit statement, not an empty string, so
// the model does not fabricate specifics.
const NoContextPlaceholder = "No specific information was found in the knowledge base for this query. " +
	"Answer from general safari knowledge, be upfront that you don't have lodge-specific details, " +
	"and invite the guest to contact our travel specialists."

type Store interface {
	ResolveLodgeByName(ctx context.Context, name string) (int64, error)
	GetLodgeSummary(ctx context.Context, id int64) (*models.LodgeSummary, error)
	ListRoomTypes(ctx context.Context, lodgeID int64) ([]models.RoomType, error)
	SearchKnowledge(ctx context.Context, keywords []string, limit int) ([]models.KnowledgeEntry, error)
}

type Retriever struct {
	store          Store
	lodges         []catalog.LodgeName
	stopWords      map[string]bool
	minLength      int
	knowledgeLimit int
}

func NewRetriever(st Store, cat *catalog.Catalog, minLength, knowledgeLimit int) *Retriever {
	if minLength <= 0 {
		minLength = 80
	}
	if knowledgeLimit <= 0 {
		knowledgeLimit = 5
	}
	return &Retriever{
		store:          st,
		lodges:         cat.Lodges,
		stopWords:      cat.StopWordSet(),
		minLength:      minLength,
		knowledgeLimit: knowledgeLimit,
	}
}

// Retrieve builds the context passage for a message. All failures
// degrade: entity passage too thin falls through to keyword search,
// and keyword search failures fall through to the placeholder.
func (r *Retriever) Retrieve(ctx context.Context, message string) string {
	if display, found := r.findLodge(message); found {
		passage := r.lodgePassage(ctx, display)
		if len(passage) >= r.minLength {
			return passage
		}
		logger.Debug("Lodge passage below minimum usable length, using general search",
			zap.String("lodge", display),
			zap.Int("length", len(passage)),
		)
	}

	return r.generalPassage(ctx, message)
}

// findLodge scans for known name variants; first variant found wins.
func (r *Retriever) findLodge(message string) (string, bool) {
	text := strings.ToLower(message)
	for _, lodge := range r.lodges {
		for _, variant := range lodge.Variants {
			if strings.Contains(text, variant) {
				return lodge.Display, true
			}
		}
	}
	return "", false
}

func (r *Retriever) lodgePassage(ctx context.Context, display string) string {
	id, err := r.store.ResolveLodgeByName(ctx, display)
	if err != nil {
		logger.Warn("Known lodge variant failed to resolve",
			zap.String("lodge", display),
			zap.Error(err),
		)
		return ""
	}

	lodge, err := r.store.GetLodgeSummary(ctx, id)
	if err != nil {
		logger.Warn("Lodge summary lookup failed during retrieval",
			zap.Int64("lodge_id", id),
			zap.Error(err),
		)
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Lodge: %s\n", lodge.Name)
	fmt.Fprintf(&b, "Location: %s, %s\n", lodge.Region, lodge.Country)
	if lodge.Vibe != "" {
		fmt.Fprintf(&b, "Vibe: %s\n", lodge.Vibe)
	}
	if lodge.Style != "" {
		fmt.Fprintf(&b, "Style: %s\n", lodge.Style)
	}
	if lodge.LuxuryTier != "" {
		fmt.Fprintf(&b, "Luxury tier: %s\n", lodge.LuxuryTier)
	}
	fmt.Fprintf(&b, "Family friendly: %t\n", lodge.FamilyFriendly)
	fmt.Fprintf(&b, "Total rooms: %d\n", lodge.RoomsTotal)
	if lodge.TransferMinutes.Valid {
		fmt.Fprintf(&b, "Airstrip transfer: %d minutes\n", lodge.TransferMinutes.Int64)
	}

	rooms, err := r.store.ListRoomTypes(ctx, id)
	if err != nil {
		logger.Warn("Room type lookup failed during retrieval",
			zap.Int64("lodge_id", id),
			zap.Error(err),
		)
	}
	for _, room := range rooms {
		fmt.Fprintf(&b, "Room type: %s — %s\n", room.Name, room.Description)
	}

	return strings.TrimRight(b.String(), "\n")
}

func (r *Retriever) generalPassage(ctx context.Context, message string) string {
	keywords := r.ExtractKeywords(message)
	if len(keywords) == 0 {
		return NoContextPlaceholder
	}

	entries, err := r.store.SearchKnowledge(ctx, keywords, r.knowledgeLimit)
	if err != nil {
		logger.Warn("Knowledge base search failed during retrieval",
			zap.Strings("keywords", keywords),
			zap.Error(err),
		)
		return NoContextPlaceholder
	}
	if len(entries) == 0 {
		return NoContextPlaceholder
	}

	var b strings.Builder
	for _, entry := range entries {
		fmt.Fprintf(&b, "Topic: %s\n%s\n\n", entry.Topic, entry.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ExtractKeywords tokenizes the message and drops stop words, short
// words and punctuation, returning deduplicated lowercase keywords.
func (r *Retriever) ExtractKeywords(message string) []string {
	var words []string

	doc, err := prose.NewDocument(message,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		logger.Warn("Tokenizer failed, splitting on whitespace", zap.Error(err))
		words = strings.Fields(message)
	} else {
		for _, tok := range doc.Tokens() {
			words = append(words, tok.Text)
		}
	}

	seen := make(map[string]bool)
	var keywords []string
	for _, word := range words {
		w := strings.ToLower(strings.Trim(word, ".,!?;:'\"()-"))
		if len(w) <= 2 || r.stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		keywords = append(keywords, w)
	}
	return keywords
}
