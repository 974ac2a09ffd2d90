// Package actions turns a matched intent into a finished reply built
// from structured data, or signals the pipeline to fall through to
// retrieval-augmented generation.
package actions

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/internal/intent"
	"github.com/matalai-travel/chat-backend/internal/store"
	"github.com/matalai-travel/chat-backend/internal/store/models"
	"github.com/matalai-travel/chat-backend/internal/store/postgres"
	"github.com/matalai-travel/chat-backend/pkg/logger"
)

// Store is the read-only lookup surface the executor needs.
type Store interface {
	ResolveLodgeByName(ctx context.Context, name string) (int64, error)
	GetLodge(ctx context.Context, id int64) (*models.Lodge, error)
	ListLodges(ctx context.Context, country string) ([]models.LodgeSummary, error)
	FilterLodges(ctx context.Context, pred store.Predicate) ([]models.LodgeSummary, error)
	ListRoomTypes(ctx context.Context, lodgeID int64) ([]models.RoomType, error)
	FilterRoomTypes(ctx context.Context, pred store.Predicate) ([]models.RoomType, error)
	GetKnowledgeEntry(ctx context.Context, topic string) (*models.KnowledgeEntry, error)
}

// Diagnostic codes carried in apologetic replies so support can find
// the matching server-side log line without the reply leaking internals.
const (
	codeList   = "CHAT-LIST"
	codeFilter = "CHAT-FILTER"
	codeDetail = "CHAT-DETAIL"
	codeAction = "CHAT-ACTION"
)

const enquiryCTA = "For availability and rates, our travel specialists at enquiries@matalai.travel will gladly help."

type handlerFunc func(ctx context.Context, spec Spec) (string, bool)

type Executor struct {
	store    Store
	handlers map[Kind]handlerFunc
}

func NewExecutor(st Store) *Executor {
	e := &Executor{store: st}
	e.handlers = map[Kind]handlerFunc{
		KindKnowledge:    e.handleKnowledge,
		KindListLodges:   e.handleListLodges,
		KindFilterLodges: e.handleFilterLodges,
		KindFilterRooms:  e.handleFilterRooms,
		KindLodgeDetail:  e.handleLodgeDetail,
	}
	return e
}

// Execute dispatches a matched action. ok=false means no handler could
// produce a usable reply and the pipeline should fall through to
// context retrieval; every such fallthrough is logged with its reason.
func (e *Executor) Execute(ctx context.Context, id intent.ActionID, message string) (reply string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Action handler panicked",
				zap.String("action", string(id)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			reply = apology(codeAction)
			ok = true
		}
	}()

	spec, parsed := ParseSpec(id)
	if !parsed {
		logger.Warn("Matched action has no parseable spec, falling through",
			zap.String("action", string(id)),
		)
		return "", false
	}

	handler := e.handlers[spec.Kind]
	if handler == nil {
		logger.Warn("No handler registered for action kind, falling through",
			zap.String("action", string(id)),
			zap.String("kind", spec.Kind.String()),
		)
		return "", false
	}

	logger.Debug("Executing action",
		zap.String("action", string(id)),
		zap.String("kind", spec.Kind.String()),
	)

	return handler(ctx, spec)
}

// handleKnowledge answers from a single knowledge-base entry. A miss is
// a fallthrough, not an error: the generation path may still do better.
func (e *Executor) handleKnowledge(ctx context.Context, spec Spec) (string, bool) {
	entry, err := e.store.GetKnowledgeEntry(ctx, spec.Topic)
	if err != nil {
		logger.Info("Knowledge topic unavailable, falling through",
			zap.String("topic", spec.Topic),
			zap.Error(err),
		)
		return "", false
	}
	return entry.Content, true
}

func (e *Executor) handleListLodges(ctx context.Context, spec Spec) (string, bool) {
	lodges, err := e.store.ListLodges(ctx, spec.Country)
	if err != nil {
		logger.Error("Lodge listing query failed",
			zap.String("country", spec.Country),
			zap.Error(err),
		)
		return apology(codeList), true
	}

	where := "across our collection"
	if spec.Country != "" {
		where = "in " + spec.Country
	}

	if len(lodges) == 0 {
		return fmt.Sprintf("We don't currently have any lodges %s, but our collection is always growing. %s", where, enquiryCTA), true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Okay, here are our lodges %s:\n", where)
	for _, lodge := range lodges {
		fmt.Fprintf(&b, "- %s (%s)\n", lodge.Name, lodge.Region)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func (e *Executor) handleFilterLodges(ctx context.Context, spec Spec) (string, bool) {
	lodges, err := e.store.FilterLodges(ctx, spec.Predicate)
	if err != nil {
		logger.Error("Lodge filter query failed",
			zap.String("label", spec.Label),
			zap.Error(err),
		)
		return apology(codeFilter), true
	}

	if len(lodges) == 0 {
		return fmt.Sprintf("I couldn't find any %s in our collection right now. %s", spec.Label, enquiryCTA), true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Okay, here are our %s:\n", spec.Label)
	for _, lodge := range lodges {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", lodge.Name, lodge.Region, lodge.Country)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

// handleFilterRooms formats room matches grouped by lodge, since one
// feature query usually spans several properties.
func (e *Executor) handleFilterRooms(ctx context.Context, spec Spec) (string, bool) {
	rooms, err := e.store.FilterRoomTypes(ctx, spec.Predicate)
	if err != nil {
		logger.Error("Room filter query failed",
			zap.String("label", spec.Label),
			zap.Error(err),
		)
		return apology(codeFilter), true
	}

	if len(rooms) == 0 {
		return fmt.Sprintf("I couldn't find any %s at the moment. %s", spec.Label, enquiryCTA), true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Okay, here are our %s:\n", spec.Label)
	currentLodge := ""
	for _, room := range rooms {
		if room.LodgeName != currentLodge {
			currentLodge = room.LodgeName
			fmt.Fprintf(&b, "\n%s:\n", currentLodge)
		}
		fmt.Fprintf(&b, "- %s\n", room.Name)
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func (e *Executor) handleLodgeDetail(ctx context.Context, spec Spec) (string, bool) {
	id, err := e.store.ResolveLodgeByName(ctx, spec.LodgeName)
	if err != nil {
		logger.Info("Lodge name did not resolve for detail action",
			zap.String("lodge", spec.LodgeName),
			zap.Error(err),
		)
		return fmt.Sprintf("I want to make sure I give you the right details — could you confirm which lodge you mean? I couldn't find one called \"%s\".", spec.LodgeName), true
	}

	lodge, err := e.store.GetLodge(ctx, id)
	if err != nil {
		logger.Error("Lodge detail fetch failed",
			zap.String("lodge", spec.LodgeName),
			zap.Int64("lodge_id", id),
			zap.Error(err),
		)
		return apology(codeDetail), true
	}

	switch spec.Detail {
	case DetailAirport:
		return e.describeTransfer(lodge), true
	case DetailRooms:
		return fmt.Sprintf("%s has %d rooms/suites in total.", lodge.Name, lodge.RoomsTotal), true
	case DetailChildren:
		return e.describeChildrenPolicy(lodge), true
	case DetailActivities:
		return e.describeActivities(lodge), true
	case DetailRoomList:
		return e.describeRoomList(ctx, lodge), true
	default:
		logger.Warn("Unhandled detail kind, falling through",
			zap.String("lodge", spec.LodgeName),
		)
		return "", false
	}
}

// describeTransfer omits the transfer-time sentence entirely when the
// attribute is absent rather than guessing.
func (e *Executor) describeTransfer(lodge *models.Lodge) string {
	base := fmt.Sprintf("%s sits in %s, %s.", lodge.Name, lodge.Region, lodge.Country)
	if !lodge.TransferMinutes.Valid {
		return base + " I don't have the exact airstrip transfer time on hand, but our travel specialists can confirm it for you."
	}
	return fmt.Sprintf("%s The road transfer from the nearest airstrip takes about %d minutes.", base, lodge.TransferMinutes.Int64)
}

func (e *Executor) describeChildrenPolicy(lodge *models.Lodge) string {
	if lodge.FamilyFriendly {
		return fmt.Sprintf("Yes — %s welcomes families, and children are allowed. Minimum ages can vary for certain activities, so do check when booking.", lodge.Name)
	}
	return fmt.Sprintf("%s is better suited to adults and doesn't generally host young children. Leadwood House is our most family-oriented property if you're travelling with kids.", lodge.Name)
}

func (e *Executor) describeActivities(lodge *models.Lodge) string {
	var parts []string

	switch {
	case lodge.ActivitiesIncluded.HasValues():
		parts = append(parts, fmt.Sprintf("Included activities at %s: %s.",
			lodge.Name, strings.Join(lodge.ActivitiesIncluded.Values, ", ")))
	case lodge.ActivitiesIncluded.Valid:
		parts = append(parts, fmt.Sprintf("%s doesn't run a fixed activity schedule — days are shaped around you.", lodge.Name))
	default:
		parts = append(parts, fmt.Sprintf("I couldn't retrieve the full activity list for %s just now.", lodge.Name))
	}

	if lodge.ActivitiesOptional.HasValues() {
		parts = append(parts, fmt.Sprintf("Optional extras: %s.",
			strings.Join(lodge.ActivitiesOptional.Values, ", ")))
	}

	return strings.Join(parts, " ")
}

// describeRoomList is the one multi-step handler: a failed room lookup
// degrades to a fragment instead of discarding the lodge part.
func (e *Executor) describeRoomList(ctx context.Context, lodge *models.Lodge) string {
	rooms, err := e.store.ListRoomTypes(ctx, lodge.ID)
	if err != nil {
		logger.Error("Room list fetch failed",
			zap.Int64("lodge_id", lodge.ID),
			zap.Error(err),
		)
		return fmt.Sprintf("%s offers %d rooms/suites, but I couldn't retrieve the room list just now. %s",
			lodge.Name, lodge.RoomsTotal, enquiryCTA)
	}

	if len(rooms) == 0 {
		return fmt.Sprintf("I don't have individual room details for %s on file. %s", lodge.Name, enquiryCTA)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Okay, here are the room types at %s:\n", lodge.Name)
	for _, room := range rooms {
		fmt.Fprintf(&b, "- %s", room.Name)
		if room.Description != "" {
			fmt.Fprintf(&b, " — %s", room.Description)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func apology(code string) string {
	return fmt.Sprintf("I'm sorry — I wasn't able to look that up just now. Please try again in a moment. (ref: %s)", code)
}

// Keep the concrete store satisfying the interface.
var _ Store = (*postgres.Client)(nil)
