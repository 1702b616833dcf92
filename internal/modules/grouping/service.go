package grouping

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/domain"
	"github.com/aristath/journal/internal/modules/trades"
	"github.com/aristath/journal/internal/symbols"
)

// DefaultWindow is the entry-time proximity used when a request does
// not specify one.
const DefaultWindow = 60 * time.Second

// ErrTradeNotFound is returned when a grouping run targets a trade ID
// that does not exist or belongs to another user.
var ErrTradeNotFound = errors.New("trade not found")

// Result summarizes one grouping run
type Result struct {
	GroupsCreated int `json:"groups_created"`
	TradesGrouped int `json:"trades_grouped"`
}

// Service clusters a user's trades into groups by pairwise proximity to
// an anchor trade: same normalized symbol, same direction, entry times
// within the window. Matching is deliberately anchor-relative, not
// transitive closure: if A matches B and B matches C but A does not
// match C, the cluster formed around anchor A is {A, B} only.
type Service struct {
	tradeRepo *trades.TradeRepository
	groupRepo *GroupRepository
	log       zerolog.Logger
}

// NewService creates a grouping service
func NewService(tradeRepo *trades.TradeRepository, groupRepo *GroupRepository, log zerolog.Logger) *Service {
	return &Service{
		tradeRepo: tradeRepo,
		groupRepo: groupRepo,
		log:       log.With().Str("service", "grouping").Logger(),
	}
}

// Run executes one grouping pass for the user. With a trade ID, only
// that trade anchors the pass; otherwise every ungrouped non-archived
// trade does, oldest entry first. A non-positive window selects
// DefaultWindow. Failures on individual anchors are logged and skipped
// so one bad row cannot abort the whole pass.
func (s *Service) Run(userID string, tradeID *int64, window time.Duration) (*Result, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	var anchors []domain.Trade
	if tradeID != nil {
		trade, err := s.tradeRepo.GetByID(*tradeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load anchor trade: %w", err)
		}
		if trade == nil || trade.UserID != userID {
			return nil, ErrTradeNotFound
		}
		anchors = []domain.Trade{*trade}
	} else {
		var err error
		anchors, err = s.tradeRepo.GetUngrouped(userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ungrouped trades: %w", err)
		}
	}

	result := &Result{}
	processed := make(map[int64]bool)

	for i := range anchors {
		anchor := &anchors[i]
		if processed[anchor.ID] {
			continue
		}

		if err := s.groupAroundAnchor(userID, anchor, window, processed, result); err != nil {
			s.log.Error().
				Err(err).
				Int64("trade_id", anchor.ID).
				Str("ticket", anchor.Ticket).
				Msg("Failed to group around anchor, skipping")
		}
	}

	s.log.Info().
		Str("user_id", userID).
		Int("groups_created", result.GroupsCreated).
		Int("trades_grouped", result.TradesGrouped).
		Msg("Grouping run complete")

	return result, nil
}

// groupAroundAnchor finds the anchor's matches and assigns the cluster
// to a group. Group ID resolution order: a group already carried by a
// matched candidate, then the anchor's own group, then a fresh group.
func (s *Service) groupAroundAnchor(userID string, anchor *domain.Trade, window time.Duration, processed map[int64]bool, result *Result) error {
	processed[anchor.ID] = true

	candidates, err := s.tradeRepo.GetCandidatesInWindow(userID, anchor.Direction, anchor.EntryTime, window, anchor.ID)
	if err != nil {
		return fmt.Errorf("failed to load candidates: %w", err)
	}

	anchorSymbol := symbols.Normalize(anchor.Symbol)

	var matches []domain.Trade
	for _, c := range candidates {
		if processed[c.ID] {
			continue
		}
		if symbols.Normalize(c.Symbol) != anchorSymbol {
			continue
		}
		matches = append(matches, c)
	}

	// A trade with no neighbors stays ungrouped
	if len(matches) == 0 {
		return nil
	}

	groupID := ""
	for _, m := range matches {
		if m.TradeGroupID != nil {
			groupID = *m.TradeGroupID
			break
		}
	}
	if groupID == "" && anchor.TradeGroupID != nil {
		groupID = *anchor.TradeGroupID
	}

	if groupID == "" {
		firstEntry := anchor.EntryTime
		for _, m := range matches {
			if m.EntryTime.Before(firstEntry) {
				firstEntry = m.EntryTime
			}
		}

		group, err := s.groupRepo.Create(userID, anchorSymbol, anchor.Direction, firstEntry, anchor.PlaybookID)
		if err != nil {
			return fmt.Errorf("failed to create group: %w", err)
		}
		groupID = group.ID
		result.GroupsCreated++
	}

	// Assign only members not already in the group
	var toAssign []int64
	if anchor.TradeGroupID == nil || *anchor.TradeGroupID != groupID {
		toAssign = append(toAssign, anchor.ID)
	}
	for _, m := range matches {
		processed[m.ID] = true
		if m.TradeGroupID == nil || *m.TradeGroupID != groupID {
			toAssign = append(toAssign, m.ID)
		}
	}

	if err := s.tradeRepo.AssignGroup(groupID, toAssign); err != nil {
		return fmt.Errorf("failed to assign cluster to group %s: %w", groupID, err)
	}
	result.TradesGrouped += len(toAssign)

	s.log.Debug().
		Str("group_id", groupID).
		Int64("anchor_id", anchor.ID).
		Int("cluster_size", len(matches)+1).
		Msg("Cluster assigned")

	return nil
}
