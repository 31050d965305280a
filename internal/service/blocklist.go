package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ayo6706/payment-screening/internal/domain"
	"github.com/ayo6706/payment-screening/internal/models"
	"github.com/ayo6706/payment-screening/internal/observability"
	"github.com/ayo6706/payment-screening/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	blockListCacheKey    = "blocklist:active"
	tokenOverlapRatio    = 0.6
	minOverlapTokenLen   = 3
	MatchTypeExact       = "exact"
	MatchTypeContainment = "containment"
	MatchTypePartial     = "partial"
)

var (
	nonWordChars = regexp.MustCompile(`[^\w\s]`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// AddBlockListEntryRequest holds the fields of a new block-list entry.
type AddBlockListEntryRequest struct {
	Name     string
	Type     string
	Reason   string
	Severity int
	AddedBy  string
	Notes    string
}

// BlockListService screens names against the active block list.
type BlockListService struct {
	store    QueryStore
	cache    redis.Cmdable
	cacheTTL time.Duration
	failOpen bool
	audit    *AuditService
}

func NewBlockListService(store QueryStore, cache redis.Cmdable, cacheTTL time.Duration, failOpen bool) *BlockListService {
	return &BlockListService{
		store:    store,
		cache:    cache,
		cacheTTL: cacheTTL,
		failOpen: failOpen,
		audit:    NewAuditService(store),
	}
}

// NormalizeName lowercases, strips non-word characters and collapses whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = nonWordChars.ReplaceAllString(name, "")
	name = whitespace.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// Check screens a candidate name. When the block list cannot be loaded the
// result depends on the fail-open setting.
func (s *BlockListService) Check(ctx context.Context, candidate string) (models.BlockListCheck, error) {
	if NormalizeName(candidate) == "" {
		return models.BlockListCheck{}, nil
	}

	entries, err := s.activeEntries(ctx)
	if err != nil {
		if !s.failOpen {
			zap.L().Error("block list unavailable, failing closed", zap.Error(err))
			return models.BlockListCheck{}, fmt.Errorf("%w: %v", ErrScreeningUnavailable, err)
		}
		observability.IncrementFailOpen("blocklist")
		zap.L().Error("block list unavailable, screening skipped (fail-open)",
			zap.Error(err),
			zap.String("candidate", candidate),
		)
		return models.BlockListCheck{}, nil
	}
	return MatchBlockList(candidate, entries), nil
}

// MatchBlockList applies exact, containment and token-overlap matching to
// entries ordered by severity. The first entry that matches wins.
func MatchBlockList(candidate string, entries []models.BlockListEntry) models.BlockListCheck {
	norm := NormalizeName(candidate)
	if norm == "" {
		return models.BlockListCheck{}
	}
	for i := range entries {
		entry := entries[i]
		matchType := matchEntry(norm, NormalizeName(entry.Name))
		if matchType == "" {
			continue
		}
		return models.BlockListCheck{
			IsBlocked:    true,
			MatchType:    matchType,
			MatchedEntry: &entry,
			Reason: fmt.Sprintf("%s match against block list entry %q (%s, severity %d): %s",
				matchType, entry.Name, entry.Type, entry.Severity, entry.Reason),
		}
	}
	return models.BlockListCheck{}
}

func matchEntry(candidate, entryName string) string {
	if entryName == "" {
		return ""
	}
	if candidate == entryName {
		return MatchTypeExact
	}
	if strings.Contains(candidate, entryName) || strings.Contains(entryName, candidate) {
		return MatchTypeContainment
	}
	if tokenOverlap(candidate, entryName) > tokenOverlapRatio {
		return MatchTypePartial
	}
	return ""
}

// tokenOverlap is the share of significant entry tokens matched by some
// candidate token, where either token may contain the other.
func tokenOverlap(candidate, entryName string) float64 {
	var entryTokens []string
	for _, tok := range strings.Fields(entryName) {
		if len(tok) >= minOverlapTokenLen {
			entryTokens = append(entryTokens, tok)
		}
	}
	if len(entryTokens) == 0 {
		return 0
	}
	candidateTokens := strings.Fields(candidate)
	matched := 0
	for _, et := range entryTokens {
		for _, ct := range candidateTokens {
			if strings.Contains(ct, et) || strings.Contains(et, ct) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(entryTokens))
}

// ListActive returns active entries ordered by severity then name.
func (s *BlockListService) ListActive(ctx context.Context) ([]models.BlockListEntry, error) {
	return s.activeEntries(ctx)
}

// Add validates and stores a new active entry.
func (s *BlockListService) Add(ctx context.Context, req AddBlockListEntryRequest) (uuid.UUID, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.Reason = strings.TrimSpace(req.Reason)
	req.AddedBy = strings.TrimSpace(req.AddedBy)

	switch {
	case NormalizeName(req.Name) == "":
		return uuid.Nil, fmt.Errorf("%w: name is required", ErrInvalidBlockListEntry)
	case req.Type != domain.EntryTypePerson && req.Type != domain.EntryTypeOrganization && req.Type != domain.EntryTypeEntity:
		return uuid.Nil, fmt.Errorf("%w: unsupported type %q", ErrInvalidBlockListEntry, req.Type)
	case req.Severity < 1 || req.Severity > 10:
		return uuid.Nil, fmt.Errorf("%w: severity must be between 1 and 10", ErrInvalidBlockListEntry)
	case req.Reason == "":
		return uuid.Nil, fmt.Errorf("%w: reason is required", ErrInvalidBlockListEntry)
	case req.AddedBy == "":
		return uuid.Nil, fmt.Errorf("%w: addedBy is required", ErrInvalidBlockListEntry)
	}

	id := uuid.New()
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		if _, err := qtx.InsertBlockListEntry(ctx, repository.InsertBlockListEntryParams{
			ID:       repository.ToPgUUID(id),
			Name:     req.Name,
			Type:     req.Type,
			Reason:   req.Reason,
			Severity: int32(req.Severity),
			AddedBy:  req.AddedBy,
			Notes:    textParam(strings.TrimSpace(req.Notes)),
		}); err != nil {
			return fmt.Errorf("insert block list entry: %w", err)
		}
		return s.audit.Write(ctx, qtx, "block_list", id, req.AddedBy, "added", "", "ACTIVE", nil)
	})
	if err != nil {
		return uuid.Nil, err
	}
	s.invalidate(ctx)
	zap.L().Info("block list entry added",
		zap.String("entry_id", id.String()),
		zap.String("type", req.Type),
		zap.Int("severity", req.Severity),
		zap.String("added_by", req.AddedBy),
	)
	return id, nil
}

// Deactivate turns an entry off. It reports false when the entry was already
// inactive.
func (s *BlockListService) Deactivate(ctx context.Context, id uuid.UUID, actor string) (bool, error) {
	var deactivated bool
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.DeactivateBlockListEntry(ctx, repository.ToPgUUID(id))
		if err != nil {
			return fmt.Errorf("deactivate block list entry: %w", err)
		}
		if rows == 0 {
			if _, err := qtx.GetBlockListEntry(ctx, repository.ToPgUUID(id)); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return ErrBlockListEntryNotFound
				}
				return fmt.Errorf("get block list entry: %w", err)
			}
			return nil
		}
		deactivated = true
		return s.audit.Write(ctx, qtx, "block_list", id, actor, "deactivated", "ACTIVE", "INACTIVE", nil)
	})
	if err != nil {
		return false, err
	}
	if deactivated {
		s.invalidate(ctx)
	}
	return deactivated, nil
}

func (s *BlockListService) activeEntries(ctx context.Context) ([]models.BlockListEntry, error) {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, blockListCacheKey).Bytes()
		if err == nil {
			var entries []models.BlockListEntry
			if json.Unmarshal(val, &entries) == nil {
				return entries, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			zap.L().Warn("redis block list lookup failed", zap.Error(err))
		}
	}

	rows, err := s.store.Queries().ListActiveBlockListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active block list entries: %w", err)
	}
	entries := make([]models.BlockListEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, toBlockListModel(row))
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if payload, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, blockListCacheKey, payload, s.cacheTTL).Err(); err != nil {
				zap.L().Warn("redis block list cache set failed", zap.Error(err))
			}
		}
	}
	return entries, nil
}

func (s *BlockListService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, blockListCacheKey).Err(); err != nil {
		zap.L().Warn("redis block list cache invalidation failed", zap.Error(err))
	}
}
