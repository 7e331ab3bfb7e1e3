package service

import (
	"context"
	"strings"
	"unicode"

	"github.com/punchamoorthee/paycore/internal/domain"
)

// BlockList is the read-only view of the externally maintained list.
type BlockList interface {
	ListActive(ctx context.Context) ([]domain.BlockListEntry, error)
}

// Screener matches candidate names against the block list.
type Screener struct {
	blocklist BlockList
}

func NewScreener(bl BlockList) *Screener {
	return &Screener{blocklist: bl}
}

// NormalizeName lowercases, strips every non-letter character except
// spaces, and collapses runs of whitespace to a single space.
func NormalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Screen checks a candidate name against every active entry. Exact
// normalized equality wins over substring containment; the first match of
// the highest class is returned.
func (s *Screener) Screen(ctx context.Context, candidate string) (domain.MatchResult, error) {
	normalized := NormalizeName(candidate)
	result := domain.MatchResult{NormalizedName: normalized}
	if normalized == "" {
		return result, nil
	}

	entries, err := s.blocklist.ListActive(ctx)
	if err != nil {
		return result, err
	}

	var partial *domain.BlockListEntry
	for i := range entries {
		entryName := NormalizeName(entries[i].Name)
		if entryName == "" {
			continue
		}
		if entryName == normalized {
			result.Matched = true
			result.Exact = true
			result.Entry = &entries[i]
			return result, nil
		}
		if partial == nil && (strings.Contains(normalized, entryName) || strings.Contains(entryName, normalized)) {
			partial = &entries[i]
		}
	}

	if partial != nil {
		result.Matched = true
		result.Entry = partial
	}
	return result, nil
}

// Metadata fields tried, in priority order, when extracting a sender name
// from webhook metadata.
var senderNameFields = []string{
	"senderName", "sender_name", "sender", "debtorName",
	"description", "client", "clientName", "note",
}

// Substrings that disqualify a metadata value from being a person name.
var nonNameMarkers = []string{
	"http", "://", "payment", "wallet", "transfer", "invoice", "ilp", "$",
}

// ExtractSenderName pulls a best-effort sender name out of event metadata.
// It is not a compliance guarantee: metadata is free-form and senders can
// omit or falsify it.
func ExtractSenderName(meta map[string]any) (name, field string, ok bool) {
	for _, f := range senderNameFields {
		v, present := meta[f]
		if !present {
			continue
		}
		s, isString := v.(string)
		if !isString {
			continue
		}
		s = strings.TrimSpace(s)
		if len(s) < 3 || looksNonName(s) {
			continue
		}
		return s, f, true
	}
	return "", "", false
}

func looksNonName(s string) bool {
	lower := strings.ToLower(s)
	for _, m := range nonNameMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Metadata fields tried when resolving the sender's wallet address for a
// reversal.
var senderWalletFields = []string{
	"senderWalletAddress", "sender_wallet_address", "senderWallet", "walletAddress",
}

// ExtractSenderWallet resolves the sender's wallet address from metadata.
func ExtractSenderWallet(meta map[string]any) (string, bool) {
	for _, f := range senderWalletFields {
		if v, ok := meta[f]; ok {
			if s, isString := v.(string); isString && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}
