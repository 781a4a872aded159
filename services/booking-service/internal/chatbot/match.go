package chatbot

import (
	"strings"
	"unicode"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// DefaultThreshold is the minimum token overlap for a fuzzy match.
const DefaultThreshold = 0.5

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "do": true, "does": true,
	"i": true, "you": true, "your": true, "my": true, "me": true, "we": true, "can": true,
	"to": true, "of": true, "for": true, "in": true, "on": true, "at": true, "what": true,
	"how": true, "and": true, "or": true, "it": true, "be": true,
}

// normalize lowercases s, drops punctuation and collapses whitespace.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokens(normalized string) map[string]bool {
	set := map[string]bool{}
	for _, w := range strings.Fields(normalized) {
		if !stopwords[w] {
			set[w] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if b[w] {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

// Match is a knowledge entry chosen for a question and how well it fit.
type Match struct {
	Entry model.KnowledgeEntry
	Score float64
	Exact bool
}

// Best picks the entry whose question equals query after normalization, or
// else the one with the highest token overlap at or above threshold. Ties go
// to the earlier entry.
func Best(entries []model.KnowledgeEntry, query string, threshold float64) (Match, bool) {
	q := normalize(query)
	if q == "" {
		return Match{}, false
	}
	for _, e := range entries {
		if normalize(e.Question) == q {
			return Match{Entry: e, Score: 1, Exact: true}, true
		}
	}
	qt := tokens(q)
	var best Match
	found := false
	for _, e := range entries {
		score := jaccard(qt, tokens(normalize(e.Question)))
		if score >= threshold && score > best.Score {
			best = Match{Entry: e, Score: score}
			found = true
		}
	}
	return best, found
}
