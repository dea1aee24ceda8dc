package main

import (
	"crypto/rand"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

// Question is a single multiple-choice prompt. TierRating runs from 1
// (tame) to TierExclusive; a room's content tier is a ceiling.
type Question struct {
	ID         string   `json:"id"`
	Text       string   `json:"text"`
	Options    []string `json:"options"`
	Category   string   `json:"category,omitempty"`
	TierRating int      `json:"tier_rating"`
}

const TierExclusive = 3

// QuestionProvider hands out prompt pools. Implementations are stateless
// and safe to share across rooms. count <= 0 means the whole eligible
// pool; Fetch may return fewer than count items.
type QuestionProvider interface {
	Fetch(category string, count int, tierCeiling int, exclusiveOnly bool) []Question
}

//go:embed questions/*.json
var questionFiles embed.FS

// questionBank is the built-in provider, loaded once from the embedded
// JSON files at startup.
type questionBank struct {
	questions []Question
}

func loadQuestionBank() (*questionBank, error) {
	entries, err := questionFiles.ReadDir("questions")
	if err != nil {
		return nil, err
	}

	bank := &questionBank{}

	for _, entry := range entries {
		data, err := questionFiles.ReadFile("questions/" + entry.Name())
		if err != nil {
			return nil, err
		}

		var qs []Question
		if err := json.Unmarshal(data, &qs); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}

		bank.questions = append(bank.questions, qs...)
	}

	if len(bank.questions) == 0 {
		return nil, fmt.Errorf("question bank is empty")
	}

	return bank, nil
}

func (b *questionBank) Fetch(category string, count int, tierCeiling int, exclusiveOnly bool) []Question {
	eligible := make([]Question, 0, len(b.questions))

	for _, q := range b.questions {
		if category != "" && !strings.EqualFold(q.Category, category) {
			continue
		}
		if exclusiveOnly {
			if q.TierRating != TierExclusive {
				continue
			}
		} else if q.TierRating > tierCeiling {
			continue
		}
		eligible = append(eligible, q)
	}

	shuffleQuestions(eligible)

	if count > 0 && len(eligible) > count {
		eligible = eligible[:count]
	}

	return eligible
}

// Fisher-Yates shuffle using crypto/rand
func shuffleQuestions(qs []Question) {
	for i := len(qs) - 1; i > 0; i-- {
		var b [2]byte
		if _, err := rand.Read(b[:]); err != nil {
			continue
		}
		j := (int(b[0])<<8 | int(b[1])) % (i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
