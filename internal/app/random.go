package app

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"time"

	"ham-exam-bot/internal/domain"
)

// Letters are assigned to answer options in this order.
var Letters = []string{"A", "B", "C", "D"}

// newSeededRand seeds a session RNG from crypto/rand, falling back to the clock.
func newSeededRand() *rand.Rand {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	return rand.New(rand.NewSource(seed))
}

// shuffleQuestions returns a Fisher-Yates shuffled copy.
func shuffleQuestions(rnd *rand.Rand, questions []domain.Question) []domain.Question {
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

// drawQuestion removes one question uniformly at random from pool.
func drawQuestion(rnd *rand.Rand, pool []domain.Question) (domain.Question, []domain.Question) {
	i := rnd.Intn(len(pool))
	picked := pool[i]
	last := len(pool) - 1
	pool[i] = pool[last]
	pool[last] = domain.Question{}
	return picked, pool[:last]
}

// letterMapping is the round's letter -> option assignment.
type letterMapping struct {
	order   []string
	options map[string]domain.AnswerOption
}

// assignLetters draws a random unused option index for each letter in order.
// Questions with fewer than four options get only that many letters.
func assignLetters(rnd *rand.Rand, options []domain.AnswerOption) letterMapping {
	n := len(options)
	if n > len(Letters) {
		n = len(Letters)
	}
	m := letterMapping{
		order:   make([]string, 0, n),
		options: make(map[string]domain.AnswerOption, n),
	}
	used := make(map[int]bool, n)
	for _, letter := range Letters[:n] {
		idx := rnd.Intn(len(options))
		for used[idx] {
			idx = rnd.Intn(len(options))
		}
		used[idx] = true
		m.order = append(m.order, letter)
		m.options[letter] = options[idx]
	}
	return m
}

// correctLetter finds the letter of the round's correct option.
func (m letterMapping) correctLetter() (string, domain.AnswerOption, bool) {
	var (
		letter string
		found  domain.AnswerOption
		count  int
	)
	for _, l := range m.order {
		if opt := m.options[l]; opt.Correct {
			letter, found = l, opt
			count++
		}
	}
	if count != 1 {
		return "", domain.AnswerOption{}, false
	}
	return letter, found, true
}

func (m letterMapping) choices() []domain.Choice {
	out := make([]domain.Choice, 0, len(m.order))
	for _, l := range m.order {
		out = append(out, domain.Choice{Letter: l, Text: m.options[l].Text})
	}
	return out
}
