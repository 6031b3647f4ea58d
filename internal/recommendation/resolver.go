// Package recommendation maps a predicted class label to treatment advice.
package recommendation

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// rule produces a recommendation when it matches. Rules run in order and the
// first match wins.
type rule struct {
	name    string
	resolve func(class string) (string, bool)
}

// Resolver is safe for concurrent use; it is never mutated after construction.
type Resolver struct {
	table    []Treatment
	byKey    map[string]string
	keywords []KeywordTreatment
	healthy  string
	diseased string
	rules    []rule
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithKeywordTreatments replaces the disease-family fallbacks.
func WithKeywordTreatments(k []KeywordTreatment) Option {
	return func(r *Resolver) {
		r.keywords = append([]KeywordTreatment(nil), k...)
	}
}

// WithDefaultTexts replaces the healthy and diseased fallback texts.
func WithDefaultTexts(healthy, diseased string) Option {
	return func(r *Resolver) {
		r.healthy = healthy
		r.diseased = diseased
	}
}

// NewResolver builds a resolver over table. Duplicate keys keep their first
// text.
func NewResolver(table []Treatment, opts ...Option) *Resolver {
	r := &Resolver{
		table:    append([]Treatment(nil), table...),
		byKey:    make(map[string]string, len(table)),
		keywords: DefaultKeywordTreatments(),
		healthy:  DefaultHealthyText,
		diseased: DefaultDiseasedText,
	}
	for _, t := range r.table {
		if _, dup := r.byKey[t.Key]; !dup {
			r.byKey[t.Key] = t.Text
		}
	}
	for _, opt := range opts {
		opt(r)
	}

	r.rules = []rule{
		{"exact", r.exact},
		{"healthy", r.healthyLabel},
		{"crop", r.cropSibling},
		{"keyword", r.keyword},
	}
	return r
}

// Default returns a resolver over the curated treatment table.
func Default() *Resolver {
	return NewResolver(DefaultTreatments())
}

// Resolve returns the treatment text for class. It never fails.
func (r *Resolver) Resolve(class string) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithFields(logrus.Fields{
				"predicted_class": class,
				"panic":           fmt.Sprint(rec),
			}).Error("Error getting treatment recommendation")
			text = r.diseased
		}
	}()

	for _, rl := range r.rules {
		if text, ok := rl.resolve(class); ok {
			logger.WithFields(logrus.Fields{
				"predicted_class": class,
				"rule":            rl.name,
			}).Debug("Recommendation resolved")
			return text
		}
	}
	return r.diseased
}

func (r *Resolver) exact(class string) (string, bool) {
	text, ok := r.byKey[class]
	return text, ok
}

func (r *Resolver) healthyLabel(class string) (string, bool) {
	if strings.Contains(strings.ToLower(class), "healthy") {
		return r.healthy, true
	}
	return "", false
}

func (r *Resolver) cropSibling(class string) (string, bool) {
	crop, _, found := strings.Cut(class, "_")
	if !found || crop == "" {
		return "", false
	}
	prefix := crop + "_"
	for _, t := range r.table {
		if t.Key != class && strings.HasPrefix(t.Key, prefix) {
			return t.Text + fmt.Sprintf(cropAdaptedNote, crop), true
		}
	}
	return "", false
}

func (r *Resolver) keyword(class string) (string, bool) {
	lower := strings.ToLower(class)
	for _, k := range r.keywords {
		if strings.Contains(lower, strings.ToLower(k.Keyword)) {
			return k.Text + generalNote, true
		}
	}
	return "", false
}
