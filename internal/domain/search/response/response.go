package response

// Text caps for curator-supplied fields. Overlong text is truncated,
// never rejected: it may come from a generative model.
const (
	MaxSummaryLength = 100
	MaxMessageLength = 150
)

// Static fallbacks used when the curator omits a field entirely.
const (
	DefaultSummary = "お探しの商品について"
	DefaultMessage = "おすすめの商品をご提案いたします！"
)

// Classified is the final bucketed recommendation set. The three buckets
// are mutually exclusive: an ID claimed by an earlier bucket is dropped
// from later ones.
type Classified struct {
	main    []string
	sub     []string
	related []string
	summary string
	message string
}

// New builds a classified response, enforcing bucket exclusivity and
// text caps. ID validity against the catalog is the caller's concern.
func New(main, sub, related []string, summary, message string) Classified {
	seen := make(map[string]struct{})
	take := func(ids []string) []string {
		out := make([]string, 0, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
		return out
	}

	if summary == "" {
		summary = DefaultSummary
	}
	if message == "" {
		message = DefaultMessage
	}

	return Classified{
		main:    take(main),
		sub:     take(sub),
		related: take(related),
		summary: truncate(summary, MaxSummaryLength),
		message: truncate(message, MaxMessageLength),
	}
}

// Main returns the best-fit product IDs.
func (c *Classified) Main() []string { return c.main }

// Sub returns the complementary (coordinate) product IDs.
func (c *Classified) Sub() []string { return c.sub }

// Related returns the alternative product IDs.
func (c *Classified) Related() []string { return c.related }

// Summary returns the short request summary.
func (c *Classified) Summary() string { return c.summary }

// Message returns the recommendation message.
func (c *Classified) Message() string { return c.message }

// FilterIDs keeps only the IDs for which keep returns true, preserving
// order. Used to drop IDs that do not resolve in the catalog.
func (c *Classified) FilterIDs(keep func(id string) bool) {
	c.main = filterIDs(c.main, keep)
	c.sub = filterIDs(c.sub, keep)
	c.related = filterIDs(c.related, keep)
}

func filterIDs(ids []string, keep func(id string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// truncate caps s at n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
