// Package extract derives structured attribute filters from a free-text
// query. Matching is substring-based against fixed vocabularies; every
// filter is a best-effort hint and absence of matches is not an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/modacloud/stylesearch/internal/domain/search/filter"
)

// colorVocab lists recognized color names. All matches are collected, so a
// query naming two colors yields two constraints.
var colorVocab = []struct {
	canonical string
	aliases   []string
}{
	{"黒", []string{"黒", "ブラック", "black"}},
	{"白", []string{"白", "ホワイト", "white"}},
	{"赤", []string{"赤", "レッド", "red"}},
	{"青", []string{"青", "ブルー", "blue"}},
	{"緑", []string{"緑", "グリーン", "green"}},
	{"黄", []string{"黄", "イエロー", "yellow"}},
	{"ピンク", []string{"ピンク", "pink"}},
	{"グレー", []string{"グレー", "gray", "grey"}},
	{"ネイビー", []string{"ネイビー", "navy"}},
	{"ベージュ", []string{"ベージュ", "beige"}},
	{"ブラウン", []string{"ブラウン", "brown"}},
}

// categoryVocab maps a category label to its trigger keywords. The first
// matching category wins; evaluation order is fixed.
var categoryVocab = []struct {
	category string
	triggers []string
}{
	{"トップス", []string{"tシャツ", "シャツ", "ブラウス", "カットソー", "t-shirt", "tshirt", "blouse"}},
	{"ボトムス", []string{"パンツ", "スカート", "デニム", "ジーンズ", "pants", "skirt", "denim", "jeans"}},
	{"アウター", []string{"ジャケット", "コート", "jacket", "coat"}},
	{"ワンピース", []string{"ワンピース", "ドレス", "dress"}},
	{"アクセサリー", []string{"バッグ", "シューズ", "靴", "帽子", "ベルト", "bag", "shoes", "hat", "belt"}},
}

// pricePatterns is ordered; the first matching pattern sets the bounds and
// stops evaluation. Max-bound forms come first so "5000円以下" is not
// misread by a later pattern.
var pricePatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`(\d+)円以下`), "max"},
	{regexp.MustCompile(`(\d+)円未満`), "max"},
	{regexp.MustCompile(`under\s+(\d+)`), "max"},
	{regexp.MustCompile(`(\d+)\s+or\s+less`), "max"},
	{regexp.MustCompile(`(\d+)円以上`), "min"},
	{regexp.MustCompile(`(\d+)\s+or\s+more`), "min"},
	{regexp.MustCompile(`(\d+)円\s*[〜～]\s*(\d+)円`), "range"},
	{regexp.MustCompile(`(\d+)\s+to\s+(\d+)`), "range"},
}

var newItemTriggers = []string{"新商品", "新作", "new arrival", "new item"}

// seasonVocab maps a canonical season to its trigger keywords. First match
// wins.
var seasonVocab = []struct {
	season   string
	triggers []string
}{
	{"春", []string{"春", "スプリング", "spring"}},
	{"夏", []string{"夏", "サマー", "summer"}},
	{"秋", []string{"秋", "オータム", "autumn", "fall"}},
	{"冬", []string{"冬", "ウィンター", "winter"}},
}

// Service extracts attribute filters from query text.
type Service struct{}

// New creates a filter extraction service.
func New() *Service { return &Service{} }

// Extract parses the query into structured filters. The zero Filters value
// is returned when nothing in the query matches a vocabulary.
func (s *Service) Extract(query string) filter.Filters {
	lower := strings.ToLower(query)

	var f filter.Filters

	for _, c := range colorVocab {
		for _, alias := range c.aliases {
			if strings.Contains(lower, alias) {
				f.Colors = append(f.Colors, c.canonical)
				break
			}
		}
	}

	for _, c := range categoryVocab {
		for _, trigger := range c.triggers {
			if strings.Contains(lower, trigger) {
				f.Categories = []string{c.category}
				break
			}
		}
		if len(f.Categories) > 0 {
			break
		}
	}

	for _, p := range pricePatterns {
		m := p.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		switch p.kind {
		case "max":
			if v, err := strconv.Atoi(m[1]); err == nil {
				f.MaxPrice = filter.IntPtr(v)
			}
		case "min":
			if v, err := strconv.Atoi(m[1]); err == nil {
				f.MinPrice = filter.IntPtr(v)
			}
		case "range":
			lo, errLo := strconv.Atoi(m[1])
			hi, errHi := strconv.Atoi(m[2])
			if errLo == nil && errHi == nil {
				f.MinPrice = filter.IntPtr(lo)
				f.MaxPrice = filter.IntPtr(hi)
			}
		}
		break
	}

	for _, trigger := range newItemTriggers {
		if strings.Contains(lower, trigger) {
			f.IsNew = filter.BoolPtr(true)
			break
		}
	}

	for _, sv := range seasonVocab {
		for _, trigger := range sv.triggers {
			if strings.Contains(lower, trigger) {
				f.Season = sv.season
				break
			}
		}
		if f.Season != "" {
			break
		}
	}

	return f
}
