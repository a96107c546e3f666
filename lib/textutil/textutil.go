package textutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// Threads renders engagement controls and timestamps as bare text
// nodes, so extraction has to recognize and discard them.
var uiTexts = []string{
	"いいね", "返信", "再投稿", "シェア", "フォロー", "フォローする", "もっと見る",
	"Like", "Reply", "Repost", "Share", "Follow", "More",
	"分前", "時間前", "秒前", "日前",
	"min", "hour", "sec", "day", "ago",
}

var counterPattern = regexp.MustCompile(`^\d+(,\d+)*$|^\d+(\.\d+)?[kK]$`)

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+分(前)?$`),
	regexp.MustCompile(`^\d+時間(前)?$`),
	regexp.MustCompile(`^\d+日(前)?$`),
	regexp.MustCompile(`^\d+秒(前)?$`),
	regexp.MustCompile(`^\d+\s*min(s)?(\s*ago)?$`),
	regexp.MustCompile(`^\d+\s*hour(s)?(\s*ago)?$`),
	regexp.MustCompile(`^\d+\s*day(s)?(\s*ago)?$`),
	regexp.MustCompile(`^\d+\s*sec(s)?(\s*ago)?$`),
}

// IsUIText reports whether text looks like feed chrome (like counts,
// action labels, relative timestamps) rather than post content.
func IsUIText(text string) bool {
	if len([]rune(text)) < 5 {
		return true
	}
	if counterPattern.MatchString(text) {
		return true
	}
	for _, ui := range uiTexts {
		if strings.Contains(text, ui) {
			return true
		}
	}
	for _, pattern := range timePatterns {
		if pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// ParseCompactCount parses counter text the way feeds render it:
// "1,234", "987", "1.2k", "12K".
func ParseCompactCount(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	if !counterPattern.MatchString(text) {
		return 0, false
	}

	lower := strings.ToLower(text)
	if strings.HasSuffix(lower, "k") {
		n, err := strconv.ParseFloat(strings.TrimSuffix(lower, "k"), 64)
		if err != nil {
			return 0, false
		}
		return int64(n * 1000), true
	}

	n, err := strconv.ParseInt(strings.ReplaceAll(text, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

var spamPatterns = []string{
	"100円note", "月5万", "裏技", "副業", "スキル０", "在宅", "稼げる",
	"Line登録", "権利収入", "不労所得",
}

// IsSpam matches the ad/funnel posts that flood the timeline.
func IsSpam(text string) bool {
	for _, pattern := range spamPatterns {
		if strings.Contains(text, pattern) {
			return true
		}
	}
	return false
}

// IsPlausibleUsername rejects extraction noise that ends up in the
// username slot: empty strings, bare counters, strings too long to be
// a handle.
func IsPlausibleUsername(username string) bool {
	runeCount := len([]rune(username))
	if runeCount <= 2 || runeCount >= 30 {
		return false
	}
	for _, c := range username {
		if c < '0' || c > '9' {
			return true
		}
	}
	// all digits is a counter, not a handle
	return false
}

const nearDuplicateThreshold = 0.93

// NearDuplicate reports whether two post texts are close enough that
// one is a repost or truncated rendering of the other. Exact prefix
// matches short-circuit before the similarity pass.
func NearDuplicate(a, b string) bool {
	if a == b {
		return true
	}
	ar := []rune(a)
	br := []rune(b)
	if len(ar) >= 50 && len(br) >= 50 && string(ar[:50]) == string(br[:50]) {
		return true
	}
	return matchr.JaroWinkler(a, b, false) > nearDuplicateThreshold
}
