package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsUIText(t *testing.T) {
	for _, text := range []string{
		"いいね", "返信", "フォローする", "Like", "Reply",
		"1,234", "1.2k", "12", "3時間前", "5 mins ago",
	} {
		require.True(t, IsUIText(text), "expected UI text: %q", text)
	}
	for _, text := range []string{
		"今日はいい天気なので散歩してきた",
		"Shipped the new release today, feels good",
	} {
		require.False(t, IsUIText(text), "expected content text: %q", text)
	}
}

func TestParseCompactCount(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"987", 987, true},
		{"1,234", 1234, true},
		{"1.2k", 1200, true},
		{"12K", 12000, true},
		{" 42 ", 42, true},
		{"", 0, false},
		{"いいね", 0, false},
		{"1.2.3k", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseCompactCount(c.in)
		require.Equal(t, c.ok, ok, "input %q", c.in)
		require.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestIsSpam(t *testing.T) {
	require.True(t, IsSpam("らくらく月5万の副業を紹介します"))
	require.True(t, IsSpam("不労所得で自由な生活を手に入れよう"))
	require.False(t, IsSpam("今日のランチは蕎麦にした"))
}

func TestIsPlausibleUsername(t *testing.T) {
	require.True(t, IsPlausibleUsername("taro_dev"))
	require.True(t, IsPlausibleUsername("abc"))
	require.False(t, IsPlausibleUsername(""))
	require.False(t, IsPlausibleUsername("ab"))
	require.False(t, IsPlausibleUsername("12345"))
	require.False(t, IsPlausibleUsername(strings.Repeat("a", 30)))
}

func TestNearDuplicate(t *testing.T) {
	require.True(t, NearDuplicate("同じ投稿", "同じ投稿"))

	long := strings.Repeat("今日も朝からコードを書いている。", 5)
	require.True(t, NearDuplicate(long+"おわり", long+"続きはまた明日"))

	require.True(t, NearDuplicate(
		"Goでスクレイパーを書き直したら保守が楽になった",
		"Goでスクレイパーを書き直したら保守が楽になった!",
	))
	require.False(t, NearDuplicate("全然違う話題の投稿です", "こっちは別のことを書いている"))
}
