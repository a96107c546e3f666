package threads

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const feedFixture = `
<html><body>
<div class="x1ypdohk x1n2onr6 xvuun6i">
  <img alt="taro_devのプロフィール写真" src="/avatar1.jpg">
  <a href="/@taro_dev"><span translate="no">taro_dev</span></a>
  <span dir="auto">3時間前</span>
  <div class="x1a6qonq"><span class="x1lliihq x1plvlek xryxfnj" dir="auto">
    Goでスクレイパーを書き直したら保守がずいぶん楽になった。型があるだけで安心感が違う。
  </span></div>
  <span class="x17qophe x10l6tqk x13vifvy">1.2k</span>
</div>
<div class="x1ypdohk x1n2onr6 xvuun6i">
  <img alt="hana_writesのプロフィール写真" src="/avatar2.jpg">
  <img alt="投稿画像" src="/photo.jpg">
  <a href="/@hana_writes"><span translate="no">hana_writes</span></a>
  <div class="x1a6qonq"><span class="x1lliihq x1plvlek xryxfnj" dir="auto">
    今日の夕焼けを撮ってみた。
  </span></div>
  <span class="x17qophe x10l6tqk x13vifvy">87</span>
</div>
<div class="x1ypdohk x1n2onr6 xvuun6i">
  <img alt="bot12345のプロフィール写真" src="/avatar3.jpg">
  <a href="/@bot12345"><span translate="no">bot12345</span></a>
  <div class="x1a6qonq"><span class="x1lliihq x1plvlek xryxfnj" dir="auto">
    らくらく月5万の副業を紹介します。プロフのリンクから登録どうぞ。
  </span></div>
  <span class="x17qophe x10l6tqk x13vifvy">2</span>
</div>
<div class="x1ypdohk x1n2onr6 xvuun6i">
  <a href="/@empty_user"><span translate="no">empty_user</span></a>
  <div class="x1a6qonq"><span class="x1lliihq x1plvlek xryxfnj" dir="auto">返信</span></div>
</div>
</body></html>
`

func TestExtractPosts(t *testing.T) {
	posts, err := ExtractPosts(feedFixture, ExtractOptions{})
	require.NoError(t, err)
	require.Len(t, posts, 2)

	require.Equal(t, "taro_dev", posts[0].Username)
	require.Contains(t, posts[0].Text, "スクレイパー")
	require.Equal(t, int64(1200), posts[0].Likes)

	require.Equal(t, "hana_writes", posts[1].Username)
	require.Equal(t, int64(87), posts[1].Likes)
}

func TestExtractPostsExcludesImagePosts(t *testing.T) {
	posts, err := ExtractPosts(feedFixture, ExtractOptions{ExcludeImagePosts: true})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "taro_dev", posts[0].Username)
}

func TestDedupeKey(t *testing.T) {
	base := strings.Repeat("あ", 50)
	a := Post{Username: "taro_dev", Text: base + "前半が同じで後半だけ違う"}
	b := Post{Username: "taro_dev", Text: base + "まったく別の続きになっている"}
	require.Equal(t, dedupeKey(a), dedupeKey(b))

	// divergence inside the 50-rune prefix keeps posts distinct
	c := Post{Username: "taro_dev", Text: strings.Repeat("い", 49) + "違"}
	require.NotEqual(t, dedupeKey(a), dedupeKey(c))

	d := Post{Username: "hana_writes", Text: a.Text}
	require.NotEqual(t, dedupeKey(a), dedupeKey(d))
}

func TestExtractPostsEmptyDocument(t *testing.T) {
	posts, err := ExtractPosts("<html><body></body></html>", ExtractOptions{})
	require.NoError(t, err)
	require.Empty(t, posts)
}
