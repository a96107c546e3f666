package collector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"threadsmith-backend/lib/scrapers/threads"
	"threadsmith-backend/lib/testutil"
	"threadsmith-backend/services/collector/db"

	_ "modernc.org/sqlite"
)

func TestSanitize(t *testing.T) {
	posts := []threads.Post{
		{Username: "taro_dev", Text: "Goに移行してからデプロイが楽になった話を書きます", Likes: 120},
		{Username: "taro_dev", Text: "Goに移行してからデプロイが楽になった話を書きます!", Likes: 80},
		{Username: "hana_writes", Text: "いいね", Likes: 500},
		{Username: "12345", Text: "数字だけのユーザー名からの投稿です", Likes: 50},
		{Username: "spam_acct", Text: "らくらく月5万の副業、プロフから", Likes: 900},
		{Username: "low_likes", Text: "面白いけど誰にも読まれていない長文の投稿", Likes: 3},
		{Username: "quiet_user", Text: "今朝のコーヒーがいつもより美味しかった気がする", Likes: 10},
	}

	kept := Sanitize(posts, 5)
	require.Len(t, kept, 2)
	require.Equal(t, "taro_dev", kept[0].Username)
	require.Equal(t, int64(120), kept[0].Likes)
	require.Equal(t, "quiet_user", kept[1].Username)
}

func TestSanitizeKeepsZeroLikePostsByDefault(t *testing.T) {
	posts := []threads.Post{
		{Username: "taro_dev", Text: "いいね数が取得できなかった投稿もここで落としてはいけない", Likes: 0},
	}
	kept := Sanitize(posts, 0)
	require.Len(t, kept, 1)
	require.Equal(t, "taro_dev", kept[0].Username)
}

func TestSanitizeLikesThresholdIsStrict(t *testing.T) {
	posts := []threads.Post{
		{Username: "exactly_at", Text: "ちょうど閾値と同じいいね数の投稿です", Likes: 10},
		{Username: "just_above", Text: "閾値を一つだけ超えているほうの投稿です", Likes: 11},
	}
	kept := Sanitize(posts, 10)
	require.Len(t, kept, 1)
	require.Equal(t, "just_above", kept[0].Username)
}

func TestRawCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "general", "general_120000.csv")
	posts := []threads.Post{
		{Username: "taro_dev", Text: "改行を含む\n投稿もそのまま残る", Likes: 42, Target: "general"},
		{Username: "hana_writes", Text: "カンマ, も問題ない", Likes: 7, Target: "general"},
	}

	require.NoError(t, WriteRawCSV(path, posts))

	read, err := ReadRawCSV(path)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(posts, read))
}

func TestReadRawCSVLenientColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hand_edited.csv")
	contents := "username,post_text\ntaro_dev,いいね数の列がない手書きファイル\n,本文だけでユーザー名がない行\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	read, err := ReadRawCSV(path)
	require.NoError(t, err)
	require.Len(t, read, 1)
	require.Equal(t, int64(0), read[0].Likes)
}

func TestPostQueries(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/collector",
		DbSchema: db.Schema,
	})
	defer cleanup()
	qry := db.New(setup.DB)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	now := time.Now().Unix()
	for _, p := range []db.CreatePostParams{
		{Target: "general", Username: "taro_dev", Text: "一つ目", Likes: 20, CollectedAt: now},
		{Target: "general", Username: "hana_writes", Text: "二つ目", Likes: 5, CollectedAt: now},
		{Target: "other", Username: "taro_dev", Text: "別ターゲット", Likes: 99, CollectedAt: now},
	} {
		require.NoError(t, qry.CreatePost(ctx, p))
	}

	// conflicting row updates likes in place
	require.NoError(t, qry.CreatePost(ctx, db.CreatePostParams{
		Target: "general", Username: "taro_dev", Text: "一つ目", Likes: 25, CollectedAt: now,
	}))

	posts, err := qry.GetPostsByTarget(ctx, db.GetPostsByTargetParams{Target: "general", MinLikes: 10})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, int64(25), posts[0].Likes)

	count, err := qry.CountPostsByTarget(ctx, "general")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// rolled back transactions leave nothing behind
	tx, err := setup.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, qry.WithTx(tx).CreatePost(ctx, db.CreatePostParams{
		Target: "general", Username: "rollback_user", Text: "消える行", Likes: 1, CollectedAt: now,
	}))
	require.NoError(t, tx.Rollback())
	count, err = qry.CountPostsByTarget(ctx, "general")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestPruneBefore(t *testing.T) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/collector",
		DbSchema: db.Schema,
	})
	defer cleanup()
	qry := db.New(setup.DB)
	service := NewService(setup.DB, Options{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	now := time.Now()
	require.NoError(t, qry.CreatePost(ctx, db.CreatePostParams{
		Target: "general", Username: "old_user", Text: "古い投稿",
		Likes: 1, CollectedAt: now.AddDate(0, 0, -30).Unix(),
	}))
	require.NoError(t, qry.CreatePost(ctx, db.CreatePostParams{
		Target: "general", Username: "new_user", Text: "新しい投稿",
		Likes: 1, CollectedAt: now.Unix(),
	}))

	require.NoError(t, service.PruneBefore(ctx, now.AddDate(0, 0, -10)))

	posts, err := qry.GetPostsByTarget(ctx, db.GetPostsByTargetParams{Target: "general", MinLikes: 0})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, "new_user", posts[0].Username)
}
