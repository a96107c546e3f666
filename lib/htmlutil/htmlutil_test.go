package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(
		`<div><span>一行目</span><span>の続き</span></div>`,
	))
	require.NoError(t, err)
	require.Equal(t, "一行目の続き", CleanText(GetText(doc)))
}

func TestCleanText(t *testing.T) {
	require.Equal(t, "改行は\n残る", CleanText("  改行は\n残る\t"))
	require.Equal(t, "連続 空白は潰す", CleanText("連続   空白は潰す"))
}
