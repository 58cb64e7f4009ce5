package selector_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"xc-athletes/internal/selector"
)

func doc(t *testing.T, src string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return d
}

func TestValue_FallbackAndAttr(t *testing.T) {
	d := doc(t, `<ul><li class="it" data-href="/x"><a class="nm2" href="/ok">NM</a><span class="nm1">  X
	 Y </span></li></ul>`)
	it := d.Find(".it")

	// 缺失 .nm0 -> 回退 .nm1，空白被折叠
	require.Equal(t, "X Y", selector.Value(it, ".nm0||.nm1||."))
	require.Equal(t, "/ok", selector.Value(it, "a@href||@data-href"))
	require.Equal(t, "/x", selector.Value(it, "img@src||@data-href"))
	require.Equal(t, "", selector.Value(it, ".missing||img@src"))
}

func TestOwnText(t *testing.T) {
	d := doc(t, `<h5 id="h">2021 <span>11th Grade</span> </h5>`)
	require.Equal(t, "2021", selector.OwnText(d.Find("#h")))
	require.Equal(t, "", selector.OwnText(d.Find("#none")))
}
