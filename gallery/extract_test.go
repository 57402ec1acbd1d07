package gallery

import (
	"reflect"
	"testing"
)

func TestExtractDeviationURLs(t *testing.T) {
	page := `<html><body>
<a href="https://www.deviantart.com/zoec98/art/Chapter-One-1001">one</a>
<a href="https://www.deviantart.com/zoec98/art/Chapter-Two-1002">two</a>
<div data-hook="https://www.deviantart.com/zoec98/art/Chapter-One-1001"></div>
<a href='https://www.deviantart.com/ZoeC98/art/Chapter-Three-1003'>three</a>
<a href="https://www.deviantart.com/someoneelse/art/Other-2001">other</a>
<a href="https://www.deviantart.com/zoec98/gallery/100193480">folder</a>
</body></html>`

	got := ExtractDeviationURLs(page, testHost, "zoec98")
	want := []string{
		"https://www.deviantart.com/zoec98/art/Chapter-One-1001",
		"https://www.deviantart.com/zoec98/art/Chapter-Two-1002",
		"https://www.deviantart.com/ZoeC98/art/Chapter-Three-1003",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractDeviationURLs() =\n%v\nwant\n%v", got, want)
	}
}

func TestExtractDeviationURLs_Nothing(t *testing.T) {
	if got := ExtractDeviationURLs("<p>empty</p>", testHost, "zoec98"); len(got) != 0 {
		t.Errorf("ExtractDeviationURLs() = %v, want none", got)
	}
}
