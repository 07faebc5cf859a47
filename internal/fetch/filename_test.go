package fetch

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispositionFilename(t *testing.T) {
	cases := []struct {
		name        string
		disposition string
		want        string
	}{
		{
			"扩展形式优先于普通形式",
			`attachment; filename="a.txt"; filename*=UTF-8''b%20c.txt`,
			"b c.txt",
		},
		{
			"只有普通形式",
			`attachment; filename="a.txt"`,
			"a.txt",
		},
		{
			"普通形式不带引号",
			`attachment; filename=plain.bin`,
			"plain.bin",
		},
		{
			"扩展形式缺省字符集按 latin-1",
			`attachment; filename*=''na%EFve.txt`,
			"naïve.txt",
		},
		{
			"无法识别的字符集放弃解析",
			`attachment; filename*=KOI8-R''%D0%B0.txt`,
			"",
		},
		{
			"没有文件名参数",
			`inline`,
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DispositionFilename(tc.disposition))
		})
	}
}

func TestFileNameFallsBackToURL(t *testing.T) {
	assert.Equal(t, "file.jar", FileName(nil, "https://host/path/file.jar?x=1"))
	assert.Equal(t, "file.jar", FileName(nil, "https://host/path/file.jar///"))
	assert.Equal(t, "host", FileName(nil, "https://host"))
}

func TestFileNamePrefersDispositionOnSuccess(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Disposition": []string{`attachment; filename="served.bin"`}},
	}
	assert.Equal(t, "served.bin", FileName(resp, "https://host/other.bin"))
}

func TestFileNameIgnoresDispositionOnError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusBadGateway,
		Header:     http.Header{"Content-Disposition": []string{`attachment; filename="served.bin"`}},
	}
	assert.Equal(t, "other.bin", FileName(resp, "https://host/other.bin"))
}
