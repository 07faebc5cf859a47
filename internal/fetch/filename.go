package fetch

import (
	"net/http"
	"strings"

	"github.com/go-http-utils/headers"
)

// FileName 决定下载内容落盘时的文件名：成功或 304 的 HTTP 响应优先使用
// Content-Disposition 给出的名字，否则退回 URL 的最后一个路径段。
// resp 为 nil（非 HTTP 来源）时直接使用 URL 推导。
func FileName(resp *http.Response, rawURL string) string {
	if resp != nil && (resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotModified) {
		if disposition := resp.Header.Get(headers.ContentDisposition); disposition != "" {
			if name := DispositionFilename(disposition); name != "" {
				return name
			}
		}
	}
	return urlFileName(rawURL)
}

// DispositionFilename 解析 Content-Disposition 中的文件名。
// RFC 5987 的 filename*=（百分号编码、带字符集）与普通 filename= 同时出现时，
// 以出现位置靠后的一方为准。解析不出名字时返回空串。
func DispositionFilename(disposition string) string {
	lower := strings.ToLower(disposition)
	plainAt := strings.LastIndex(lower, "filename=")
	extendedAt := strings.LastIndex(lower, "filename*=")

	if plainAt > 0 && plainAt > extendedAt {
		return unquote(paramRest(disposition[plainAt+len("filename="):]))
	}
	if extendedAt > 0 && extendedAt > plainAt {
		return decodeExtendedValue(paramRest(disposition[extendedAt+len("filename*="):]))
	}
	return ""
}

// paramRest 截取参数值本身：带引号的取引号内全部内容，否则到下一个分号为止。
func paramRest(rest string) string {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, `"`) {
		if end := strings.Index(rest[1:], `"`); end >= 0 {
			return rest[:end+2]
		}
		return rest
	}
	if semi := strings.Index(rest, ";"); semi >= 0 {
		rest = rest[:semi]
	}
	return strings.TrimSpace(rest)
}

func unquote(txt string) string {
	if strings.HasPrefix(txt, `"`) && strings.HasSuffix(txt, `"`) && len(txt) >= 2 {
		return txt[1 : len(txt)-1]
	}
	return txt
}

// decodeExtendedValue 解码 charset'lang'value 形式的 RFC 5987 值。
// 字符集缺省按 iso-8859-1 处理，无法识别的字符集放弃解析。
func decodeExtendedValue(encoded string) string {
	parts := strings.SplitN(encoded, "'", 3)
	if len(parts) != 3 {
		return ""
	}
	charset := strings.ToLower(parts[0])
	if charset == "" {
		charset = "iso-8859-1"
	}

	raw, ok := percentDecode(parts[2])
	if !ok {
		return ""
	}

	switch charset {
	case "utf-8":
		return string(raw)
	case "iso-8859-1", "latin-1":
		runes := make([]rune, len(raw))
		for i, b := range raw {
			runes[i] = rune(b)
		}
		return string(runes)
	default:
		return ""
	}
}

func percentDecode(value string) ([]byte, bool) {
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c != '%' {
			out = append(out, c)
			continue
		}
		if i+2 >= len(value) {
			return nil, false
		}
		hi, hiOK := unhex(value[i+1])
		lo, loOK := unhex(value[i+2])
		if !hiOK || !loOK {
			return nil, false
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, true
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// urlFileName 去掉查询串和末尾斜杠后取 URL 的最后一个路径段。
func urlFileName(rawURL string) string {
	simple := rawURL
	if q := strings.Index(simple, "?"); q >= 0 {
		simple = simple[:q]
	}
	simple = strings.TrimRight(simple, "/")
	if slash := strings.LastIndex(simple, "/"); slash >= 0 {
		return simple[slash+1:]
	}
	return simple
}
