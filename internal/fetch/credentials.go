package fetch

import (
	"encoding/base64"
	"os"
	"strings"
)

// 凭证相关的环境变量名。
const (
	EnvGithubToken   = "GITHUB_TOKEN"
	EnvBasicUsername = "FETCH_CACHE_AUTH_BASIC_USERNAME"
	EnvBasicPassword = "FETCH_CACHE_AUTH_BASIC_PASSWORD"
)

// CredentialProvider 为指定主机提供 Authorization 头的值，空串表示匿名。
// 以接口注入而非在管道内部直接读环境变量，方便测试伪造凭证。
type CredentialProvider interface {
	Authorization(host string) string
}

// EnvCredentials 从环境变量读取凭证：github.com 及其子域优先使用
// GITHUB_TOKEN（token 方案），其余主机在用户名/密码齐备时使用 HTTP Basic。
type EnvCredentials struct {
	lookup func(string) (string, bool)
}

// NewEnvCredentials 构建基于真实环境变量的凭证源。
func NewEnvCredentials() EnvCredentials {
	return EnvCredentials{lookup: os.LookupEnv}
}

// NewStaticCredentials 构建基于固定键值的凭证源，测试用。
func NewStaticCredentials(values map[string]string) EnvCredentials {
	return EnvCredentials{lookup: func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}}
}

// Authorization 按主机计算凭证头，没有可用凭证时返回空串。
func (e EnvCredentials) Authorization(host string) string {
	if strings.HasSuffix(host, "github.com") {
		if token, ok := e.lookup(EnvGithubToken); ok && token != "" {
			return "token " + token
		}
	}

	username, uok := e.lookup(EnvBasicUsername)
	password, pok := e.lookup(EnvBasicPassword)
	if uok && pok {
		id := username + ":" + password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(id))
	}
	return ""
}
