package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// FetchFields 提供 URL/命中状态字段，供下载与回源日志复用。
func FetchFields(action, url string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"action":    action,
		"url":       url,
		"cache_hit": cacheHit,
	}
}
